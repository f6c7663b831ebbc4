package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/liminalhq/liminal/internal/auth"
	"github.com/liminalhq/liminal/internal/domain"
	"github.com/liminalhq/liminal/internal/mocks"
	"github.com/liminalhq/liminal/internal/model"
	"github.com/liminalhq/liminal/internal/service"
)

func newUserService(ctrl *gomock.Controller) (*service.UserService, *mocks.MockUserRepositoryIface) {
	repo := mocks.NewMockUserRepositoryIface(ctrl)
	hasher := auth.NewPasswordHasher(auth.DefaultPasswordParams())
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return service.NewUserService(repo, hasher, tokens), repo
}

func TestSignup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("creates user and returns token", func(t *testing.T) {
		svc, repo := newUserService(ctrl)

		repo.EXPECT().FindByEmail(gomock.Any(), "new@example.com").Return(nil, domain.ErrUserNotFound)
		repo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, u *model.User) error {
				assert.Equal(t, model.StatusActive, u.Status)
				assert.NotEqual(t, "long enough password", u.PasswordHash)
				return nil
			})

		out, err := svc.Signup(context.Background(), service.SignupInput{
			Email:       "new@example.com",
			DisplayName: "New User",
			Password:    "long enough password",
		})
		assert.NoError(t, err)
		assert.NotEmpty(t, out.Token)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		svc, repo := newUserService(ctrl)

		repo.EXPECT().FindByEmail(gomock.Any(), "taken@example.com").Return(&model.User{}, nil)

		_, err := svc.Signup(context.Background(), service.SignupInput{
			Email:       "taken@example.com",
			DisplayName: "New User",
			Password:    "long enough password",
		})
		assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
	})

	t.Run("rejects short password", func(t *testing.T) {
		svc, _ := newUserService(ctrl)

		_, err := svc.Signup(context.Background(), service.SignupInput{
			Email:       "new@example.com",
			DisplayName: "New User",
			Password:    "short",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestLogin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hasher := auth.NewPasswordHasher(auth.DefaultPasswordParams())
	hashed, _ := hasher.Hash("correct password")
	user := &model.User{Email: "user@example.com", PasswordHash: hashed}

	t.Run("valid credentials", func(t *testing.T) {
		svc, repo := newUserService(ctrl)

		repo.EXPECT().FindByEmail(gomock.Any(), "user@example.com").Return(user, nil)

		out, err := svc.Login(context.Background(), service.LoginInput{
			Email: "user@example.com", Password: "correct password",
		})
		assert.NoError(t, err)
		assert.NotEmpty(t, out.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, repo := newUserService(ctrl)

		repo.EXPECT().FindByEmail(gomock.Any(), "user@example.com").Return(user, nil)

		_, err := svc.Login(context.Background(), service.LoginInput{
			Email: "user@example.com", Password: "wrong password",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown user reads the same as wrong password", func(t *testing.T) {
		svc, repo := newUserService(ctrl)

		repo.EXPECT().FindByEmail(gomock.Any(), "ghost@example.com").Return(nil, domain.ErrUserNotFound)

		_, err := svc.Login(context.Background(), service.LoginInput{
			Email: "ghost@example.com", Password: "whatever password",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}
