package tenancy_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/liminalhq/liminal/internal/access"
	"github.com/liminalhq/liminal/internal/domain"
	"github.com/liminalhq/liminal/internal/mocks"
	"github.com/liminalhq/liminal/internal/model"
	"github.com/liminalhq/liminal/internal/tenancy"
)

func membership(orgID, userID uuid.UUID, role access.Role) model.Membership {
	return model.Membership{
		ID:             uuid.New(),
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
	}
}

func TestResolverLoadRestoresPersistedSelection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	orgID := uuid.New()

	source := mocks.NewMockMembershipSource(ctrl)
	store := mocks.NewMockSelectionStore(ctrl)

	source.EXPECT().
		MembershipsByUser(gomock.Any(), userID).
		Return([]model.Membership{membership(orgID, userID, access.RoleMember)}, nil)
	store.EXPECT().
		Load(gomock.Any(), userID).
		Return(&orgID, nil)

	r := tenancy.NewResolver(userID, source, store, nil)
	assert.NoError(t, r.Load(context.Background()))

	current, _ := r.Current()
	got, ok := current.OrganizationID()
	assert.True(t, ok)
	assert.Equal(t, orgID, got)
}

func TestResolverLoadDropsStaleSelection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	staleOrgID := uuid.New()

	source := mocks.NewMockMembershipSource(ctrl)
	store := mocks.NewMockSelectionStore(ctrl)

	// The persisted selection points at an organization the user no longer
	// belongs to. The resolver recovers by falling back to personal mode
	// and clearing the stored key.
	source.EXPECT().
		MembershipsByUser(gomock.Any(), userID).
		Return([]model.Membership{}, nil)
	store.EXPECT().
		Load(gomock.Any(), userID).
		Return(&staleOrgID, nil)
	store.EXPECT().
		Clear(gomock.Any(), userID).
		Return(nil)

	r := tenancy.NewResolver(userID, source, store, nil)
	assert.NoError(t, r.Load(context.Background()))

	current, _ := r.Current()
	assert.True(t, current.IsPersonal())
}

func TestResolverSwitch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	orgID := uuid.New()

	source := mocks.NewMockMembershipSource(ctrl)
	store := mocks.NewMockSelectionStore(ctrl)

	source.EXPECT().
		MembershipsByUser(gomock.Any(), userID).
		Return([]model.Membership{membership(orgID, userID, access.RoleAdmin)}, nil)
	store.EXPECT().Load(gomock.Any(), userID).Return(nil, domain.ErrNotFound)
	store.EXPECT().Save(gomock.Any(), userID, orgID).Return(nil).AnyTimes()
	store.EXPECT().Clear(gomock.Any(), userID).Return(nil).AnyTimes()

	r := tenancy.NewResolver(userID, source, store, nil)
	assert.NoError(t, r.Load(context.Background()))

	_, epoch0 := r.Current()

	t.Run("switch into a non-member organization fails", func(t *testing.T) {
		strangerOrg := uuid.New()
		_, err := r.Switch(context.Background(), &strangerOrg)
		assert.ErrorIs(t, err, domain.ErrNotAMember)

		// The context and epoch are untouched by the failed switch.
		current, epoch := r.Current()
		assert.True(t, current.IsPersonal())
		assert.Equal(t, epoch0, epoch)
	})

	t.Run("switch into a member organization succeeds", func(t *testing.T) {
		current, err := r.Switch(context.Background(), &orgID)
		assert.NoError(t, err)
		got, ok := current.OrganizationID()
		assert.True(t, ok)
		assert.Equal(t, orgID, got)

		_, epoch := r.Current()
		assert.Equal(t, epoch0+1, epoch)
		assert.False(t, r.StillCurrent(epoch0))
	})

	t.Run("switch to personal always succeeds", func(t *testing.T) {
		current, err := r.Switch(context.Background(), nil)
		assert.NoError(t, err)
		assert.True(t, current.IsPersonal())
	})

	t.Run("switch to personal is idempotent", func(t *testing.T) {
		_, before := r.Current()
		current, err := r.Switch(context.Background(), nil)
		assert.NoError(t, err)
		assert.True(t, current.IsPersonal())

		_, after := r.Current()
		assert.Equal(t, before, after)
	})
}

func TestResolverRefreshDropsRevokedMembership(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	orgID := uuid.New()

	source := mocks.NewMockMembershipSource(ctrl)
	store := mocks.NewMockSelectionStore(ctrl)

	gomock.InOrder(
		source.EXPECT().
			MembershipsByUser(gomock.Any(), userID).
			Return([]model.Membership{membership(orgID, userID, access.RoleMember)}, nil),
		source.EXPECT().
			MembershipsByUser(gomock.Any(), userID).
			Return([]model.Membership{}, nil),
	)
	store.EXPECT().Load(gomock.Any(), userID).Return(nil, domain.ErrNotFound)
	store.EXPECT().Save(gomock.Any(), userID, orgID).Return(nil)
	store.EXPECT().Clear(gomock.Any(), userID).Return(nil)

	r := tenancy.NewResolver(userID, source, store, nil)
	assert.NoError(t, r.Load(context.Background()))

	_, err := r.Switch(context.Background(), &orgID)
	assert.NoError(t, err)
	_, epochInOrg := r.Current()

	// Membership revoked server-side; the refresh drops to personal and
	// advances the epoch so in-flight results get discarded.
	assert.NoError(t, r.Refresh(context.Background()))

	current, epoch := r.Current()
	assert.True(t, current.IsPersonal())
	assert.NotEqual(t, epochInOrg, epoch)
	assert.False(t, r.StillCurrent(epochInOrg))

	_, ok := r.RoleFor(orgID)
	assert.False(t, ok)
}

func TestResolverSwitchPersistsOutsideLock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	orgID := uuid.New()

	source := mocks.NewMockMembershipSource(ctrl)
	store := mocks.NewMockSelectionStore(ctrl)

	source.EXPECT().
		MembershipsByUser(gomock.Any(), userID).
		Return([]model.Membership{membership(orgID, userID, access.RoleMember)}, nil)
	store.EXPECT().Load(gomock.Any(), userID).Return(nil, domain.ErrNotFound)

	saving := make(chan struct{})
	release := make(chan struct{})
	store.EXPECT().
		Save(gomock.Any(), userID, orgID).
		DoAndReturn(func(context.Context, uuid.UUID, uuid.UUID) error {
			close(saving)
			<-release
			return nil
		})

	r := tenancy.NewResolver(userID, source, store, nil)
	assert.NoError(t, r.Load(context.Background()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := r.Switch(context.Background(), &orgID)
		assert.NoError(t, err)
	}()

	// While the selection write is still in flight the switch has already
	// taken effect and reads do not block on it.
	<-saving
	current, _ := r.Current()
	got, ok := current.OrganizationID()
	assert.True(t, ok)
	assert.Equal(t, orgID, got)
	_, ok = r.RoleFor(orgID)
	assert.True(t, ok)

	close(release)
	<-done
}

func TestResolverSwitchBeforeLoad(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	orgID := uuid.New()

	source := mocks.NewMockMembershipSource(ctrl)
	store := mocks.NewMockSelectionStore(ctrl)

	r := tenancy.NewResolver(userID, source, store, nil)
	_, err := r.Switch(context.Background(), &orgID)
	assert.ErrorIs(t, err, domain.ErrTenancyNotReady)
}
