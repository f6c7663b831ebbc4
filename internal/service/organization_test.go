package service_test

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
	"github.com/liminalhq/liminal/internal/service"
	"github.com/liminalhq/liminal/internal/tenancy"
)

func newOrganizationService(ctrl *gomock.Controller) (*service.OrganizationService, *mocks.MockOrganizationRepositoryIface) {
	orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
	source := mocks.NewMockMembershipSource(ctrl)
	selStore := mocks.NewMockSelectionStore(ctrl)
	tenants := tenancy.NewManager(source, selStore, nil)
	return service.NewOrganizationService(orgRepo, tenants), orgRepo
}

func TestOrganizationCreate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()

	t.Run("defaults to trial tier", func(t *testing.T) {
		svc, orgRepo := newOrganizationService(ctrl)

		orgRepo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, org *model.Organization) error {
				assert.Equal(t, model.PlanTrial, org.PlanTier)
				assert.Equal(t, userID, org.CreatedByID)
				return nil
			})

		_, err := svc.Create(context.Background(), userID, service.CreateOrganizationInput{
			Name: "Acme", Slug: "acme",
		})
		assert.NoError(t, err)
	})

	t.Run("rejects invalid plan tier", func(t *testing.T) {
		svc, _ := newOrganizationService(ctrl)

		_, err := svc.Create(context.Background(), userID, service.CreateOrganizationInput{
			Name: "Acme", Slug: "acme", PlanTier: "platinum",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidPlanTier)
	})

	t.Run("rejects invalid slug", func(t *testing.T) {
		svc, _ := newOrganizationService(ctrl)

		_, err := svc.Create(context.Background(), userID, service.CreateOrganizationInput{
			Name: "Acme", Slug: "Not A Slug",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestOrganizationPlanChangeIsOwnerOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orgID := uuid.New()
	adminID := uuid.New()
	newTier := "pro"

	svc, orgRepo := newOrganizationService(ctrl)

	// Admins can manage the organization but plan changes are billing,
	// which only owners hold.
	admin := &model.Membership{OrganizationID: orgID, UserID: adminID, Role: access.RoleAdmin}
	orgRepo.EXPECT().FindMembership(gomock.Any(), orgID, adminID).Return(admin, nil).Times(2)
	orgRepo.EXPECT().FindByID(gomock.Any(), orgID).Return(&model.Organization{ID: orgID}, nil)

	_, err := svc.Update(context.Background(), adminID, orgID, service.UpdateOrganizationInput{
		PlanTier: &newTier,
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLastOwnerInvariant(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orgID := uuid.New()
	ownerID := uuid.New()
	owner := &model.Membership{OrganizationID: orgID, UserID: ownerID, Role: access.RoleOwner}

	t.Run("cannot demote the last owner", func(t *testing.T) {
		svc, orgRepo := newOrganizationService(ctrl)

		orgRepo.EXPECT().FindMembership(gomock.Any(), orgID, ownerID).Return(owner, nil).Times(2)
		orgRepo.EXPECT().CountByRole(gomock.Any(), orgID, access.RoleOwner).Return(int64(1), nil)

		err := svc.UpdateMemberRole(context.Background(), ownerID, orgID, ownerID, "admin")
		assert.ErrorIs(t, err, domain.ErrLastOwner)
	})

	t.Run("cannot remove the last owner", func(t *testing.T) {
		svc, orgRepo := newOrganizationService(ctrl)

		orgRepo.EXPECT().FindMembership(gomock.Any(), orgID, ownerID).Return(owner, nil)
		orgRepo.EXPECT().CountByRole(gomock.Any(), orgID, access.RoleOwner).Return(int64(1), nil)

		// Self-removal skips the capability check but still hits the
		// last-owner guard.
		err := svc.RemoveMember(context.Background(), ownerID, orgID, ownerID)
		assert.ErrorIs(t, err, domain.ErrLastOwner)
	})

	t.Run("demoting one of two owners succeeds", func(t *testing.T) {
		svc, orgRepo := newOrganizationService(ctrl)

		orgRepo.EXPECT().FindMembership(gomock.Any(), orgID, ownerID).Return(owner, nil).Times(2)
		orgRepo.EXPECT().CountByRole(gomock.Any(), orgID, access.RoleOwner).Return(int64(2), nil)
		orgRepo.EXPECT().UpdateMembershipRole(gomock.Any(), orgID, ownerID, access.RoleAdmin).Return(nil)

		err := svc.UpdateMemberRole(context.Background(), ownerID, orgID, ownerID, "admin")
		assert.NoError(t, err)
	})
}

func TestRemoveMember(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orgID := uuid.New()
	adminID := uuid.New()
	memberID := uuid.New()

	t.Run("admin removes a member", func(t *testing.T) {
		svc, orgRepo := newOrganizationService(ctrl)

		admin := &model.Membership{OrganizationID: orgID, UserID: adminID, Role: access.RoleAdmin}
		member := &model.Membership{OrganizationID: orgID, UserID: memberID, Role: access.RoleMember}

		orgRepo.EXPECT().FindMembership(gomock.Any(), orgID, adminID).Return(admin, nil)
		orgRepo.EXPECT().FindMembership(gomock.Any(), orgID, memberID).Return(member, nil)
		orgRepo.EXPECT().DeleteMembership(gomock.Any(), orgID, memberID).Return(nil)

		err := svc.RemoveMember(context.Background(), adminID, orgID, memberID)
		assert.NoError(t, err)
	})

	t.Run("member cannot remove another member", func(t *testing.T) {
		svc, orgRepo := newOrganizationService(ctrl)

		plain := &model.Membership{OrganizationID: orgID, UserID: memberID, Role: access.RoleMember}
		orgRepo.EXPECT().FindMembership(gomock.Any(), orgID, memberID).Return(plain, nil)

		err := svc.RemoveMember(context.Background(), memberID, orgID, adminID)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("member may leave on their own", func(t *testing.T) {
		svc, orgRepo := newOrganizationService(ctrl)

		plain := &model.Membership{OrganizationID: orgID, UserID: memberID, Role: access.RoleMember}
		orgRepo.EXPECT().FindMembership(gomock.Any(), orgID, memberID).Return(plain, nil)
		orgRepo.EXPECT().DeleteMembership(gomock.Any(), orgID, memberID).Return(nil)

		err := svc.RemoveMember(context.Background(), memberID, orgID, memberID)
		assert.NoError(t, err)
	})
}
