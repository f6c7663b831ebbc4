// internal/service/organization.go
package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/liminalhq/liminal/internal/access"
	"github.com/liminalhq/liminal/internal/domain"
	"github.com/liminalhq/liminal/internal/model"
	"github.com/liminalhq/liminal/internal/repository"
	"github.com/liminalhq/liminal/internal/tenancy"
)

type OrganizationService struct {
	orgRepo  repository.OrganizationRepositoryIface
	tenants  *tenancy.Manager
	validate *validator.Validate
}

func NewOrganizationService(
	orgRepo repository.OrganizationRepositoryIface,
	tenants *tenancy.Manager,
) *OrganizationService {
	return &OrganizationService{
		orgRepo:  orgRepo,
		tenants:  tenants,
		validate: validator.New(),
	}
}

// requireCapability checks the acting user's role within the target
// organization against the matrix. Organization management is gated by the
// role held in that organization, independent of which tenancy context the
// session is currently viewing.
func (s *OrganizationService) requireCapability(ctx context.Context, userID, orgID uuid.UUID, capability access.Capability) error {
	membership, err := s.orgRepo.FindMembership(ctx, orgID, userID)
	if err != nil {
		return domain.ErrUnauthorized
	}
	if !access.CapabilitiesFor(membership.Role).Has(capability) {
		return domain.ErrUnauthorized
	}
	return nil
}

type CreateOrganizationInput struct {
	Name     string  `json:"name" validate:"required"`
	Slug     string  `json:"slug" validate:"required,lowercase,hostname_rfc1123"`
	PlanTier string  `json:"plan_tier"`
	LogoURL  *string `json:"logo_url"`
	Domain   *string `json:"domain"`
}

// Create makes a new organization with the creating user as its first owner.
func (s *OrganizationService) Create(ctx context.Context, userID uuid.UUID, input CreateOrganizationInput) (*model.Organization, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	tier := model.PlanTrial
	if input.PlanTier != "" {
		parsed, ok := model.ParsePlanTier(input.PlanTier)
		if !ok {
			return nil, domain.ErrInvalidPlanTier
		}
		tier = parsed
	}

	org := &model.Organization{
		Name:        input.Name,
		Slug:        input.Slug,
		PlanTier:    tier,
		LogoURL:     input.LogoURL,
		Domain:      input.Domain,
		CreatedByID: userID,
	}
	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, err
	}

	// The creator gained a membership; their resolver must see it.
	s.tenants.Invalidate(ctx, userID)

	return org, nil
}

// ListForUser returns the organizations the user belongs to.
func (s *OrganizationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Organization, error) {
	return s.orgRepo.OrganizationsByUser(ctx, userID)
}

func (s *OrganizationService) Get(ctx context.Context, userID, orgID uuid.UUID) (*model.Organization, error) {
	if _, err := s.orgRepo.FindMembership(ctx, orgID, userID); err != nil {
		return nil, domain.ErrOrganizationNotFound
	}
	return s.orgRepo.FindByID(ctx, orgID)
}

type UpdateOrganizationInput struct {
	Name     *string `json:"name"`
	PlanTier *string `json:"plan_tier"`
	LogoURL  *string `json:"logo_url"`
	Domain   *string `json:"domain"`
}

func (s *OrganizationService) Update(ctx context.Context, userID, orgID uuid.UUID, input UpdateOrganizationInput) (*model.Organization, error) {
	if err := s.requireCapability(ctx, userID, orgID, access.CapManageOrganization); err != nil {
		return nil, err
	}

	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		org.Name = *input.Name
	}
	if input.PlanTier != nil {
		// Plan changes are a billing concern: owner-only.
		if err := s.requireCapability(ctx, userID, orgID, access.CapManageBilling); err != nil {
			return nil, err
		}
		tier, ok := model.ParsePlanTier(*input.PlanTier)
		if !ok {
			return nil, domain.ErrInvalidPlanTier
		}
		org.PlanTier = tier
	}
	if input.LogoURL != nil {
		org.LogoURL = input.LogoURL
	}
	if input.Domain != nil {
		org.Domain = input.Domain
	}

	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// Delete removes an organization. Owner-only.
func (s *OrganizationService) Delete(ctx context.Context, userID, orgID uuid.UUID) error {
	if err := s.requireCapability(ctx, userID, orgID, access.CapDeleteOrganization); err != nil {
		return err
	}

	members, err := s.orgRepo.Memberships(ctx, orgID)
	if err != nil {
		return err
	}

	if err := s.orgRepo.Delete(ctx, orgID); err != nil {
		return err
	}

	// Every former member's resolver re-validates; anyone viewing the
	// deleted organization drops to personal mode.
	for _, m := range members {
		s.tenants.Invalidate(ctx, m.UserID)
	}
	return nil
}

func (s *OrganizationService) Members(ctx context.Context, userID, orgID uuid.UUID) ([]model.Membership, error) {
	if _, err := s.orgRepo.FindMembership(ctx, orgID, userID); err != nil {
		return nil, domain.ErrUnauthorized
	}
	return s.orgRepo.Memberships(ctx, orgID)
}

// UpdateMemberRole changes a member's role. An organization must retain at
// least one owner: demoting the last owner is rejected.
func (s *OrganizationService) UpdateMemberRole(ctx context.Context, actorID, orgID, memberID uuid.UUID, roleName string) error {
	if err := s.requireCapability(ctx, actorID, orgID, access.CapManageMembers); err != nil {
		return err
	}

	role, ok := access.ParseRole(roleName)
	if !ok {
		return domain.ErrInvalidRole
	}

	current, err := s.orgRepo.FindMembership(ctx, orgID, memberID)
	if err != nil {
		return err
	}

	if current.Role == access.RoleOwner && role != access.RoleOwner {
		owners, err := s.orgRepo.CountByRole(ctx, orgID, access.RoleOwner)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return domain.ErrLastOwner
		}
	}

	if err := s.orgRepo.UpdateMembershipRole(ctx, orgID, memberID, role); err != nil {
		return err
	}

	s.tenants.Invalidate(ctx, memberID)
	return nil
}

// RemoveMember removes a membership. The last owner cannot be removed. A
// member removing themselves (leaving) needs no management capability.
func (s *OrganizationService) RemoveMember(ctx context.Context, actorID, orgID, memberID uuid.UUID) error {
	if actorID != memberID {
		if err := s.requireCapability(ctx, actorID, orgID, access.CapManageMembers); err != nil {
			return err
		}
	}

	current, err := s.orgRepo.FindMembership(ctx, orgID, memberID)
	if err != nil {
		return err
	}

	if current.Role == access.RoleOwner {
		owners, err := s.orgRepo.CountByRole(ctx, orgID, access.RoleOwner)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return domain.ErrLastOwner
		}
	}

	if err := s.orgRepo.DeleteMembership(ctx, orgID, memberID); err != nil {
		return err
	}

	// The removed member's resolver drops to personal if they were viewing
	// this organization; subsequent scoped queries fail closed regardless.
	s.tenants.Invalidate(ctx, memberID)
	return nil
}
