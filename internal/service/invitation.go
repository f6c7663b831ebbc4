// internal/service/invitation.go
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/liminalhq/liminal/internal/access"
	"github.com/liminalhq/liminal/internal/config"
	"github.com/liminalhq/liminal/internal/domain"
	"github.com/liminalhq/liminal/internal/email"
	"github.com/liminalhq/liminal/internal/email/mailer"
	"github.com/liminalhq/liminal/internal/model"
	"github.com/liminalhq/liminal/internal/repository"
	"github.com/liminalhq/liminal/internal/tenancy"
)

type InvitationService struct {
	invRepo  repository.InvitationRepositoryIface
	orgRepo  repository.OrganizationRepositoryIface
	userRepo repository.UserRepositoryIface
	tenants  *tenancy.Manager
	mail     *email.Service
	cfg      *config.Config
	validate *validator.Validate
	now      func() time.Time
}

func NewInvitationService(
	invRepo repository.InvitationRepositoryIface,
	orgRepo repository.OrganizationRepositoryIface,
	userRepo repository.UserRepositoryIface,
	tenants *tenancy.Manager,
	mail *email.Service,
	cfg *config.Config,
) *InvitationService {
	return &InvitationService{
		invRepo:  invRepo,
		orgRepo:  orgRepo,
		userRepo: userRepo,
		tenants:  tenants,
		mail:     mail,
		cfg:      cfg,
		validate: validator.New(),
		now:      time.Now,
	}
}

type InviteInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

// Invite creates a pending invitation. At most one unaccepted invitation may
// exist per (organization, email) pair.
func (s *InvitationService) Invite(ctx context.Context, inviterID, orgID uuid.UUID, input InviteInput) (*model.Invitation, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	role, ok := access.ParseRole(input.Role)
	if !ok {
		return nil, domain.ErrInvalidRole
	}

	inviter, err := s.orgRepo.FindMembership(ctx, orgID, inviterID)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	if !access.CapabilitiesFor(inviter.Role).Has(access.CapManageInvitations) {
		return nil, domain.ErrUnauthorized
	}

	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if _, err := s.invRepo.FindPending(ctx, orgID, input.Email, s.now()); err == nil {
		return nil, domain.ErrDuplicateInvitation
	} else if !errors.Is(err, domain.ErrInvitationNotFound) {
		return nil, err
	}

	inv := &model.Invitation{
		OrganizationID: orgID,
		Email:          input.Email,
		Role:           role,
		InvitedByID:    inviterID,
		Token:          generateInviteToken(),
		ExpiresAt:      s.now().Add(s.cfg.Invitations.TTL),
	}
	if err := s.invRepo.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.sendInviteEmail(ctx, org, inv)
	return inv, nil
}

// sendInviteEmail delivers the invite mail best-effort: the invitation exists
// either way and can be re-sent.
func (s *InvitationService) sendInviteEmail(ctx context.Context, org *model.Organization, inv *model.Invitation) {
	if s.mail == nil {
		return
	}

	inviterName := "A member"
	if inviter, err := s.userRepo.FindByID(ctx, inv.InvitedByID); err == nil {
		inviterName = inviter.DisplayName
	}

	data := mailer.InvitationTemplateData{
		OrganizationName: org.Name,
		InviterName:      inviterName,
		Role:             string(inv.Role),
		AcceptLink:       fmt.Sprintf("%s/invitations/accept?token=%s", s.cfg.BaseURL, inv.Token),
		ExpiresAt:        inv.ExpiresAt.Format(time.RFC1123),
	}
	if err := mailer.SendInvitationEmail(s.mail, inv.Email, data); err != nil {
		slog.WarnContext(ctx, "sending invitation email", "invitation_id", inv.ID, "error", err)
	}
}

// Accept redeems an invitation token for the signed-in user, creating the
// membership. Expired or already-accepted invitations are rejected, as is a
// token issued to a different email address.
func (s *InvitationService) Accept(ctx context.Context, userID uuid.UUID, token string) (*model.Membership, error) {
	inv, err := s.invRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if inv.AcceptedAt != nil {
		return nil, domain.ErrInvitationAccepted
	}
	now := s.now()
	if !now.Before(inv.ExpiresAt) {
		return nil, domain.ErrInvitationExpired
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(user.Email, inv.Email) {
		return nil, domain.ErrUnauthorized
	}

	if _, err := s.orgRepo.FindMembership(ctx, inv.OrganizationID, userID); err == nil {
		return nil, domain.ErrAlreadyAMember
	} else if !errors.Is(err, domain.ErrMembershipNotFound) {
		return nil, err
	}

	membership := &model.Membership{
		OrganizationID: inv.OrganizationID,
		UserID:         userID,
		Role:           inv.Role,
	}
	if err := s.orgRepo.CreateMembership(ctx, membership); err != nil {
		return nil, err
	}

	inv.AcceptedAt = &now
	if err := s.invRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	// The new membership must be visible to the user's resolver before
	// they try to switch into the organization.
	s.tenants.Invalidate(ctx, userID)

	return membership, nil
}

// Revoke deletes a pending invitation.
func (s *InvitationService) Revoke(ctx context.Context, actorID, orgID, invitationID uuid.UUID) error {
	actor, err := s.orgRepo.FindMembership(ctx, orgID, actorID)
	if err != nil {
		return domain.ErrUnauthorized
	}
	if !access.CapabilitiesFor(actor.Role).Has(access.CapManageInvitations) {
		return domain.ErrUnauthorized
	}
	return s.invRepo.Delete(ctx, invitationID)
}

// List returns an organization's invitations, newest first.
func (s *InvitationService) List(ctx context.Context, actorID, orgID uuid.UUID) ([]model.Invitation, error) {
	actor, err := s.orgRepo.FindMembership(ctx, orgID, actorID)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	if !access.CapabilitiesFor(actor.Role).Has(access.CapManageInvitations) {
		return nil, domain.ErrUnauthorized
	}
	return s.invRepo.ListByOrganization(ctx, orgID)
}

// PruneExpired deletes unaccepted invitations past their expiry. Run from the
// admin CLI.
func (s *InvitationService) PruneExpired(ctx context.Context) (int64, error) {
	return s.invRepo.DeleteExpired(ctx, s.now())
}

func generateInviteToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		panic(err) // This should never happen
	}
	return hex.EncodeToString(bytes)
}
