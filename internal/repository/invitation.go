// internal/repository/invitation.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/liminalhq/liminal/internal/domain"
	"github.com/liminalhq/liminal/internal/model"
)

type InvitationRepositoryIface interface {
	Create(ctx context.Context, inv *model.Invitation) error
	FindByToken(ctx context.Context, token string) (*model.Invitation, error)
	FindPending(ctx context.Context, orgID uuid.UUID, email string, now time.Time) (*model.Invitation, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]model.Invitation, error)
	Update(ctx context.Context, inv *model.Invitation) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type InvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) Create(ctx context.Context, inv *model.Invitation) error {
	if err := r.db.WithContext(ctx).Create(inv).Error; err != nil {
		return fmt.Errorf("creating invitation: %w", err)
	}
	return nil
}

func (r *InvitationRepository) FindByToken(ctx context.Context, token string) (*model.Invitation, error) {
	var inv model.Invitation
	if err := r.db.WithContext(ctx).First(&inv, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("finding invitation: %w", err)
	}
	return &inv, nil
}

// FindPending returns the unaccepted, unexpired invitation for the given
// (organization, email) pair, of which at most one may exist.
func (r *InvitationRepository) FindPending(ctx context.Context, orgID uuid.UUID, email string, now time.Time) (*model.Invitation, error) {
	var inv model.Invitation
	if err := r.db.WithContext(ctx).
		First(&inv, "organization_id = ? AND email = ? AND accepted_at IS NULL AND expires_at > ?",
			orgID, email, now).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("finding pending invitation: %w", err)
	}
	return &inv, nil
}

func (r *InvitationRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]model.Invitation, error) {
	var invs []model.Invitation
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Find(&invs).Error; err != nil {
		return nil, fmt.Errorf("listing invitations: %w", err)
	}
	return invs, nil
}

func (r *InvitationRepository) Update(ctx context.Context, inv *model.Invitation) error {
	if err := r.db.WithContext(ctx).Save(inv).Error; err != nil {
		return fmt.Errorf("updating invitation: %w", err)
	}
	return nil
}

func (r *InvitationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Invitation{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("deleting invitation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvitationNotFound
	}
	return nil
}

// DeleteExpired removes unaccepted invitations that expired before the given
// time. Used by the admin CLI.
func (r *InvitationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("accepted_at IS NULL AND expires_at < ?", before).
		Delete(&model.Invitation{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting expired invitations: %w", result.Error)
	}
	return result.RowsAffected, nil
}
