// internal/repository/organization.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/liminalhq/liminal/internal/access"
	"github.com/liminalhq/liminal/internal/domain"
	"github.com/liminalhq/liminal/internal/model"
)

type OrganizationRepositoryIface interface {
	Create(ctx context.Context, org *model.Organization) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	FindBySlug(ctx context.Context, slug string) (*model.Organization, error)
	Update(ctx context.Context, org *model.Organization) error
	Delete(ctx context.Context, id uuid.UUID) error

	Memberships(ctx context.Context, orgID uuid.UUID) ([]model.Membership, error)
	MembershipsByUser(ctx context.Context, userID uuid.UUID) ([]model.Membership, error)
	OrganizationsByUser(ctx context.Context, userID uuid.UUID) ([]model.Organization, error)
	FindMembership(ctx context.Context, orgID, userID uuid.UUID) (*model.Membership, error)
	CreateMembership(ctx context.Context, m *model.Membership) error
	UpdateMembershipRole(ctx context.Context, orgID, userID uuid.UUID, role access.Role) error
	DeleteMembership(ctx context.Context, orgID, userID uuid.UUID) error
	CountByRole(ctx context.Context, orgID uuid.UUID, role access.Role) (int64, error)
}

type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create inserts the organization and its creator's owner membership in one
// transaction: an organization never exists without an owner.
func (r *OrganizationRepository) Create(ctx context.Context, org *model.Organization) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Organization{}).
			Where("slug = ?", org.Slug).
			Count(&count).Error; err != nil {
			return fmt.Errorf("checking slug: %w", err)
		}
		if count > 0 {
			return domain.ErrSlugTaken
		}

		if err := tx.Create(org).Error; err != nil {
			return fmt.Errorf("creating organization: %w", err)
		}

		membership := &model.Membership{
			OrganizationID: org.ID,
			UserID:         org.CreatedByID,
			Role:           access.RoleOwner,
		}
		if err := tx.Create(membership).Error; err != nil {
			return fmt.Errorf("creating owner membership: %w", err)
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, domain.ErrSlugTaken) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("finding organization: %w", err)
	}
	return &org, nil
}

func (r *OrganizationRepository) FindBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.WithContext(ctx).First(&org, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("finding organization by slug: %w", err)
	}
	return &org, nil
}

func (r *OrganizationRepository) Update(ctx context.Context, org *model.Organization) error {
	if err := r.db.WithContext(ctx).Save(org).Error; err != nil {
		return fmt.Errorf("updating organization: %w", err)
	}
	return nil
}

// Delete removes the organization and its memberships and invitations. Entry
// rows keep their organization_id until the DB-level ON DELETE SET NULL
// reverts them to personal rows.
func (r *OrganizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization_id = ?", id).Delete(&model.Membership{}).Error; err != nil {
			return fmt.Errorf("deleting memberships: %w", err)
		}
		if err := tx.Where("organization_id = ?", id).Delete(&model.Invitation{}).Error; err != nil {
			return fmt.Errorf("deleting invitations: %w", err)
		}
		if err := tx.Delete(&model.Organization{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("deleting organization: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

func (r *OrganizationRepository) Memberships(ctx context.Context, orgID uuid.UUID) ([]model.Membership, error) {
	var memberships []model.Membership
	if err := r.db.WithContext(ctx).Where("organization_id = ?", orgID).Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("finding memberships: %w", err)
	}
	return memberships, nil
}

func (r *OrganizationRepository) MembershipsByUser(ctx context.Context, userID uuid.UUID) ([]model.Membership, error) {
	var memberships []model.Membership
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("finding user memberships: %w", err)
	}
	return memberships, nil
}

func (r *OrganizationRepository) OrganizationsByUser(ctx context.Context, userID uuid.UUID) ([]model.Organization, error) {
	var orgs []model.Organization
	if err := r.db.WithContext(ctx).
		Joins("JOIN memberships ON organizations.id = memberships.organization_id").
		Where("memberships.user_id = ?", userID).
		Find(&orgs).Error; err != nil {
		return nil, fmt.Errorf("finding user organizations: %w", err)
	}
	return orgs, nil
}

func (r *OrganizationRepository) FindMembership(ctx context.Context, orgID, userID uuid.UUID) (*model.Membership, error) {
	var m model.Membership
	if err := r.db.WithContext(ctx).
		First(&m, "organization_id = ? AND user_id = ?", orgID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("finding membership: %w", err)
	}
	return &m, nil
}

func (r *OrganizationRepository) CreateMembership(ctx context.Context, m *model.Membership) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("creating membership: %w", err)
	}
	return nil
}

func (r *OrganizationRepository) UpdateMembershipRole(ctx context.Context, orgID, userID uuid.UUID, role access.Role) error {
	result := r.db.WithContext(ctx).
		Model(&model.Membership{}).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Update("role", role)
	if result.Error != nil {
		return fmt.Errorf("updating membership role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

func (r *OrganizationRepository) DeleteMembership(ctx context.Context, orgID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Delete(&model.Membership{})
	if result.Error != nil {
		return fmt.Errorf("deleting membership: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

func (r *OrganizationRepository) CountByRole(ctx context.Context, orgID uuid.UUID, role access.Role) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.Membership{}).
		Where("organization_id = ? AND role = ?", orgID, role).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting memberships: %w", err)
	}
	return count, nil
}
