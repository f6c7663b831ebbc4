// internal/repository/selection.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/liminalhq/liminal/internal/domain"
)

// TenancySelection is the durable per-user record of the current organization
// selection. It is the server-side rendition of the client's
// current_organization_id key.
type TenancySelection struct {
	UserID         uuid.UUID `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null"`
	UpdatedAt      time.Time
}

func (TenancySelection) TableName() string { return "tenancy_selections" }

// SelectionRepository implements tenancy.SelectionStore on Postgres.
type SelectionRepository struct {
	db *gorm.DB
}

func NewSelectionRepository(db *gorm.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

func (r *SelectionRepository) Load(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	var sel TenancySelection
	if err := r.db.WithContext(ctx).First(&sel, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("loading tenancy selection: %w", err)
	}
	return &sel.OrganizationID, nil
}

func (r *SelectionRepository) Save(ctx context.Context, userID uuid.UUID, organizationID uuid.UUID) error {
	sel := TenancySelection{UserID: userID, OrganizationID: organizationID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"organization_id", "updated_at"}),
		}).
		Create(&sel).Error; err != nil {
		return fmt.Errorf("saving tenancy selection: %w", err)
	}
	return nil
}

func (r *SelectionRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Delete(&TenancySelection{}, "user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("clearing tenancy selection: %w", err)
	}
	return nil
}
