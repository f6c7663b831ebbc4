// internal/model/organization.go
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/liminalhq/liminal/internal/access"
)

type PlanTier string

const (
	PlanTrial      PlanTier = "trial"
	PlanStarter    PlanTier = "starter"
	PlanPro        PlanTier = "pro"
	PlanEnterprise PlanTier = "enterprise"
)

// ParsePlanTier returns the tier for s, or false for anything outside the
// fixed enumeration.
func ParsePlanTier(s string) (PlanTier, bool) {
	switch PlanTier(s) {
	case PlanTrial, PlanStarter, PlanPro, PlanEnterprise:
		return PlanTier(s), true
	}
	return "", false
}

type Organization struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	Slug        string    `gorm:"type:citext;uniqueIndex;not null" json:"slug"`
	PlanTier    PlanTier  `gorm:"type:text;not null;default:'trial'" json:"plan_tier"`
	LogoURL     *string   `gorm:"type:text" json:"logo_url,omitempty"`
	Domain      *string   `gorm:"type:text" json:"domain,omitempty"`
	CreatedByID uuid.UUID `gorm:"type:uuid;not null" json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Memberships []Membership `gorm:"foreignKey:OrganizationID" json:"-"`
}

// Membership links a user to an organization with exactly one role. The
// (organization_id, user_id) pair is unique.
type Membership struct {
	ID             uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrganizationID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_org_user" json:"organization_id"`
	UserID         uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_org_user" json:"user_id"`
	Role           access.Role `gorm:"type:text;not null" json:"role"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	Organization Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	User         User         `gorm:"foreignKey:UserID" json:"-"`
}
