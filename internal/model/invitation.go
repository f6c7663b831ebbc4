// internal/model/invitation.go
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/liminalhq/liminal/internal/access"
)

// Invitation is a pending offer to join an organization. At most one
// unaccepted invitation may exist per (organization, email) pair.
type Invitation struct {
	ID             uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrganizationID uuid.UUID   `gorm:"type:uuid;not null" json:"organization_id"`
	Email          string      `gorm:"type:citext;not null" json:"email"`
	Role           access.Role `gorm:"type:text;not null" json:"role"`
	InvitedByID    uuid.UUID   `gorm:"type:uuid;not null" json:"invited_by_id"`
	Token          string      `gorm:"type:text;uniqueIndex;not null" json:"-"`
	ExpiresAt      time.Time   `gorm:"not null" json:"expires_at"`
	AcceptedAt     *time.Time  `json:"accepted_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	Organization Organization `gorm:"foreignKey:OrganizationID" json:"-"`
}

// Pending reports whether the invitation can still be accepted at t.
func (i *Invitation) Pending(t time.Time) bool {
	return i.AcceptedAt == nil && t.Before(i.ExpiresAt)
}
