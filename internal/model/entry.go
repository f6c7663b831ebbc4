// internal/model/entry.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Kind identifies one of the suite's entry tables. The scoping rules applied
// to every kind are identical; only the row shape differs.
type Kind string

const (
	KindThreshold Kind = "thresholds"
	KindAbsence   Kind = "absences"
	KindVeil      Kind = "veils"
	KindSignal    Kind = "signals"
	KindSpace     Kind = "spaces"
	KindTag       Kind = "tags"
)

// Kinds lists every entry kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindThreshold, KindAbsence, KindVeil, KindSignal, KindSpace, KindTag}
}

// ParseKind returns the kind for s, or false for anything outside the fixed
// enumeration.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindThreshold, KindAbsence, KindVeil, KindSignal, KindSpace, KindTag:
		return Kind(s), true
	}
	return "", false
}

// Entry is implemented by every journal row type. An entry always has an
// owning user; OrganizationID is either nil (strictly personal) or an
// organization the owner belongs to.
type Entry interface {
	GetID() uuid.UUID
	OwnerID() uuid.UUID
	OrgID() *uuid.UUID
	SetTenant(owner uuid.UUID, org *uuid.UUID)
	Kind() Kind
	Meta() datatypes.JSON
}

// Tenanted carries the identity and scoping columns shared by every entry
// table.
type Tenanted struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	OrganizationID *uuid.UUID `gorm:"type:uuid;index" json:"organization_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (t *Tenanted) GetID() uuid.UUID   { return t.ID }
func (t *Tenanted) OwnerID() uuid.UUID { return t.UserID }
func (t *Tenanted) OrgID() *uuid.UUID  { return t.OrganizationID }

func (t *Tenanted) SetTenant(owner uuid.UUID, org *uuid.UUID) {
	t.UserID = owner
	t.OrganizationID = org
}

// Threshold records an irreversible threshold: something crossed that cannot
// be uncrossed.
type Threshold struct {
	Tenanted
	Title     string         `gorm:"type:text;not null" json:"title"`
	Body      string         `gorm:"type:text" json:"body"`
	CrossedAt *time.Time     `json:"crossed_at,omitempty"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (*Threshold) Kind() Kind        { return KindThreshold }
func (*Threshold) TableName() string { return "thresholds" }

func (e *Threshold) Meta() datatypes.JSON { return e.Metadata }

// Absence records something or someone no longer present.
type Absence struct {
	Tenanted
	Title     string         `gorm:"type:text;not null" json:"title"`
	Body      string         `gorm:"type:text" json:"body"`
	Subject   string         `gorm:"type:text" json:"subject"`
	NoticedAt *time.Time     `json:"noticed_at,omitempty"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (*Absence) Kind() Kind        { return KindAbsence }
func (*Absence) TableName() string { return "absences" }

func (e *Absence) Meta() datatypes.JSON { return e.Metadata }

// Veil records an invisible threshold: a boundary noticed only after it was
// crossed.
type Veil struct {
	Tenanted
	Title      string         `gorm:"type:text;not null" json:"title"`
	Body       string         `gorm:"type:text" json:"body"`
	RevealedAt *time.Time     `json:"revealed_at,omitempty"`
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (*Veil) Kind() Kind        { return KindVeil }
func (*Veil) TableName() string { return "veils" }

func (e *Veil) Meta() datatypes.JSON { return e.Metadata }

// Signal is a short pointer at something worth returning to.
type Signal struct {
	Tenanted
	Title    string         `gorm:"type:text;not null" json:"title"`
	Source   string         `gorm:"type:text" json:"source"`
	Strength int            `gorm:"not null;default:0" json:"strength"`
	Metadata datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (*Signal) Kind() Kind        { return KindSignal }
func (*Signal) TableName() string { return "signals" }

func (e *Signal) Meta() datatypes.JSON { return e.Metadata }

// Space is a distraction-free freeform writing surface.
type Space struct {
	Tenanted
	Title     string         `gorm:"type:text;not null" json:"title"`
	Content   string         `gorm:"type:text" json:"content"`
	WordCount int            `gorm:"not null;default:0" json:"word_count"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (*Space) Kind() Kind        { return KindSpace }
func (*Space) TableName() string { return "spaces" }

func (e *Space) Meta() datatypes.JSON { return e.Metadata }

// Tag labels entries across the suite.
type Tag struct {
	Tenanted
	Name     string         `gorm:"type:text;not null" json:"name"`
	Color    string         `gorm:"type:text" json:"color"`
	Metadata datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (*Tag) Kind() Kind        { return KindTag }
func (*Tag) TableName() string { return "tags" }

func (e *Tag) Meta() datatypes.JSON { return e.Metadata }
