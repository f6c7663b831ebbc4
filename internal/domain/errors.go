// internal/domain/errors.go
package domain

import "errors"

var (
	// General errors
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// User-related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooWeak    = errors.New("password too weak")
	ErrUnauthorized       = errors.New("unauthorized")

	// Organization-related errors
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrSlugTaken            = errors.New("organization slug already taken")
	ErrInvalidPlanTier      = errors.New("invalid plan tier")

	// Membership-related errors
	ErrMembershipNotFound = errors.New("membership not found")
	ErrNotAMember         = errors.New("not a member of organization")
	ErrAlreadyAMember     = errors.New("already a member of organization")
	ErrLastOwner          = errors.New("organization must retain at least one owner")
	ErrInvalidRole        = errors.New("invalid role")

	// Tenancy-related errors
	// ErrStaleContext marks a persisted organization selection that no longer
	// maps to a live membership. Recovered by falling back to personal mode;
	// never surfaced to API clients as a failure.
	ErrStaleContext    = errors.New("stale tenancy context")
	ErrTenancyNotReady = errors.New("tenancy context not loaded")

	// Invitation-related errors
	ErrInvitationNotFound  = errors.New("invitation not found")
	ErrDuplicateInvitation = errors.New("a pending invitation already exists for this email")
	ErrInvitationExpired   = errors.New("invitation expired")
	ErrInvitationAccepted  = errors.New("invitation already accepted")

	// Entry-related errors
	ErrEntryNotFound    = errors.New("entry not found")
	ErrUnknownEntryKind = errors.New("unknown entry kind")
	ErrInvalidMetadata  = errors.New("invalid entry metadata")
)
