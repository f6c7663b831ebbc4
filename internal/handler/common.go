package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/liminalhq/liminal/internal/domain"
	"github.com/liminalhq/liminal/internal/middleware"
)

type ErrorResponse struct {
	BaseResponse
	Error string `json:"error"`
}

type BaseResponse struct {
	Ok bool `json:"ok"`
}

// respondWithError sends an error response with a message
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// requireUser pulls the authenticated user out of the request, writing a 401
// if the auth middleware did not run.
func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return uuid.Nil, false
	}
	return id, true
}

// respondWithDomainError maps domain sentinel errors onto HTTP status codes.
// Anything unmapped is an internal error; the concrete cause stays in the
// logs, not the response.
func respondWithDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidPlanTier),
		errors.Is(err, domain.ErrInvalidMetadata),
		errors.Is(err, domain.ErrUnknownEntryKind):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		respondWithError(w, http.StatusForbidden, "Permission denied")
	case errors.Is(err, domain.ErrNotAMember):
		respondWithError(w, http.StatusForbidden, "Not a member of this organization")
	case errors.Is(err, domain.ErrTenancyNotReady):
		w.Header().Set("Retry-After", "1")
		respondWithError(w, http.StatusServiceUnavailable, "Membership data still loading")
	case errors.Is(err, domain.ErrStaleContext):
		respondWithError(w, http.StatusConflict, "Context changed, retry the request")
	case errors.Is(err, domain.ErrLastOwner):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSlugTaken),
		errors.Is(err, domain.ErrEmailAlreadyExists),
		errors.Is(err, domain.ErrDuplicateInvitation),
		errors.Is(err, domain.ErrAlreadyAMember),
		errors.Is(err, domain.ErrInvitationAccepted):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvitationExpired):
		respondWithError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrOrganizationNotFound),
		errors.Is(err, domain.ErrMembershipNotFound),
		errors.Is(err, domain.ErrInvitationNotFound),
		errors.Is(err, domain.ErrEntryNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
