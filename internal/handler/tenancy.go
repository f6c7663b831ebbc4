// internal/handler/tenancy.go
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/liminalhq/liminal/internal/model"
	"github.com/liminalhq/liminal/internal/tenancy"
)

type TenancyHandler struct {
	tenants *tenancy.Manager
}

func NewTenancyHandler(tenants *tenancy.Manager) *TenancyHandler {
	return &TenancyHandler{tenants: tenants}
}

type tenancyResponse struct {
	Mode           string               `json:"mode"`
	OrganizationID *uuid.UUID           `json:"organization_id"`
	Epoch          uint64               `json:"epoch"`
	Organizations  []model.Organization `json:"organizations,omitempty"`
}

func newTenancyResponse(current tenancy.Context, epoch uint64, orgs []model.Organization) tenancyResponse {
	resp := tenancyResponse{Mode: "personal", Epoch: epoch, Organizations: orgs}
	if orgID, ok := current.OrganizationID(); ok {
		resp.Mode = "organization"
		resp.OrganizationID = &orgID
	}
	return resp
}

// Current handles GET /api/tenancy
func (h *TenancyHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	resolver, err := h.tenants.Resolver(r.Context(), userID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	orgs, err := resolver.Organizations(r.Context())
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	current, epoch := resolver.Current()
	respondWithJSON(w, http.StatusOK, newTenancyResponse(current, epoch, orgs))
}

// Switch handles PUT /api/tenancy. A null organization_id selects personal
// mode.
func (h *TenancyHandler) Switch(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var input struct {
		OrganizationID *uuid.UUID `json:"organization_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resolver, err := h.tenants.Resolver(r.Context(), userID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	current, err := resolver.Switch(r.Context(), input.OrganizationID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	_, epoch := resolver.Current()
	respondWithJSON(w, http.StatusOK, newTenancyResponse(current, epoch, nil))
}
