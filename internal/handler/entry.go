// internal/handler/entry.go
package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/liminalhq/liminal/internal/model"
	"github.com/liminalhq/liminal/internal/service"
)

// EntryHandler serves all six entry kinds through one set of routes; the kind
// is a path segment resolved against the fixed enumeration.
type EntryHandler struct {
	entries *service.EntryService
}

func NewEntryHandler(entries *service.EntryService) *EntryHandler {
	return &EntryHandler{entries: entries}
}

func kindParam(w http.ResponseWriter, r *http.Request) (model.Kind, bool) {
	kind, ok := model.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		respondWithError(w, http.StatusNotFound, "Unknown entry kind")
		return "", false
	}
	return kind, true
}

func entryIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid entry id")
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /api/entries/{kind}
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}

	rows, err := h.entries.List(r.Context(), userID, kind)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"entries": rows})
}

// Get handles GET /api/entries/{kind}/{entryID}
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	id, ok := entryIDParam(w, r)
	if !ok {
		return
	}

	entry, err := h.entries.Get(r.Context(), userID, kind, id)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

// Create handles POST /api/entries/{kind}
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.entries.Create(r.Context(), userID, kind, body)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, entry)
}

// Update handles PUT /api/entries/{kind}/{entryID}
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	id, ok := entryIDParam(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.entries.Update(r.Context(), userID, kind, id, body)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

// Delete handles DELETE /api/entries/{kind}/{entryID}
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	id, ok := entryIDParam(w, r)
	if !ok {
		return
	}

	if err := h.entries.Delete(r.Context(), userID, kind, id); err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, BaseResponse{Ok: true})
}
