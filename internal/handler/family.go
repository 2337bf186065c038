package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/bywater/internal/store"
)

type FamilyHandler struct {
	familyStore *store.FamilyStore
	logger      *slog.Logger
}

func NewFamilyHandler(fs *store.FamilyStore, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{familyStore: fs, logger: logger}
}

// Get returns the family named by {family_id}. RequireSameFamily has already
// rejected cross-family ids.
func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "family_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid family id")
		return
	}

	family, err := h.familyStore.GetByID(id)
	if err != nil {
		h.logger.Error("get family", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if family == nil {
		writeError(w, http.StatusNotFound, "not_found", "family not found")
		return
	}

	writeJSON(w, http.StatusOK, family)
}

// Update renames the family. Parent-gated by the router.
func (h *FamilyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "family_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid family id")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}

	family, err := h.familyStore.Update(id, req.Name)
	if err != nil {
		h.logger.Error("update family", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	writeJSON(w, http.StatusOK, family)
}
