package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/bywater/internal/auth"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/recurrence"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

type ChoreHandler struct {
	choreStore *store.ChoreStore
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{choreStore: cs, hub: hub, logger: logger}
}

func (h *ChoreHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

type choreRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Difficulty     string   `json:"difficulty"`
	IsRecurring    bool     `json:"is_recurring"`
	RecurrenceDays []string `json:"recurrence_days"`
}

func (req *choreRequest) validate() (string, bool) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return "title is required", false
	}
	if err := recurrence.ValidateDays(req.RecurrenceDays); err != nil {
		return err.Error(), false
	}
	return "", true
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON")
		return
	}
	if msg, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, "validation_error", msg)
		return
	}

	chore, err := h.choreStore.Create(ac.FamilyID, req.Title, req.Description, req.Difficulty, req.IsRecurring, req.RecurrenceDays)
	if err != nil {
		h.logger.Error("create chore", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	h.broadcast(ac.FamilyID, websocket.NewMessage("chore", "created", chore.ID, nil))

	writeJSON(w, http.StatusCreated, chore)
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	chores, err := h.choreStore.ListByFamily(auth.FamilyID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	chore, ok := h.familyChore(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, chore)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	chore, ok := h.familyChore(w, r)
	if !ok {
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON")
		return
	}
	if msg, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, "validation_error", msg)
		return
	}

	updated, err := h.choreStore.Update(chore.ID, req.Title, req.Description, req.Difficulty, req.IsRecurring, req.RecurrenceDays)
	if err != nil {
		h.logger.Error("update chore", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	h.broadcast(ac.FamilyID, websocket.NewMessage("chore", "updated", chore.ID, nil))

	writeJSON(w, http.StatusOK, updated)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	chore, ok := h.familyChore(w, r)
	if !ok {
		return
	}

	if err := h.choreStore.Delete(chore.ID); err != nil {
		h.logger.Error("delete chore", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	h.broadcast(ac.FamilyID, websocket.NewMessage("chore", "deleted", chore.ID, nil))

	w.WriteHeader(http.StatusNoContent)
}

// familyChore resolves {id} to a chore in the caller's family. Chores of
// other families 404 rather than 403.
func (h *ChoreHandler) familyChore(w http.ResponseWriter, r *http.Request) (*model.Chore, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid id")
		return nil, false
	}

	chore, err := h.choreStore.GetByID(id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return nil, false
	}
	if chore == nil || chore.FamilyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusNotFound, "not_found", "chore not found")
		return nil, false
	}
	return chore, true
}
