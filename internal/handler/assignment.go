package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/bywater/internal/auth"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/recurrence"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

type AssignmentHandler struct {
	assignmentStore *store.AssignmentStore
	choreStore      *store.ChoreStore
	userStore       *store.UserStore
	hub             *websocket.Hub
	logger          *slog.Logger
}

func NewAssignmentHandler(as *store.AssignmentStore, cs *store.ChoreStore, us *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentStore: as,
		choreStore:      cs,
		userStore:       us,
		hub:             hub,
		logger:          logger,
	}
}

func (h *AssignmentHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

type createAssignmentRequest struct {
	ChildID   int64   `json:"child_id"`
	StartDate string  `json:"start_date"`
	Notes     string  `json:"notes"`
	ChoreIDs  []int64 `json:"chore_ids"`
}

// Create builds one child's week: it validates the Sunday start, expands the
// chore selection into per-day occurrence rows, and writes the assignment
// and its rows in one transaction. Parent-gated by the router.
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req createAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON")
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "start_date must be YYYY-MM-DD")
		return
	}
	if !recurrence.IsSunday(startDate) {
		writeError(w, http.StatusBadRequest, "validation_error", "start_date must be a Sunday")
		return
	}

	child, err := h.userStore.GetByID(req.ChildID)
	if err != nil {
		h.logger.Error("get child", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if child == nil || !child.Active || child.FamilyID != ac.FamilyID {
		writeError(w, http.StatusNotFound, "not_found", "child not found")
		return
	}
	if child.Role != model.RoleChild {
		writeError(w, http.StatusBadRequest, "validation_error", "assignments can only be created for children")
		return
	}

	chores, ok := h.resolveChores(w, ac.FamilyID, req.ChoreIDs)
	if !ok {
		return
	}

	seeds := recurrence.ExpandChoresForWeek(chores)
	endDate := startDate.AddDate(0, 0, 6)

	assignment, err := h.assignmentStore.Create(ac.FamilyID, child.ID, startDate, endDate, req.Notes, seeds)
	if err != nil {
		h.logger.Error("create assignment", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	h.broadcast(ac.FamilyID, websocket.NewMessage("assignment", "created", assignment.ID, nil))

	writeJSON(w, http.StatusCreated, assignment)
}

// List returns assignments in the caller's family. Parents see everything
// and may filter with ?child_id; children see only their own.
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var (
		assignments []model.Assignment
		err         error
	)
	if ac.Role == model.RoleChild {
		assignments, err = h.assignmentStore.ListByChild(ac.UserID)
	} else if childID := r.URL.Query().Get("child_id"); childID != "" {
		id, convErr := strconv.ParseInt(childID, 10, 64)
		if convErr != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid child_id")
			return
		}
		assignments, err = h.assignmentStore.ListByChild(id)
	} else {
		assignments, err = h.assignmentStore.ListByFamily(ac.FamilyID)
	}
	if err != nil {
		h.logger.Error("list assignments", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	// A parent filtering by a child from another family gets an empty list,
	// not an error; the rows are family-scoped at query time below.
	filtered := assignments[:0]
	for _, a := range assignments {
		if a.FamilyID == ac.FamilyID {
			filtered = append(filtered, a)
		}
	}
	if filtered == nil {
		filtered = []model.Assignment{}
	}
	writeJSON(w, http.StatusOK, filtered)
}

func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	assignment, ok := h.familyAssignment(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}

type updateAssignmentRequest struct {
	Status   *string  `json:"status"`
	Notes    *string  `json:"notes"`
	ChoreIDs *[]int64 `json:"chore_ids"`
}

// Update edits an assignment's status, notes, or chore selection. Changing
// the selection regenerates every occurrence row from scratch; in-progress
// completion state is discarded rather than merged. Parent-gated by the
// router.
func (h *AssignmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	assignment, ok := h.familyAssignment(w, r)
	if !ok {
		return
	}

	var req updateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON")
		return
	}

	status := assignment.Status
	if req.Status != nil {
		if *req.Status != model.AssignmentStatusActive && *req.Status != model.AssignmentStatusCompleted {
			writeError(w, http.StatusBadRequest, "validation_error", "status must be active or completed")
			return
		}
		status = *req.Status
	}
	notes := assignment.Notes
	if req.Notes != nil {
		notes = *req.Notes
	}

	// Resolve the chore selection before the first write so a rejected
	// selection leaves the assignment untouched.
	var seeds []recurrence.Seed
	if req.ChoreIDs != nil {
		chores, ok := h.resolveChores(w, ac.FamilyID, *req.ChoreIDs)
		if !ok {
			return
		}
		seeds = recurrence.ExpandChoresForWeek(chores)
	}

	if _, err := h.assignmentStore.UpdateMeta(assignment.ID, status, notes); err != nil {
		h.logger.Error("update assignment", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	if req.ChoreIDs != nil {
		if err := h.assignmentStore.ReplaceChores(assignment.ID, seeds); err != nil {
			h.logger.Error("replace assignment chores", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "")
			return
		}
	}

	updated, err := h.assignmentStore.GetByID(assignment.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	h.broadcast(ac.FamilyID, websocket.NewMessage("assignment", "updated", assignment.ID, nil))

	writeJSON(w, http.StatusOK, updated)
}

func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	assignment, ok := h.familyAssignment(w, r)
	if !ok {
		return
	}

	if err := h.assignmentStore.Delete(assignment.ID); err != nil {
		h.logger.Error("delete assignment", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	h.broadcast(ac.FamilyID, websocket.NewMessage("assignment", "deleted", assignment.ID, nil))

	w.WriteHeader(http.StatusNoContent)
}

type choreStatusRequest struct {
	Status string `json:"status"`
}

// UpdateChoreStatus marks one occurrence pending, completed, or skipped.
// Parents can touch any assignment in the family; children only their own.
func (h *AssignmentHandler) UpdateChoreStatus(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	assignment, ok := h.familyAssignment(w, r)
	if !ok {
		return
	}

	if ac.Role == model.RoleChild && assignment.ChildID != ac.UserID {
		writeError(w, http.StatusForbidden, "access_denied", "Access denied")
		return
	}

	rowID, err := parseIDParam(r, "chore_row_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid chore row id")
		return
	}

	row, err := h.assignmentStore.GetChore(assignment.ID, rowID)
	if err != nil {
		h.logger.Error("get assignment chore", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if row == nil {
		writeError(w, http.StatusNotFound, "not_found", "assignment chore not found")
		return
	}

	var req choreStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON")
		return
	}
	switch req.Status {
	case model.ChoreStatusPending, model.ChoreStatusCompleted, model.ChoreStatusSkipped:
	default:
		writeError(w, http.StatusBadRequest, "validation_error", "status must be pending, completed, or skipped")
		return
	}

	updated, err := h.assignmentStore.UpdateChoreStatus(rowID, req.Status)
	if err != nil {
		h.logger.Error("update assignment chore status", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	h.broadcast(ac.FamilyID, websocket.NewMessage("assignment_chore", req.Status, rowID, map[string]any{
		"assignment_id": assignment.ID,
	}))

	writeJSON(w, http.StatusOK, updated)
}

// resolveChores loads the requested chores within the family. Any id that is
// missing or belongs to another family makes the whole request 404.
func (h *AssignmentHandler) resolveChores(w http.ResponseWriter, familyID int64, ids []int64) ([]model.Chore, bool) {
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "validation_error", "chore_ids is required")
		return nil, false
	}

	chores, err := h.choreStore.ListByIDs(familyID, ids)
	if err != nil {
		h.logger.Error("resolve chores", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return nil, false
	}
	if len(chores) != len(dedupe(ids)) {
		writeError(w, http.StatusNotFound, "not_found", "chore not found")
		return nil, false
	}
	return chores, true
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	var out []int64
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// familyAssignment resolves {id} to an assignment in the caller's family.
func (h *AssignmentHandler) familyAssignment(w http.ResponseWriter, r *http.Request) (*model.Assignment, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid id")
		return nil, false
	}

	assignment, err := h.assignmentStore.GetByID(id)
	if err != nil {
		h.logger.Error("get assignment", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return nil, false
	}
	if assignment == nil || assignment.FamilyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusNotFound, "not_found", "assignment not found")
		return nil, false
	}
	return assignment, true
}
