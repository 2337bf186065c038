package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/bywater/internal/auth"
	"github.com/dukerupert/bywater/internal/email"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

type UserHandler struct {
	userStore   *store.UserStore
	familyStore *store.FamilyStore
	authSvc     *auth.Service
	emailClient *email.Client
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewUserHandler(us *store.UserStore, fs *store.FamilyStore, as *auth.Service, ec *email.Client, hub *websocket.Hub, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userStore:   us,
		familyStore: fs,
		authSvc:     as,
		emailClient: ec,
		hub:         hub,
		logger:      logger,
	}
}

func (h *UserHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

// List returns the active members of the caller's family.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userStore.ListByFamily(auth.FamilyID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

type createChildRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Birthdate string `json:"birthdate"`
}

// Create adds a child account to the caller's family and emails an
// invitation link. Parent-gated by the router.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req createChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "email and name are required")
		return
	}

	var birthdate *time.Time
	if req.Birthdate != "" {
		bd, err := time.Parse("2006-01-02", req.Birthdate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "birthdate must be YYYY-MM-DD")
			return
		}
		birthdate = &bd
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("create child lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email_already_registered", "An account with that email already exists")
		return
	}

	child, err := h.userStore.Create(req.Email, req.Name, model.RoleChild, ac.FamilyID, birthdate, &ac.UserID)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email_already_registered", "An account with that email already exists")
			return
		}
		h.logger.Error("create child", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	h.sendInvite(child, ac.FamilyID)
	h.broadcast(ac.FamilyID, websocket.NewMessage("user", "created", child.ID, nil))

	writeJSON(w, http.StatusCreated, child)
}

// Get returns one family member. Users outside the caller's family come back
// 404 so the endpoint never confirms another family's accounts exist.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.familyUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Name      string `json:"name"`
	Birthdate string `json:"birthdate"`
}

// Update edits a profile. Parents may edit anyone in the family; children
// only themselves.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	user, ok := h.familyUser(w, r)
	if !ok {
		return
	}

	if ac.Role != model.RoleParent && user.ID != ac.UserID {
		writeError(w, http.StatusForbidden, "access_denied", "Access denied")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}

	birthdate := user.Birthdate
	if req.Birthdate != "" {
		bd, err := time.Parse("2006-01-02", req.Birthdate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "birthdate must be YYYY-MM-DD")
			return
		}
		birthdate = &bd
	}

	updated, err := h.userStore.Update(user.ID, req.Name, birthdate)
	if err != nil {
		h.logger.Error("update user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	h.broadcast(ac.FamilyID, websocket.NewMessage("user", "updated", user.ID, nil))

	writeJSON(w, http.StatusOK, updated)
}

// Deactivate soft-deletes a family member. Parent-gated by the router. The
// primary parent cannot deactivate themselves.
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	user, ok := h.familyUser(w, r)
	if !ok {
		return
	}

	if user.ID == ac.UserID {
		writeError(w, http.StatusBadRequest, "validation_error", "you cannot deactivate your own account")
		return
	}

	if err := h.userStore.Deactivate(user.ID); err != nil {
		h.logger.Error("deactivate user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	h.broadcast(ac.FamilyID, websocket.NewMessage("user", "deactivated", user.ID, nil))

	w.WriteHeader(http.StatusNoContent)
}

// familyUser resolves the {id} path parameter to an active user in the
// caller's family, writing the error response itself when that fails.
func (h *UserHandler) familyUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid id")
		return nil, false
	}

	user, err := h.userStore.GetByID(id)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return nil, false
	}
	if user == nil || !user.Active || user.FamilyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusNotFound, "not_found", "user not found")
		return nil, false
	}
	return user, true
}

func (h *UserHandler) sendInvite(child *model.User, familyID int64) {
	mt, err := h.authSvc.IssueMagicToken(child.ID, model.TokenPurposeInvite)
	if err != nil {
		h.logger.Error("issue invite token", "error", err)
		return
	}

	if !h.emailClient.Configured() {
		h.logger.Info("email not configured, skipping invite", "user_id", child.ID)
		return
	}

	familyName := ""
	if family, err := h.familyStore.GetByID(familyID); err == nil && family != nil {
		familyName = family.Name
	}

	if err := h.emailClient.SendMagicLink(child.Email, mt.Token, model.TokenPurposeInvite, familyName); err != nil {
		h.logger.Error("send invite", "error", err)
	}
}
