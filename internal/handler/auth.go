package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/bywater/internal/auth"
	"github.com/dukerupert/bywater/internal/email"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

type AuthHandler struct {
	userStore   *store.UserStore
	familyStore *store.FamilyStore
	authSvc     *auth.Service
	emailClient *email.Client
	logger      *slog.Logger
}

func NewAuthHandler(us *store.UserStore, fs *store.FamilyStore, as *auth.Service, ec *email.Client, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:   us,
		familyStore: fs,
		authSvc:     as,
		emailClient: ec,
		logger:      logger,
	}
}

type signupRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	FamilyName string `json:"familyName"`
}

// Signup registers a new parent and their family in one shot. The family row
// is created first with a null parent reference, then back-filled once the
// parent user exists; the two rows reference each other so there is no
// single-insert ordering that works.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.FamilyName = strings.TrimSpace(req.FamilyName)
	if req.Email == "" || req.Name == "" || req.FamilyName == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "email, name, and familyName are required")
		return
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("signup lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email_already_registered", "An account with that email already exists")
		return
	}

	family, err := h.familyStore.Create(req.FamilyName)
	if err != nil {
		h.logger.Error("create family", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	user, err := h.userStore.Create(req.Email, req.Name, model.RoleParent, family.ID, nil, nil)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email_already_registered", "An account with that email already exists")
			return
		}
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	if err := h.familyStore.SetParent(family.ID, user.ID); err != nil {
		h.logger.Error("set family parent", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	family.ParentID = &user.ID

	h.issueAndSend(user, model.TokenPurposeLogin, req.FamilyName)

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Check your email for a sign-in link",
		"user":    user,
		"family":  family,
	})
}

type loginRequest struct {
	Email string `json:"email"`
}

// Login requests a fresh magic link. The response is identical whether or
// not the email belongs to an account, so the endpoint cannot be used to
// enumerate users.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "email is required")
		return
	}

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	// Unknown emails get the same answer as known ones.
	if user != nil {
		h.issueAndSend(user, model.TokenPurposeLogin, "")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Check your email for a sign-in link",
	})
}

// Verify exchanges a magic token for a bearer session. Unknown, used, and
// expired tokens all get the same answer.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "token is required")
		return
	}

	sess, user, err := h.authSvc.ExchangeMagicToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidOrExpired) {
			writeError(w, http.StatusBadRequest, "invalid_or_expired_token", "Invalid or expired token")
			return
		}
		h.logger.Error("exchange magic token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	family, err := h.familyStore.GetByID(user.FamilyID)
	if err != nil {
		h.logger.Error("verify family lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"sessionToken": sess.Token,
		"user":         user,
		"family":       family,
	})
}

// Logout discards the caller's session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication_required", "Authentication required")
		return
	}

	if err := h.authSvc.Logout(ac.SessionToken); err != nil {
		h.logger.Error("logout", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Me returns the authenticated user and their family.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	user, err := h.userStore.GetByID(ac.UserID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	family, err := h.familyStore.GetByID(user.FamilyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
		"family":  family,
	})
}

// issueAndSend issues a magic token and emails it. Email failures are logged,
// never surfaced; the token stays valid and support can resend.
func (h *AuthHandler) issueAndSend(user *model.User, purpose, familyName string) {
	mt, err := h.authSvc.IssueMagicToken(user.ID, purpose)
	if err != nil {
		h.logger.Error("issue magic token", "error", err)
		return
	}

	if !h.emailClient.Configured() {
		h.logger.Info("email not configured, skipping send", "user_id", user.ID, "purpose", purpose)
		return
	}

	if err := h.emailClient.SendMagicLink(user.Email, mt.Token, purpose, familyName); err != nil {
		h.logger.Error("send magic link", "error", err)
	}
}
