package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/bywater/internal/auth"
	"github.com/dukerupert/bywater/internal/model"
)

// RequireAuth validates the Authorization bearer token and attaches the
// resolved identity to the request context. All three failure modes are 401;
// the error code tells the client what to do (re-authenticate) without
// saying why the credential died.
func RequireAuth(authSvc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication_required", "Authentication required")
				return
			}

			sess, user, err := authSvc.ValidateSession(token)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal_error", "")
				return
			}
			if sess == nil {
				writeError(w, http.StatusUnauthorized, "invalid_or_expired_session", "Invalid or expired session")
				return
			}
			if user == nil {
				writeError(w, http.StatusUnauthorized, "user_not_found_or_inactive", "Invalid or expired session")
				return
			}

			ac := auth.AuthContext{
				UserID:       user.ID,
				FamilyID:     user.FamilyID,
				Role:         user.Role,
				SessionToken: sess.Token,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireParent gates a route to parent accounts. Composes after RequireAuth.
func RequireParent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsParent(r.Context()) {
			writeError(w, http.StatusForbidden, "parent_access_required", "Parent access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSameFamily rejects requests whose {family_id} path parameter names a
// family other than the caller's own. Routes without the parameter pass
// through untouched; the check is opt-in per route.
func RequireSameFamily(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		param := r.PathValue("family_id")
		if param == "" {
			next.ServeHTTP(w, r)
			return
		}

		familyID, err := strconv.ParseInt(param, 10, 64)
		if err != nil || familyID != auth.FamilyID(r.Context()) {
			writeError(w, http.StatusForbidden, "access_denied", "Access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// writeError emits the standard error envelope. The model package defines the
// envelope shape shared with handlers.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: code, Message: message})
}
