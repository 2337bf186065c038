package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/bywater/internal/auth"
	"github.com/dukerupert/bywater/internal/email"
	"github.com/dukerupert/bywater/internal/handler"
	"github.com/dukerupert/bywater/internal/middleware"
	"github.com/dukerupert/bywater/internal/session"
	"github.com/dukerupert/bywater/internal/store"
	ws "github.com/dukerupert/bywater/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	authH       *handler.AuthHandler
	userH       *handler.UserHandler
	familyH     *handler.FamilyHandler
	choreH      *handler.ChoreHandler
	assignmentH *handler.AssignmentHandler
	authSvc     *auth.Service
	tokenStore  *store.MagicTokenStore
	sessions    session.Store
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, sessions session.Store, emailClient *email.Client, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	familyStore := store.NewFamilyStore(db)
	tokenStore := store.NewMagicTokenStore(db)
	choreStore := store.NewChoreStore(db)
	assignmentStore := store.NewAssignmentStore(db)

	authSvc := auth.NewService(tokenStore, userStore, sessions)

	return &Server{
		db:          db,
		hub:         hub,
		authH:       handler.NewAuthHandler(userStore, familyStore, authSvc, emailClient, logger.With("component", "auth")),
		userH:       handler.NewUserHandler(userStore, familyStore, authSvc, emailClient, hub, logger.With("component", "user")),
		familyH:     handler.NewFamilyHandler(familyStore, logger.With("component", "family")),
		choreH:      handler.NewChoreHandler(choreStore, hub, logger.With("component", "chore")),
		assignmentH: handler.NewAssignmentHandler(assignmentStore, choreStore, userStore, hub, logger.With("component", "assignment")),
		authSvc:     authSvc,
		tokenStore:  tokenStore,
		sessions:    sessions,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Sessions returns the session store for cleanup tasks.
func (s *Server) Sessions() session.Store {
	return s.sessions
}

// MagicTokenStore returns the magic token store for cleanup tasks.
func (s *Server) MagicTokenStore() *store.MagicTokenStore {
	return s.tokenStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes, rate limited by client IP
	limited := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	outerMux.Handle("POST /api/auth/signup", limited(http.HandlerFunc(s.authH.Signup)))
	outerMux.Handle("POST /api/auth/login", limited(http.HandlerFunc(s.authH.Login)))
	outerMux.Handle("GET /api/auth/verify", limited(http.HandlerFunc(s.authH.Verify)))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Everything else under /api requires a valid session
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.authSvc)
	outerMux.Handle("/api/", authMiddleware(protectedMux))
	outerMux.Handle("GET /ws", authMiddleware(ws.HandleWebSocket(s.hub)))

	chain := middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
	return middleware.RequestID(chain)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	parent := middleware.RequireParent
	sameFamily := middleware.RequireSameFamily

	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Users
	mux.HandleFunc("GET /api/users", s.userH.List)
	mux.Handle("POST /api/users", parent(http.HandlerFunc(s.userH.Create)))
	mux.HandleFunc("GET /api/users/{id}", s.userH.Get)
	mux.HandleFunc("PUT /api/users/{id}", s.userH.Update)
	mux.Handle("DELETE /api/users/{id}", parent(http.HandlerFunc(s.userH.Deactivate)))

	// Families
	mux.Handle("GET /api/families/{family_id}", sameFamily(http.HandlerFunc(s.familyH.Get)))
	mux.Handle("PUT /api/families/{family_id}", parent(sameFamily(http.HandlerFunc(s.familyH.Update))))

	// Chores
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.Handle("POST /api/chores", parent(http.HandlerFunc(s.choreH.Create)))
	mux.Handle("PUT /api/chores/{id}", parent(http.HandlerFunc(s.choreH.Update)))
	mux.Handle("DELETE /api/chores/{id}", parent(http.HandlerFunc(s.choreH.Delete)))

	// Assignments
	mux.HandleFunc("GET /api/assignments", s.assignmentH.List)
	mux.HandleFunc("GET /api/assignments/{id}", s.assignmentH.Get)
	mux.Handle("POST /api/assignments", parent(http.HandlerFunc(s.assignmentH.Create)))
	mux.Handle("PUT /api/assignments/{id}", parent(http.HandlerFunc(s.assignmentH.Update)))
	mux.Handle("DELETE /api/assignments/{id}", parent(http.HandlerFunc(s.assignmentH.Delete)))
	mux.HandleFunc("PUT /api/assignments/{id}/chores/{chore_row_id}", s.assignmentH.UpdateChoreStatus)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
