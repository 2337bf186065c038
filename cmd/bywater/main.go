package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/bywater/internal/config"
	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/email"
	"github.com/dukerupert/bywater/internal/logging"
	"github.com/dukerupert/bywater/internal/server"
	"github.com/dukerupert/bywater/internal/session"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	var sessions session.Store
	switch cfg.SessionBackend {
	case "sqlite":
		sessions = session.NewSQLStore(db)
	default:
		sessions = session.NewMemoryStore()
	}

	emailClient := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.BaseURL)
	if !emailClient.Configured() {
		logger.Warn("postmark token not set, magic link emails will be logged instead of sent")
	}

	srv := server.New(db, sessions, emailClient, logger)

	// Background sweep for expired sessions, spent magic tokens, and stale
	// rate limit windows.
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go runCleanup(cleanupCtx, srv, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Bywater running at http://localhost:%s\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

func runCleanup(ctx context.Context, srv *server.Server, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := srv.Sessions().PurgeExpired(); err != nil {
				logger.Error("purge sessions", "error", err)
			} else if n > 0 {
				logger.Debug("purged sessions", "count", n)
			}
			if n, err := srv.MagicTokenStore().DeleteExpired(); err != nil {
				logger.Error("purge magic tokens", "error", err)
			} else if n > 0 {
				logger.Debug("purged magic tokens", "count", n)
			}
			srv.RateLimiter().Cleanup()
		}
	}
}
