// Package web is a sample rendering collaborator: JSON over HTTP, mapped
// 1:1 onto the application's inbound commands. It holds no ledger logic of
// its own; it consumes views and notifications like any other UI would.
package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"dompet/internal/app"
	"dompet/internal/cache"
	"dompet/internal/ledger"
	"dompet/internal/log"
	"dompet/internal/savings"
)

const viewCacheKey = "view"

type Server struct {
	http.Server
	app    *app.App
	logger *log.Logger

	// Cached query view, dropped whenever the ledger changes underneath.
	viewCache *cache.LRUCache[ledger.View]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and registers the server as a notification
// listener, returning a ready-to-run http.Server.
func NewServer(addr string, application *app.App) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		app:              application,
		logger:           log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentWeb}),
		viewCache:        cache.NewLRUCache[ledger.View](16, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	application.AddListener(s)
	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/view", s.withCommon(s.handleView))
	mux.HandleFunc("/overview", s.withCommon(s.handleOverview))
	mux.HandleFunc("/transactions", s.withCommon(s.handleSaveTransaction))
	mux.HandleFunc("/transactions/delete", s.withCommon(s.handleDeleteTransaction))
	mux.HandleFunc("/transactions/pin", s.withCommon(s.handleTogglePin))
	mux.HandleFunc("/search", s.withCommon(s.handleSearch))
	mux.HandleFunc("/page", s.withCommon(s.handleSetPage))
	mux.HandleFunc("/archive", s.withCommon(s.handleArchiveList))
	mux.HandleFunc("/archive/move", s.withCommon(s.handleArchiveMove))
	mux.HandleFunc("/archive/restore", s.withCommon(s.handleRestore))
	mux.HandleFunc("/archive/confirm-delete", s.withCommon(s.handleConfirmDelete))
	mux.HandleFunc("/archive/cancel-delete", s.withCommon(s.handleCancelDelete))
	mux.HandleFunc("/savings", s.withCommon(s.handleSavings))
	mux.HandleFunc("/savings/target", s.withCommon(s.handleSetTarget))
	mux.HandleFunc("/savings/target/delete", s.withCommon(s.handleClearTarget))
	mux.HandleFunc("/visibility/toggle", s.withCommon(s.handleToggleVisibility))

	return s
}

// TransactionsChanged implements app.Listener; the cached view is stale.
func (s *Server) TransactionsChanged(view ledger.View) {
	s.viewCache.Set(viewCacheKey, view)
}

// SavingsChanged implements app.Listener.
func (s *Server) SavingsChanged(progress savings.Progress) {
	slog.Debug("Savings progress updated",
		"previous_percent", progress.Previous,
		"current_percent", progress.Current)
}

// CountdownTick implements app.Listener.
func (s *Server) CountdownTick(id int64, remaining int) {
	slog.Debug("Archive deletion countdown", "id", id, "remaining", remaining)
}

// ItemPurged implements app.Listener.
func (s *Server) ItemPurged(id int64) {
	slog.Info("Archived transaction purged", "id", id)
}

// startCacheCleanup runs periodic cleanup for the view cache
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.viewCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withCommon adds security headers, a request id, and request logging.
func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
