// Package server exposes a review session to the browser: JSON endpoints for
// search and gestures, and an event stream of state changes.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/matchdeck/internal/gesture"
	"github.com/spigell/matchdeck/internal/session"
)

const (
	DefaultAddr      = ":8080"
	DefaultLookahead = 3

	maxBodyBytes      = 1 << 20
	shutdownTimeout   = 10 * time.Second
	keepaliveInterval = 25 * time.Second
)

//go:embed static
var staticFiles embed.FS

type Config struct {
	Addr      string
	Lookahead int
	Gesture   gesture.Config
}

type Server struct {
	httpServer *http.Server
	session    *session.Session
	hub        *Hub
	cfg        Config
	logger     *zap.Logger

	// baseCtx outlives a single request; searches run under it.
	baseCtx context.Context
}

func New(cfg Config, sess *session.Session, hub *Hub, logger *zap.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = DefaultLookahead
	}
	cfg.Gesture = cfg.Gesture.WithDefaults()
	if hub == nil {
		hub = NewHub()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		session: sess,
		hub:     hub,
		cfg:     cfg,
		logger:  logger,
		baseCtx: context.Background(),
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("embedded static files: %v", err))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /", http.FileServerFS(static))
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/deck/drag", s.handleDrag)
	mux.HandleFunc("POST /api/deck/release", s.handleRelease)
	mux.HandleFunc("POST /api/deck/commit", s.handleCommit)
	mux.HandleFunc("POST /api/shortlist/export", s.handleExport)

	return s.withLogging(mux)
}

// Run serves until ctx is cancelled and then shuts down gracefully. Open event
// streams end with ctx.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.cfg.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding json response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
