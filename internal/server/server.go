// Package server exposes lint, rule listing and coaching over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/apalint/internal/coach"
	"github.com/leapstack-labs/apalint/internal/engine"
	"github.com/leapstack-labs/apalint/pkg/lint"
)

// Defaults applied by New.
const (
	DefaultAddr         = ":8080"
	DefaultMaxBodyBytes = 8 << 20
	ShutdownTimeout     = 5 * time.Second
	ReloadDebounce      = 100 * time.Millisecond
)

// APIKeyHeader carries the client key.
const APIKeyHeader = "X-API-Key"

// Loader builds a fresh rule set, typically from the rules directory.
type Loader func() (*lint.RuleSet, error)

// Server is the HTTP API.
type Server struct {
	engine       *engine.Engine
	coach        *coach.Service
	load         Loader
	addr         string
	rulesDir     string
	watch        bool
	apiKeys      map[string]struct{}
	corsOrigins  []string
	maxBodyBytes int64
	logger       *slog.Logger

	reloadMu sync.Mutex
}

// Config holds server configuration.
type Config struct {
	Engine *engine.Engine // required
	Coach  *coach.Service // defaults to a template-only coach
	// Load rebuilds the rule set for /rules/reload and the watcher.
	// Nil disables reloading.
	Load     Loader
	Addr     string
	RulesDir string
	// Watch reloads rules when files under RulesDir change.
	Watch bool
	// APIKeys lists accepted keys. Empty leaves the API open.
	APIKeys      []string
	CORSOrigins  []string
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// New creates a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("server: engine is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	svc := cfg.Coach
	if svc == nil {
		svc = coach.New(coach.Config{Profiler: cfg.Engine, Logger: logger})
	}
	s := &Server{
		engine:       cfg.Engine,
		coach:        svc,
		load:         cfg.Load,
		addr:         cfg.Addr,
		rulesDir:     cfg.RulesDir,
		watch:        cfg.Watch,
		apiKeys:      make(map[string]struct{}, len(cfg.APIKeys)),
		corsOrigins:  cfg.CORSOrigins,
		maxBodyBytes: cfg.MaxBodyBytes,
		logger:       logger,
	}
	if s.addr == "" {
		s.addr = DefaultAddr
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = DefaultMaxBodyBytes
	}
	for _, k := range cfg.APIKeys {
		if k != "" {
			s.apiKeys[k] = struct{}{}
		}
	}
	return s, nil
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.rulesDir != "" && s.load != nil {
		eg.Go(func() error {
			return s.watchRules(egctx)
		})
	}

	eg.Go(func() error {
		s.logger.Info("serving", "addr", ln.Addr().String(), "open", len(s.apiKeys) == 0)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		s.logger.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Reload replaces the engine rules with a freshly loaded set. On failure
// the previous rules stay active.
func (s *Server) Reload() (*lint.RuleSet, error) {
	if s.load == nil {
		return nil, errors.New("rule reloading is not configured")
	}
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	rs, err := s.load()
	if err != nil {
		s.logger.Error("rule reload failed, keeping previous rules", "error", err)
		return nil, err
	}
	s.engine.SetRules(rs)
	return rs, nil
}
