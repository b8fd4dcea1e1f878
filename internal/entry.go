// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/navgate/internal/api"
	"github.com/starford/navgate/internal/index"
	"github.com/starford/navgate/internal/mcpserver"
	"github.com/starford/navgate/internal/menu"
	"github.com/starford/navgate/internal/metric"
	"github.com/starford/navgate/internal/navservice"
	"github.com/starford/navgate/internal/session"
	"github.com/starford/navgate/internal/sse"
	"github.com/starford/navgate/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// capabilitiesThrottle bounds how often capabilities.changed is broadcast.
const capabilitiesThrottle = 2 * time.Second

// stack holds everything the HTTP and MCP front ends share.
type stack struct {
	db       *index.DB
	store    *storage.FS
	broker   *sse.Broker
	sessions *session.Registry
	registry *prometheus.Registry
	svc      *navservice.Service
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// build loads the menu, opens the policy index and wires the service.
// The caller owns db and broker.
func build(cfg *Config, logger *slog.Logger) (*stack, error) {
	tree, err := menu.Load(cfg.Menu.Path)
	if err != nil {
		return nil, fmt.Errorf("load menu: %w", err)
	}
	for _, issue := range menu.Check(tree) {
		logger.Warn("menu issue", slog.String("issue", issue.String()))
	}

	// Ensure policy directory exists.
	if err := os.MkdirAll(cfg.Policies.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create policy dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Policies.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	// Run initial sync.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := metric.New(reg)

	broker := sse.NewBroker(capabilitiesThrottle)

	sessions := session.NewRegistry(tree,
		session.WithTTL(cfg.Disclosure.SessionTTL),
		session.WithDelays(cfg.Disclosure.OpenDelay, cfg.Disclosure.CloseDelay),
		session.WithPublisher(broker),
		session.WithObserver(navservice.TransitionObserver(metrics)),
		session.WithLogger(logger),
	)

	svc := navservice.NewService(tree, store, db, sessions,
		navservice.WithPublisher(broker),
		navservice.WithMetrics(metrics),
		navservice.WithLogger(logger),
	)

	return &stack{
		db:       db,
		store:    store,
		broker:   broker,
		sessions: sessions,
		registry: reg,
		svc:      svc,
	}, nil
}

func (s *stack) close() {
	s.sessions.CloseAll()
	s.broker.Close()
	_ = s.db.Close()
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("menu_path", cfg.Menu.Path),
		slog.String("policies_path", cfg.Policies.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(cfg, st),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	// Start file watcher; every index change refreshes sessions and notifies SSE clients.
	g.Go(func() error {
		return index.Watch(gCtx, st.db, st.store, cfg.Policies.Path, logger, st.svc.PolicyChanged)
	})

	// Reap idle disclosure sessions.
	g.Go(func() error {
		return st.sessions.Run(gCtx, 0)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams never finish on their own.
		st.broker.Close()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func newHTTPHandler(cfg *Config, st *stack) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := st.svc.Ready(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", metric.HandlerFor(st.registry))

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(st.svc, api.Auth{
		Enabled: cfg.Auth.AuthEnabled(),
		Tokens:  cfg.Auth.TokenMap(),
	}, st.broker))

	return r
}

// RunMCP serves the read-only MCP tools over stdio. Logs go to stderr
// because stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	cfg := app.config
	logger := newLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)

	st, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(watchCtx)

	g.Go(func() error {
		return index.Watch(gCtx, st.db, st.store, cfg.Policies.Path, logger, st.svc.PolicyChanged)
	})

	g.Go(func() error {
		defer cancel()
		logger.Info("Starting MCP server", slog.String("version", app.version))
		return mcpserver.New(st.svc, app.version).ServeStdio()
	})

	return g.Wait()
}

// Check lints the configured menu and writes one line per finding. It
// fails when any finding is an error.
func Check(opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	out := app.out
	if out == nil {
		out = os.Stdout
	}

	tree, err := menu.Load(app.config.Menu.Path)
	if err != nil {
		return err
	}
	issues := menu.Check(tree)
	for _, issue := range issues {
		_, _ = fmt.Fprintln(out, issue.String())
	}
	if menu.HasErrors(issues) {
		return fmt.Errorf("menu check: %d issue(s) found", len(issues))
	}
	_, _ = fmt.Fprintf(out, "menu ok: %d top-level entries, %d warning(s)\n", len(tree), len(issues))
	return nil
}
