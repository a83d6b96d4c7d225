// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/govright/platform-services/internal/api"
	"github.com/govright/platform-services/internal/auth"
	"github.com/govright/platform-services/internal/corpus"
	"github.com/govright/platform-services/internal/embedding"
	"github.com/govright/platform-services/internal/facebook"
	"github.com/govright/platform-services/internal/index"
	"github.com/govright/platform-services/internal/kv"
	"github.com/govright/platform-services/internal/mcpserver"
	"github.com/govright/platform-services/internal/message"
	"github.com/govright/platform-services/internal/sse"
)

// Version is reported by the MCP server.
const Version = "1.0.0"

func (a *application) init() error {
	if a.config == nil {
		return fmt.Errorf("config is required")
	}
	if a.logger == nil {
		a.logger = NewLogger(os.Stdout, a.config.App)
	}
	if a.httpClient == nil {
		a.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if err := app.init(); err != nil {
		return err
	}

	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("documents_path", cfg.Documents.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("corpus_url", cfg.Corpus.BaseURL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := newCore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	// Host storage: local survives restarts in the index, session is memory.
	hostStore := kv.NewStorage(c.db)
	tokens, err := corpus.NewTokenStore(hostStore)
	if err != nil {
		return fmt.Errorf("init token store: %w", err)
	}
	users := corpus.NewClient(cfg.Corpus.BaseURL, tokens, app.httpClient, logger)

	fb := facebook.New(hostStore, facebook.NewGraphSDK(cfg.Facebook.GraphURL, app.httpClient), logger)
	fb.SetDefaultVersion(cfg.Facebook.Version)

	authSvc := auth.NewService(users, tokens, fb, auth.BusOpener{Bus: c.bus}, c.bus, logger)
	if users.IsAuthenticated() {
		if _, err := authSvc.CheckLogin(ctx); err != nil {
			logger.Warn("saved session not restored", slog.String("error", err.Error()))
		}
	}

	var embed *embedding.Provider
	if cfg.Embedding.Page != "" {
		embed, err = loadEmbedding(cfg.Embedding.Page)
		if err != nil {
			return err
		}
	}

	// SSE broker fed from the bus.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	stopBridge := broker.Bridge(c.bus)
	defer stopBridge()

	apiRouter := api.NewRouter(api.Deps{
		Docs:      c.docs,
		Auth:      authSvc,
		Facebook:  fb,
		Messages:  message.NewBusPresenter(c.bus),
		Embedding: embed,
		Events:    broker,
		Sessions:  tokens,
		AuthURL:   cfg.Corpus.AuthURL,
	}, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(fmt.Sprintf(`{"status":"ok","documents":%d}`, c.docs.Len())))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher; the document service re-decorates and announces.
	g.Go(func() error {
		if err := index.Watch(gCtx, c.db, c.store, cfg.Documents.Path, logger, c.docs.Reload); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
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

		// Close streams first so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

func loadEmbedding(page string) (*embedding.Provider, error) {
	f, err := os.Open(page)
	if err != nil {
		return nil, fmt.Errorf("open embedding page: %w", err)
	}
	defer f.Close()
	p := &embedding.Provider{}
	if err := p.SetAppRootHTML(f); err != nil {
		return nil, err
	}
	return p, nil
}

// RunMCP serves the document tools over stdio. Logs go to stderr so they
// do not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config != nil && app.logger == nil {
		app.logger = NewLogger(os.Stderr, app.config.App)
	}
	if err := app.init(); err != nil {
		return err
	}
	slog.SetDefault(app.logger)

	c, err := newCore(ctx, app.config, app.logger)
	if err != nil {
		return err
	}
	defer c.Close()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := index.Watch(watchCtx, c.db, c.store, app.config.Documents.Path, app.logger, c.docs.Reload); err != nil {
			app.logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
	}()

	return mcpserver.New(c.docs, Version).ServeStdio()
}
