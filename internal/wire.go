package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"

	"github.com/govright/platform-services/internal/docservice"
	"github.com/govright/platform-services/internal/events"
	"github.com/govright/platform-services/internal/index"
	"github.com/govright/platform-services/internal/locale"
	"github.com/govright/platform-services/internal/storage"
)

// NewLogger builds the process logger: JSON by default, colored console
// output for the text format.
func NewLogger(w io.Writer, cfg ApplicationConfig) *slog.Logger {
	if cfg.LogFormat == LogFormatText {
		return slog.New(tint.NewHandler(w, &tint.Options{Level: cfg.LogLevel}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

// NewResolver loads the translation catalog and applies the locale
// configuration. A missing catalog directory is not an error.
func NewResolver(cfg LocaleConfig, bus *events.Bus, logger *slog.Logger) (*locale.Resolver, error) {
	catalog := locale.NewCatalog(cfg.Default)
	if cfg.CatalogPath != "" {
		if err := catalog.LoadDir(cfg.CatalogPath); err != nil {
			if _, statErr := os.Stat(cfg.CatalogPath); !errors.Is(statErr, os.ErrNotExist) {
				return nil, err
			}
			logger.Warn("locale catalog not found", slog.String("path", cfg.CatalogPath))
		}
	}
	current := cfg.Current
	if current == "" {
		current = cfg.Default
	}
	catalog.SetCurrentLanguage(current)

	r := locale.NewResolver(catalog, bus)
	r.SetDefault(cfg.Default)
	if len(cfg.Available) > 0 {
		r.SetLocales(cfg.Available)
	}
	logger.Info("locales loaded",
		slog.String("current", r.Current().Code),
		slog.String("default", r.Default()),
		slog.Int("count", len(r.Locales())))
	return r, nil
}

// core is the document side shared by the server and the MCP command.
type core struct {
	store    *storage.FS
	db       *index.DB
	bus      *events.Bus
	resolver *locale.Resolver
	docs     *docservice.Service
}

func newCore(ctx context.Context, cfg *Config, logger *slog.Logger) (*core, error) {
	if err := os.MkdirAll(cfg.Documents.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create documents dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Documents.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	bus := events.NewBus()
	resolver, err := NewResolver(cfg.Locale, bus, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init locale: %w", err)
	}

	docs := docservice.New(store, db, resolver, bus, logger, cfg.Tree.Options()...)
	if err := docs.Load(ctx); err != nil {
		docs.Close()
		db.Close()
		return nil, fmt.Errorf("load documents: %w", err)
	}
	return &core{store: store, db: db, bus: bus, resolver: resolver, docs: docs}, nil
}

func (c *core) Close() {
	c.docs.Close()
	if err := c.db.Close(); err != nil {
		slog.Warn("close index", slog.String("error", err.Error()))
	}
}
