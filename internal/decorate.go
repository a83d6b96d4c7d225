package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/govright/platform-services/internal/events"
	"github.com/govright/platform-services/internal/nodetree"
	"github.com/govright/platform-services/internal/parser"
)

// Decorate parses the package files, decorates each in locale (the
// configured current locale when empty) and writes the decorated documents
// to w as indented JSON, one value per file.
func Decorate(ctx context.Context, w io.Writer, files []string, code string, opts ...Option) error {
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
	cfg := app.config

	inputs := make([]parser.Input, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("decorate: %w", err)
		}
		inputs = append(inputs, parser.Input{Name: filepath.Base(f), Data: data})
	}
	results, err := parser.ParseAll(ctx, inputs, 4)
	if err != nil {
		return fmt.Errorf("decorate: %w", err)
	}

	locCfg := cfg.Locale
	if code != "" {
		locCfg.Current = code
	}
	resolver, err := NewResolver(locCfg, events.NewBus(), app.logger)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, res := range results {
		tree := nodetree.New(res.Document, resolver, cfg.Tree.Options()...)
		err := enc.Encode(tree.Document())
		tree.Close()
		if err != nil {
			return fmt.Errorf("decorate: encode: %w", err)
		}
	}
	return nil
}
