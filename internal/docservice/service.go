// Package docservice keeps every document package decorated in memory and
// coordinates storage, the index, the tree decorator and the locale.
package docservice

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"sync"

	"github.com/govright/platform-services/internal/apperr"
	"github.com/govright/platform-services/internal/checksum"
	"github.com/govright/platform-services/internal/events"
	"github.com/govright/platform-services/internal/index"
	"github.com/govright/platform-services/internal/locale"
	"github.com/govright/platform-services/internal/models"
	"github.com/govright/platform-services/internal/nodetree"
	"github.com/govright/platform-services/internal/parser"
	"github.com/govright/platform-services/internal/storage"
)

// Change is published on the document topics.
type Change struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// DocumentView is a decorated document in the current locale.
type DocumentView struct {
	ID        string             `json:"id"`
	Path      string             `json:"path"`
	Title     string             `json:"title"`
	Locale    string             `json:"locale"`
	Dir       string             `json:"dir,omitempty"`
	Checksum  string             `json:"checksum"`
	NodeCount int                `json:"node_count"`
	MaxDepth  int                `json:"max_depth"`
	Nodes     []nodetree.Outline `json:"nodes"`
}

type entry struct {
	meta models.DocumentMeta
	tree *nodetree.Tree
}

// Service coordinates document operations.
type Service struct {
	store    storage.Provider
	db       index.DocumentIndex
	resolver *locale.Resolver
	bus      *events.Bus
	opts     []nodetree.Option
	logger   *slog.Logger

	// mu guards docs and serialises locale switches, which repopulate every
	// tree, against readers.
	mu     sync.RWMutex
	docs   map[string]*entry
	byPath map[string]string
}

// New creates a service. opts configure every decorated tree.
func New(store storage.Provider, db index.DocumentIndex, resolver *locale.Resolver, bus *events.Bus, logger *slog.Logger, opts ...nodetree.Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		db:       db,
		resolver: resolver,
		bus:      bus,
		opts:     opts,
		logger:   logger,
		docs:     make(map[string]*entry),
		byPath:   make(map[string]string),
	}
}

// Load decorates every package found in storage. Packages that fail to
// parse are logged and skipped.
func (s *Service) Load(ctx context.Context) error {
	metas, err := s.store.List("")
	if err != nil {
		return fmt.Errorf("docservice: list: %w", err)
	}
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := s.store.Read(m.Path)
		if err != nil {
			s.logger.Warn("docservice: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := s.apply(m.Path, data, false); err != nil {
			s.logger.Warn("docservice: load failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		}
	}
	s.logger.Info("docservice: loaded", slog.Int("documents", s.Len()))
	return nil
}

// apply decorates data and replaces whatever was held for its id or path.
// With reindex the package is also written to the index.
func (s *Service) apply(p string, data []byte, reindex bool) (*entry, error) {
	var res *parser.Result
	var err error
	if reindex {
		res, err = index.IndexFile(s.db, p, data)
	} else {
		res, err = parser.Parse(p, data)
	}
	if err != nil {
		return nil, err
	}

	// The walk runs unlocked; a locale switch landing during it is caught
	// under the lock below, since the tree subscribes only once built.
	code := s.resolver.Current().Code
	e := &entry{
		meta: models.DocumentMeta{
			ID:        res.Document.ID,
			Path:      p,
			Title:     res.Title,
			Checksum:  checksum.Sum(data),
			NodeCount: res.NodeCount,
			MaxDepth:  res.MaxDepth,
		},
		tree: nodetree.New(res.Document, s.resolver, s.opts...),
	}

	s.mu.Lock()
	if s.resolver.Current().Code != code {
		e.tree.Repopulate()
	}
	if oldID, ok := s.byPath[p]; ok && oldID != e.meta.ID {
		s.dropLocked(oldID)
	}
	if old, ok := s.docs[e.meta.ID]; ok {
		if old.meta.Path != p {
			s.logger.Warn("docservice: duplicate document id",
				slog.String("id", e.meta.ID),
				slog.String("path", p),
				slog.String("previous", old.meta.Path))
		}
		s.dropLocked(e.meta.ID)
	}
	s.docs[e.meta.ID] = e
	s.byPath[p] = e.meta.ID
	s.mu.Unlock()
	return e, nil
}

func (s *Service) dropLocked(id string) {
	e, ok := s.docs[id]
	if !ok {
		return
	}
	e.tree.Close()
	delete(s.docs, id)
	if s.byPath[e.meta.Path] == id {
		delete(s.byPath, e.meta.Path)
	}
}

func (s *Service) publish(topic string, e *entry) {
	if s.bus != nil {
		s.bus.Publish(topic, Change{ID: e.meta.ID, Path: e.meta.Path})
	}
}

// Reload reacts to a change of the package at p reported by the index
// watcher, which has already indexed it.
func (s *Service) Reload(kind, p string) {
	if kind == index.Deleted {
		s.mu.Lock()
		id, ok := s.byPath[p]
		var e *entry
		if ok {
			e = s.docs[id]
			s.dropLocked(id)
		}
		s.mu.Unlock()
		if e != nil {
			s.publish(events.TopicDocumentDeleted, e)
		}
		return
	}

	data, err := s.store.Read(p)
	if err != nil {
		s.logger.Warn("docservice: reload read failed", slog.String("path", p), slog.String("error", err.Error()))
		return
	}
	sum := checksum.Sum(data)
	s.mu.RLock()
	id, known := s.byPath[p]
	unchanged := known && s.docs[id].meta.Checksum == sum
	s.mu.RUnlock()
	if unchanged {
		return
	}

	e, err := s.apply(p, data, false)
	if err != nil {
		s.logger.Warn("docservice: reload failed", slog.String("path", p), slog.String("error", err.Error()))
		return
	}
	topic := events.TopicDocumentUpdated
	if !known {
		topic = events.TopicDocumentCreated
	}
	s.publish(topic, e)
}

// Len returns the number of loaded documents.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// List returns a page of indexed documents.
func (s *Service) List(_ context.Context, limit, offset int, sortBy string) ([]models.DocumentMeta, int, error) {
	return s.db.ListDocuments(limit, offset, sortBy)
}

// IDs returns the ids of every loaded document, sorted.
func (s *Service) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.docs))
	for id := range s.docs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Service) lookup(id string) (*entry, error) {
	e, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("docservice: document %s: %w", id, apperr.ErrNotFound)
	}
	return e, nil
}

// Get returns the decorated document.
func (s *Service) Get(_ context.Context, id string) (*DocumentView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	doc := e.tree.Document()
	return &DocumentView{
		ID:        e.meta.ID,
		Path:      e.meta.Path,
		Title:     s.resolver.String(&doc.Record, "title", true),
		Locale:    s.resolver.DetermineLocaleCode(&doc.Record, s.resolver.Current().Code, true),
		Dir:       s.resolver.LocaleDir(&doc.Record, true),
		Checksum:  e.meta.Checksum,
		NodeCount: e.meta.NodeCount,
		MaxDepth:  e.meta.MaxDepth,
		Nodes:     e.tree.Outline(),
	}, nil
}

// Raw returns the stored package bytes and their checksum.
func (s *Service) Raw(_ context.Context, id string) ([]byte, string, error) {
	s.mu.RLock()
	e, err := s.lookup(id)
	s.mu.RUnlock()
	if err != nil {
		return nil, "", err
	}
	data, err := s.store.Read(e.meta.Path)
	if err != nil {
		return nil, "", err
	}
	return data, checksum.Sum(data), nil
}

func (s *Service) node(docID, nodeID string) (*entry, *nodetree.Node, error) {
	e, err := s.lookup(docID)
	if err != nil {
		return nil, nil, err
	}
	n := e.tree.FindByID(nodetree.ID(nodeID))
	if n == nil {
		return nil, nil, fmt.Errorf("docservice: node %s/%s: %w", docID, nodeID, apperr.ErrNotFound)
	}
	return e, n, nil
}

// Node returns one node with its structural neighbours.
func (s *Service) Node(_ context.Context, docID, nodeID string) (*nodetree.NodeView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, n, err := s.node(docID, nodeID)
	if err != nil {
		return nil, err
	}
	v := e.tree.View(n)
	return &v, nil
}

// OpenParents expands the ancestors of a node and returns the node.
func (s *Service) OpenParents(_ context.Context, docID, nodeID string) (*nodetree.NodeView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, n, err := s.node(docID, nodeID)
	if err != nil {
		return nil, err
	}
	e.tree.OpenNodeParents(n)
	v := e.tree.View(n)
	return &v, nil
}

// Search runs a node search. An empty locale searches all locales.
func (s *Service) Search(_ context.Context, query, loc string, limit int) ([]models.SearchHit, error) {
	if query == "" {
		return nil, fmt.Errorf("docservice: empty query: %w", apperr.ErrInvalidInput)
	}
	return s.db.Search(query, loc, limit)
}

// Create stores a new package. name selects the format (by extension) and
// the file name when the package carries no id.
func (s *Service) Create(_ context.Context, name string, data []byte) (*models.DocumentMeta, error) {
	res, err := parser.Parse(name, data)
	if err != nil {
		return nil, fmt.Errorf("docservice: %v: %w", err, apperr.ErrInvalidInput)
	}
	id := res.Document.ID

	ext := ".json"
	if parser.Detect(name, data) == parser.FormatYAML {
		ext = ".yaml"
	}
	p := id + ext
	if dir := path.Dir(name); dir != "." && dir != "/" {
		p = path.Join(dir, p)
	}

	s.mu.RLock()
	_, exists := s.docs[id]
	s.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("docservice: document %s: %w", id, apperr.ErrAlreadyExists)
	}
	if _, err := s.store.Read(p); err == nil {
		return nil, fmt.Errorf("docservice: path %s: %w", p, apperr.ErrAlreadyExists)
	}

	if err := s.store.Write(p, data); err != nil {
		return nil, err
	}
	e, err := s.apply(p, data, true)
	if err != nil {
		return nil, err
	}
	s.publish(events.TopicDocumentCreated, e)
	m := e.meta
	return &m, nil
}

// Update replaces a package. A non-empty ifMatch must admit the current
// checksum; the package id cannot change.
func (s *Service) Update(_ context.Context, id string, data []byte, ifMatch string) (*models.DocumentMeta, error) {
	s.mu.RLock()
	e, err := s.lookup(id)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	current, err := s.store.Read(e.meta.Path)
	if err != nil {
		return nil, err
	}
	if !checksum.MatchETag(ifMatch, checksum.Sum(current)) {
		return nil, fmt.Errorf("docservice: document %s changed: %w", id, apperr.ErrConflict)
	}

	res, err := parser.Parse(e.meta.Path, data)
	if err != nil {
		return nil, fmt.Errorf("docservice: %v: %w", err, apperr.ErrInvalidInput)
	}
	if res.Document.ID != id {
		return nil, fmt.Errorf("docservice: id %q does not match %q: %w", res.Document.ID, id, apperr.ErrInvalidInput)
	}

	if err := s.store.Write(e.meta.Path, data); err != nil {
		return nil, err
	}
	ne, err := s.apply(e.meta.Path, data, true)
	if err != nil {
		return nil, err
	}
	s.publish(events.TopicDocumentUpdated, ne)
	m := ne.meta
	return &m, nil
}

// Put creates the package, or updates it when a document with its id is
// already loaded.
func (s *Service) Put(ctx context.Context, name string, data []byte, ifMatch string) (*models.DocumentMeta, error) {
	res, err := parser.Parse(name, data)
	if err != nil {
		return nil, fmt.Errorf("docservice: %v: %w", err, apperr.ErrInvalidInput)
	}
	s.mu.RLock()
	_, exists := s.docs[res.Document.ID]
	s.mu.RUnlock()
	if exists {
		return s.Update(ctx, res.Document.ID, data, ifMatch)
	}
	return s.Create(ctx, name, data)
}

// Delete removes a package from storage, the index and memory.
func (s *Service) Delete(_ context.Context, id string) error {
	s.mu.RLock()
	e, err := s.lookup(id)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := s.store.Delete(e.meta.Path); err != nil {
		return err
	}
	if err := s.db.DeleteDocument(e.meta.Path); err != nil {
		return err
	}
	s.mu.Lock()
	s.dropLocked(id)
	s.mu.Unlock()
	s.publish(events.TopicDocumentDeleted, e)
	return nil
}

// Locale returns the current locale.
func (s *Service) Locale() locale.Locale {
	return s.resolver.Current()
}

// SetLocale switches the current locale. Every tree is repopulated before
// readers resume.
func (s *Service) SetLocale(code string) (locale.Locale, error) {
	if !s.resolver.IsValid(code) {
		return locale.Locale{}, fmt.Errorf("docservice: locale %q: %w", code, apperr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.SetCurrent(code), nil
}

// Locales returns the available locales.
func (s *Service) Locales() []locale.Locale {
	return s.resolver.Locales()
}

// SetLocales restricts the available locales.
func (s *Service) SetLocales(codes []string) []locale.Locale {
	return s.resolver.SetLocales(codes)
}

// Close releases every tree.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.docs {
		s.dropLocked(id)
	}
}
