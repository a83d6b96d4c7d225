package index

import (
	"log/slog"

	"github.com/govright/platform-services/internal/checksum"
	"github.com/govright/platform-services/internal/models"
	"github.com/govright/platform-services/internal/nodetree"
	"github.com/govright/platform-services/internal/parser"
	"github.com/govright/platform-services/internal/storage"
)

// Sync walks the documents root and brings the index up to date:
//   - new or changed packages are parsed and upserted
//   - packages removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := IndexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses a package and upserts its metadata and node rows.
func IndexFile(db DocumentIndex, path string, data []byte) (*parser.Result, error) {
	res, err := parser.Parse(path, data)
	if err != nil {
		return nil, err
	}
	meta := models.DocumentMeta{
		ID:        res.Document.ID,
		Path:      path,
		Title:     res.Title,
		Checksum:  checksum.Sum(data),
		NodeCount: res.NodeCount,
		MaxDepth:  res.MaxDepth,
	}
	if err := db.UpsertDocument(meta, NodeRows(res.Document)); err != nil {
		return nil, err
	}
	return res, nil
}

// NodeRows flattens every localized projection of every node original.
func NodeRows(doc *nodetree.Document) []NodeRow {
	var out []NodeRow
	var walk func([]*nodetree.Node)
	walk = func(nodes []*nodetree.Node) {
		for _, n := range nodes {
			for _, code := range n.Original.Codes() {
				p := n.Original.Locales[code]
				out = append(out, NodeRow{
					NodeID: string(n.ID),
					Locale: code,
					Title:  p.String("title"),
					Text:   p.String("text"),
				})
			}
			walk(n.Nodes)
		}
	}
	walk(doc.Nodes)
	return out
}
