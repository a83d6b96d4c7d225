package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/govright/platform-services/internal/apperr"
	"github.com/govright/platform-services/internal/models"
)

// NodeRow is one localized projection of a node, as stored for search.
type NodeRow struct {
	NodeID string
	Locale string
	Title  string
	Text   string
}

// UpsertDocument replaces a document row and its node rows in one
// transaction.
func (db *DB) UpsertDocument(d models.DocumentMeta, nodes []NodeRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}

	// A document keeps one row: moving it to a new path or re-numbering it
	// replaces whatever row held either key.
	var oldID string
	if err := tx.QueryRow(`SELECT id FROM documents WHERE path = ?`, d.Path).Scan(&oldID); err == nil && oldID != d.ID {
		if err := deleteNodes(tx, oldID); err != nil {
			return err
		}
	}
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ? OR id = ?`, d.Path, d.ID)

	_, err = tx.Exec(`
		INSERT INTO documents (path, id, title, checksum, node_count, max_depth, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.Path, d.ID, d.Title, d.Checksum, d.NodeCount, d.MaxDepth, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := deleteNodes(tx, d.ID); err != nil {
		return err
	}
	if len(nodes) > 0 {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO nodes (document_id, node_id, locale, title, text) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare node insert: %w", err)
		}
		defer stmt.Close()
		for _, n := range nodes {
			if _, err := stmt.Exec(d.ID, n.NodeID, n.Locale, n.Title, n.Text); err != nil {
				return fmt.Errorf("index: insert node: %w", err)
			}
		}
	}
	if err := ftsReplace(tx, d.ID, nodes); err != nil {
		return err
	}

	return tx.Commit()
}

func deleteNodes(tx *sql.Tx, documentID string) error {
	if _, err := tx.Exec(`DELETE FROM nodes WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("index: delete nodes: %w", err)
	}
	ftsDelete(tx, documentID)
	return nil
}

// DeleteDocument removes the document stored at path and its nodes.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var id string
	err = tx.QueryRow(`SELECT id FROM documents WHERE path = ?`, path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("index: lookup document: %w", err)
	}
	if err := deleteNodes(tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for path, or "" when not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

const documentColumns = `id, path, title, checksum, node_count, max_depth, updated_at`

func scanDocument(s interface{ Scan(...any) error }) (models.DocumentMeta, error) {
	var d models.DocumentMeta
	err := s.Scan(&d.ID, &d.Path, &d.Title, &d.Checksum, &d.NodeCount, &d.MaxDepth, &d.UpdatedAt)
	return d, err
}

// GetDocument returns the document with the given id.
func (db *DB) GetDocument(id string) (*models.DocumentMeta, error) {
	d, err := scanDocument(db.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: document %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns a page of documents and the total count. sort is
// one of "title", "updated" or "id" (default).
func (db *DB) ListDocuments(limit, offset int, sort string) ([]models.DocumentMeta, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	order := "id"
	switch sort {
	case "title":
		order = "title COLLATE NOCASE, id"
	case "updated":
		order = "updated_at DESC, id"
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+documentColumns+` FROM documents ORDER BY `+order+` LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []models.DocumentMeta
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// AllPaths returns every indexed document path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums maps every indexed path to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

func scanHits(rows *sql.Rows) ([]models.SearchHit, error) {
	var out []models.SearchHit
	for rows.Next() {
		var h models.SearchHit
		if err := rows.Scan(&h.DocumentID, &h.NodeID, &h.Locale, &h.Title, &h.Snippet); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// GetValue reads key from the key/value table.
func (db *DB) GetValue(key string) (string, bool, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("index: get value: %w", err)
	}
	return v, true, nil
}

// SetValue writes key.
func (db *DB) SetValue(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("index: set value: %w", err)
	}
	return nil
}

// DeleteValue removes key; missing keys are not an error.
func (db *DB) DeleteValue(key string) error {
	if _, err := db.conn.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("index: delete value: %w", err)
	}
	return nil
}
