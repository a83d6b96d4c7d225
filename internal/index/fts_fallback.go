//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/govright/platform-services/internal/models"
)

// Without FTS5 the nodes table itself is searched with LIKE.
func initFTS(_ *sql.DB) error { return nil }

func ftsReplace(_ *sql.Tx, _ string, _ []NodeRow) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// Search matches node titles and texts with LIKE. An empty locale searches
// every locale.
func (db *DB) Search(query, locale string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT document_id, node_id, locale, title, substr(text, 1, 200)
		FROM nodes
		WHERE (title LIKE ? OR text LIKE ?) AND (? = '' OR locale = ?)
		ORDER BY document_id, node_id, locale
		LIMIT ?
	`, like, like, locale, locale, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()
	return scanHits(rows)
}
