//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/govright/platform-services/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
			document_id UNINDEXED,
			node_id UNINDEXED,
			locale UNINDEXED,
			title,
			text,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsReplace(tx *sql.Tx, documentID string, nodes []NodeRow) error {
	ftsDelete(tx, documentID)
	stmt, err := tx.Prepare(`INSERT INTO nodes_fts (document_id, node_id, locale, title, text) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare fts insert: %w", err)
	}
	defer stmt.Close()
	for _, n := range nodes {
		if _, err := stmt.Exec(documentID, n.NodeID, n.Locale, n.Title, n.Text); err != nil {
			return fmt.Errorf("index: insert fts: %w", err)
		}
	}
	return nil
}

func ftsDelete(tx *sql.Tx, documentID string) {
	_, _ = tx.Exec(`DELETE FROM nodes_fts WHERE document_id = ?`, documentID)
}

// Search runs an FTS5 query over node titles and texts. An empty locale
// searches every locale.
func (db *DB) Search(query, locale string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT document_id, node_id, locale, title,
		       snippet(nodes_fts, 4, '<b>', '</b>', '...', 32)
		FROM nodes_fts
		WHERE nodes_fts MATCH ? AND (? = '' OR locale = ?)
		ORDER BY rank
		LIMIT ?
	`, query, locale, locale, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()
	return scanHits(rows)
}
