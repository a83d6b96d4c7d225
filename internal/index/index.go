package index

import "github.com/govright/platform-services/internal/models"

// DocumentIndex defines the document indexing operations. Consumers depend
// on it rather than on *DB.
type DocumentIndex interface {
	UpsertDocument(d models.DocumentMeta, nodes []NodeRow) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(id string) (*models.DocumentMeta, error)
	ListDocuments(limit, offset int, sort string) ([]models.DocumentMeta, int, error)
	Search(query, locale string, limit int) ([]models.SearchHit, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// ValueStore is the key/value table of the index database.
type ValueStore interface {
	GetValue(key string) (string, bool, error)
	SetValue(key, value string) error
	DeleteValue(key string) error
}

var (
	_ DocumentIndex = (*DB)(nil)
	_ ValueStore    = (*DB)(nil)
)
