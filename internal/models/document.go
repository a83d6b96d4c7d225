// Package models defines storage-level types shared by the index, the
// document service and the transports.
package models

import "time"

// FileMeta describes a document package file under the documents root.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentMeta is the lightweight representation returned by list operations.
type DocumentMeta struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	NodeCount int       `json:"node_count"`
	MaxDepth  int       `json:"max_depth"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchHit is a node matched by a full-text query.
type SearchHit struct {
	DocumentID string `json:"document_id"`
	NodeID     string `json:"node_id"`
	Locale     string `json:"locale"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet,omitempty"`
}
