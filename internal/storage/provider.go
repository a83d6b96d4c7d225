// Package storage defines the documents directory abstraction. Paths are
// relative to the documents root and use forward slashes.
package storage

import (
	"path/filepath"
	"strings"

	"github.com/govright/platform-services/internal/models"
)

// Provider is the interface for document package file operations.
type Provider interface {
	// List returns metadata for every document package under dir.
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the package at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the package at path.
	Write(path string, content []byte) error
	// Delete removes the package at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}

// Extensions lists the file extensions recognised as document packages.
var Extensions = []string{".json", ".yaml", ".yml"}

// IsDocument reports whether name carries a document package extension.
// Hidden files never qualify.
func IsDocument(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
