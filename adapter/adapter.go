// Package adapter defines the storage backend contract and its reference
// implementations.
package adapter

import (
	"errors"
	"strings"
)

// Adapter persists whole collection snapshots. Every collection is an
// ordered list of documents and is always read and written in full.
type Adapter interface {
	// ListCollections returns the names of all stored collections.
	ListCollections() ([]string, error)

	// Load returns the full snapshot of a collection. A collection that
	// does not exist yields an empty slice, not an error. Callers never
	// modify the returned slice or its documents in place.
	Load(collection string) ([]map[string]any, error)

	// Save replaces the snapshot of a collection, creating it if needed.
	Save(collection string, docs []map[string]any) error

	// Delete removes a collection. Deleting a missing collection is a no-op.
	Delete(collection string) error
}

// ErrInvalidCollectionName is returned for names a backend cannot store.
var ErrInvalidCollectionName = errors.New("invalid collection name")

// ValidateName rejects names that are empty, contain path separators or
// NUL bytes, or start with a dot.
func ValidateName(collection string) error {
	if collection == "" ||
		strings.HasPrefix(collection, ".") ||
		strings.ContainsAny(collection, "/\\\x00") {
		return ErrInvalidCollectionName
	}
	return nil
}
