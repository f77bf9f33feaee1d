// Package store is the persistence adapter: an opaque hierarchical
// key/value document store with a transaction primitive. The engine treats
// paths like games/{id} and games/{id}/actionLog/{seq} as opaque keys and
// never assumes a particular storage engine.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document does not exist at a path.
var ErrNotFound = errors.New("document not found")

// Tx is the handle passed to a transaction function. Reads and writes
// through it are scoped to the transaction and commit atomically.
type Tx interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Set(ctx context.Context, path string, data []byte) error
}

// Store is the document-store contract. For a given document, concurrent
// transactions must serialize so that at most one writer wins; losers fail
// or see the winner's committed state on re-read.
type Store interface {
	GetDocument(ctx context.Context, path string) ([]byte, error)
	SetDocument(ctx context.Context, path string, data []byte) error
	// UpdateDocument shallow-merges partial JSON fields onto the stored
	// document.
	UpdateDocument(ctx context.Context, path string, partial map[string]any) error
	// ListDocuments returns all documents whose path starts with prefix,
	// ordered by path.
	ListDocuments(ctx context.Context, prefix string) ([][]byte, error)
	DeleteDocument(ctx context.Context, path string) error
	// RunTransaction executes fn atomically; any error aborts with no
	// partial write.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close()
}
