// Package backend selects and wires the data store the application runs
// against: the remote document database, the local offline database, or an
// in-memory store for tests and demos.
package backend

import (
	"context"

	"github.com/ndegwamoche/budget-tracker/internal/store"
)

// Backend bundles every store capability the application needs.
type Backend interface {
	store.RecordStore
	store.CategoryStore
	store.Watcher
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result contains the backend instance and optional cleanup function.
type Result struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type Type

	// Mongo specific
	MongoURI      string
	MongoDatabase string

	// SQLite specific
	SQLiteDBPath string
}

// Type represents the kind of backing store.
type Type string

const (
	MongoBackend  Type = "mongo"
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is known.
func (t Type) IsValid() bool {
	switch t {
	case MongoBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
