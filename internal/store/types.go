package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no document is stored under a key.
	ErrNotFound = errors.New("document not found")
	// ErrNotInitialized is returned when the database has no schema yet.
	ErrNotInitialized = errors.New("database not initialized: run 'srsl save' first")
)

// Info describes a stored document without its body.
type Info struct {
	// Revision is zero for the current document of a key.
	Revision int64
	Key      string
	SavedAt  time.Time
	// Size is the uncompressed body size in bytes.
	Size int
	// StoredSize is the size on disk after compression.
	StoredSize int
}
