// Package kv is the local key-value storage seam. It plays the part the
// browser's localStorage plays for the web build: string values under string
// keys, scoped to one user profile, with an optional size quota.
package kv

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when the key has never been set.
	ErrNotFound = errors.New("kv: key not found")
	// ErrQuotaExceeded is returned by Set when the write would push the
	// store past its configured quota. The previous value is kept.
	ErrQuotaExceeded = errors.New("kv: quota exceeded")
)

// Store holds string values under string keys.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the backend named by kind rooted at path. A quota of zero
// disables the size check.
func Open(kind, path string, quota int64) (Store, error) {
	switch kind {
	case BackendFile, "":
		return NewFileStore(path, quota), nil
	case BackendSQLite:
		return OpenSQLite(path, quota)
	default:
		return nil, fmt.Errorf("kv: unknown backend %q (must be file or sqlite)", kind)
	}
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}
