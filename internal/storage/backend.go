// Package storage provides key-value document backends with optimistic
// concurrency. Every mutation of a shared document goes through a version
// check so two writers never silently overwrite each other.
package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a key has no stored object
	ErrNotFound = errors.New("storage: object not found")
	// ErrConflict is returned when the stored version no longer matches
	ErrConflict = errors.New("storage: version conflict")
	// ErrNoChange can be returned by an UpdateFunc to skip the write
	ErrNoChange = errors.New("storage: no change")
)

const (
	// VersionNone requires that the object does not exist yet
	VersionNone = ""
	// VersionAny disables the version check
	VersionAny = "*"

	// DefaultMaxRetries bounds the compare-and-swap retry loop in Update
	DefaultMaxRetries = 5
)

// Object is a stored document with its opaque version token
type Object struct {
	Key     string
	Data    []byte
	Version string
}

// Backend is a key-value document store with compare-and-swap saves
type Backend interface {
	// Load returns ErrNotFound when the key does not exist
	Load(ctx context.Context, key string) (*Object, error)
	// Save writes data if the stored version equals version and returns the
	// new version. VersionNone means create-only, VersionAny skips the check.
	Save(ctx context.Context, key string, data []byte, version string) (string, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	// Append adds a line to an append-only log object
	Append(ctx context.Context, key string, line []byte) error
	Close() error
	Name() string
}

// UpdateFunc receives the current data (nil when absent) and returns the new data
type UpdateFunc func(current []byte) ([]byte, error)

// Update runs a read-modify-write cycle against key, retrying on version
// conflicts. Returning ErrNoChange from fn ends the cycle without writing.
func Update(ctx context.Context, b Backend, key string, fn UpdateFunc) error {
	for attempt := 0; attempt < DefaultMaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var current []byte
		version := VersionNone
		obj, err := b.Load(ctx, key)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return fmt.Errorf("load %s: %w", key, err)
		default:
			current = obj.Data
			version = obj.Version
		}

		next, err := fn(current)
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := b.Save(ctx, key, next, version); err != nil {
			if errors.Is(err, ErrConflict) {
				continue
			}
			return fmt.Errorf("save %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("update %s after %d attempts: %w", key, DefaultMaxRetries, ErrConflict)
}
