// Package storage is the persistence adapter of the Travel Journal.
// Values are stored as JSON documents under string keys in a Backend.
// Persistence is best-effort: the Adapter logs and counts failures instead of
// returning them, and falls back to caller-supplied defaults on every read
// problem.
package storage

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Backend.Get when nothing is stored under a key.
var ErrKeyNotFound = errors.New("key not found")

// Backend is a key-value store for raw JSON payloads.
type Backend interface {
	// Get returns the payload stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the payload stored under key.
	Put(ctx context.Context, key string, value []byte) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases connections held by the backend.
	Close() error
}
