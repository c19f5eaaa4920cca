package storage

import (
	"context"
	"errors"
)

// ErrUnavailable is wrapped around transport-level store failures so callers
// can distinguish "backend down" from ordinary absent keys.
var ErrUnavailable = errors.New("session store unavailable")

// Store defines a public type used by authsess APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store interface {
	// Get returns the value for key, or "" with a nil error when the key
	// does not exist. Errors are reserved for I/O failures.
	Get(ctx context.Context, key string) (string, error)

	// Put creates or replaces the value for key.
	Put(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}
