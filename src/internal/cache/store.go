// Package cache holds the expiring key-value stores behind pairing codes and
// extension tokens. Expiry is enforced lazily: a read never returns a dead
// entry, and SweepExpired removes dead entries when a caller asks for it.
package cache

import (
	"context"
	"time"
)

type Store[V any] interface {
	// Put stores value under key until expiresAt, replacing any existing entry.
	Put(ctx context.Context, key string, value V, expiresAt time.Time) error
	// PutIfAbsent stores value only if no live entry exists under key.
	PutIfAbsent(ctx context.Context, key string, value V, expiresAt time.Time) (bool, error)
	// GetIfLive returns the value under key if present and not expired.
	GetIfLive(ctx context.Context, key string) (V, bool, error)
	// DeleteIfPresent removes key and returns its value if it was live. Of two
	// concurrent calls for the same key at most one observes ok == true.
	DeleteIfPresent(ctx context.Context, key string) (V, bool, error)
	// SweepExpired removes expired entries and reports how many were removed.
	SweepExpired(ctx context.Context) (int, error)
	// Len reports the number of stored entries, live or not yet swept.
	Len(ctx context.Context) (int, error)
}
