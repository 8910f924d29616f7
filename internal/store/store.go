// Package store is the persistence port for the settlement engine: a flat
// key-value space with independent, non-transactional writes. Cross-key
// consistency is the caller's problem and is handled by the lock manager and
// per-entity idempotency checks.
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store is the raw byte-level port. Implementations must make individual
// Get/Set calls atomic per key; nothing more is assumed.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Get reads and decodes the value at key. Absent keys return the zero value
// of T and found=false, mirroring a caller-supplied default.
func Get[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var v T
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return v, false, fmt.Errorf("store get %q: %w", key, err)
	}
	if !ok {
		return v, false, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("store decode %q: %w", key, err)
	}
	return v, true, nil
}

// Put encodes v and writes it at key.
func Put[T any](ctx context.Context, s Store, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store encode %q: %w", key, err)
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("store set %q: %w", key, err)
	}
	return nil
}
