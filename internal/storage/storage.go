// Package storage implements the secure key-value persistence layer:
// a Store interface with optional symmetric encryption of values, backed
// by a local SQLite database.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wahaj/securevault/internal/common"
)

// Store is a durable key-value store with optional at-rest encryption.
//
// Writes to the same key are serialized by the implementation, so the last
// issued Save is the one a subsequent Load observes.
type Store interface {
	// Save persists value under key, encrypting it first when encrypt is true.
	Save(ctx context.Context, key string, value []byte, encrypt bool) error

	// Load returns the value stored under key. When decrypt is true and the
	// value was stored encrypted, it is decrypted before being returned.
	// A missing key yields common.ErrNotFound; a value that cannot be
	// decrypted yields common.ErrDecryptionFailed.
	Load(ctx context.Context, key string, decrypt bool) ([]byte, error)

	// Remove deletes the value stored under key. Removing a missing key
	// is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases the underlying database handle.
	Close() error
}

// TxStore is implemented by stores that can apply a batch of writes
// atomically. The Store handed to fn issues its operations inside a single
// transaction, committed when fn returns nil and rolled back otherwise.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// SaveObject JSON-serializes v and stores it under key.
func SaveObject[T any](ctx context.Context, s Store, key string, v T, encrypt bool) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal %q: %v", common.ErrStorageWrite, key, err)
	}
	return s.Save(ctx, key, data, encrypt)
}

// LoadObject reads the value under key and JSON-deserializes it into T.
// Malformed persisted JSON is reported as a storage read error, so callers
// can treat it the same way as a decryption failure.
func LoadObject[T any](ctx context.Context, s Store, key string, decrypt bool) (T, error) {
	var v T
	data, err := s.Load(ctx, key, decrypt)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: unmarshal %q: %v", common.ErrStorageRead, key, err)
	}
	return v, nil
}
