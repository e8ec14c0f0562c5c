// Package common defines shared constants and sentinel errors used across
// SecureVault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Storage adapter errors.
	ErrStorageRead      = errors.New("storage read error")
	ErrStorageWrite     = errors.New("storage write error")
	ErrDecryptionFailed = errors.New("decryption failed")

	// Remote gateway errors.
	ErrNetwork      = errors.New("network error")
	ErrUnauthorized = errors.New("unauthorized")

	// Sync preconditions.
	ErrAuthRequired   = errors.New("authentication required")
	ErrSyncInProgress = errors.New("sync already in progress")
)
