// Package gateway defines the remote credential store boundary and its
// HTTP/JSON implementation. The backend itself is an external collaborator;
// this package only honors its request/response and retry contract.
package gateway

import (
	"context"

	"github.com/wahaj/securevault/internal/models"
)

// Gateway is the abstract remote store for credential records.
//
// Implementations translate transport failures into common.ErrNetwork and
// authentication rejections into common.ErrUnauthorized so callers can
// react with errors.Is without knowing the transport.
type Gateway interface {
	// FetchAll returns the full remote credential snapshot.
	FetchAll(ctx context.Context) ([]models.Credential, error)

	// Create pushes a record the remote has never seen.
	Create(ctx context.Context, c models.Credential) (models.Credential, error)

	// Update replaces the remote version of an existing record.
	Update(ctx context.Context, c models.Credential) (models.Credential, error)

	// Delete removes a record remotely. It reports whether the record existed.
	Delete(ctx context.Context, id string) (bool, error)

	// Ping checks server reachability.
	Ping(ctx context.Context) error
}

// TokenSource supplies the bearer token attached to every request.
// An empty token means the request is sent unauthenticated.
type TokenSource interface {
	Token() string
}
