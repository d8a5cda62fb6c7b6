// Package metadata is the client's local key/value store. It caches the
// login state between CLI invocations.
package metadata

import "context"

// Keys written by the auth service.
const (
	KeyEmail      = "email"
	KeyToken      = "token"
	KeySalt       = "salt"
	KeyVaultCheck = "vault_check"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the key is absent.
	Get(ctx context.Context, key string) (string, error)
	// GetMany returns common.ErrorNotFound unless every key is present.
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)
	SetMany(ctx context.Context, values map[string]string) error
	Clear(ctx context.Context) error
}
