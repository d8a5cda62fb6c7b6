// Package client talks to the srpkeeper server and owns the local client
// database bootstrap.
package client

import (
	"context"

	"github.com/dmitrijs2005/srpkeeper/internal/client/models"
)

// Client is the server API as seen by the client services.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Register(ctx context.Context, email, salt, verifier, name string) (*models.User, error)
	LoginInit(ctx context.Context, email, clientPublicEphemeral string) (*models.LoginChallenge, error)
	LoginVerify(ctx context.Context, sessionID, clientSessionProof string) (*models.LoginResult, error)
	Me(ctx context.Context, token string) (*models.User, error)
	Logout(ctx context.Context, token string) error
}
