// Package services contains application services for the srpkeeper client.
// AuthService runs registration and SRP login against the server and keeps
// the resulting login state in the local metadata store.
package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/srpkeeper/internal/client/client"
	"github.com/dmitrijs2005/srpkeeper/internal/client/models"
	"github.com/dmitrijs2005/srpkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/srpkeeper/internal/client/srpclient"
	"github.com/dmitrijs2005/srpkeeper/internal/common"
	"github.com/dmitrijs2005/srpkeeper/internal/cryptox"
	"github.com/dmitrijs2005/srpkeeper/internal/dbx"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register: derive salt and verifier locally and create the account.
//   - Login: run the SRP handshake, check the server's proof, cache the token.
//   - Unlock: rebuild the vault from the cached salt without the server.
//   - Token, Me, Logout: work on the cached login.
//
// Passwords are passed as byte slices; callers wipe them.
type AuthService interface {
	Register(ctx context.Context, email string, password []byte, name string) (*models.User, error)
	Login(ctx context.Context, email string, password []byte) (*Session, error)
	Unlock(ctx context.Context, password []byte) (*cryptox.Vault, error)
	Token(ctx context.Context) (string, error)
	Me(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Session is the result of a successful login.
type Session struct {
	User  models.User
	Vault *cryptox.Vault
}

type authService struct {
	client client.Client
	db     *sql.DB
}

func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

func (a *authService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

func (a *authService) Register(ctx context.Context, email string, password []byte, name string) (*models.User, error) {
	reg, err := srpclient.StartRegistration(email, string(password))
	if err != nil {
		return nil, fmt.Errorf("srp registration: %w", err)
	}
	return a.client.Register(ctx, email, reg.Salt, reg.Verifier, name)
}

// Login authenticates with SRP. The server must prove it knows the verifier
// too; if it cannot, the issued token is revoked and discarded.
func (a *authService) Login(ctx context.Context, email string, password []byte) (*Session, error) {
	l, err := srpclient.StartLogin(email, string(password))
	if err != nil {
		return nil, fmt.Errorf("srp login: %w", err)
	}

	challenge, err := a.client.LoginInit(ctx, email, l.ClientPublicEphemeral())
	if err != nil {
		return nil, fmt.Errorf("login init: %w", err)
	}

	proof, err := l.Continue(challenge.Salt, challenge.ServerPublicEphemeral)
	if err != nil {
		return nil, fmt.Errorf("srp session: %w", err)
	}

	res, err := a.client.LoginVerify(ctx, challenge.SessionID, proof)
	if err != nil {
		return nil, fmt.Errorf("login verify: %w", err)
	}

	if err := l.VerifyServer(res.ServerSessionProof); err != nil {
		_ = a.client.Logout(ctx, res.Token)
		return nil, err
	}

	salt, err := hex.DecodeString(challenge.Salt)
	if err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	vault, err := cryptox.NewVault(password, salt)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}

	if err := a.saveLogin(ctx, email, res.Token, challenge.Salt, vault); err != nil {
		return nil, fmt.Errorf("saving login: %w", err)
	}

	return &Session{User: res.User, Vault: vault}, nil
}

// saveLogin persists the login state in a single transaction. The vault check
// is the email sealed by the vault, so Unlock can tell a wrong password.
func (a *authService) saveLogin(ctx context.Context, email, token, salt string, vault *cryptox.Vault) error {
	sealed, err := vault.EncryptText(email)
	if err != nil {
		return err
	}
	check, err := json.Marshal(sealed)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Clear(ctx); err != nil {
			return err
		}
		return repo.SetMany(ctx, map[string]string{
			metadata.KeyEmail:      email,
			metadata.KeyToken:      token,
			metadata.KeySalt:       salt,
			metadata.KeyVaultCheck: string(check),
		})
	})
}

// Unlock rebuilds the vault of the cached login from password. A wrong
// password yields client.ErrUnauthorized; no cached login yields
// client.ErrLocalDataNotAvailable.
func (a *authService) Unlock(ctx context.Context, password []byte) (*cryptox.Vault, error) {
	cache, err := a.getMetadataRepo().GetMany(ctx, metadata.KeyEmail, metadata.KeySalt, metadata.KeyVaultCheck)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, client.ErrLocalDataNotAvailable
	}
	if err != nil {
		return nil, err
	}
	email, saltHex, checkJSON := cache[metadata.KeyEmail], cache[metadata.KeySalt], cache[metadata.KeyVaultCheck]

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, fmt.Errorf("cached salt: %w", err)
	}
	var check cryptox.Sealed
	if err := json.Unmarshal([]byte(checkJSON), &check); err != nil {
		return nil, fmt.Errorf("cached vault check: %w", err)
	}

	vault, err := cryptox.NewVault(password, salt)
	if err != nil {
		return nil, err
	}
	got, err := vault.DecryptText(check)
	if err != nil || got != email {
		return nil, client.ErrUnauthorized
	}
	return vault, nil
}

func (a *authService) Token(ctx context.Context) (string, error) {
	token, err := a.getMetadataRepo().Get(ctx, metadata.KeyToken)
	if errors.Is(err, common.ErrorNotFound) {
		return "", client.ErrLocalDataNotAvailable
	}
	return token, err
}

func (a *authService) Me(ctx context.Context) (*models.User, error) {
	token, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}
	return a.client.Me(ctx, token)
}

// Logout revokes the login on the server and wipes the local cache. The cache
// is wiped even when the server cannot be reached.
func (a *authService) Logout(ctx context.Context) error {
	token, err := a.Token(ctx)
	if err != nil {
		return err
	}

	serverErr := a.client.Logout(ctx, token)
	if errors.Is(serverErr, client.ErrUnauthorized) {
		// already revoked
		serverErr = nil
	}

	return errors.Join(serverErr, a.getMetadataRepo().Clear(ctx))
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
