// Package services contains the server-side business logic. AuthService runs
// registration and the two-step SRP login, and manages the resulting login
// sessions.
package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/srpkeeper/internal/common"
	"github.com/dmitrijs2005/srpkeeper/internal/dbx"
	"github.com/dmitrijs2005/srpkeeper/internal/logging"
	"github.com/dmitrijs2005/srpkeeper/internal/server/auth"
	"github.com/dmitrijs2005/srpkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/srpkeeper/internal/server/models"
	"github.com/dmitrijs2005/srpkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/srpkeeper/internal/srp"
	"github.com/google/uuid"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// HandshakeStore holds login-init state until login-verify takes it.
type HandshakeStore interface {
	Put(ctx context.Context, s *models.HandshakeSession) error
	Take(ctx context.Context, sessionID string) (*models.HandshakeSession, error)
}

type TokenIssuer interface {
	Issue(accountID, email string) (string, *auth.Claims, error)
}

type RegisterCommand struct {
	Username    string
	Salt        string
	Verifier    string
	DisplayName string
}

type InitResult struct {
	SessionID             string
	Salt                  string
	ServerPublicEphemeral string
}

type VerifyResult struct {
	Token              string
	ServerSessionProof string
	Account            *models.Account
}

type ProfileUpdate struct {
	DisplayName *string
	Image       *string
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	handshakes  HandshakeStore
	tokens      TokenIssuer
	log         logging.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	// decoyKey seeds the fake salt and verifier of unknown usernames.
	decoyKey    []byte
	hideUnknown bool
}

type Option func(*AuthService)

func WithLogger(l logging.Logger) Option {
	return func(s *AuthService) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AuthService) { s.metrics = m }
}

// WithClock overrides the time source used for session checks.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// decoyKeyLabel separates the decoy key from other uses of the same secret,
// such as token signing.
const decoyKeyLabel = "srpkeeper decoy credentials v1"

// WithHiddenAccounts makes LoginInit answer unknown usernames with a decoy
// handshake keyed by secret, instead of common.ErrAccountNotFound. The key
// actually used is HMAC(secret, decoyKeyLabel).
func WithHiddenAccounts(secret []byte) Option {
	return func(s *AuthService) {
		s.hideUnknown = true
		m := hmac.New(sha256.New, secret)
		m.Write([]byte(decoyKeyLabel))
		s.decoyKey = m.Sum(nil)
	}
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, store HandshakeStore, tokens TokenIssuer, opts ...Option) *AuthService {
	s := &AuthService{
		db:          db,
		repomanager: m,
		handshakes:  store,
		tokens:      tokens,
		log:         logging.Nop{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the account and its SRP credential atomically. The server
// only checks that salt and verifier are well-formed hex; it never sees the
// password.
func (s *AuthService) Register(ctx context.Context, cmd RegisterCommand) (*models.Account, error) {
	if err := validateRegistration(cmd); err != nil {
		s.metrics.Registration(metrics.OutcomeInvalid)
		return nil, err
	}

	name := strings.TrimSpace(cmd.DisplayName)
	if name == "" {
		name, _, _ = strings.Cut(cmd.Username, "@")
	}

	var account *models.Account
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		acc, err := s.repomanager.Accounts(tx).Create(ctx, cmd.Username, name)
		if err != nil {
			return err
		}
		err = s.repomanager.Credentials(tx).Create(ctx, &models.Credential{
			Username:  cmd.Username,
			Salt:      strings.ToLower(cmd.Salt),
			Verifier:  strings.ToLower(cmd.Verifier),
			AccountID: acc.ID,
		})
		if err != nil {
			return err
		}
		account = acc
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateAccount) {
			s.log.Info(ctx, "registration rejected", "username", cmd.Username, "reason", "duplicate")
			s.metrics.Registration(metrics.OutcomeDuplicate)
			return nil, common.ErrDuplicateAccount
		}
		s.log.Error(ctx, "registration failed", "username", cmd.Username, "error", err)
		s.metrics.Registration(metrics.OutcomeError)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "account registered", "username", cmd.Username, "account_id", account.ID)
	s.metrics.Registration(metrics.OutcomeSuccess)
	return account, nil
}

// LoginInit starts a handshake: it checks the client's public ephemeral,
// generates the server ephemeral and stores the session for LoginVerify.
func (s *AuthService) LoginInit(ctx context.Context, username, clientPublic string) (*InitResult, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: email is required", common.ErrorValidation)
	}
	if err := srp.ValidatePublicEphemeral(clientPublic); err != nil {
		s.log.Info(ctx, "login init rejected", "username", username, "reason", "invalid ephemeral")
		s.metrics.Handshake(metrics.StepInit, metrics.OutcomeInvalidEphemeral)
		return nil, common.ErrInvalidEphemeral
	}

	session := &models.HandshakeSession{
		SessionID:             uuid.NewString(),
		Username:              username,
		ClientPublicEphemeral: strings.ToLower(clientPublic),
	}

	cred, err := s.repomanager.Credentials(s.db).GetByUsername(ctx, username)
	switch {
	case err == nil:
		session.AccountID = cred.AccountID
		session.Salt = cred.Salt
		session.Verifier = cred.Verifier
	case errors.Is(err, common.ErrorNotFound) && s.hideUnknown:
		session.Decoy = true
		session.Salt, session.Verifier = s.decoyCredential(username)
	case errors.Is(err, common.ErrorNotFound):
		s.log.Info(ctx, "login init rejected", "username", username, "reason", "unknown account")
		s.metrics.Handshake(metrics.StepInit, metrics.OutcomeUnknownAccount)
		return nil, common.ErrAccountNotFound
	default:
		return nil, s.internal(ctx, metrics.StepInit, "credential lookup", err)
	}

	eph, err := srp.GenerateServerEphemeral(session.Verifier)
	if err != nil {
		return nil, s.internal(ctx, metrics.StepInit, "server ephemeral", err)
	}
	session.ServerSecretEphemeral = eph.Secret

	if err := s.handshakes.Put(ctx, session); err != nil {
		return nil, s.internal(ctx, metrics.StepInit, "store session", err)
	}

	outcome := metrics.OutcomeSuccess
	if session.Decoy {
		outcome = metrics.OutcomeDecoy
	}
	s.log.Debug(ctx, "login init", "username", username, "session_id", session.SessionID, "decoy", session.Decoy)
	s.metrics.Handshake(metrics.StepInit, outcome)

	return &InitResult{
		SessionID:             session.SessionID,
		Salt:                  session.Salt,
		ServerPublicEphemeral: eph.Public,
	}, nil
}

// LoginVerify consumes the session, whatever the outcome, checks the client
// proof and on success issues a token and records the login session.
func (s *AuthService) LoginVerify(ctx context.Context, sessionID, clientProof string) (*VerifyResult, error) {
	session, err := s.handshakes.Take(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrSessionExpiredOrMissing) {
			s.log.Info(ctx, "login verify rejected", "session_id", sessionID, "reason", "session expired or missing")
			s.metrics.Handshake(metrics.StepVerify, metrics.OutcomeSessionMissing)
			return nil, common.ErrSessionExpiredOrMissing
		}
		return nil, s.internal(ctx, metrics.StepVerify, "take session", err)
	}

	serverSession, err := srp.DeriveServerSession(
		session.ServerSecretEphemeral,
		session.ClientPublicEphemeral,
		session.Salt,
		session.Username,
		session.Verifier,
		clientProof,
	)
	if err != nil || session.Decoy {
		s.log.Info(ctx, "login verify rejected", "session_id", sessionID, "username", session.Username, "reason", "invalid proof")
		s.metrics.Handshake(metrics.StepVerify, metrics.OutcomeInvalidCredentials)
		return nil, common.ErrInvalidCredentials
	}

	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "account vanished during login", "session_id", sessionID, "account_id", session.AccountID)
			s.metrics.Handshake(metrics.StepVerify, metrics.OutcomeInvalidCredentials)
			return nil, common.ErrInvalidCredentials
		}
		return nil, s.internal(ctx, metrics.StepVerify, "account lookup", err)
	}

	token, claims, err := s.tokens.Issue(account.ID, session.Username)
	if err != nil {
		return nil, s.internal(ctx, metrics.StepVerify, "issue token", err)
	}

	err = s.repomanager.Sessions(s.db).Create(ctx, &models.LoginSession{
		TokenID:   claims.ID,
		AccountID: account.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	})
	if err != nil {
		return nil, s.internal(ctx, metrics.StepVerify, "store login session", err)
	}

	s.log.Info(ctx, "login succeeded", "session_id", sessionID, "account_id", account.ID)
	s.metrics.Handshake(metrics.StepVerify, metrics.OutcomeSuccess)

	return &VerifyResult{
		Token:              token,
		ServerSessionProof: serverSession.Proof,
		Account:            account,
	}, nil
}

// Authorize reports whether the login session behind claims is still live.
// Revoked or expired sessions yield common.ErrorUnauthorized.
func (s *AuthService) Authorize(ctx context.Context, claims *auth.Claims) error {
	ok, err := s.repomanager.Sessions(s.db).Exists(ctx, claims.ID, s.now())
	if err != nil {
		s.log.Error(ctx, "session lookup failed", "account_id", claims.AccountID, "error", err)
		return common.ErrorInternal
	}
	if !ok {
		return common.ErrorUnauthorized
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, accountID string) (*models.Account, error) {
	acc, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.log.Error(ctx, "account lookup failed", "account_id", accountID, "error", err)
		return nil, common.ErrorInternal
	}
	return acc, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, accountID string, upd ProfileUpdate) (*models.Account, error) {
	if err := validateProfile(upd); err != nil {
		return nil, err
	}
	acc, err := s.repomanager.Accounts(s.db).UpdateProfile(ctx, accountID, upd.DisplayName, upd.Image)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.log.Error(ctx, "profile update failed", "account_id", accountID, "error", err)
		return nil, common.ErrorInternal
	}
	return acc, nil
}

// Logout revokes every login session of the account.
func (s *AuthService) Logout(ctx context.Context, accountID string) error {
	n, err := s.repomanager.Sessions(s.db).DeleteByAccount(ctx, accountID)
	if err != nil {
		s.log.Error(ctx, "logout failed", "account_id", accountID, "error", err)
		return common.ErrorInternal
	}
	s.log.Info(ctx, "logged out", "account_id", accountID, "sessions", n)
	return nil
}

// DeleteAccount anonymizes the account and removes its credential and
// sessions in one transaction. The email becomes free for a new account.
func (s *AuthService) DeleteAccount(ctx context.Context, accountID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Sessions(tx).DeleteByAccount(ctx, accountID); err != nil {
			return err
		}
		if err := s.repomanager.Credentials(tx).DeleteByAccount(ctx, accountID); err != nil {
			return err
		}
		return s.repomanager.Accounts(tx).Anonymize(ctx, accountID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		s.log.Error(ctx, "account deletion failed", "account_id", accountID, "error", err)
		return common.ErrorInternal
	}
	s.log.Info(ctx, "account deleted", "account_id", accountID)
	return nil
}

// decoyCredential derives a stable salt and verifier for an unknown username,
// so repeated logins for it look like those of a real account. The verifier
// costs no exponentiation; a real lookup does not pay one either.
func (s *AuthService) decoyCredential(username string) (salt, verifier string) {
	salt = hex.EncodeToString(s.mac("salt", username))
	verifier = srp.DecoyVerifier(s.mac("verifier", username))
	return salt, verifier
}

func (s *AuthService) mac(label, username string) []byte {
	m := hmac.New(sha256.New, s.decoyKey)
	m.Write([]byte(label))
	m.Write([]byte{0})
	m.Write([]byte(username))
	return m.Sum(nil)
}

func (s *AuthService) internal(ctx context.Context, step, what string, err error) error {
	s.log.Error(ctx, "handshake failed", "step", step, "op", what, "error", err)
	s.metrics.Handshake(step, metrics.OutcomeError)
	return common.ErrorInternal
}

func validateRegistration(cmd RegisterCommand) error {
	if cmd.Username == "" || cmd.Salt == "" || cmd.Verifier == "" {
		return fmt.Errorf("%w: email, salt, and verifier are required", common.ErrorValidation)
	}
	if !emailRe.MatchString(cmd.Username) {
		return fmt.Errorf("%w: invalid email format", common.ErrorValidation)
	}
	if _, err := hex.DecodeString(cmd.Salt); err != nil {
		return fmt.Errorf("%w: salt must be hex", common.ErrorValidation)
	}
	if _, err := hex.DecodeString(cmd.Verifier); err != nil {
		return fmt.Errorf("%w: verifier must be hex", common.ErrorValidation)
	}
	return nil
}

func validateProfile(upd ProfileUpdate) error {
	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if name == "" || len(name) > 100 {
			return fmt.Errorf("%w: name must be 1-100 characters", common.ErrorValidation)
		}
		*upd.DisplayName = name
	}
	if upd.Image != nil && (*upd.Image == "" || len(*upd.Image) > 2048) {
		return fmt.Errorf("%w: invalid image", common.ErrorValidation)
	}
	return nil
}
