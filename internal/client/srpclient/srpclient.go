// Package srpclient drives the client side of SRP registration and login.
// Only salts, verifiers, public ephemerals and proofs ever leave it; the
// password, the private key and the client secret stay inside.
package srpclient

import (
	"errors"

	"github.com/dmitrijs2005/srpkeeper/internal/srp"
)

// ErrServerNotVerified is returned when the server's proof does not match,
// i.e. the server does not hold this account's verifier.
var ErrServerNotVerified = errors.New("server proof mismatch")

// Registration is what the client sends to create an account.
type Registration struct {
	Salt     string
	Verifier string
}

// StartRegistration picks a fresh salt and derives the verifier for it.
func StartRegistration(username, password string) (Registration, error) {
	salt, err := srp.GenerateSalt()
	if err != nil {
		return Registration{}, err
	}
	x, err := srp.DerivePrivateKey(salt, username, password)
	if err != nil {
		return Registration{}, err
	}
	v, err := srp.DeriveVerifier(x)
	if err != nil {
		return Registration{}, err
	}
	return Registration{Salt: salt, Verifier: v}, nil
}

// Login is one login attempt. It is not reusable.
type Login struct {
	username string
	password string
	eph      srp.Ephemeral
	session  *srp.Session
}

// StartLogin generates the client ephemeral for a new attempt.
func StartLogin(username, password string) (*Login, error) {
	eph, err := srp.GenerateClientEphemeral()
	if err != nil {
		return nil, err
	}
	return &Login{username: username, password: password, eph: eph}, nil
}

// ClientPublicEphemeral is A, sent with login-init.
func (l *Login) ClientPublicEphemeral() string {
	return l.eph.Public
}

// Continue derives the session from the login-init answer and returns the
// client proof for login-verify. The password is dropped afterwards.
func (l *Login) Continue(salt, serverPublic string) (string, error) {
	if err := srp.ValidatePublicEphemeral(serverPublic); err != nil {
		return "", err
	}
	x, err := srp.DerivePrivateKey(salt, l.username, l.password)
	if err != nil {
		return "", err
	}
	s, err := srp.DeriveClientSession(l.eph.Secret, serverPublic, salt, l.username, x)
	if err != nil {
		return "", err
	}
	l.password = ""
	l.session = &s
	return s.Proof, nil
}

// VerifyServer checks the server proof from login-verify. Until it succeeds
// the client must not trust the session.
func (l *Login) VerifyServer(serverProof string) error {
	if l.session == nil {
		return errors.New("login not continued")
	}
	if err := srp.VerifySession(l.eph.Public, *l.session, serverProof); err != nil {
		return ErrServerNotVerified
	}
	return nil
}

// SessionKey returns the shared key K once the handshake has been continued.
func (l *Login) SessionKey() string {
	if l.session == nil {
		return ""
	}
	return l.session.Key
}
