package models

import "time"

// HandshakeSession is the server state between login-init and login-verify.
// It holds the server's secret ephemeral and must never be sent to a client.
type HandshakeSession struct {
	SessionID             string    `json:"session_id"`
	Username              string    `json:"username"`
	AccountID             string    `json:"account_id,omitempty"`
	Salt                  string    `json:"salt"`
	Verifier              string    `json:"verifier"`
	ServerSecretEphemeral string    `json:"server_secret_ephemeral"`
	ClientPublicEphemeral string    `json:"client_public_ephemeral"`
	CreatedAt             time.Time `json:"created_at"`
	ExpiresAt             time.Time `json:"expires_at"`

	// Decoy marks a session opened for an unknown username; verifying it
	// always fails.
	Decoy bool `json:"decoy,omitempty"`
}

// Expired reports whether the session is past its expiry at now.
func (s *HandshakeSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
