// Package models holds the client-side view of server resources.
package models

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Image     *string   `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// LoginChallenge is the server's answer to login-init.
type LoginChallenge struct {
	SessionID             string `json:"sessionId"`
	Salt                  string `json:"salt"`
	ServerPublicEphemeral string `json:"serverPublicEphemeral"`
}

// LoginResult is the server's answer to a successful login-verify.
type LoginResult struct {
	Token              string `json:"token"`
	ServerSessionProof string `json:"serverSessionProof"`
	User               User   `json:"user"`
}
