// Package models defines the server-side records of accounts, credentials
// and sessions.
package models

import "time"

// Account is the user-facing identity. Email is nil once the account has
// been deleted and anonymized.
type Account struct {
	ID          string    `db:"id"`
	Email       *string   `db:"email"`
	DisplayName string    `db:"display_name"`
	Image       *string   `db:"image"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Credential is the SRP credential of an account. Salt and Verifier are hex.
type Credential struct {
	Username  string    `db:"username"`
	Salt      string    `db:"salt"`
	Verifier  string    `db:"verifier"`
	AccountID string    `db:"account_id"`
	CreatedAt time.Time `db:"created_at"`
}

// LoginSession ties an issued bearer token (by its token id) to an account.
// The token itself is not stored.
type LoginSession struct {
	TokenID   string    `db:"token_id"`
	AccountID string    `db:"account_id"`
	IssuedAt  time.Time `db:"issued_at"`
	ExpiresAt time.Time `db:"expires_at"`
}
