package common

import "time"

const (
	// AuthorizationHeader carries "Bearer <token>" on authenticated requests.
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "

	// HandshakeTTL bounds the life of a login-init session.
	HandshakeTTL = 300 * time.Second

	// TokenLifetime is the validity of an issued bearer token.
	TokenLifetime = 7 * 24 * time.Hour

	// SessionExpiredMessage is the error text of a 400 from login-verify
	// whose handshake session is gone. Clients match on it.
	SessionExpiredMessage = "Invalid or expired session"
)
