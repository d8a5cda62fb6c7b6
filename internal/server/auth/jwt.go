// Package auth issues and verifies the bearer tokens handed out after a
// successful SRP login.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/srpkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the registered claims plus the account the token belongs to.
// ID (jti) links the token to its login session.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
}

type Issuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewIssuer returns an HS256 issuer with the fixed common.TokenLifetime.
func NewIssuer(secret []byte) *Issuer {
	return &Issuer{secret: secret, lifetime: common.TokenLifetime, now: time.Now}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	c := *i
	c.now = now
	return &c
}

// Issue signs a token for the account. The returned claims carry the token
// id and the issue and expiry times.
func (i *Issuer) Issue(accountID, email string) (string, *Claims, error) {
	now := i.now().Truncate(time.Second)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
		},
		AccountID: accountID,
		Email:     email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Verify checks signature and expiry. Expired tokens yield
// common.ErrTokenExpired, anything else wrong common.ErrInvalidToken.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.AccountID == "" || claims.ID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
