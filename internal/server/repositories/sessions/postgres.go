// Package sessions stores login sessions, one per issued bearer token, so
// tokens can be revoked before they expire.
package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/srpkeeper/internal/dbx"
	"github.com/dmitrijs2005/srpkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.LoginSession) error {
	query :=
		`INSERT INTO login_sessions (token_id, account_id, issued_at, expires_at)
		 VALUES ($1, $2, $3, $4)`

	if _, err := r.db.ExecContext(ctx, query, s.TokenID, s.AccountID, s.IssuedAt, s.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Exists reports whether the session for tokenID is present and unexpired at now.
func (r *PostgresRepository) Exists(ctx context.Context, tokenID string, now time.Time) (bool, error) {
	query :=
		`SELECT EXISTS (
		     SELECT 1 FROM login_sessions
		     WHERE token_id = $1 AND expires_at > $2
		 )`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, tokenID, now).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// DeleteByAccount removes every session of the account and returns how many
// were removed.
func (r *PostgresRepository) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	query := `DELETE FROM login_sessions WHERE account_id = $1`

	res, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
