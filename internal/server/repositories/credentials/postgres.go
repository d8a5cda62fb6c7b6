// Package credentials stores SRP salts and verifiers in PostgreSQL.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/srpkeeper/internal/common"
	"github.com/dmitrijs2005/srpkeeper/internal/dbx"
	"github.com/dmitrijs2005/srpkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create stores a credential. A taken username yields common.ErrDuplicateAccount.
func (r *PostgresRepository) Create(ctx context.Context, c *models.Credential) error {
	query :=
		`INSERT INTO srp_credentials (username, salt, verifier, account_id)
		 VALUES ($1, $2, $3, $4)`

	if _, err := r.db.ExecContext(ctx, query, c.Username, c.Salt, c.Verifier, c.AccountID); err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrDuplicateAccount
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByUsername returns common.ErrorNotFound for an unknown username.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Credential, error) {
	query :=
		`SELECT username, salt, verifier, account_id, created_at
		 FROM srp_credentials
		 WHERE username = $1`

	c := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(&c.Username, &c.Salt, &c.Verifier, &c.AccountID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) DeleteByAccount(ctx context.Context, accountID string) error {
	query := `DELETE FROM srp_credentials WHERE account_id = $1`

	if _, err := r.db.ExecContext(ctx, query, accountID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
