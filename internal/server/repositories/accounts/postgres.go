// Package accounts stores user accounts in PostgreSQL.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/srpkeeper/internal/common"
	"github.com/dmitrijs2005/srpkeeper/internal/dbx"
	"github.com/dmitrijs2005/srpkeeper/internal/server/models"
)

// DeletedDisplayName replaces the name of an anonymized account.
const DeletedDisplayName = "Deleted User"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an account. A taken email yields common.ErrDuplicateAccount.
func (r *PostgresRepository) Create(ctx context.Context, email, displayName string) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (email, display_name)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`

	acc := &models.Account{Email: &email, DisplayName: displayName}
	err := r.db.QueryRowContext(ctx, query, email, displayName).Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrDuplicateAccount
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return acc, nil
}

// GetByID returns a live (not anonymized) account.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query :=
		`SELECT id, email, display_name, image, created_at, updated_at
		 FROM accounts
		 WHERE id = $1 AND email IS NOT NULL`

	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// UpdateProfile sets the non-nil fields and returns the updated account.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, displayName, image *string) (*models.Account, error) {
	query :=
		`UPDATE accounts
		 SET display_name = COALESCE($2, display_name),
		     image = COALESCE($3, image),
		     updated_at = now()
		 WHERE id = $1 AND email IS NOT NULL
		 RETURNING id, email, display_name, image, created_at, updated_at`

	return scanAccount(r.db.QueryRowContext(ctx, query, id, displayName, image))
}

// Anonymize clears the personal data of an account and frees its email.
func (r *PostgresRepository) Anonymize(ctx context.Context, id string) error {
	query :=
		`UPDATE accounts
		 SET email = NULL, display_name = $2, image = NULL, updated_at = now()
		 WHERE id = $1 AND email IS NOT NULL`

	res, err := r.db.ExecContext(ctx, query, id, DeletedDisplayName)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	acc := &models.Account{}
	err := row.Scan(&acc.ID, &acc.Email, &acc.DisplayName, &acc.Image, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return acc, nil
}
