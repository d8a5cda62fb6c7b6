package accounts

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/srpkeeper/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

const (
	qInsert    = `(?s)^INSERT\s+INTO\s+accounts\s*\(email,\s*display_name\)\s*VALUES\s*\(\$1,\s*\$2\)\s*RETURNING\s+id,\s*created_at,\s*updated_at$`
	qGetByID   = `(?s)^SELECT\s+id,\s*email,\s*display_name,\s*image,\s*created_at,\s*updated_at\s+FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1\s+AND\s+email\s+IS\s+NOT\s+NULL$`
	qUpdate    = `(?s)^UPDATE\s+accounts\s+SET\s+display_name\s*=\s*COALESCE\(\$2,\s*display_name\),.*RETURNING\s+id,\s*email`
	qAnonymize = `(?s)^UPDATE\s+accounts\s+SET\s+email\s*=\s*NULL,.*WHERE\s+id\s*=\s*\$1\s+AND\s+email\s+IS\s+NOT\s+NULL$`
)

var accountCols = []string{"id", "email", "display_name", "image", "created_at", "updated_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(qInsert).
		WithArgs("alice@example.com", "alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("acc-1", now, now))

	acc, err := repo.Create(context.Background(), "alice@example.com", "alice")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", acc.ID)
	assert.Equal(t, "alice@example.com", *acc.Email)
	assert.Equal(t, "alice", acc.DisplayName)
	assert.Equal(t, now, acc.CreatedAt)
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qInsert).
		WithArgs("alice@example.com", "alice").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), "alice@example.com", "alice")
	assert.ErrorIs(t, err, common.ErrDuplicateAccount)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qInsert).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), "alice@example.com", "alice")
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db down`, err.Error())
}

func TestGetByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(qGetByID).
		WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow("acc-1", "alice@example.com", "alice", nil, now, now))

	acc, err := repo.GetByID(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", acc.ID)
	require.NotNil(t, acc.Email)
	assert.Equal(t, "alice@example.com", *acc.Email)
	assert.Nil(t, acc.Image)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(qGetByID).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdateProfile(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()
	name := "Alice A."

	mock.ExpectQuery(qUpdate).
		WithArgs("acc-1", name, nil).
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow("acc-1", "alice@example.com", name, "https://img", now, now))

	acc, err := repo.UpdateProfile(context.Background(), "acc-1", &name, nil)
	require.NoError(t, err)
	assert.Equal(t, name, acc.DisplayName)
	require.NotNil(t, acc.Image)
	assert.Equal(t, "https://img", *acc.Image)
}

func TestAnonymize(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(qAnonymize).
		WithArgs("acc-1", DeletedDisplayName).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Anonymize(context.Background(), "acc-1"))
}

func TestAnonymize_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(qAnonymize).
		WithArgs("acc-1", DeletedDisplayName).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Anonymize(context.Background(), "acc-1"), common.ErrorNotFound)
}
