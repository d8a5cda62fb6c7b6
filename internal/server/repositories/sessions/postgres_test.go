package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/srpkeeper/internal/server/models"
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
	qInsert = `(?s)^INSERT\s+INTO\s+login_sessions\s*\(token_id,\s*account_id,\s*issued_at,\s*expires_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)$`
	qExists = `(?s)^SELECT\s+EXISTS\s*\(.*FROM\s+login_sessions\s+WHERE\s+token_id\s*=\s*\$1\s+AND\s+expires_at\s*>\s*\$2\s*\)$`
	qDelete = `^DELETE\s+FROM\s+login_sessions\s+WHERE\s+account_id\s*=\s*\$1$`
)

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	issued := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := &models.LoginSession{TokenID: "jti-1", AccountID: "acc-1", IssuedAt: issued, ExpiresAt: issued.Add(time.Hour)}

	mock.ExpectExec(qInsert).
		WithArgs("jti-1", "acc-1", issued, issued.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), s))
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(qInsert).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.LoginSession{TokenID: "jti-1"})
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db down`, err.Error())
}

func TestExists(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(qExists).WithArgs("jti-1", now).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(qExists).WithArgs("jti-2", now).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.Exists(context.Background(), "jti-1", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(context.Background(), "jti-2", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteByAccount(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(qDelete).WithArgs("acc-1").WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteByAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
