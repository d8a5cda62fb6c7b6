package metadata

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/srpkeeper/internal/common"
	"github.com/dmitrijs2005/srpkeeper/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at INTEGER NOT NULL)`)
	require.NoError(t, err)
	return db
}

func TestSetManyAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.SetMany(ctx, map[string]string{KeyToken: "tok-1", KeyEmail: "alice@example.com"}))
	v, err := r.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", v)

	require.NoError(t, r.SetMany(ctx, map[string]string{KeyToken: "tok-2"}))
	v, err = r.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", v, "set is an upsert")

	v, err = r.Get(ctx, KeyEmail)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", v, "other keys untouched")

	require.NoError(t, r.SetMany(ctx, nil))
}

func TestSetMany_StampsUpdatedAt(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	r.now = func() time.Time { return time.Unix(1_780_000_000, 0) }

	require.NoError(t, r.SetMany(context.Background(), map[string]string{KeySalt: "abcd"}))

	var ts int64
	require.NoError(t, db.QueryRow(`SELECT updated_at FROM metadata WHERE key = ?`, KeySalt).Scan(&ts))
	assert.Equal(t, int64(1_780_000_000), ts)
}

func TestGet_Missing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetMany(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.SetMany(ctx, map[string]string{
		KeyEmail: "alice@example.com",
		KeySalt:  "abcd",
		"other":  "x",
	}))

	m, err := r.GetMany(ctx, KeyEmail, KeySalt)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{KeyEmail: "alice@example.com", KeySalt: "abcd"}, m)

	_, err = r.GetMany(ctx, KeyEmail, KeyToken)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorContains(t, err, KeyToken)

	m, err = r.GetMany(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestClear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.SetMany(ctx, map[string]string{KeyEmail: "a", KeyToken: "b"}))
	require.NoError(t, r.Clear(ctx))

	_, err := r.GetMany(ctx, KeyEmail)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, r.Clear(ctx), "clearing an empty store is fine")
}

func TestInsideTransaction(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		require.NoError(t, NewSQLiteRepository(tx).SetMany(ctx, map[string]string{KeyToken: "tok"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = NewSQLiteRepository(db).Get(ctx, KeyToken)
	assert.ErrorIs(t, err, common.ErrorNotFound, "rolled back")
}

func TestErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	assert.ErrorContains(t, err, `metadata get "k"`)
	assert.ErrorContains(t, r.SetMany(ctx, map[string]string{"k": "v"}), "metadata set [k]")
	assert.ErrorContains(t, r.Clear(ctx), "metadata clear")
	_, err = r.GetMany(ctx, "k")
	assert.ErrorContains(t, err, "metadata get many")
}
