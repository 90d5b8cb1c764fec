package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

func setupTxDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, value TEXT)")
	require.NoError(t, err)

	return db
}

func countItems(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count))
	return count
}

func TestWithTransaction_Commit(t *testing.T) {
	db := setupTxDB(t)

	err := WithTransaction(db, func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO items (value) VALUES ('a')")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countItems(t, db))
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db := setupTxDB(t)
	boom := errors.New("boom")

	err := WithTransaction(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO items (value) VALUES ('a')"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, countItems(t, db), "insert must roll back")
}

func TestWithTransaction_RollbackOnPanic(t *testing.T) {
	db := setupTxDB(t)

	err := WithTransaction(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO items (value) VALUES ('a')"); err != nil {
			return err
		}
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
	assert.Zero(t, countItems(t, db))
}

func TestWithTransaction_NilDB(t *testing.T) {
	err := WithTransaction(nil, func(tx *sql.Tx) error { return nil })
	assert.Error(t, err)
}

func TestIsBusy(t *testing.T) {
	assert.False(t, IsBusy(nil))
	assert.False(t, IsBusy(errors.New("no such table: items")))
	assert.True(t, IsBusy(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, IsBusy(errors.New("database table is locked")))
}

func TestNewAndMigrate(t *testing.T) {
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "broker.db"),
		Profile: ProfileLedger,
		Name:    "broker",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate())
	// Idempotent
	require.NoError(t, db.Migrate())

	// Schema is usable and constraints are live
	_, err = db.Exec(
		"INSERT INTO accounts (username, password_hash, cash, created_at) VALUES ('alice', 'hash', '100.00', 0)",
	)
	require.NoError(t, err)

	_, err = db.Exec(
		"INSERT INTO accounts (username, password_hash, cash, created_at) VALUES ('bob', 'hash', '-1.00', 0)",
	)
	assert.Error(t, err, "negative cash must violate the CHECK constraint")
}

func TestGetStats(t *testing.T) {
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "cache.db"),
		Profile: ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Positive(t, stats.PageCount)
	assert.Positive(t, stats.PageSize)
}
