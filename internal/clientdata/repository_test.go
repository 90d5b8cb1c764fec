package clientdata

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

func setupCacheDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE client_cache (
			namespace  TEXT NOT NULL,
			cache_key  TEXT NOT NULL,
			payload    BLOB NOT NULL,
			expires_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (namespace, cache_key)
		)
	`)
	require.NoError(t, err)

	return db
}

type payload struct {
	Symbol string `msgpack:"symbol"`
	Price  string `msgpack:"price"`
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo := NewRepository(setupCacheDB(t), zerolog.New(nil).Level(zerolog.Disabled))

	require.NoError(t, repo.Store("quote", "AAPL", payload{Symbol: "AAPL", Price: "150.25"}, time.Minute))

	var got payload
	ok, err := repo.GetIfFresh("quote", "AAPL", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "150.25", got.Price)

	// Different key is a miss
	ok, err = repo.GetIfFresh("quote", "NET", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Overwrites(t *testing.T) {
	repo := NewRepository(setupCacheDB(t), zerolog.New(nil).Level(zerolog.Disabled))

	require.NoError(t, repo.Store("quote", "AAPL", payload{Symbol: "AAPL", Price: "150.25"}, time.Minute))
	require.NoError(t, repo.Store("quote", "AAPL", payload{Symbol: "AAPL", Price: "151.00"}, time.Minute))

	var got payload
	ok, err := repo.GetIfFresh("quote", "AAPL", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "151.00", got.Price)
}

func TestGetIfFresh_Expired(t *testing.T) {
	repo := NewRepository(setupCacheDB(t), zerolog.New(nil).Level(zerolog.Disabled))

	require.NoError(t, repo.Store("quote", "AAPL", payload{Symbol: "AAPL", Price: "150.25"}, -time.Second))

	var got payload
	ok, err := repo.GetIfFresh("quote", "AAPL", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetIfFresh_CorruptPayload(t *testing.T) {
	db := setupCacheDB(t)
	repo := NewRepository(db, zerolog.New(nil).Level(zerolog.Disabled))

	_, err := db.Exec(
		"INSERT INTO client_cache (namespace, cache_key, payload, expires_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		"quote", "AAPL", []byte{0xc1}, time.Now().Add(time.Minute).Unix(), time.Now().Unix(),
	)
	require.NoError(t, err)

	// Corrupt entries behave like misses
	var got payload
	ok, err := repo.GetIfFresh("quote", "AAPL", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPruneExpired(t *testing.T) {
	repo := NewRepository(setupCacheDB(t), zerolog.New(nil).Level(zerolog.Disabled))

	require.NoError(t, repo.Store("quote", "OLD", payload{Symbol: "OLD", Price: "1"}, -time.Second))
	require.NoError(t, repo.Store("quote", "FRESH", payload{Symbol: "FRESH", Price: "2"}, time.Minute))

	pruned, err := repo.PruneExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	var got payload
	ok, err := repo.GetIfFresh("quote", "FRESH", &got)
	require.NoError(t, err)
	assert.True(t, ok)
}
