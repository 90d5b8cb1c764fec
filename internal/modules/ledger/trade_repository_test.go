package ledger

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aristath/papertrade/internal/domain"
)

func setupTradeDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE trades (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id     INTEGER NOT NULL,
			reference   TEXT NOT NULL UNIQUE,
			symbol      TEXT NOT NULL,
			stock_name  TEXT NOT NULL,
			price       TEXT NOT NULL,
			shares      INTEGER NOT NULL CHECK (shares != 0),
			executed_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	return db
}

func TestTradeRepository_InsertAndHistory(t *testing.T) {
	db := setupTradeDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewTradeRepository(db, log)

	base := time.Unix(1700000000, 0).UTC()
	trades := []*domain.Trade{
		{UserID: 1, Reference: "ref-1", Symbol: "AAPL", StockName: "Apple", Price: decimal.RequireFromString("180.10"), Shares: 5, ExecutedAt: base},
		{UserID: 1, Reference: "ref-2", Symbol: "AAPL", StockName: "Apple", Price: decimal.RequireFromString("181.00"), Shares: -2, ExecutedAt: base.Add(time.Minute)},
		{UserID: 2, Reference: "ref-3", Symbol: "NET", StockName: "Cloudflare", Price: decimal.RequireFromString("70.00"), Shares: 1, ExecutedAt: base},
	}
	for _, tr := range trades {
		id, err := repo.Insert(db, tr)
		require.NoError(t, err)
		assert.Positive(t, id)
	}

	history, err := repo.HistoryByUser(1)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Newest first, other users excluded
	assert.Equal(t, "ref-2", history[0].Reference)
	assert.Equal(t, "ref-1", history[1].Reference)
	assert.True(t, history[0].Price.Equal(decimal.RequireFromString("181.00")))
	assert.Equal(t, base.Add(time.Minute), history[0].ExecutedAt)
}

func TestTradeRepository_SameTimestampTiebreak(t *testing.T) {
	db := setupTradeDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewTradeRepository(db, log)

	at := time.Unix(1700000000, 0).UTC()
	for _, ref := range []string{"first", "second", "third"} {
		_, err := repo.Insert(db, &domain.Trade{
			UserID: 1, Reference: ref, Symbol: "NET", StockName: "Cloudflare",
			Price: decimal.RequireFromString("70.00"), Shares: 1, ExecutedAt: at,
		})
		require.NoError(t, err)
	}

	history, err := repo.HistoryByUser(1)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "third", history[0].Reference)
	assert.Equal(t, "first", history[2].Reference)
}

func TestTradeRepository_RejectsZeroShares(t *testing.T) {
	db := setupTradeDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewTradeRepository(db, log)

	_, err := repo.Insert(db, &domain.Trade{
		UserID: 1, Reference: "ref-0", Symbol: "NET", StockName: "Cloudflare",
		Price: decimal.RequireFromString("70.00"), Shares: 0, ExecutedAt: time.Now(),
	})
	assert.Error(t, err)
}

func TestTradeRepository_CountByUser(t *testing.T) {
	db := setupTradeDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewTradeRepository(db, log)

	count, err := repo.CountByUser(1)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = repo.Insert(db, &domain.Trade{
		UserID: 1, Reference: "ref-1", Symbol: "NET", StockName: "Cloudflare",
		Price: decimal.RequireFromString("70.00"), Shares: 1, ExecutedAt: time.Now(),
	})
	require.NoError(t, err)

	count, err = repo.CountByUser(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
