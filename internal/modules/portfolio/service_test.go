package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/accounts"
)

type fakeQuotes struct {
	prices map[string]decimal.Decimal
	fail   map[string]bool
}

func (f *fakeQuotes) Lookup(_ context.Context, symbol string) (*domain.Quote, error) {
	if f.fail[symbol] {
		return nil, errors.New("provider timeout")
	}
	price, ok := f.prices[symbol]
	if !ok {
		return nil, domain.ErrUnknownSymbol
	}
	return &domain.Quote{Symbol: symbol, Name: symbol + " Inc", Price: price}, nil
}

func setupPortfolioDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE accounts (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			cash          TEXT NOT NULL CHECK (CAST(cash AS REAL) >= 0),
			created_at    INTEGER NOT NULL
		);
		CREATE TABLE holdings (
			user_id      INTEGER NOT NULL,
			symbol       TEXT NOT NULL,
			total_shares INTEGER NOT NULL CHECK (total_shares > 0),
			updated_at   INTEGER NOT NULL,
			PRIMARY KEY (user_id, symbol)
		)
	`)
	require.NoError(t, err)

	return db
}

func newTestPortfolio(t *testing.T) (*Service, *HoldingRepository, *accounts.Repository, *fakeQuotes, *sql.DB) {
	t.Helper()

	db := setupPortfolioDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	holdingRepo := NewHoldingRepository(db, log)
	accountRepo := accounts.NewRepository(db, log)
	quotes := &fakeQuotes{
		prices: map[string]decimal.Decimal{
			"AAPL": decimal.RequireFromString("150.25"),
			"NET":  decimal.RequireFromString("70.10"),
		},
		fail: map[string]bool{},
	}

	return NewService(holdingRepo, accountRepo, quotes, log), holdingRepo, accountRepo, quotes, db
}

func TestComputePortfolio(t *testing.T) {
	svc, holdingRepo, accountRepo, _, db := newTestPortfolio(t)

	userID, err := accountRepo.Create("alice", "hash", decimal.RequireFromString("1000.00"))
	require.NoError(t, err)
	require.NoError(t, holdingRepo.SetShares(db, userID, "AAPL", 4))
	require.NoError(t, holdingRepo.SetShares(db, userID, "NET", 10))

	summary, err := svc.ComputePortfolio(context.Background(), userID)
	require.NoError(t, err)

	require.Len(t, summary.Positions, 2)
	assert.True(t, summary.Cash.Equal(decimal.RequireFromString("1000.00")))

	// Positions are symbol-ordered: AAPL then NET
	assert.Equal(t, "AAPL", summary.Positions[0].Symbol)
	assert.True(t, summary.Positions[0].Value.Equal(decimal.RequireFromString("601.00")))
	assert.Equal(t, "NET", summary.Positions[1].Symbol)
	assert.True(t, summary.Positions[1].Value.Equal(decimal.RequireFromString("701.00")))

	// 1000 + 601 + 701
	assert.True(t, summary.NetWorth.Equal(decimal.RequireFromString("2302.00")), "net worth = %s", summary.NetWorth)
}

func TestComputePortfolio_EmptyAccount(t *testing.T) {
	svc, _, accountRepo, _, _ := newTestPortfolio(t)

	userID, err := accountRepo.Create("alice", "hash", decimal.RequireFromString("500.00"))
	require.NoError(t, err)

	summary, err := svc.ComputePortfolio(context.Background(), userID)
	require.NoError(t, err)

	assert.Empty(t, summary.Positions)
	assert.True(t, summary.NetWorth.Equal(decimal.RequireFromString("500.00")))
}

// One unpriceable holding fails the whole valuation; a partial net worth
// would be worse than no answer.
func TestComputePortfolio_QuoteFailure(t *testing.T) {
	svc, holdingRepo, accountRepo, quotes, db := newTestPortfolio(t)

	userID, err := accountRepo.Create("alice", "hash", decimal.RequireFromString("1000.00"))
	require.NoError(t, err)
	require.NoError(t, holdingRepo.SetShares(db, userID, "AAPL", 4))
	require.NoError(t, holdingRepo.SetShares(db, userID, "NET", 10))
	quotes.fail["NET"] = true

	_, err = svc.ComputePortfolio(context.Background(), userID)
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)
}

func TestComputePortfolio_UnknownAccount(t *testing.T) {
	svc, _, _, _, _ := newTestPortfolio(t)

	_, err := svc.ComputePortfolio(context.Background(), 999)
	assert.Error(t, err)
}

func TestHoldingRepository_SetShares(t *testing.T) {
	_, holdingRepo, _, _, db := newTestPortfolio(t)

	require.NoError(t, holdingRepo.SetShares(db, 1, "NET", 5))

	held, err := holdingRepo.Shares(db, 1, "NET")
	require.NoError(t, err)
	assert.Equal(t, int64(5), held)

	// Upsert replaces
	require.NoError(t, holdingRepo.SetShares(db, 1, "NET", 9))
	held, err = holdingRepo.Shares(db, 1, "NET")
	require.NoError(t, err)
	assert.Equal(t, int64(9), held)

	// Zero deletes the row
	require.NoError(t, holdingRepo.SetShares(db, 1, "NET", 0))
	holdings, err := holdingRepo.ListByUser(1)
	require.NoError(t, err)
	assert.Empty(t, holdings)

	// Negative is a caller bug
	assert.Error(t, holdingRepo.SetShares(db, 1, "NET", -1))
}
