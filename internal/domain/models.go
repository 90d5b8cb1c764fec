// Package domain provides core domain models and types.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a user's brokerage account. There is exactly one row per
// user; the cash balance is mutated only by the ledger engine.
type Account struct {
	CreatedAt time.Time       `json:"created_at"`
	Username  string          `json:"username"`
	ID        int64           `json:"id"`
	Cash      decimal.Decimal `json:"cash"`
}

// Holding represents a user's aggregated position in one symbol.
// A row exists only while Shares > 0; it is deleted when the position
// reaches zero and re-created on a later buy.
type Holding struct {
	UpdatedAt time.Time `json:"updated_at"`
	Symbol    string    `json:"symbol"`
	UserID    int64     `json:"user_id"`
	Shares    int64     `json:"shares"`
}

// Trade represents one executed buy or sell. Rows are append-only: once
// written they are never modified or deleted. Shares is signed: positive for
// buys, negative for sells. Price is the quote snapshot at execution time.
type Trade struct {
	ExecutedAt time.Time       `json:"executed_at"`
	Symbol     string          `json:"symbol"`
	StockName  string          `json:"name"`
	Reference  string          `json:"reference"`
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	Shares     int64           `json:"shares"`
	Price      decimal.Decimal `json:"price"`
}

// Side returns "BUY" or "SELL" based on the sign of Shares.
func (t Trade) Side() string {
	if t.Shares < 0 {
		return "SELL"
	}
	return "BUY"
}

// Quote is a live, unpersisted price lookup for a symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// Position is one row of a live-priced portfolio view: the holding joined
// with a fresh quote. Value = Price * Shares.
type Position struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Value  decimal.Decimal `json:"value"`
}

// PortfolioSummary is the full live valuation of an account: every open
// position priced at the current quote, plus cash. Trade history keeps the
// recorded execution price instead; the split is intentional.
type PortfolioSummary struct {
	Positions []Position      `json:"positions"`
	Cash      decimal.Decimal `json:"cash"`
	NetWorth  decimal.Decimal `json:"net_worth"`
}
