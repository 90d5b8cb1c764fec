// Package ledger provides the trade execution engine: atomic buy, sell and
// deposit operations plus the append-only trade log.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/domain"
)

// TradeRepository handles trade log persistence in broker.db.
// The trades table is append-only: no update or delete methods exist.
type TradeRepository struct {
	brokerDB *sql.DB // broker.db - trades table
	log      zerolog.Logger
}

// NewTradeRepository creates a new trade repository.
func NewTradeRepository(brokerDB *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		brokerDB: brokerDB,
		log:      log.With().Str("repo", "trade").Logger(),
	}
}

// Insert appends one trade row. Runs inside the engine's transaction (q is the
// active *sql.Tx) so the row commits together with the cash and holding
// updates, or not at all.
func (r *TradeRepository) Insert(q database.Queryer, trade *domain.Trade) (int64, error) {
	result, err := q.Exec(
		`INSERT INTO trades (user_id, reference, symbol, stock_name, price, shares, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		trade.UserID, trade.Reference, trade.Symbol, trade.StockName,
		trade.Price.String(), trade.Shares, trade.ExecutedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get trade id: %w", err)
	}

	return id, nil
}

// HistoryByUser returns the user's full trade log, most recent first. Rows
// with the same timestamp stay in reverse insertion order via the id
// tiebreaker.
func (r *TradeRepository) HistoryByUser(userID int64) ([]domain.Trade, error) {
	rows, err := r.brokerDB.Query(
		`SELECT id, user_id, reference, symbol, stock_name, price, shares, executed_at
		 FROM trades WHERE user_id = ? ORDER BY executed_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade history: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var priceStr string
		var executedAt int64
		if err := rows.Scan(&t.ID, &t.UserID, &t.Reference, &t.Symbol, &t.StockName, &priceStr, &t.Shares, &executedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt price on trade %d: %w", t.ID, err)
		}

		t.Price = price
		t.ExecutedAt = time.Unix(executedAt, 0).UTC()
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trade history: %w", err)
	}

	return trades, nil
}

// CountByUser returns the number of trades a user has executed.
func (r *TradeRepository) CountByUser(userID int64) (int64, error) {
	var count int64
	if err := r.brokerDB.QueryRow("SELECT COUNT(*) FROM trades WHERE user_id = ?", userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}
