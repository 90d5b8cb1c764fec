// Package portfolio provides the holdings store and portfolio valuation.
package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/domain"
)

// HoldingRepository handles holding persistence in broker.db.
//
// The holdings table keeps at most one row per (user, symbol) and never
// stores a zero or negative share count: SetShares deletes the row when the
// position closes. Write methods take a database.Queryer so the ledger engine
// can run them inside its transactions.
type HoldingRepository struct {
	brokerDB *sql.DB // broker.db - holdings table
	log      zerolog.Logger
}

// NewHoldingRepository creates a new holding repository.
func NewHoldingRepository(brokerDB *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		brokerDB: brokerDB,
		log:      log.With().Str("repo", "holding").Logger(),
	}
}

// Shares returns the share count a user holds in symbol, zero when there is
// no position.
func (r *HoldingRepository) Shares(q database.Queryer, userID int64, symbol string) (int64, error) {
	var shares int64
	err := q.QueryRow(
		"SELECT total_shares FROM holdings WHERE user_id = ? AND symbol = ?",
		userID, symbol,
	).Scan(&shares)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get holding %s: %w", symbol, err)
	}

	return shares, nil
}

// SetShares writes the new share count for (user, symbol). A count of zero
// deletes the row; negative counts are a caller bug and rejected outright.
func (r *HoldingRepository) SetShares(q database.Queryer, userID int64, symbol string, shares int64) error {
	if shares < 0 {
		return fmt.Errorf("refusing to store negative holding %s: %d shares", symbol, shares)
	}

	if shares == 0 {
		if _, err := q.Exec("DELETE FROM holdings WHERE user_id = ? AND symbol = ?", userID, symbol); err != nil {
			return fmt.Errorf("failed to close holding %s: %w", symbol, err)
		}
		return nil
	}

	query := `
		INSERT INTO holdings (user_id, symbol, total_shares, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, symbol) DO UPDATE SET
			total_shares = excluded.total_shares,
			updated_at = excluded.updated_at
	`
	if _, err := q.Exec(query, userID, symbol, shares, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to update holding %s: %w", symbol, err)
	}

	return nil
}

// ListByUser returns all open positions for a user, ordered by symbol.
func (r *HoldingRepository) ListByUser(userID int64) ([]domain.Holding, error) {
	rows, err := r.brokerDB.Query(
		"SELECT user_id, symbol, total_shares, updated_at FROM holdings WHERE user_id = ? ORDER BY symbol",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		var h domain.Holding
		var updatedAt int64
		if err := rows.Scan(&h.UserID, &h.Symbol, &h.Shares, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holdings: %w", err)
	}

	return holdings, nil
}
