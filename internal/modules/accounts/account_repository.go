// Package accounts provides account registration, authentication, and the
// account store (one row per user: credentials plus cash balance).
//
// The cash column is mutated only by the ledger engine, inside its
// transactions; this package only creates accounts and reads them back.
package accounts

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/domain"
)

// Repository handles account persistence in broker.db.
type Repository struct {
	brokerDB *sql.DB // broker.db - accounts table
	log      zerolog.Logger
}

// NewRepository creates a new account repository.
func NewRepository(brokerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		brokerDB: brokerDB,
		log:      log.With().Str("repo", "account").Logger(),
	}
}

// Create inserts a new account with the given starting cash.
// Returns domain.ErrUsernameTaken when the username is already registered.
func (r *Repository) Create(username, passwordHash string, startingCash decimal.Decimal) (int64, error) {
	now := time.Now().Unix()

	result, err := r.brokerDB.Exec(
		"INSERT INTO accounts (username, password_hash, cash, created_at) VALUES (?, ?, ?, ?)",
		username, passwordHash, startingCash.String(), now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, domain.ErrUsernameTaken
		}
		return 0, fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get new account id: %w", err)
	}

	r.log.Info().Str("username", username).Int64("user_id", id).Msg("Account created")
	return id, nil
}

// GetByUsername returns the account for a username, or nil if none exists.
func (r *Repository) GetByUsername(username string) (*domain.Account, error) {
	return r.scanAccount(r.brokerDB.QueryRow(
		"SELECT id, username, password_hash, cash, created_at FROM accounts WHERE username = ?",
		username,
	))
}

// GetByID returns the account for a user id, or nil if none exists.
func (r *Repository) GetByID(userID int64) (*domain.Account, error) {
	return r.scanAccount(r.brokerDB.QueryRow(
		"SELECT id, username, password_hash, cash, created_at FROM accounts WHERE id = ?",
		userID,
	))
}

// PasswordHash returns the stored bcrypt hash for a username.
// Returns domain.ErrInvalidCredentials when the username is unknown, so
// callers can't distinguish a missing user from a wrong password.
func (r *Repository) PasswordHash(username string) (int64, string, error) {
	var id int64
	var hash string
	err := r.brokerDB.QueryRow(
		"SELECT id, password_hash FROM accounts WHERE username = ?",
		username,
	).Scan(&id, &hash)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return 0, "", fmt.Errorf("failed to get password hash: %w", err)
	}

	return id, hash, nil
}

// Cash reads the current cash balance for a user. Runs against either the
// live connection or a ledger transaction (q is *sql.DB or *sql.Tx).
func (r *Repository) Cash(q database.Queryer, userID int64) (decimal.Decimal, error) {
	var cashStr string
	err := q.QueryRow("SELECT cash FROM accounts WHERE id = ?", userID).Scan(&cashStr)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("account %d not found", userID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get cash balance: %w", err)
	}

	cash, err := decimal.NewFromString(cashStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt cash balance for account %d: %w", userID, err)
	}

	return cash, nil
}

// UpdateCash writes a new cash balance for a user. Only the ledger engine
// calls this, always inside one of its transactions.
func (r *Repository) UpdateCash(q database.Queryer, userID int64, cash decimal.Decimal) error {
	result, err := q.Exec("UPDATE accounts SET cash = ? WHERE id = ?", cash.String(), userID)
	if err != nil {
		return fmt.Errorf("failed to update cash balance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check cash update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account %d not found", userID)
	}

	return nil
}

func (r *Repository) scanAccount(row *sql.Row) (*domain.Account, error) {
	var acc domain.Account
	var hash, cashStr string
	var createdAt int64

	err := row.Scan(&acc.ID, &acc.Username, &hash, &cashStr, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	cash, err := decimal.NewFromString(cashStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt cash balance for account %d: %w", acc.ID, err)
	}

	acc.Cash = cash
	acc.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &acc, nil
}
