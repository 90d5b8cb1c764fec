package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/accounts"
	"github.com/aristath/papertrade/internal/modules/portfolio"
)

// txAttempts bounds the retry loop on writer contention. The busy_timeout
// pragma already waits 5s per attempt, so three attempts is generous.
const txAttempts = 3

// Service is the trade execution engine. Every operation follows the same
// shape: validate input, fetch a fresh quote (outside any lock - the quote
// call is network I/O and must never stall other users), then serialize on
// the per-account lock and apply all effects in one transaction.
type Service struct {
	db          *database.DB
	accountRepo *accounts.Repository
	holdingRepo *portfolio.HoldingRepository
	tradeRepo   *TradeRepository
	quotes      domain.QuoteSource
	locks       *accountLocks
	log         zerolog.Logger
}

// NewService creates a new ledger service. db must be the broker database -
// the one holding the accounts, holdings and trades tables - so that all
// three effects of an execution commit atomically.
func NewService(
	db *database.DB,
	accountRepo *accounts.Repository,
	holdingRepo *portfolio.HoldingRepository,
	tradeRepo *TradeRepository,
	quotes domain.QuoteSource,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:          db,
		accountRepo: accountRepo,
		holdingRepo: holdingRepo,
		tradeRepo:   tradeRepo,
		quotes:      quotes,
		locks:       newAccountLocks(),
		log:         log.With().Str("service", "ledger").Logger(),
	}
}

// Execution is the result of a successful buy or sell: the appended trade
// record plus the account's new cash balance.
type Execution struct {
	Trade   *domain.Trade
	Balance decimal.Decimal
}

// ExecuteBuy buys shares of symbol at the current market price. The cash
// debit, holding credit and trade record commit in a single transaction;
// on any failure the account is left exactly as it was.
func (s *Service) ExecuteBuy(ctx context.Context, userID int64, symbol string, shares int64) (*Execution, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if shares <= 0 {
		return nil, domain.NewValidationError("shares", "must be a positive whole number")
	}

	// Quote before lock: pricing is network I/O and must not hold up the
	// account. The price is a snapshot - it is re-checked by nobody, that
	// is the contract of a market order.
	quote, err := s.quote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	cost := quote.Price.Mul(decimal.NewFromInt(shares))

	var trade *domain.Trade
	var balance decimal.Decimal
	err = s.withAccount(userID, func(tx database.Queryer) error {
		cash, err := s.accountRepo.Cash(tx, userID)
		if err != nil {
			return err
		}

		if cash.LessThan(cost) {
			return fmt.Errorf("%w: need %s, have %s", domain.ErrInsufficientFunds, cost.StringFixed(2), cash.StringFixed(2))
		}

		held, err := s.holdingRepo.Shares(tx, userID, symbol)
		if err != nil {
			return err
		}

		balance = cash.Sub(cost)
		if err := s.accountRepo.UpdateCash(tx, userID, balance); err != nil {
			return err
		}
		if err := s.holdingRepo.SetShares(tx, userID, symbol, held+shares); err != nil {
			return err
		}

		trade = s.newTrade(userID, quote, shares)
		id, err := s.tradeRepo.Insert(tx, trade)
		if err != nil {
			return err
		}
		trade.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("user_id", userID).
		Str("symbol", symbol).
		Int64("shares", shares).
		Str("price", quote.Price.String()).
		Str("cost", cost.StringFixed(2)).
		Msg("Buy executed")

	return &Execution{Trade: trade, Balance: balance}, nil
}

// ExecuteSell sells shares of symbol at the current market price. Fails with
// ErrNoHolding when the user has no position and ErrInsufficientShares when
// the position is smaller than the requested quantity.
func (s *Service) ExecuteSell(ctx context.Context, userID int64, symbol string, shares int64) (*Execution, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if shares <= 0 {
		return nil, domain.NewValidationError("shares", "must be a positive whole number")
	}

	quote, err := s.quote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	proceeds := quote.Price.Mul(decimal.NewFromInt(shares))

	var trade *domain.Trade
	var balance decimal.Decimal
	err = s.withAccount(userID, func(tx database.Queryer) error {
		held, err := s.holdingRepo.Shares(tx, userID, symbol)
		if err != nil {
			return err
		}
		if held == 0 {
			return fmt.Errorf("%w: %s", domain.ErrNoHolding, symbol)
		}
		if held < shares {
			return fmt.Errorf("%w: have %d, want to sell %d", domain.ErrInsufficientShares, held, shares)
		}

		cash, err := s.accountRepo.Cash(tx, userID)
		if err != nil {
			return err
		}

		balance = cash.Add(proceeds)
		if err := s.accountRepo.UpdateCash(tx, userID, balance); err != nil {
			return err
		}
		if err := s.holdingRepo.SetShares(tx, userID, symbol, held-shares); err != nil {
			return err
		}

		trade = s.newTrade(userID, quote, -shares)
		id, err := s.tradeRepo.Insert(tx, trade)
		if err != nil {
			return err
		}
		trade.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("user_id", userID).
		Str("symbol", symbol).
		Int64("shares", shares).
		Str("price", quote.Price.String()).
		Str("proceeds", proceeds.StringFixed(2)).
		Msg("Sell executed")

	return &Execution{Trade: trade, Balance: balance}, nil
}

// Deposit adds cash to the account. It touches no holdings and writes no
// trade row - deposits are cash movements, not trades.
func (s *Service) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, domain.NewValidationError("amount", "must be positive")
	}
	if amount.Exponent() < -2 {
		return decimal.Zero, domain.NewValidationError("amount", "must not have more than two decimal places")
	}

	var newBalance decimal.Decimal
	err := s.withAccount(userID, func(tx database.Queryer) error {
		cash, err := s.accountRepo.Cash(tx, userID)
		if err != nil {
			return err
		}

		newBalance = cash.Add(amount)
		return s.accountRepo.UpdateCash(tx, userID, newBalance)
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.log.Info().
		Int64("user_id", userID).
		Str("amount", amount.StringFixed(2)).
		Str("balance", newBalance.StringFixed(2)).
		Msg("Deposit applied")

	return newBalance, nil
}

// History returns the user's trade log, most recent first.
func (s *Service) History(userID int64) ([]domain.Trade, error) {
	return s.tradeRepo.HistoryByUser(userID)
}

// withAccount runs fn inside a transaction while holding the user's account
// lock. Contention that survives the busy timeout surfaces as
// ErrTransactionConflict after a bounded number of full retries; fn must be
// safe to re-run from scratch.
func (s *Service) withAccount(userID int64, fn func(tx database.Queryer) error) error {
	lock := s.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = database.WithTransaction(s.db.Conn(), func(tx *sql.Tx) error {
			return fn(tx)
		})
		if err == nil || !database.IsBusy(err) {
			return err
		}

		s.log.Warn().Int64("user_id", userID).Int("attempt", attempt).Msg("Ledger transaction hit writer contention")
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}

	return fmt.Errorf("%w: %v", domain.ErrTransactionConflict, err)
}

// quote fetches a fresh price. Not-found and any other lookup failure are
// treated identically: the symbol cannot be priced, so the operation fails
// before anything is written.
func (s *Service) quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	quote, err := s.quotes.Lookup(ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownSymbol) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUnknownSymbol, err)
	}
	return quote, nil
}

func (s *Service) newTrade(userID int64, quote *domain.Quote, shares int64) *domain.Trade {
	return &domain.Trade{
		UserID:     userID,
		Reference:  uuid.NewString(),
		Symbol:     quote.Symbol,
		StockName:  quote.Name,
		Price:      quote.Price,
		Shares:     shares,
		ExecutedAt: time.Now().UTC(),
	}
}

func normalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", domain.NewValidationError("symbol", "must not be blank")
	}
	return symbol, nil
}
