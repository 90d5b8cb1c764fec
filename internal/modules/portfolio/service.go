package portfolio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/accounts"
)

// Service computes live-priced portfolio views.
type Service struct {
	holdingRepo *HoldingRepository
	accountRepo *accounts.Repository
	quotes      domain.QuoteSource
	log         zerolog.Logger
}

// NewService creates a new portfolio service.
func NewService(holdingRepo *HoldingRepository, accountRepo *accounts.Repository, quotes domain.QuoteSource, log zerolog.Logger) *Service {
	return &Service{
		holdingRepo: holdingRepo,
		accountRepo: accountRepo,
		quotes:      quotes,
		log:         log.With().Str("service", "portfolio").Logger(),
	}
}

// ComputePortfolio values every open position at a fresh quote and returns
// the full summary. It is all-or-nothing: if any position cannot be priced
// the whole computation fails with domain.ErrQuoteUnavailable rather than
// returning a partial net worth.
func (s *Service) ComputePortfolio(ctx context.Context, userID int64) (*domain.PortfolioSummary, error) {
	account, err := s.accountRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account %d not found", userID)
	}

	holdings, err := s.holdingRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	summary := &domain.PortfolioSummary{
		Positions: make([]domain.Position, 0, len(holdings)),
		Cash:      account.Cash,
		NetWorth:  account.Cash,
	}

	for _, h := range holdings {
		quote, err := s.quotes.Lookup(ctx, h.Symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", h.Symbol).Msg("Failed to price position")
			return nil, fmt.Errorf("%w: %s", domain.ErrQuoteUnavailable, h.Symbol)
		}

		value := quote.Price.Mul(decimal.NewFromInt(h.Shares))
		summary.Positions = append(summary.Positions, domain.Position{
			Symbol: h.Symbol,
			Name:   quote.Name,
			Shares: h.Shares,
			Price:  quote.Price,
			Value:  value,
		})
		summary.NetWorth = summary.NetWorth.Add(value)
	}

	return summary, nil
}
