// Package handlers provides HTTP handlers for portfolio and quote endpoints.
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/accounts"
	"github.com/aristath/papertrade/internal/modules/portfolio"
	"github.com/aristath/papertrade/internal/web"
)

// QuoteViewer serves the quote-view endpoint. Unlike trade execution it may
// serve slightly stale cached prices.
type QuoteViewer interface {
	LookupCached(ctx context.Context, symbol string) (*domain.Quote, error)
}

// Handler provides HTTP handlers for portfolio endpoints
type Handler struct {
	service *portfolio.Service
	quotes  QuoteViewer
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, quotes QuoteViewer, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		quotes:  quotes,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

type positionResponse struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Shares int64  `json:"shares"`
	Price  string `json:"price"`
	Value  string `json:"value"`
}

type portfolioResponse struct {
	Positions []positionResponse `json:"positions"`
	Cash      string             `json:"cash"`
	NetWorth  string             `json:"net_worth"`
}

type quoteResponse struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Price  string `json:"price"`
}

// HandleGetPortfolio handles GET /api/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := accounts.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	summary, err := h.service.ComputePortfolio(r.Context(), userID)
	if err != nil {
		web.WriteError(w, h.log, err)
		return
	}

	resp := portfolioResponse{
		Positions: make([]positionResponse, 0, len(summary.Positions)),
		Cash:      summary.Cash.StringFixed(2),
		NetWorth:  summary.NetWorth.StringFixed(2),
	}
	for _, p := range summary.Positions {
		resp.Positions = append(resp.Positions, positionResponse{
			Symbol: p.Symbol,
			Name:   p.Name,
			Shares: p.Shares,
			Price:  p.Price.String(),
			Value:  p.Value.StringFixed(2),
		})
	}

	web.WriteJSON(w, h.log, http.StatusOK, resp)
}

// HandleGetQuote handles GET /api/quote/{symbol}
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	quote, err := h.quotes.LookupCached(r.Context(), symbol)
	if err != nil {
		web.WriteError(w, h.log, err)
		return
	}

	web.WriteJSON(w, h.log, http.StatusOK, quoteResponse{
		Symbol: quote.Symbol,
		Name:   quote.Name,
		Price:  quote.Price.String(),
	})
}
