// Package handlers provides HTTP handlers for trade execution and history.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/accounts"
	"github.com/aristath/papertrade/internal/modules/ledger"
	"github.com/aristath/papertrade/internal/web"
)

// Handler provides HTTP handlers for ledger endpoints
type Handler struct {
	service *ledger.Service
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

type tradeRequest struct {
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
}

type depositRequest struct {
	Amount string `json:"amount"`
}

type tradeResponse struct {
	Reference  string `json:"reference"`
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	Side       string `json:"side"`
	Shares     int64  `json:"shares"`
	Price      string `json:"price"`
	ExecutedAt int64  `json:"executed_at"`
}

type executionResponse struct {
	tradeResponse
	Balance string `json:"balance"`
}

type depositResponse struct {
	Balance string `json:"balance"`
}

// HandleBuy handles POST /api/trades/buy
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	h.handleTrade(w, r, h.service.ExecuteBuy)
}

// HandleSell handles POST /api/trades/sell
func (h *Handler) HandleSell(w http.ResponseWriter, r *http.Request) {
	h.handleTrade(w, r, h.service.ExecuteSell)
}

// HandleDeposit handles POST /api/cash/deposit
func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := accounts.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		web.WriteError(w, h.log, domain.NewValidationError("amount", "must be a decimal number"))
		return
	}

	balance, err := h.service.Deposit(r.Context(), userID, amount)
	if err != nil {
		web.WriteError(w, h.log, err)
		return
	}

	web.WriteJSON(w, h.log, http.StatusOK, depositResponse{Balance: balance.StringFixed(2)})
}

// HandleHistory handles GET /api/trades
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := accounts.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	trades, err := h.service.History(userID)
	if err != nil {
		web.WriteError(w, h.log, err)
		return
	}

	resp := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		resp = append(resp, toTradeResponse(&t))
	}

	web.WriteJSON(w, h.log, http.StatusOK, resp)
}

type executeFunc func(ctx context.Context, userID int64, symbol string, shares int64) (*ledger.Execution, error)

func (h *Handler) handleTrade(w http.ResponseWriter, r *http.Request, execute executeFunc) {
	userID, ok := accounts.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	exec, err := execute(r.Context(), userID, req.Symbol, req.Shares)
	if err != nil {
		web.WriteError(w, h.log, err)
		return
	}

	web.WriteJSON(w, h.log, http.StatusCreated, executionResponse{
		tradeResponse: toTradeResponse(exec.Trade),
		Balance:       exec.Balance.StringFixed(2),
	})
}

func toTradeResponse(t *domain.Trade) tradeResponse {
	shares := t.Shares
	if shares < 0 {
		shares = -shares
	}
	return tradeResponse{
		Reference:  t.Reference,
		Symbol:     t.Symbol,
		Name:       t.StockName,
		Side:       t.Side(),
		Shares:     shares,
		Price:      t.Price.String(),
		ExecutedAt: t.ExecutedAt.Unix(),
	}
}
