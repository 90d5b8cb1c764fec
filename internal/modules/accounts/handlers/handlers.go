// Package handlers provides HTTP handlers for registration and login.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/modules/accounts"
	"github.com/aristath/papertrade/internal/web"
)

// Handler provides HTTP handlers for account endpoints
type Handler struct {
	service *accounts.Service
	log     zerolog.Logger
}

// NewHandler creates a new accounts handler
func NewHandler(service *accounts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "accounts").Logger(),
	}
}

type registerRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Confirmation string `json:"confirmation"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type accountResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Cash     string `json:"cash"`
}

type loginResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// HandleRegister handles POST /api/auth/register
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	account, err := h.service.Register(req.Username, req.Password, req.Confirmation)
	if err != nil {
		web.WriteError(w, h.log, err)
		return
	}

	web.WriteJSON(w, h.log, http.StatusCreated, accountResponse{
		UserID:   account.ID,
		Username: account.Username,
		Cash:     account.Cash.StringFixed(2),
	})
}

// HandleLogin handles POST /api/auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, account, err := h.service.Login(req.Username, req.Password)
	if err != nil {
		web.WriteError(w, h.log, err)
		return
	}

	web.WriteJSON(w, h.log, http.StatusOK, loginResponse{
		Token:    token,
		UserID:   account.ID,
		Username: account.Username,
	})
}
