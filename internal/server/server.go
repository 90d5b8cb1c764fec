// Package server provides the HTTP server and routing for the brokerage API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/modules/accounts"
	accountshandlers "github.com/aristath/papertrade/internal/modules/accounts/handlers"
	ledgerhandlers "github.com/aristath/papertrade/internal/modules/ledger/handlers"
	portfoliohandlers "github.com/aristath/papertrade/internal/modules/portfolio/handlers"
)

// Config holds server configuration
type Config struct {
	Log               zerolog.Logger
	Config            *config.Config
	BrokerDB          *database.DB
	CacheDB           *database.DB
	AccountService    *accounts.Service
	AccountHandlers   *accountshandlers.Handler
	PortfolioHandlers *portfoliohandlers.Handler
	LedgerHandlers    *ledgerhandlers.Handler
}

// Server represents the HTTP server
type Server struct {
	router            *chi.Mux
	server            *http.Server
	log               zerolog.Logger
	cfg               *config.Config
	brokerDB          *database.DB
	cacheDB           *database.DB
	accountService    *accounts.Service
	accountHandlers   *accountshandlers.Handler
	portfolioHandlers *portfoliohandlers.Handler
	ledgerHandlers    *ledgerhandlers.Handler
	systemHandlers    *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:            chi.NewRouter(),
		log:               cfg.Log.With().Str("component", "server").Logger(),
		cfg:               cfg.Config,
		brokerDB:          cfg.BrokerDB,
		cacheDB:           cfg.CacheDB,
		accountService:    cfg.AccountService,
		accountHandlers:   cfg.AccountHandlers,
		portfolioHandlers: cfg.PortfolioHandlers,
		ledgerHandlers:    cfg.LedgerHandlers,
		systemHandlers:    NewSystemHandlers(cfg.Log, cfg.Config.DataDir, cfg.BrokerDB, cfg.CacheDB),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// Public: registration and login
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.accountHandlers.HandleRegister)
			r.Post("/login", s.accountHandlers.HandleLogin)
		})

		// Everything else requires a session token
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/portfolio", s.portfolioHandlers.HandleGetPortfolio)
			r.Get("/quote/{symbol}", s.portfolioHandlers.HandleGetQuote)

			r.Route("/trades", func(r chi.Router) {
				r.Get("/", s.ledgerHandlers.HandleHistory)
				r.Post("/buy", s.ledgerHandlers.HandleBuy)
				r.Post("/sell", s.ledgerHandlers.HandleSell)
			})

			r.Post("/cash/deposit", s.ledgerHandlers.HandleDeposit)

			r.Get("/system/status", s.systemHandlers.HandleSystemStatus)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
