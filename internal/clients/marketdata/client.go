// Package marketdata provides the stock quote lookup client.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/clientdata"
	"github.com/aristath/papertrade/internal/domain"
)

// Client fetches quotes from an external market-data API.
//
// The API contract: GET {base}/quote?symbol=X returns
// {"symbol": "...", "name": "...", "price": 123.45}; 404 means the symbol
// does not exist. Prices are a point-in-time snapshot with no caching
// guarantees from the provider.
type Client struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// Compile-time check that Client implements domain.QuoteSource
var _ domain.QuoteSource = (*Client)(nil)

// NewClient creates a new market data client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(baseURL, apiKey string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "marketdata").Logger(),
		cacheRepo: cacheRepo,
	}
}

// cachedQuote is the structure stored in the cache.
type cachedQuote struct {
	Symbol string `msgpack:"symbol"`
	Name   string `msgpack:"name"`
	Price  string `msgpack:"price"`
}

// Lookup fetches a fresh quote for symbol. Returns domain.ErrUnknownSymbol
// when the provider reports not-found or returns an unusable price. The
// result is written through to the cache for the quote-view path, but Lookup
// itself never serves cached data: trade execution must price against the
// live market.
func (c *Client) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, domain.ErrUnknownSymbol
	}

	reqURL := fmt.Sprintf("%s/quote?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	if c.apiKey != "" {
		reqURL += "&token=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrUnknownSymbol
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote API returned status %d", resp.StatusCode)
	}

	var result struct {
		Symbol string      `json:"symbol"`
		Name   string      `json:"name"`
		Price  json.Number `json:"price"`
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber() // Keep the price textual - no float round-trip
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse quote response: %w", err)
	}

	price, err := decimal.NewFromString(result.Price.String())
	if err != nil || !price.IsPositive() {
		// A quote with no usable price is as good as no quote
		c.log.Warn().Str("symbol", symbol).Str("price", result.Price.String()).Msg("Provider returned unusable price")
		return nil, domain.ErrUnknownSymbol
	}

	quote := &domain.Quote{
		Symbol: symbol,
		Name:   result.Name,
		Price:  price,
	}
	if quote.Name == "" {
		quote.Name = symbol
	}

	// Write-through cache for the quote-view endpoint
	if c.cacheRepo != nil {
		cached := cachedQuote{Symbol: quote.Symbol, Name: quote.Name, Price: quote.Price.String()}
		if err := c.cacheRepo.Store("quote", symbol, cached, clientdata.TTLQuote); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache quote")
		}
	}

	c.log.Debug().Str("symbol", symbol).Str("price", price.String()).Msg("Fetched quote")

	return quote, nil
}

// LookupCached returns a cached quote when one is fresh, falling back to a
// live Lookup. Used by the quote-view endpoint only - never by trade
// execution or portfolio valuation.
func (c *Client) LookupCached(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if c.cacheRepo != nil {
		var cached cachedQuote
		ok, err := c.cacheRepo.GetIfFresh("quote", symbol, &cached)
		if err == nil && ok {
			price, perr := decimal.NewFromString(cached.Price)
			if perr == nil {
				c.log.Debug().Str("symbol", symbol).Msg("Quote cache hit")
				return &domain.Quote{Symbol: cached.Symbol, Name: cached.Name, Price: price}, nil
			}
		}
	}

	return c.Lookup(ctx, symbol)
}
