package domain

import "context"

// QuoteSource defines the contract for live market-data lookups.
//
// Lookup returns the current quote for a symbol, or ErrUnknownSymbol when the
// source reports not-found. Any other failure means the source was
// unreachable; callers on the execution path treat both identically (the
// operation fails, nothing is written).
//
// The lookup may block on network I/O, so the ledger engine always calls it
// before acquiring any per-user lock or transaction.
type QuoteSource interface {
	Lookup(ctx context.Context, symbol string) (*Quote, error)
}
