package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ledger engine. Every failure is detected before or
// during the atomic transaction, so none of them leaves partial state behind.
var (
	// ErrUnknownSymbol - the quote source could not resolve the symbol.
	// Lookup failures and not-found are treated identically for buy/sell.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrInsufficientFunds - buy cost exceeds the account's cash balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNoHolding - sell requested for a symbol the user does not hold.
	ErrNoHolding = errors.New("no holding for symbol")

	// ErrInsufficientShares - sell requested for more shares than held.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrQuoteUnavailable - a held symbol could not be priced at portfolio
	// read time. Surfaced instead of silently omitting the position, which
	// would misstate net worth.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrTransactionConflict - the atomic update could not complete due to
	// lock contention. Nothing was committed; the whole operation is safe to
	// retry from scratch.
	ErrTransactionConflict = errors.New("transaction conflict")

	// ErrUsernameTaken - registration with an already-registered username.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrInvalidCredentials - login with an unknown username or wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError reports malformed or missing input. It is always
// recoverable by resubmitting corrected input; no side effects occur.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for a single input field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
