package domain

import "errors"

// Common domain errors
var (
	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when trying to create a resource that already exists
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrValidation is returned when input validation fails
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized is returned when a user is not authorized to perform an action
	ErrUnauthorized = errors.New("unauthorized")
)

// Ledger errors. Every failure the ledger reports to its callers is one of these,
// possibly wrapped with more context.
var (
	// ErrInvalidAmount is returned when an amount is missing, zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidDirection is returned when an adjustment direction is neither add nor subtract.
	ErrInvalidDirection = errors.New("direction must be add or subtract")
	// ErrInvalidKind is returned when a manual entry names an unsupported transaction kind.
	ErrInvalidKind = errors.New("unsupported transaction kind")
	// ErrInsufficientFunds is returned when an investment exceeds the cash balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAccountNotFound is returned when the target account does not resolve.
	ErrAccountNotFound = errors.New("account not found")
	// ErrForbiddenOperation is returned when deactivating a protected (admin) account.
	ErrForbiddenOperation = errors.New("operation not permitted on this account")
	// ErrPriceUnavailable is returned only when the price cache has its synthesized fallback disabled.
	ErrPriceUnavailable = errors.New("btc price unavailable")
	// ErrPersistenceConflict is returned when a compare-and-set lost the race.
	ErrPersistenceConflict = errors.New("account was modified concurrently")
	// ErrPersistenceFailure is returned when the backing store cannot complete a write or read.
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrNegativeBalance is the last-resort guard against persisting a negative balance.
	ErrNegativeBalance = errors.New("balance cannot be negative")
)
