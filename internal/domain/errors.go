package domain

import "errors"

var (
	// Money errors
	ErrInvalidAmount    = errors.New("amount must not be negative")
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// Value object errors
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrInvalidAccountID = errors.New("invalid account ID")

	// Account errors
	ErrAccountNotFound         = errors.New("account not found")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrDailyDebitLimitExceeded = errors.New("daily debit limit exceeded")
)
