package usecase

import "time"

const (
	// DefaultOperationTimeout bounds a single locked load-mutate-save cycle.
	DefaultOperationTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)

// Operation names reported to Metrics.
const (
	OperationOpen   = "open"
	OperationCredit = "credit"
	OperationDebit  = "debit"
)

// Outcomes reported to Metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)
