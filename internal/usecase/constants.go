package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultAccountCacheTTL is how long account snapshots stay in the read cache
	DefaultAccountCacheTTL = 5 * time.Minute

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)

// DeliveryMode selects how account events leave the service.
type DeliveryMode string

const (
	// DeliveryDirect publishes after the account write commits. A crash
	// between commit and publish loses the event.
	DeliveryDirect DeliveryMode = "direct"
	// DeliveryOutbox writes the event into the outbox in the same
	// transaction as the account; the relay publishes it later.
	DeliveryOutbox DeliveryMode = "outbox"
)

// Valid reports whether m is a known delivery mode.
func (m DeliveryMode) Valid() bool {
	return m == DeliveryDirect || m == DeliveryOutbox
}
