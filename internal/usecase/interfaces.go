package usecase

import (
	"context"
	"time"

	"github.com/iho/goaccount/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Exists(ctx context.Context, accountID string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetByID(ctx context.Context, accountID string) (*domain.Account, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*domain.Account, error)
	ListByStatus(ctx context.Context, status domain.AccountStatus) ([]*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Save inserts the account when expectedVersion is zero and otherwise
	// updates it only if the stored version equals expectedVersion. The
	// returned record carries the incremented version and refreshed UpdatedAt.
	Save(ctx context.Context, tx Transaction, account *domain.Account, expectedVersion int64) (*domain.Account, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	CountUnpublished(ctx context.Context) (int64, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, id string, lastError string) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// PublishResult is the outcome of an awaited publish.
type PublishResult struct {
	Partition int
	Offset    int64
	Err       error
}

// EventPublisher emits account events to the event channel. Both methods
// encode synchronously and fail with domain.ErrEventSerialization before
// anything is enqueued; transport failures are reported asynchronously.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event *domain.AccountEvent) error
	PublishAwaitable(ctx context.Context, key string, event *domain.AccountEvent) (<-chan PublishResult, error)
}

// AccountCache caches account snapshots for reads. Set must not replace an
// entry that holds the same or a newer version.
type AccountCache interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	Set(ctx context.Context, account *domain.Account, ttl time.Duration) error
	Delete(ctx context.Context, accountID string) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key so the request may be retried.
	Release(ctx context.Context, key string) error
}
