package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goaccount/internal/domain"
)

func newAccount(id, email string) *domain.Account {
	return &domain.Account{
		AccountID:    id,
		CustomerID:   "CUST1",
		AccountType:  domain.AccountTypeSavings,
		Currency:     "USD",
		Status:       domain.AccountStatusActive,
		CustomerName: "Jane",
		Email:        email,
	}
}

func TestStore_SaveInsertAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	saved, err := s.Save(ctx, nil, newAccount("ACC1", "a@x.com"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.Equal(t, saved.CreatedAt, saved.UpdatedAt)

	time.Sleep(time.Millisecond)
	next := saved.Clone()
	next.Status = domain.AccountStatusSuspended
	updated, err := s.Save(ctx, nil, next, saved.Version)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, saved.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(saved.UpdatedAt))

	got, err := s.GetByID(ctx, "ACC1")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusSuspended, got.Status)
}

func TestStore_SaveRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	saved, err := s.Save(ctx, nil, newAccount("ACC1", "a@x.com"), 0)
	require.NoError(t, err)

	first := saved.Clone()
	first.Status = domain.AccountStatusInactive
	_, err = s.Save(ctx, nil, first, saved.Version)
	require.NoError(t, err)

	stale := saved.Clone()
	stale.Status = domain.AccountStatusClosed
	_, err = s.Save(ctx, nil, stale, saved.Version)
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	got, err := s.GetByID(ctx, "ACC1")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusInactive, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestStore_SaveEnforcesUniqueEmail(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.Save(ctx, nil, newAccount("ACC1", "a@x.com"), 0)
	require.NoError(t, err)

	_, err = s.Save(ctx, nil, newAccount("ACC2", "a@x.com"), 0)
	require.ErrorIs(t, err, domain.ErrAccountAlreadyExists)

	exists, err := s.Exists(ctx, "ACC2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_SaveUnknownAccountWithVersion(t *testing.T) {
	_, err := NewStore().Save(context.Background(), nil, newAccount("ACC9", "z@x.com"), 4)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestStore_ReadsDoNotAliasStoredRecords(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, err := s.Save(ctx, nil, newAccount("ACC1", "a@x.com"), 0)
	require.NoError(t, err)

	got, err := s.GetByID(ctx, "ACC1")
	require.NoError(t, err)
	got.Status = domain.AccountStatusClosed

	again, err := s.GetByID(ctx, "ACC1")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusActive, again.Status)
}

func TestStore_Lookups(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.Save(ctx, nil, newAccount("ACC1", "a@x.com"), 0)
	require.NoError(t, err)
	second := newAccount("ACC2", "b@x.com")
	second.Status = domain.AccountStatusInactive
	_, err = s.Save(ctx, nil, second, 0)
	require.NoError(t, err)

	byCustomer, err := s.ListByCustomer(ctx, "CUST1")
	require.NoError(t, err)
	assert.Len(t, byCustomer, 2)

	none, err := s.ListByCustomer(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	inactive, err := s.ListByStatus(ctx, domain.AccountStatusInactive)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, "ACC2", inactive[0].AccountID)

	found, err := s.FindByEmail(ctx, "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, "ACC2", found.AccountID)

	_, err = s.FindByEmail(ctx, "missing@x.com")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	exists, err := s.ExistsByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = s.GetByID(ctx, "ACC404")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestTx_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	_, err = s.Save(ctx, tx, newAccount("ACC1", "a@x.com"), 0)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, tx, &domain.OutboxEvent{ID: "evt-1", AggregateID: "ACC1"}))

	exists, err := s.Exists(ctx, "ACC1")
	require.NoError(t, err)
	assert.False(t, exists, "staged write must not be visible before commit")

	require.NoError(t, tx.Rollback(ctx))

	exists, err = s.Exists(ctx, "ACC1")
	require.NoError(t, err)
	assert.False(t, exists)

	backlog, err := s.CountUnpublished(ctx)
	require.NoError(t, err)
	assert.Zero(t, backlog)
}

func TestTx_CommitAppliesAccountAndOutboxTogether(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = s.Save(ctx, tx, newAccount("ACC1", "a@x.com"), 0)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, tx, &domain.OutboxEvent{ID: "evt-1", AggregateID: "ACC1"}))
	require.NoError(t, tx.Commit(ctx))

	exists, err := s.Exists(ctx, "ACC1")
	require.NoError(t, err)
	assert.True(t, exists)

	rows, err := s.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "evt-1", rows[0].ID)

	require.Error(t, tx.Commit(ctx), "second commit must fail")
}

func TestTx_CommitDetectsConflictAfterStaging(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	saved, err := s.Save(ctx, nil, newAccount("ACC1", "a@x.com"), 0)
	require.NoError(t, err)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	staged := saved.Clone()
	staged.Status = domain.AccountStatusSuspended
	_, err = s.Save(ctx, tx, staged, saved.Version)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, tx, &domain.OutboxEvent{ID: "evt-1", AggregateID: "ACC1"}))

	winner := saved.Clone()
	winner.Status = domain.AccountStatusClosed
	_, err = s.Save(ctx, nil, winner, saved.Version)
	require.NoError(t, err)

	require.ErrorIs(t, tx.Commit(ctx), domain.ErrConcurrencyConflict)

	got, err := s.GetByID(ctx, "ACC1")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusClosed, got.Status)

	backlog, err := s.CountUnpublished(ctx)
	require.NoError(t, err)
	assert.Zero(t, backlog, "outbox row of the losing transaction must not be applied")
}

func TestStore_ConcurrentSavesSameVersion(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	saved, err := s.Save(ctx, nil, newAccount("ACC1", "a@x.com"), 0)
	require.NoError(t, err)

	const writers = 50
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			next := saved.Clone()
			next.Status = domain.AccountStatusSuspended
			_, err := s.Save(ctx, nil, next, saved.Version)
			switch {
			case err == nil:
				successes.Add(1)
			case assert.ErrorIs(t, err, domain.ErrConcurrencyConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(writers-1), conflicts.Load())

	got, err := s.GetByID(ctx, "ACC1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
}
