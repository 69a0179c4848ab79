// Package memory provides an in-process account store with the same
// optimistic-concurrency semantics as the Postgres adapter.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/goaccount/internal/domain"
	"github.com/iho/goaccount/internal/usecase"
)

// Store holds accounts and outbox rows. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	byEmail  map[string]string
	outbox   []*domain.OutboxEvent
	now      func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
		byEmail:  make(map[string]string),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Tx stages writes until Commit applies them atomically.
type Tx struct {
	store    *Store
	accounts []stagedAccount
	outbox   []*domain.OutboxEvent
	done     bool
}

type stagedAccount struct {
	account         *domain.Account
	expectedVersion int64
}

// Begin starts a new transaction.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{store: s}, nil
}

// Commit applies every staged write, or none of them when any version check fails.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("transaction already closed")
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range t.accounts {
		if err := s.checkLocked(st.account, st.expectedVersion); err != nil {
			return err
		}
	}
	for _, st := range t.accounts {
		s.applyLocked(st.account)
	}
	s.outbox = append(s.outbox, t.outbox...)

	return nil
}

// Rollback discards staged writes. It is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	t.done = true
	t.accounts = nil
	t.outbox = nil
	return nil
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	if tx == nil {
		return nil, nil
	}
	mtx, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("memory store: unsupported transaction type %T", tx)
	}
	if mtx.done {
		return nil, errors.New("transaction already closed")
	}
	return mtx, nil
}

// Exists reports whether an account with accountID exists.
func (s *Store) Exists(ctx context.Context, accountID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[accountID]
	return ok, nil
}

// ExistsByEmail reports whether an account is bound to email.
func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[email]
	return ok, nil
}

// GetByID retrieves an account by ID.
func (s *Store) GetByID(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
	}
	return acc.Clone(), nil
}

// ListByCustomer lists a customer's accounts ordered by creation time.
func (s *Store) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Account, error) {
	return s.filter(func(a *domain.Account) bool { return a.CustomerID == customerID }), nil
}

// ListByStatus lists accounts in status ordered by creation time.
func (s *Store) ListByStatus(ctx context.Context, status domain.AccountStatus) ([]*domain.Account, error) {
	return s.filter(func(a *domain.Account) bool { return a.Status == status }), nil
}

// FindByEmail retrieves the account bound to email.
func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("%w: email %s", domain.ErrAccountNotFound, email)
	}
	return s.accounts[id].Clone(), nil
}

// Save inserts or conditionally updates an account. With a nil tx the write is
// applied immediately; otherwise it is checked now and applied on Commit.
func (s *Store) Save(ctx context.Context, tx usecase.Transaction, account *domain.Account, expectedVersion int64) (*domain.Account, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(account, expectedVersion); err != nil {
		return nil, err
	}

	next := account.Clone()
	next.Version = expectedVersion + 1
	next.UpdatedAt = s.now()
	if existing, ok := s.accounts[account.AccountID]; ok {
		next.CreatedAt = existing.CreatedAt
	} else if next.CreatedAt.IsZero() {
		next.CreatedAt = next.UpdatedAt
	}

	if mtx == nil {
		s.applyLocked(next)
	} else {
		mtx.accounts = append(mtx.accounts, stagedAccount{account: next, expectedVersion: expectedVersion})
	}

	return next.Clone(), nil
}

func (s *Store) checkLocked(account *domain.Account, expectedVersion int64) error {
	existing, exists := s.accounts[account.AccountID]

	if expectedVersion == 0 {
		if exists {
			return fmt.Errorf("%w: account %s already inserted", domain.ErrConcurrencyConflict, account.AccountID)
		}
		if _, taken := s.byEmail[account.Email]; taken {
			return fmt.Errorf("%w: account with email %s already exists", domain.ErrAccountAlreadyExists, account.Email)
		}
		return nil
	}

	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, account.AccountID)
	}
	if existing.Version != expectedVersion {
		return fmt.Errorf("%w: account %s expected version %d, stored %d",
			domain.ErrConcurrencyConflict, account.AccountID, expectedVersion, existing.Version)
	}
	if owner, taken := s.byEmail[account.Email]; taken && owner != account.AccountID {
		return fmt.Errorf("%w: account with email %s already exists", domain.ErrAccountAlreadyExists, account.Email)
	}
	return nil
}

func (s *Store) applyLocked(account *domain.Account) {
	if existing, ok := s.accounts[account.AccountID]; ok && existing.Email != account.Email {
		delete(s.byEmail, existing.Email)
	}
	s.accounts[account.AccountID] = account.Clone()
	s.byEmail[account.Email] = account.AccountID
}

func (s *Store) filter(keep func(*domain.Account) bool) []*domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Account, 0)
	for _, a := range s.accounts {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].AccountID < out[j].AccountID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
