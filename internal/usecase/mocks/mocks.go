package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iho/goaccount/internal/domain"
	"github.com/iho/goaccount/internal/usecase"
)

// SequenceIDGenerator hands out prefix-1, prefix-2, ...
type SequenceIDGenerator struct {
	Prefix string

	mu      sync.Mutex
	counter int
}

func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	return &SequenceIDGenerator{Prefix: prefix}
}

func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.Prefix, g.counter)
}

// PublishedEvent is one event captured by RecordingPublisher.
type PublishedEvent struct {
	Key   string
	Event *domain.AccountEvent
}

// RecordingPublisher captures every event handed to it.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	PublishFunc func(ctx context.Context, key string, event *domain.AccountEvent) error
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) Publish(ctx context.Context, key string, event *domain.AccountEvent) error {
	if p.PublishFunc != nil {
		if err := p.PublishFunc(ctx, key, event); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{Key: key, Event: event})
	return nil
}

func (p *RecordingPublisher) PublishAwaitable(ctx context.Context, key string, event *domain.AccountEvent) (<-chan usecase.PublishResult, error) {
	if err := p.Publish(ctx, key, event); err != nil {
		return nil, err
	}
	ch := make(chan usecase.PublishResult, 1)
	ch <- usecase.PublishResult{}
	close(ch)
	return ch, nil
}

// Events returns a copy of the captured events in publish order.
func (p *RecordingPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.events...)
}

// FakeAccountCache is a map-backed AccountCache.
type FakeAccountCache struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account

	Gets    int
	Sets    int
	Deletes int

	SetFunc func(ctx context.Context, account *domain.Account, ttl time.Duration) error
}

func NewFakeAccountCache() *FakeAccountCache {
	return &FakeAccountCache{accounts: make(map[string]*domain.Account)}
}

func (c *FakeAccountCache) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gets++
	acc, ok := c.accounts[accountID]
	if !ok {
		return nil, nil
	}
	return acc.Clone(), nil
}

func (c *FakeAccountCache) Set(ctx context.Context, account *domain.Account, ttl time.Duration) error {
	if c.SetFunc != nil {
		return c.SetFunc(ctx, account, ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sets++
	if current, ok := c.accounts[account.AccountID]; ok && current.Version >= account.Version {
		return nil
	}
	c.accounts[account.AccountID] = account.Clone()
	return nil
}

func (c *FakeAccountCache) Delete(ctx context.Context, accountID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Deletes++
	delete(c.accounts, accountID)
	return nil
}

// Cached returns a copy of the cached snapshot, or nil.
func (c *FakeAccountCache) Cached(accountID string) *domain.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	if acc, ok := c.accounts[accountID]; ok {
		return acc.Clone()
	}
	return nil
}

// Has reports whether accountID is cached.
func (c *FakeAccountCache) Has(accountID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.accounts[accountID]
	return ok
}

// FakeIdempotencyStore is a map-backed IdempotencyStore.
type FakeIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
}

func NewFakeIdempotencyStore() *FakeIdempotencyStore {
	return &FakeIdempotencyStore{data: make(map[string][]byte)}
}

func (m *FakeIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *FakeIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *FakeIdempotencyStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Value returns the stored response for key.
func (m *FakeIdempotencyStore) Value(key string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key]
}
