package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/goaccount/internal/domain"
	"github.com/iho/goaccount/internal/usecase"
)

// Create stages an outbox event in tx, or appends it directly with a nil tx.
func (s *Store) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}

	row := cloneOutbox(event)
	if mtx != nil {
		mtx.outbox = append(mtx.outbox, row)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, row)
	return nil
}

// GetUnpublished returns unpublished events in insertion order.
func (s *Store) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.OutboxEvent, 0)
	for _, e := range s.outbox {
		if e.Published {
			continue
		}
		out = append(out, cloneOutbox(e))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// CountUnpublished returns the outbox backlog size.
func (s *Store) CountUnpublished(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.outbox {
		if !e.Published {
			n++
		}
	}
	return n, nil
}

// MarkPublished marks an event as published.
func (s *Store) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.findOutboxLocked(id)
	if err != nil {
		return err
	}
	t := publishedAt
	e.Published = true
	e.PublishedAt = &t
	return nil
}

// MarkFailed records a failed delivery attempt.
func (s *Store) MarkFailed(ctx context.Context, id string, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.findOutboxLocked(id)
	if err != nil {
		return err
	}
	e.Attempts++
	e.LastError = lastError
	return nil
}

// GetByAggregate retrieves events for a specific aggregate.
func (s *Store) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.OutboxEvent, 0)
	skipped := 0
	for _, e := range s.outbox {
		if e.AggregateType != aggregateType || e.AggregateID != aggregateID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, cloneOutbox(e))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// DeletePublished deletes published events older than the given time.
func (s *Store) DeletePublished(ctx context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.outbox[:0]
	for _, e := range s.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	s.outbox = kept
	return nil
}

func (s *Store) findOutboxLocked(id string) (*domain.OutboxEvent, error) {
	for _, e := range s.outbox {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("outbox event %s not found", id)
}

func cloneOutbox(e *domain.OutboxEvent) *domain.OutboxEvent {
	c := *e
	c.Payload = append([]byte(nil), e.Payload...)
	if e.PublishedAt != nil {
		t := *e.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}
