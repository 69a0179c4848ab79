package relay

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/goaccount/internal/domain"
	"github.com/iho/goaccount/internal/infrastructure/metrics"
	"github.com/iho/goaccount/internal/usecase"
)

// Defaults for Config fields left zero.
const (
	DefaultBatchSize     = 100
	DefaultInterval      = time.Second
	DefaultPurgeInterval = time.Hour
	DefaultDeliveryTries = 3
	deliveryBackoffStart = 100 * time.Millisecond
	deliveryBackoffCeil  = 2 * time.Second
)

// Deliverer sends a stored outbox event to the event channel and waits for
// the acknowledgement.
type Deliverer interface {
	Deliver(ctx context.Context, event *domain.OutboxEvent) error
}

// Relay moves events from the outbox to the event channel.
type Relay struct {
	outboxRepo    usecase.OutboxRepository
	deliverer     Deliverer
	logger        zerolog.Logger
	metrics       *metrics.Metrics
	batchSize     int
	interval      time.Duration
	retention     time.Duration
	purgeInterval time.Duration
	deliveryTries int
	now           func() time.Time

	lastPurge time.Time
}

// Config for Relay.
type Config struct {
	OutboxRepo usecase.OutboxRepository
	Deliverer  Deliverer
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
	BatchSize  int           // Number of events to fetch per batch
	Interval   time.Duration // Polling interval
	// Retention is how long published rows are kept. Zero disables purging.
	Retention     time.Duration
	PurgeInterval time.Duration
	// DeliveryTries bounds delivery attempts per row within one batch.
	DeliveryTries int
}

// New creates a new Relay.
func New(cfg Config) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = DefaultPurgeInterval
	}
	if cfg.DeliveryTries <= 0 {
		cfg.DeliveryTries = DefaultDeliveryTries
	}

	return &Relay{
		outboxRepo:    cfg.OutboxRepo,
		deliverer:     cfg.Deliverer,
		logger:        cfg.Logger.With().Str("component", "outbox_relay").Logger(),
		metrics:       cfg.Metrics,
		batchSize:     cfg.BatchSize,
		interval:      cfg.Interval,
		retention:     cfg.Retention,
		purgeInterval: cfg.PurgeInterval,
		deliveryTries: cfg.DeliveryTries,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the relay until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info().
		Int("batch_size", r.batchSize).
		Dur("interval", r.interval).
		Dur("retention", r.retention).
		Msg("outbox relay started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("outbox relay shutting down")
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Relay) tick(ctx context.Context) {
	if err := r.processBatch(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error().Err(err).Msg("error processing outbox batch")
	}
	r.updateBacklog(ctx)
	r.purge(ctx)
}

// processBatch delivers one batch of unpublished events in outbox order.
// After a row fails, later rows with the same key are left for the next
// batch so per-account order is preserved.
func (r *Relay) processBatch(ctx context.Context) error {
	events, err := r.outboxRepo.GetUnpublished(ctx, r.batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	r.logger.Debug().Int("count", len(events)).Msg("relaying outbox events")

	blocked := make(map[string]bool)
	for _, event := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if blocked[event.AggregateID] {
			r.logger.Debug().
				Str("event_id", event.ID).
				Str("account_id", event.AggregateID).
				Msg("skipping event behind a failed one")
			continue
		}

		if err := r.deliver(ctx, event); err != nil {
			blocked[event.AggregateID] = true
			r.recordFailure(ctx, event, err)
			continue
		}

		if err := r.outboxRepo.MarkPublished(ctx, event.ID, r.now()); err != nil {
			// The row will be delivered again; hold its successors back too.
			blocked[event.AggregateID] = true
			r.logger.Error().Err(err).
				Str("event_id", event.ID).
				Msg("failed to mark event as published")
			continue
		}

		if r.metrics != nil {
			r.metrics.OutboxRelayed.Inc()
		}
		r.logger.Debug().
			Str("event_id", event.ID).
			Str("event_type", event.EventType).
			Msg("outbox event relayed")
	}

	return nil
}

func (r *Relay) deliver(ctx context.Context, event *domain.OutboxEvent) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = deliveryBackoffStart
	b.MaxInterval = deliveryBackoffCeil

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := r.deliverer.Deliver(ctx, event)
		if err != nil && attempt < r.deliveryTries {
			r.logger.Warn().Err(err).
				Str("event_id", event.ID).
				Int("attempt", attempt).
				Msg("outbox delivery failed, retrying")
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.deliveryTries-1)), ctx))
}

func (r *Relay) recordFailure(ctx context.Context, event *domain.OutboxEvent, err error) {
	r.logger.Error().Err(err).
		Str("event_id", event.ID).
		Str("account_id", event.AggregateID).
		Str("event_type", event.EventType).
		Int("attempts", event.Attempts+1).
		Msg("failed to relay outbox event")

	if r.metrics != nil {
		r.metrics.OutboxRelayFailures.Inc()
	}

	if markErr := r.outboxRepo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
		r.logger.Error().Err(markErr).Str("event_id", event.ID).Msg("failed to record delivery failure")
	}
}

func (r *Relay) updateBacklog(ctx context.Context) {
	if r.metrics == nil {
		return
	}
	n, err := r.outboxRepo.CountUnpublished(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to count outbox backlog")
		return
	}
	r.metrics.OutboxBacklog.Set(float64(n))
}

func (r *Relay) purge(ctx context.Context) {
	if r.retention <= 0 {
		return
	}
	now := r.now()
	if !r.lastPurge.IsZero() && now.Sub(r.lastPurge) < r.purgeInterval {
		return
	}
	r.lastPurge = now

	if err := r.outboxRepo.DeletePublished(ctx, now.Add(-r.retention)); err != nil {
		r.logger.Error().Err(err).Msg("failed to purge published outbox events")
	}
}
