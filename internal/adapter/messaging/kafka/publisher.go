package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/iho/goaccount/internal/domain"
	"github.com/iho/goaccount/internal/infrastructure/metrics"
	"github.com/iho/goaccount/internal/usecase"
)

// Message header names.
const (
	HeaderEventID   = "event-id"
	HeaderEventType = "event-type"
	HeaderDelivery  = "delivery"

	// HeaderVersion carries the account version on directly published
	// events so consumers can drop ones that arrive behind a newer version.
	HeaderVersion = "account-version"
)

const (
	deliveryDirect = "direct"
	deliveryOutbox = "outbox"

	// DefaultAckTimeout bounds how long awaited publishes wait for the broker.
	DefaultAckTimeout = 10 * time.Second
	// DefaultBatchTimeout is the writer linger before a partial batch is flushed.
	DefaultBatchTimeout = 10 * time.Millisecond

	sinkTimeout = 5 * time.Second
)

var errPublisherClosed = errors.New("publisher closed")

// Config holds event channel settings.
type Config struct {
	Brokers []string
	Topic   string
	// RequiredAcks follows the Kafka convention: -1 all replicas, 1 leader, 0 none.
	RequiredAcks int
	BatchTimeout time.Duration
	AckTimeout   time.Duration
}

// FailureSink receives events the channel failed to deliver.
type FailureSink interface {
	Record(ctx context.Context, dl domain.DeadLetter) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type inflight struct {
	enqueuedAt time.Time
	result     chan usecase.PublishResult
	timer      *time.Timer
	once       sync.Once
}

func (f *inflight) resolve(res usecase.PublishResult) {
	f.once.Do(func() {
		if f.timer != nil {
			f.timer.Stop()
		}
		if f.result != nil {
			f.result <- res
			close(f.result)
		}
	})
}

// Publisher emits account events to a Kafka topic. Writes are asynchronous;
// broker outcomes arrive on the writer's completion callback.
type Publisher struct {
	writer     messageWriter
	topic      string
	ackTimeout time.Duration
	sink       FailureSink
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	encode     func(*domain.AccountEvent) ([]byte, error)
	now        func() time.Time

	mu       sync.Mutex
	inflight map[string][]*inflight
}

// NewPublisher creates a Publisher backed by a kafka-go Writer that hashes
// message keys onto partitions.
func NewPublisher(cfg Config, sink FailureSink, m *metrics.Metrics, logger zerolog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka publisher requires a topic")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequiredAcks(cfg.RequiredAcks),
		BatchTimeout:           cfg.BatchTimeout,
		Async:                  true,
		AllowAutoTopicCreation: true,
	}

	p := newPublisher(w, cfg, sink, m, logger)
	w.Completion = p.complete

	p.logger.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("kafka publisher created")

	return p, nil
}

func newPublisher(w messageWriter, cfg Config, sink FailureSink, m *metrics.Metrics, logger zerolog.Logger) *Publisher {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	logger = logger.With().Str("component", "kafka_publisher").Logger()
	if sink == nil {
		sink = NewLogSink(logger)
	}

	return &Publisher{
		writer:     w,
		topic:      cfg.Topic,
		ackTimeout: cfg.AckTimeout,
		sink:       sink,
		metrics:    m,
		logger:     logger,
		encode:     (*domain.AccountEvent).Encode,
		now:        func() time.Time { return time.Now().UTC() },
		inflight:   make(map[string][]*inflight),
	}
}

// Publish encodes event and enqueues it without waiting for the broker.
func (p *Publisher) Publish(ctx context.Context, key string, event *domain.AccountEvent) error {
	msg, err := p.eventMessage(key, event)
	if err != nil {
		return err
	}

	_, err = p.enqueue(ctx, msg, false)
	return err
}

// PublishAwaitable encodes event, enqueues it and returns a channel that
// yields the broker outcome, or domain.ErrPublishTimeout once the ack
// timeout elapses.
func (p *Publisher) PublishAwaitable(ctx context.Context, key string, event *domain.AccountEvent) (<-chan usecase.PublishResult, error) {
	msg, err := p.eventMessage(key, event)
	if err != nil {
		return nil, err
	}

	entry, err := p.enqueue(ctx, msg, true)
	if err != nil {
		return nil, err
	}

	return entry.result, nil
}

// Deliver sends an outbox payload as stored and blocks until the broker
// acknowledges it or the ack timeout elapses.
func (p *Publisher) Deliver(ctx context.Context, event *domain.OutboxEvent) error {
	msg := p.message(event.AggregateID, event.ID, event.EventType, event.Payload, deliveryOutbox)

	entry, err := p.enqueue(ctx, msg, true)
	if err != nil {
		return err
	}

	select {
	case res := <-entry.result:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes buffered messages and releases the writer. Waiters still
// pending afterwards resolve with a transport error.
func (p *Publisher) Close() error {
	err := p.writer.Close()

	p.mu.Lock()
	pending := p.inflight
	p.inflight = make(map[string][]*inflight)
	p.mu.Unlock()

	for _, entries := range pending {
		for _, entry := range entries {
			entry.resolve(usecase.PublishResult{Err: fmt.Errorf("%w: %v", domain.ErrEventTransport, errPublisherClosed)})
		}
	}

	if err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}

func (p *Publisher) eventMessage(key string, event *domain.AccountEvent) (kafkago.Message, error) {
	payload, err := p.encode(event)
	if err != nil {
		if p.metrics != nil {
			p.metrics.EventPublishFailures.WithLabelValues(event.EventType.String(), metrics.StageSerialization).Inc()
		}
		p.logger.Error().Err(err).
			Str("event_id", event.EventID).
			Str("account_id", event.AccountID).
			Str("event_type", event.EventType.String()).
			Msg("account event serialization failure")
		if !errors.Is(err, domain.ErrEventSerialization) {
			err = fmt.Errorf("%w: %v", domain.ErrEventSerialization, err)
		}
		return kafkago.Message{}, err
	}

	msg := p.message(key, event.EventID, event.EventType.String(), payload, deliveryDirect)
	if event.Version > 0 {
		msg.Headers = append(msg.Headers, kafkago.Header{
			Key:   HeaderVersion,
			Value: []byte(strconv.FormatInt(event.Version, 10)),
		})
	}
	return msg, nil
}

func (p *Publisher) message(key, eventID, eventType string, payload []byte, delivery string) kafkago.Message {
	return kafkago.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: HeaderEventID, Value: []byte(eventID)},
			{Key: HeaderEventType, Value: []byte(eventType)},
			{Key: HeaderDelivery, Value: []byte(delivery)},
		},
	}
}

func (p *Publisher) enqueue(ctx context.Context, msg kafkago.Message, await bool) (*inflight, error) {
	eventID := header(msg, HeaderEventID)
	entry := p.track(eventID, await)

	// The write outlives a cancelled request; the outcome is reported on
	// the completion callback.
	if err := p.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		p.untrack(eventID, entry)
		p.fail(msg, err)
		terr := fmt.Errorf("%w: %v", domain.ErrEventTransport, err)
		entry.resolve(usecase.PublishResult{Err: terr})
		return nil, terr
	}

	return entry, nil
}

func (p *Publisher) track(eventID string, await bool) *inflight {
	entry := &inflight{enqueuedAt: p.now()}
	if await {
		entry.result = make(chan usecase.PublishResult, 1)
		entry.timer = time.AfterFunc(p.ackTimeout, func() { p.expire(eventID, entry) })
	}

	p.mu.Lock()
	p.inflight[eventID] = append(p.inflight[eventID], entry)
	p.mu.Unlock()

	return entry
}

func (p *Publisher) untrack(eventID string, entry *inflight) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.inflight[eventID]
	for i, e := range entries {
		if e == entry {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(p.inflight, eventID)
	} else {
		p.inflight[eventID] = entries
	}
}

func (p *Publisher) take(eventID string) *inflight {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.inflight[eventID]
	if len(entries) == 0 {
		return nil
	}
	entry := entries[0]
	if len(entries) == 1 {
		delete(p.inflight, eventID)
	} else {
		p.inflight[eventID] = entries[1:]
	}

	return entry
}

func (p *Publisher) expire(eventID string, entry *inflight) {
	p.untrack(eventID, entry)
	p.logger.Warn().
		Str("event_id", eventID).
		Dur("ack_timeout", p.ackTimeout).
		Msg("no acknowledgement for account event")
	entry.resolve(usecase.PublishResult{Err: fmt.Errorf("%w: event %s after %s", domain.ErrPublishTimeout, eventID, p.ackTimeout)})
}

// complete is the writer's completion callback. It runs on a writer
// goroutine and must not panic.
func (p *Publisher) complete(messages []kafkago.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("panic in kafka completion handler")
		}
	}()

	for _, msg := range messages {
		eventID := header(msg, HeaderEventID)
		entry := p.take(eventID)

		if err != nil {
			p.fail(msg, err)
			if entry != nil {
				entry.resolve(usecase.PublishResult{Err: fmt.Errorf("%w: %v", domain.ErrEventTransport, err)})
			}
			continue
		}

		eventType := header(msg, HeaderEventType)
		if p.metrics != nil {
			p.metrics.EventsPublished.WithLabelValues(eventType).Inc()
			if entry != nil {
				p.metrics.EventPublishLatency.Observe(p.now().Sub(entry.enqueuedAt).Seconds())
			}
		}
		p.logger.Info().
			Str("event_id", eventID).
			Str("account_id", string(msg.Key)).
			Str("event_type", eventType).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("account event published")

		if entry != nil {
			entry.resolve(usecase.PublishResult{Partition: msg.Partition, Offset: msg.Offset})
		}
	}
}

// fail reports a transport failure. Direct deliveries are handed to the
// failure sink; outbox deliveries stay in the outbox for the relay.
func (p *Publisher) fail(msg kafkago.Message, err error) {
	eventID := header(msg, HeaderEventID)
	eventType := header(msg, HeaderEventType)

	p.logger.Error().Err(err).
		Str("event_id", eventID).
		Str("account_id", string(msg.Key)).
		Str("event_type", eventType).
		Msg("account event transport failure")
	if p.metrics != nil {
		p.metrics.EventPublishFailures.WithLabelValues(eventType, metrics.StageTransport).Inc()
	}

	if header(msg, HeaderDelivery) != deliveryDirect {
		return
	}

	dl := domain.DeadLetter{
		EventID:   eventID,
		Key:       string(msg.Key),
		EventType: eventType,
		Topic:     p.topic,
		Payload:   msg.Value,
		Error:     err.Error(),
		FailedAt:  p.now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	if sinkErr := p.sink.Record(ctx, dl); sinkErr != nil {
		p.logger.Error().Err(sinkErr).Str("event_id", eventID).Msg("failed to record dead letter")
		return
	}
	if p.metrics != nil {
		p.metrics.DeadLetters.Inc()
	}
}

func header(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
