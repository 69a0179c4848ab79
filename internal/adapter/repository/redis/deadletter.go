package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/goaccount/internal/domain"
)

// DefaultDeadLetterMaxLen caps the stream length (approximate trimming).
const DefaultDeadLetterMaxLen = 100000

// DeadLetterStream appends undeliverable account events to a Redis stream.
type DeadLetterStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewDeadLetterStream creates a new DeadLetterStream writing to stream.
func NewDeadLetterStream(client *redis.Client, stream string) *DeadLetterStream {
	return &DeadLetterStream{
		client: client,
		stream: stream,
		maxLen: DefaultDeadLetterMaxLen,
	}
}

// Record appends dl to the stream.
func (s *DeadLetterStream) Record(ctx context.Context, dl domain.DeadLetter) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_id":   dl.EventID,
			"key":        dl.Key,
			"event_type": dl.EventType,
			"topic":      dl.Topic,
			"error":      dl.Error,
			"failed_at":  dl.FailedAt.UTC().Format(time.RFC3339Nano),
			"payload":    string(dl.Payload),
		},
	}

	if _, err := s.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to record dead letter: %w", err)
	}

	return nil
}

// Recent returns up to count dead letters, newest first.
func (s *DeadLetterStream) Recent(ctx context.Context, count int64) ([]domain.DeadLetter, error) {
	msgs, err := s.client.XRevRangeN(ctx, s.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dead letters: %w", err)
	}

	out := make([]domain.DeadLetter, 0, len(msgs))
	for _, msg := range msgs {
		dl := domain.DeadLetter{
			EventID:   field(msg.Values, "event_id"),
			Key:       field(msg.Values, "key"),
			EventType: field(msg.Values, "event_type"),
			Topic:     field(msg.Values, "topic"),
			Error:     field(msg.Values, "error"),
			Payload:   []byte(field(msg.Values, "payload")),
		}
		if ts, err := time.Parse(time.RFC3339Nano, field(msg.Values, "failed_at")); err == nil {
			dl.FailedAt = ts
		}
		out = append(out, dl)
	}

	return out, nil
}

func field(values map[string]any, name string) string {
	v, _ := values[name].(string)
	return v
}
