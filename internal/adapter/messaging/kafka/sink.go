package kafka

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iho/goaccount/internal/domain"
)

// LogSink records dead letters in the log only. It is used when Redis is
// disabled.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Record logs dl.
func (s *LogSink) Record(ctx context.Context, dl domain.DeadLetter) error {
	s.logger.Warn().
		Str("event_id", dl.EventID).
		Str("account_id", dl.Key).
		Str("event_type", dl.EventType).
		Str("topic", dl.Topic).
		Str("error", dl.Error).
		Int("payload_bytes", len(dl.Payload)).
		Msg("account event dead-lettered")
	return nil
}
