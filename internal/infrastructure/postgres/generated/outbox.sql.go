package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countUnpublishedEvents = `-- name: CountUnpublishedEvents :one
SELECT COUNT(*) FROM outbox_events WHERE published = false
`

func (q *Queries) CountUnpublishedEvents(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countUnpublishedEvents)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createOutboxEvent = `-- name: CreateOutboxEvent :exec
INSERT INTO outbox_events (id, aggregate_id, aggregate_type, event_type, payload, created_at, published)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type CreateOutboxEventParams struct {
	ID            string             `json:"id"`
	AggregateID   string             `json:"aggregate_id"`
	AggregateType string             `json:"aggregate_type"`
	EventType     string             `json:"event_type"`
	Payload       []byte             `json:"payload"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	Published     bool               `json:"published"`
}

func (q *Queries) CreateOutboxEvent(ctx context.Context, arg CreateOutboxEventParams) error {
	_, err := q.db.Exec(ctx, createOutboxEvent,
		arg.ID,
		arg.AggregateID,
		arg.AggregateType,
		arg.EventType,
		arg.Payload,
		arg.CreatedAt,
		arg.Published,
	)
	return err
}

const deletePublishedEvents = `-- name: DeletePublishedEvents :execrows
DELETE FROM outbox_events WHERE published = true AND published_at < $1
`

func (q *Queries) DeletePublishedEvents(ctx context.Context, publishedAt pgtype.Timestamptz) (int64, error) {
	result, err := q.db.Exec(ctx, deletePublishedEvents, publishedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getEventsByAggregate = `-- name: GetEventsByAggregate :many
SELECT seq, id, aggregate_id, aggregate_type, event_type, payload, created_at, published_at, published, attempts, last_error FROM outbox_events
WHERE aggregate_type = $1 AND aggregate_id = $2
ORDER BY seq
LIMIT $3 OFFSET $4
`

type GetEventsByAggregateParams struct {
	AggregateType string `json:"aggregate_type"`
	AggregateID   string `json:"aggregate_id"`
	Limit         int32  `json:"limit"`
	Offset        int32  `json:"offset"`
}

func (q *Queries) GetEventsByAggregate(ctx context.Context, arg GetEventsByAggregateParams) ([]OutboxEvent, error) {
	rows, err := q.db.Query(ctx, getEventsByAggregate,
		arg.AggregateType,
		arg.AggregateID,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OutboxEvent{}
	for rows.Next() {
		var i OutboxEvent
		if err := rows.Scan(
			&i.Seq,
			&i.ID,
			&i.AggregateID,
			&i.AggregateType,
			&i.EventType,
			&i.Payload,
			&i.CreatedAt,
			&i.PublishedAt,
			&i.Published,
			&i.Attempts,
			&i.LastError,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getUnpublishedEvents = `-- name: GetUnpublishedEvents :many
SELECT seq, id, aggregate_id, aggregate_type, event_type, payload, created_at, published_at, published, attempts, last_error FROM outbox_events
WHERE published = false
ORDER BY seq
LIMIT $1
`

func (q *Queries) GetUnpublishedEvents(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := q.db.Query(ctx, getUnpublishedEvents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OutboxEvent{}
	for rows.Next() {
		var i OutboxEvent
		if err := rows.Scan(
			&i.Seq,
			&i.ID,
			&i.AggregateID,
			&i.AggregateType,
			&i.EventType,
			&i.Payload,
			&i.CreatedAt,
			&i.PublishedAt,
			&i.Published,
			&i.Attempts,
			&i.LastError,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markEventFailed = `-- name: MarkEventFailed :exec
UPDATE outbox_events SET attempts = attempts + 1, last_error = $2 WHERE id = $1
`

type MarkEventFailedParams struct {
	ID        string      `json:"id"`
	LastError pgtype.Text `json:"last_error"`
}

func (q *Queries) MarkEventFailed(ctx context.Context, arg MarkEventFailedParams) error {
	_, err := q.db.Exec(ctx, markEventFailed, arg.ID, arg.LastError)
	return err
}

const markEventPublished = `-- name: MarkEventPublished :exec
UPDATE outbox_events SET published = true, published_at = $2 WHERE id = $1
`

type MarkEventPublishedParams struct {
	ID          string             `json:"id"`
	PublishedAt pgtype.Timestamptz `json:"published_at"`
}

func (q *Queries) MarkEventPublished(ctx context.Context, arg MarkEventPublishedParams) error {
	_, err := q.db.Exec(ctx, markEventPublished, arg.ID, arg.PublishedAt)
	return err
}
