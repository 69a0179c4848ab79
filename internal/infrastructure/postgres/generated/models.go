package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID           string             `json:"id"`
	CustomerID   string             `json:"customer_id"`
	AccountType  string             `json:"account_type"`
	Currency     string             `json:"currency"`
	Status       string             `json:"status"`
	CustomerName string             `json:"customer_name"`
	Email        string             `json:"email"`
	PhoneNumber  pgtype.Text        `json:"phone_number"`
	Version      int64              `json:"version"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

type OutboxEvent struct {
	Seq           int64              `json:"seq"`
	ID            string             `json:"id"`
	AggregateID   string             `json:"aggregate_id"`
	AggregateType string             `json:"aggregate_type"`
	EventType     string             `json:"event_type"`
	Payload       []byte             `json:"payload"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	PublishedAt   pgtype.Timestamptz `json:"published_at"`
	Published     bool               `json:"published"`
	Attempts      int32              `json:"attempts"`
	LastError     pgtype.Text        `json:"last_error"`
}
