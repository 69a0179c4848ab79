package testutil

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/iho/goaccount/internal/domain"
	"github.com/iho/goaccount/internal/infrastructure/postgres"
	"github.com/iho/goaccount/internal/infrastructure/postgres/generated"
)

// TestDB provides isolated test database connections.
type TestDB struct {
	Pool    *pgxpool.Pool
	Queries *generated.Queries
	t       *testing.T
}

var emailSeq atomic.Int64

// NewTestDB connects to DATABASE_URL and applies migrations. The test is
// skipped when DATABASE_URL is unset.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	migrationsPath := "migrations"
	for _, candidate := range []string{"migrations", "../migrations", "../../migrations"} {
		if _, err := os.Stat(candidate); err == nil {
			migrationsPath = candidate
			break
		}
	}

	if err := postgres.RunMigrations(dbURL, migrationsPath, zerolog.Nop()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{DatabaseURL: dbURL, MaxConns: 20})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	return &TestDB{
		Pool:    pool,
		Queries: generated.New(pool),
		t:       t,
	}
}

// Cleanup closes the database connection.
func (db *TestDB) Cleanup() {
	db.Pool.Close()
}

// TruncateAll removes all data from tables.
func (db *TestDB) TruncateAll(ctx context.Context) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, `
		TRUNCATE TABLE outbox_events;
		TRUNCATE TABLE accounts;
	`)
	if err != nil {
		db.t.Fatalf("failed to truncate tables: %v", err)
	}
}

// CreateTestAccount inserts an account directly, bypassing the use case.
func (db *TestDB) CreateTestAccount(ctx context.Context, customerID string, status domain.AccountStatus) *domain.Account {
	db.t.Helper()

	now := time.Now().UTC()
	row, err := db.Queries.CreateAccount(ctx, generated.CreateAccountParams{
		ID:           GenerateID(),
		CustomerID:   customerID,
		AccountType:  domain.AccountTypeSavings.String(),
		Currency:     "USD",
		Status:       status.String(),
		CustomerName: "Test Customer",
		Email:        UniqueEmail(),
		CreatedAt:    pgtype.Timestamptz{Time: now, Valid: true},
	})
	if err != nil {
		db.t.Fatalf("failed to create test account: %v", err)
	}

	return &domain.Account{
		AccountID:    row.ID,
		CustomerID:   row.CustomerID,
		AccountType:  domain.AccountType(row.AccountType),
		Currency:     row.Currency,
		Status:       domain.AccountStatus(row.Status),
		CustomerName: row.CustomerName,
		Email:        row.Email,
		Version:      row.Version,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}
}

// UniqueEmail returns an address no other fixture in this process has used.
func UniqueEmail() string {
	return fmt.Sprintf("user-%d-%d@example.com", time.Now().UnixNano(), emailSeq.Add(1))
}

// GenerateID generates a new ULID.
func GenerateID() string {
	return ulid.Make().String()
}
