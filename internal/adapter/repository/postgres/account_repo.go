package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/goaccount/internal/domain"
	"github.com/iho/goaccount/internal/infrastructure/postgres/generated"
	"github.com/iho/goaccount/internal/usecase"
)

const (
	pgErrUniqueViolation = "23505"

	constraintAccountsEmail = "accounts_email_key"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	queries *generated.Queries
	now     func() time.Time
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return newAccountRepository(pool)
}

func newAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{
		queries: generated.New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *AccountRepository) queriesFor(tx usecase.Transaction) *generated.Queries {
	return queriesIn(r.queries, tx)
}

// Exists reports whether an account with accountID exists.
func (r *AccountRepository) Exists(ctx context.Context, accountID string) (bool, error) {
	return r.queries.AccountExists(ctx, accountID)
}

// ExistsByEmail reports whether an account is bound to email.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.queries.AccountExistsByEmail(ctx, email)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, accountID string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// ListByCustomer lists a customer's accounts ordered by creation time.
func (r *AccountRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Account, error) {
	rows, err := r.queries.ListAccountsByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	return rowsToAccounts(rows), nil
}

// ListByStatus lists accounts in status ordered by creation time.
func (r *AccountRepository) ListByStatus(ctx context.Context, status domain.AccountStatus) ([]*domain.Account, error) {
	rows, err := r.queries.ListAccountsByStatus(ctx, status.String())
	if err != nil {
		return nil, err
	}

	return rowsToAccounts(rows), nil
}

// FindByEmail retrieves the account bound to email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: email %s", domain.ErrAccountNotFound, email)
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// Save inserts the account when expectedVersion is zero; otherwise it issues
// an UPDATE guarded by the version column.
func (r *AccountRepository) Save(ctx context.Context, tx usecase.Transaction, account *domain.Account, expectedVersion int64) (*domain.Account, error) {
	queries := r.queriesFor(tx)

	if expectedVersion == 0 {
		createdAt := account.CreatedAt
		if createdAt.IsZero() {
			createdAt = r.now()
		}

		row, err := queries.CreateAccount(ctx, generated.CreateAccountParams{
			ID:           account.AccountID,
			CustomerID:   account.CustomerID,
			AccountType:  account.AccountType.String(),
			Currency:     account.Currency,
			Status:       account.Status.String(),
			CustomerName: account.CustomerName,
			Email:        account.Email,
			PhoneNumber:  stringToPgText(account.PhoneNumber),
			CreatedAt:    timeToPgTimestamptz(createdAt),
		})
		if err != nil {
			return nil, mapWriteError(err, account)
		}

		return rowToAccount(row), nil
	}

	row, err := queries.UpdateAccount(ctx, generated.UpdateAccountParams{
		ID:           account.AccountID,
		Version:      expectedVersion,
		CustomerID:   account.CustomerID,
		AccountType:  account.AccountType.String(),
		Currency:     account.Currency,
		Status:       account.Status.String(),
		CustomerName: account.CustomerName,
		Email:        account.Email,
		PhoneNumber:  stringToPgText(account.PhoneNumber),
		UpdatedAt:    timeToPgTimestamptz(r.now()),
	})
	if err == nil {
		return rowToAccount(row), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapWriteError(err, account)
	}

	// Zero rows: either the account is gone or its version moved on.
	exists, existsErr := queries.AccountExists(ctx, account.AccountID)
	if existsErr != nil {
		return nil, existsErr
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, account.AccountID)
	}

	return nil, fmt.Errorf("%w: account %s expected version %d",
		domain.ErrConcurrencyConflict, account.AccountID, expectedVersion)
}

func mapWriteError(err error, account *domain.Account) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgErrUniqueViolation {
		return err
	}

	if pgErr.ConstraintName == constraintAccountsEmail {
		return fmt.Errorf("%w: account with email %s already exists", domain.ErrAccountAlreadyExists, account.Email)
	}

	return fmt.Errorf("%w: account %s already inserted", domain.ErrConcurrencyConflict, account.AccountID)
}

func rowsToAccounts(rows []generated.Account) []*domain.Account {
	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		AccountID:    row.ID,
		CustomerID:   row.CustomerID,
		AccountType:  domain.AccountType(row.AccountType),
		Currency:     row.Currency,
		Status:       domain.AccountStatus(row.Status),
		CustomerName: row.CustomerName,
		Email:        row.Email,
		PhoneNumber:  row.PhoneNumber.String,
		Version:      row.Version,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}
}

// Type conversion helpers.
func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func stringToPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
