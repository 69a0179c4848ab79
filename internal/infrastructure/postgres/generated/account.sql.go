package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const accountExists = `-- name: AccountExists :one
SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)
`

func (q *Queries) AccountExists(ctx context.Context, id string) (bool, error) {
	row := q.db.QueryRow(ctx, accountExists, id)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const accountExistsByEmail = `-- name: AccountExistsByEmail :one
SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)
`

func (q *Queries) AccountExistsByEmail(ctx context.Context, email string) (bool, error) {
	row := q.db.QueryRow(ctx, accountExistsByEmail, email)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const createAccount = `-- name: CreateAccount :one
INSERT INTO accounts (id, customer_id, account_type, currency, status, customer_name, email, phone_number, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $9)
RETURNING id, customer_id, account_type, currency, status, customer_name, email, phone_number, version, created_at, updated_at
`

type CreateAccountParams struct {
	ID           string             `json:"id"`
	CustomerID   string             `json:"customer_id"`
	AccountType  string             `json:"account_type"`
	Currency     string             `json:"currency"`
	Status       string             `json:"status"`
	CustomerName string             `json:"customer_name"`
	Email        string             `json:"email"`
	PhoneNumber  pgtype.Text        `json:"phone_number"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	row := q.db.QueryRow(ctx, createAccount,
		arg.ID,
		arg.CustomerID,
		arg.AccountType,
		arg.Currency,
		arg.Status,
		arg.CustomerName,
		arg.Email,
		arg.PhoneNumber,
		arg.CreatedAt,
	)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.CustomerID,
		&i.AccountType,
		&i.Currency,
		&i.Status,
		&i.CustomerName,
		&i.Email,
		&i.PhoneNumber,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAccountByEmail = `-- name: GetAccountByEmail :one
SELECT id, customer_id, account_type, currency, status, customer_name, email, phone_number, version, created_at, updated_at FROM accounts WHERE email = $1
`

func (q *Queries) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByEmail, email)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.CustomerID,
		&i.AccountType,
		&i.Currency,
		&i.Status,
		&i.CustomerName,
		&i.Email,
		&i.PhoneNumber,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAccountByID = `-- name: GetAccountByID :one
SELECT id, customer_id, account_type, currency, status, customer_name, email, phone_number, version, created_at, updated_at FROM accounts WHERE id = $1
`

func (q *Queries) GetAccountByID(ctx context.Context, id string) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByID, id)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.CustomerID,
		&i.AccountType,
		&i.Currency,
		&i.Status,
		&i.CustomerName,
		&i.Email,
		&i.PhoneNumber,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listAccountsByCustomer = `-- name: ListAccountsByCustomer :many
SELECT id, customer_id, account_type, currency, status, customer_name, email, phone_number, version, created_at, updated_at FROM accounts WHERE customer_id = $1 ORDER BY created_at, id
`

func (q *Queries) ListAccountsByCustomer(ctx context.Context, customerID string) ([]Account, error) {
	rows, err := q.db.Query(ctx, listAccountsByCustomer, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Account{}
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.CustomerID,
			&i.AccountType,
			&i.Currency,
			&i.Status,
			&i.CustomerName,
			&i.Email,
			&i.PhoneNumber,
			&i.Version,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const listAccountsByStatus = `-- name: ListAccountsByStatus :many
SELECT id, customer_id, account_type, currency, status, customer_name, email, phone_number, version, created_at, updated_at FROM accounts WHERE status = $1 ORDER BY created_at, id
`

func (q *Queries) ListAccountsByStatus(ctx context.Context, status string) ([]Account, error) {
	rows, err := q.db.Query(ctx, listAccountsByStatus, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Account{}
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.CustomerID,
			&i.AccountType,
			&i.Currency,
			&i.Status,
			&i.CustomerName,
			&i.Email,
			&i.PhoneNumber,
			&i.Version,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const updateAccount = `-- name: UpdateAccount :one
UPDATE accounts
SET customer_id = $3, account_type = $4, currency = $5, status = $6, customer_name = $7, email = $8, phone_number = $9,
    version = version + 1, updated_at = $10
WHERE id = $1 AND version = $2
RETURNING id, customer_id, account_type, currency, status, customer_name, email, phone_number, version, created_at, updated_at
`

type UpdateAccountParams struct {
	ID           string             `json:"id"`
	Version      int64              `json:"version"`
	CustomerID   string             `json:"customer_id"`
	AccountType  string             `json:"account_type"`
	Currency     string             `json:"currency"`
	Status       string             `json:"status"`
	CustomerName string             `json:"customer_name"`
	Email        string             `json:"email"`
	PhoneNumber  pgtype.Text        `json:"phone_number"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateAccount(ctx context.Context, arg UpdateAccountParams) (Account, error) {
	row := q.db.QueryRow(ctx, updateAccount,
		arg.ID,
		arg.Version,
		arg.CustomerID,
		arg.AccountType,
		arg.Currency,
		arg.Status,
		arg.CustomerName,
		arg.Email,
		arg.PhoneNumber,
		arg.UpdatedAt,
	)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.CustomerID,
		&i.AccountType,
		&i.Currency,
		&i.Status,
		&i.CustomerName,
		&i.Email,
		&i.PhoneNumber,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
