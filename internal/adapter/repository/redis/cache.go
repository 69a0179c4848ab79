package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/goaccount/internal/domain"
)

// setIfNewer writes ARGV[1] unless the cached entry carries a version of at
// least ARGV[2]. Unreadable entries are replaced.
var setIfNewer = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
	local ok, decoded = pcall(cjson.decode, current)
	if ok and type(decoded) == 'table' and tonumber(decoded.version) and tonumber(decoded.version) >= tonumber(ARGV[2]) then
		return 0
	end
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// AccountCache implements usecase.AccountCache using Redis.
type AccountCache struct {
	client *redis.Client
	prefix string
}

// NewAccountCache creates a new AccountCache.
func NewAccountCache(client *redis.Client) *AccountCache {
	return &AccountCache{
		client: client,
		prefix: "account:",
	}
}

type cachedAccount struct {
	AccountID    string    `json:"accountId"`
	CustomerID   string    `json:"customerId"`
	AccountType  string    `json:"accountType"`
	Currency     string    `json:"currency"`
	Status       string    `json:"status"`
	CustomerName string    `json:"customerName"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phoneNumber,omitempty"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Get returns the cached account, or nil without error on a miss.
func (c *AccountCache) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	data, err := c.client.Get(ctx, c.prefix+accountID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var ca cachedAccount
	if err := json.Unmarshal(data, &ca); err != nil {
		// Drop entries we cannot read so the next lookup refills from the store.
		_ = c.client.Del(ctx, c.prefix+accountID).Err()
		return nil, fmt.Errorf("failed to decode cached account %s: %w", accountID, err)
	}

	return &domain.Account{
		AccountID:    ca.AccountID,
		CustomerID:   ca.CustomerID,
		AccountType:  domain.AccountType(ca.AccountType),
		Currency:     ca.Currency,
		Status:       domain.AccountStatus(ca.Status),
		CustomerName: ca.CustomerName,
		Email:        ca.Email,
		PhoneNumber:  ca.PhoneNumber,
		Version:      ca.Version,
		CreatedAt:    ca.CreatedAt,
		UpdatedAt:    ca.UpdatedAt,
	}, nil
}

// Set stores an account snapshot with TTL. An entry holding the same or a
// newer version is left alone, so a read that loaded an old row cannot
// overwrite the snapshot written by a later commit.
func (c *AccountCache) Set(ctx context.Context, account *domain.Account, ttl time.Duration) error {
	data, err := json.Marshal(cachedAccount{
		AccountID:    account.AccountID,
		CustomerID:   account.CustomerID,
		AccountType:  account.AccountType.String(),
		Currency:     account.Currency,
		Status:       account.Status.String(),
		CustomerName: account.CustomerName,
		Email:        account.Email,
		PhoneNumber:  account.PhoneNumber,
		Version:      account.Version,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	})
	if err != nil {
		return err
	}

	return setIfNewer.Run(ctx, c.client, []string{c.prefix + account.AccountID},
		data, account.Version, ttl.Milliseconds()).Err()
}

// Delete removes a cached account.
func (c *AccountCache) Delete(ctx context.Context, accountID string) error {
	return c.client.Del(ctx, c.prefix+accountID).Err()
}
