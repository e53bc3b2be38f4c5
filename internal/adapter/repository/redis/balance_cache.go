package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/bookkeeper/internal/domain"
)

// BalanceCache implements usecase.BalanceCache.
//
// Every account has a generation counter. Cached values are keyed by the
// generation current when they were written, so bumping the counter
// orphans all of an account's entries at once; they expire via TTL.
type BalanceCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewBalanceCache creates a new BalanceCache.
func NewBalanceCache(client redis.Cmdable, ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &BalanceCache{
		client: client,
		prefix: "balance:",
		ttl:    ttl,
	}
}

type cachedBalance struct {
	AccountID string          `json:"account_id"`
	Debits    decimal.Decimal `json:"debits"`
	Credits   decimal.Decimal `json:"credits"`
	Balance   decimal.Decimal `json:"balance"`
	AsOf      *time.Time      `json:"as_of,omitempty"`
}

func (c *BalanceCache) genKey(companyID, accountID string) string {
	return fmt.Sprintf("%s%s:%s:gen", c.prefix, companyID, accountID)
}

func (c *BalanceCache) valueKey(companyID, accountID string, gen int64, asOf *time.Time) string {
	at := "latest"
	if asOf != nil {
		at = asOf.UTC().Format(time.DateOnly)
	}
	return fmt.Sprintf("%s%s:%s:%d:%s", c.prefix, companyID, accountID, gen, at)
}

func (c *BalanceCache) generation(ctx context.Context, companyID, accountID string) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(companyID, accountID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get returns the cached balance, or nil on a miss, together with the
// generation it was looked up under. A computed balance must be stored back
// under that generation.
func (c *BalanceCache) Get(ctx context.Context, companyID, accountID string, asOf *time.Time) (*domain.Balance, int64, error) {
	gen, err := c.generation(ctx, companyID, accountID)
	if err != nil {
		return nil, 0, err
	}

	raw, err := c.client.Get(ctx, c.valueKey(companyID, accountID, gen, asOf)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, nil
	}
	if err != nil {
		return nil, 0, err
	}

	var cb cachedBalance
	if err := json.Unmarshal(raw, &cb); err != nil {
		return nil, 0, fmt.Errorf("decode cached balance: %w", err)
	}
	return &domain.Balance{
		AccountID: cb.AccountID,
		Debits:    cb.Debits,
		Credits:   cb.Credits,
		Balance:   cb.Balance,
		AsOf:      cb.AsOf,
	}, gen, nil
}

// Set stores balance under gen, the generation returned by the Get that
// missed. If the account was invalidated in between, the value lands under a
// generation nobody reads any more and expires with the TTL.
func (c *BalanceCache) Set(ctx context.Context, companyID string, gen int64, balance domain.Balance) error {
	raw, err := json.Marshal(cachedBalance{
		AccountID: balance.AccountID,
		Debits:    balance.Debits,
		Credits:   balance.Credits,
		Balance:   balance.Balance,
		AsOf:      balance.AsOf,
	})
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.valueKey(companyID, balance.AccountID, gen, balance.AsOf), raw, c.ttl).Err()
}

// Invalidate bumps the generation of each account in one pipeline.
func (c *BalanceCache) Invalidate(ctx context.Context, companyID string, accountIDs []string) error {
	if len(accountIDs) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range accountIDs {
			p.Incr(ctx, c.genKey(companyID, id))
		}
		return nil
	})
	return err
}
