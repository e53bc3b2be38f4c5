package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/bookkeeper/internal/domain"
)

// newTestRedis starts an in-process server; both ends are closed when t ends.
func newTestRedis(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func newTestCache(t *testing.T, ttl time.Duration) (*BalanceCache, *miniredis.Miniredis) {
	t.Helper()
	client, mr := newTestRedis(t)
	return NewBalanceCache(client, ttl), mr
}

func balance(accountID, amount string, asOf *time.Time) domain.Balance {
	v := decimal.RequireFromString(amount)
	return domain.Balance{AccountID: accountID, Debits: v, Credits: decimal.Zero, Balance: v, AsOf: asOf}
}

// cacheMiss performs the read half of a read-through and returns the
// generation a computed value must be stored under.
func cacheMiss(t *testing.T, c *BalanceCache, companyID, accountID string, asOf *time.Time) int64 {
	t.Helper()
	got, gen, err := c.Get(context.Background(), companyID, accountID, asOf)
	if err != nil {
		t.Fatalf("cache get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected a miss for %s/%s, got %s", companyID, accountID, got.Balance)
	}
	return gen
}
