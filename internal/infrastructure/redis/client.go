// Package redis connects the balance cache, idempotency store and outbox
// stream to Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

const (
	pingTimeout = 3 * time.Second
	clientName  = "bookkeeper"
)

// Options tune NewClient. The zero value pings once.
type Options struct {
	// ConnectWait bounds how long NewClient keeps retrying the first ping,
	// e.g. while a compose stack brings Redis up next to the server.
	ConnectWait time.Duration
	// PoolSize overrides the URL's pool_size when positive.
	PoolSize int
}

// NewClient connects to redisURL and waits for the server to answer.
func NewClient(ctx context.Context, redisURL string, o Options) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if opts.ClientName == "" {
		opts.ClientName = clientName
	}
	if o.PoolSize > 0 {
		opts.PoolSize = o.PoolSize
	}

	client := redis.NewClient(opts)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = o.ConnectWait

	var policy backoff.BackOff = b
	if o.ConnectWait <= 0 {
		policy = &backoff.StopBackOff{}
	}

	if err := backoff.Retry(func() error { return Ping(ctx, client) }, backoff.WithContext(policy, ctx)); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// Ping checks connectivity with a bounded timeout. Used by readiness checks.
func Ping(ctx context.Context, client redis.UniversalClient) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}
