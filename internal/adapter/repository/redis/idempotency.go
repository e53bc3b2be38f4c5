package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// processingMarker holds a key claimed without a payload.
const processingMarker = "processing"

// IdempotencyStore keeps Idempotency-Key claims and the responses of
// completed postings.
type IdempotencyStore struct {
	client redis.Cmdable
	prefix string
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client redis.Cmdable) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		prefix: "idempotency:",
	}
}

// CheckAndSet claims key with a single SET NX GET, storing claim (or the
// processing marker when claim is nil). When the key is already held nothing
// is written and the held value is returned.
func (s *IdempotencyStore) CheckAndSet(ctx context.Context, key string, claim []byte, ttl time.Duration) (bool, []byte, error) {
	var value any = processingMarker
	if claim != nil {
		value = claim
	}

	held, err := s.client.SetArgs(ctx, s.prefix+key, value, redis.SetArgs{Mode: "NX", TTL: ttl, Get: true}).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	return true, []byte(held), nil
}

// Update replaces a held claim with the final response. A key that was
// released or has expired meanwhile is left absent.
func (s *IdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	err := s.client.SetArgs(ctx, s.prefix+key, response, redis.SetArgs{Mode: "XX", TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Release drops a key so a failed request can be retried with the same key.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// IsProcessing reports whether a stored value is the bare in-flight marker.
func IsProcessing(value []byte) bool {
	return string(value) == processingMarker
}
