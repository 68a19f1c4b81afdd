package redisx

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Idempotency remembers which order an Idempotency-Key produced.
type Idempotency struct{ Redis *redis.Client }

// Lookup returns the order id recorded for key within scope.
func (i *Idempotency) Lookup(ctx context.Context, scope, key string) (string, bool, error) {
	id, err := i.Redis.Get(ctx, idemKey(scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Remember records orderID for key unless another request already did.
func (i *Idempotency) Remember(ctx context.Context, scope, key, orderID string) error {
	return i.Redis.SetNX(ctx, idemKey(scope, key), orderID, TTLIdempotency).Err()
}

// Dedup tracks which events a consumer has already handled.
type Dedup struct {
	Redis   *redis.Client
	Service string
}

// First marks eventID as seen and reports whether this was the first time.
func (d *Dedup) First(ctx context.Context, eventID string) (bool, error) {
	return d.Redis.SetNX(ctx, dedupKey(d.Service, eventID), "1", TTLDedup).Result()
}

// Forget clears eventID so a failed delivery can be processed again.
func (d *Dedup) Forget(ctx context.Context, eventID string) error {
	return d.Redis.Del(ctx, dedupKey(d.Service, eventID)).Err()
}
