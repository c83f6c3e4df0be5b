package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aquatrade/aquatrade-backend/pkg/redis"
)

// IdempotencyGuard fences duplicate gateway notifications before they reach
// the database. The ledger reference column is the durable backstop; this
// keeps replays cheap.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark marks the notification as seen and reports whether it already
// was.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, gatewayRef string) (bool, error) {
	if gatewayRef == "" {
		return false, errors.New("gateway reference is required")
	}
	key := g.store.IdempotencyKey(g.scope, gatewayRef)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete clears the mark so a failed notification can be redelivered.
func (g *IdempotencyGuard) Delete(ctx context.Context, gatewayRef string) error {
	if gatewayRef == "" {
		return errors.New("gateway reference is required")
	}
	key := g.store.IdempotencyKey(g.scope, gatewayRef)
	return g.store.Del(ctx, key)
}
