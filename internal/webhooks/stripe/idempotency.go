package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// IdempotencyGuard remembers provider events whose effects are already
// committed. Nothing is recorded before the reconcile transaction finishes, so
// a crash or a store failure always leaves the event open for redelivery.
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
	if strings.TrimSpace(scope) == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope}, nil
}

// Processed returns the outcome recorded for eventID, if any.
func (g *IdempotencyGuard) Processed(ctx context.Context, eventID string) (Outcome, bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return "", false, err
	}
	recorded, err := g.store.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read processed event: %w", err)
	}
	if recorded == "" {
		return "", false, nil
	}
	return Outcome(recorded), true, nil
}

// MarkProcessed records a terminal outcome. Unmatched sessions are never
// recorded; the order may become visible before the next redelivery.
func (g *IdempotencyGuard) MarkProcessed(ctx context.Context, eventID string, outcome Outcome) error {
	if outcome == "" || outcome == OutcomeOrderNotFound {
		return nil
	}
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	if _, err := g.store.SetNX(ctx, key, string(outcome), g.ttl); err != nil {
		return fmt.Errorf("record processed event: %w", err)
	}
	return nil
}

func (g *IdempotencyGuard) key(eventID string) (string, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(g.scope, eventID), nil
}
