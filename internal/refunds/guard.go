package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptGuard serializes refund attempts per booking so a racing admin retry
// cannot reach the provider while another attempt is still in flight. A nil
// redis client disables the guard.
type AttemptGuard struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewAttemptGuard creates a guard with the given in-flight TTL.
func NewAttemptGuard(client *redis.Client, ttl time.Duration) *AttemptGuard {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AttemptGuard{redis: client, ttl: ttl}
}

func (g *AttemptGuard) key(bookingID string) string {
	return "refund:inflight:" + bookingID
}

// Acquire claims the refund slot for a booking. Returns false when another
// attempt already holds it.
func (g *AttemptGuard) Acquire(ctx context.Context, bookingID, attemptID string) (bool, error) {
	if g == nil || g.redis == nil {
		return true, nil
	}
	ok, err := g.redis.SetNX(ctx, g.key(bookingID), attemptID, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("refunds: acquire guard: %w", err)
	}
	return ok, nil
}

// Release frees the slot after a failed attempt so retry tooling can try
// again. Successful refunds keep the slot until the TTL expires.
func (g *AttemptGuard) Release(ctx context.Context, bookingID string) error {
	if g == nil || g.redis == nil {
		return nil
	}
	if err := g.redis.Del(ctx, g.key(bookingID)).Err(); err != nil {
		return fmt.Errorf("refunds: release guard: %w", err)
	}
	return nil
}
