package persistence

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const replayKeyPrefix = "checkin:nonce:"

// ReplayGuard records redeemed presence-credential correlation ids so a
// credential cannot be redeemed twice inside its freshness window, no matter
// which identity presents it. Redis backs the guard when reachable; a local
// in-process cache covers single-node deployments without Redis.
type ReplayGuard struct {
	redis *Redis
	local *gocache.Cache
}

// NewReplayGuard wraps the shared Redis handle. Pass a Redis with a nil
// client to force the in-process cache.
func NewReplayGuard(redis *Redis) *ReplayGuard {
	return &ReplayGuard{
		redis: redis,
		local: gocache.New(time.Minute, 5*time.Minute),
	}
}

// MarkRedeemed atomically records the correlation id for the given lifetime.
// It returns false when the id was already recorded, meaning the credential
// has been redeemed before.
func (g *ReplayGuard) MarkRedeemed(ctx context.Context, correlationID string, ttl time.Duration) (bool, error) {
	if correlationID == "" {
		return true, nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}

	if g.redis != nil && g.redis.Client != nil {
		ok, err := g.redis.Client.SetNX(ctx, replayKeyPrefix+correlationID, "1", ttl).Result()
		if err == nil {
			return ok, nil
		}
		// fall through to the local cache on infrastructure failure
	}

	if err := g.local.Add(correlationID, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

// Unmark releases a previously recorded correlation id. Called when the
// redemption fails after the mark, so the credential stays redeemable for
// the rest of its lifetime.
func (g *ReplayGuard) Unmark(ctx context.Context, correlationID string) {
	if correlationID == "" {
		return
	}
	if g.redis != nil && g.redis.Client != nil {
		if err := g.redis.Client.Del(ctx, replayKeyPrefix+correlationID).Err(); err == nil {
			return
		}
	}
	g.local.Delete(correlationID)
}
