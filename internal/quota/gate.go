package quota

import (
	"context"
	"fmt"
	"time"

	"relcalc/internal/utils"
)

// Tier classifies a caller for quota purposes.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Caller identifies who is asking. Identity is a user ID for authenticated
// callers and a client IP for anonymous ones.
type Caller struct {
	Identity      string
	Tier          Tier
	Authenticated bool
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed       bool
	Used          int64
	Limit         int64 // -1 means unlimited
	Remaining     int64 // -1 means unlimited
	Reason        string
	RequiresAuth  bool
	UpgradeNeeded bool
	ResetTime     time.Time
}

// Usage is a read-only snapshot of a caller's consumption today.
type Usage struct {
	Used      int64
	Limit     int64 // -1 means unlimited
	Remaining int64 // -1 means unlimited
	ResetTime time.Time
}

// CounterStore is a per-key daily counter. Implementations must make
// IncrementIfBelow atomic so concurrent callers never exceed the limit.
type CounterStore interface {
	// IncrementIfBelow increments key only if its current value is below
	// limit. It returns the value after the call and whether the increment
	// happened.
	IncrementIfBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error)

	// Increment unconditionally increments key, returning the new value.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Get returns the current value of key, 0 if absent.
	Get(ctx context.Context, key string) (int64, error)
}

// counterTTL keeps day buckets around past midnight so a late read of
// yesterday's usage still works, then lets Redis reclaim them.
const counterTTL = 48 * time.Hour

// Gate enforces the per-caller daily calculation quota.
type Gate struct {
	store     CounterStore
	freeLimit int64
	logger    *utils.Logger
	now       func() time.Time
}

// NewGate creates a quota gate. freeLimit is the number of calculations a
// free-tier caller may run per UTC day.
func NewGate(store CounterStore, freeLimit int64, logger *utils.Logger) *Gate {
	return &Gate{
		store:     store,
		freeLimit: freeLimit,
		logger:    logger,
		now:       time.Now,
	}
}

// CheckAndRecord consumes one quota unit for the caller if permitted.
// Premium callers are always allowed; their usage is still counted for
// analytics. Counter store failures fail open so a degraded Redis never
// takes the calculators down.
func (g *Gate) CheckAndRecord(ctx context.Context, caller Caller) Decision {
	now := g.now().UTC()
	key := g.counterKey(caller.Identity, now)
	reset := nextMidnightUTC(now)

	if caller.Tier == TierPremium {
		used, err := g.store.Increment(ctx, key, counterTTL)
		if err != nil {
			g.logger.Warn("quota counter unavailable, allowing request", "identity", caller.Identity, "error", err)
			used = 0
		}
		return Decision{
			Allowed:   true,
			Used:      used,
			Limit:     -1,
			Remaining: -1,
			ResetTime: reset,
		}
	}

	used, allowed, err := g.store.IncrementIfBelow(ctx, key, g.freeLimit, counterTTL)
	if err != nil {
		g.logger.Warn("quota counter unavailable, allowing request", "identity", caller.Identity, "error", err)
		return Decision{
			Allowed:   true,
			Used:      0,
			Limit:     g.freeLimit,
			Remaining: g.freeLimit,
			ResetTime: reset,
		}
	}

	decision := Decision{
		Allowed:   allowed,
		Used:      used,
		Limit:     g.freeLimit,
		Remaining: maxInt64(g.freeLimit-used, 0),
		ResetTime: reset,
	}
	if !allowed {
		// Tell the caller their way forward: anonymous callers should
		// authenticate, authenticated free accounts should upgrade.
		decision.Reason = fmt.Sprintf("daily limit of %d calculations reached", g.freeLimit)
		decision.RequiresAuth = !caller.Authenticated
		decision.UpgradeNeeded = caller.Authenticated
	}
	return decision
}

// Remaining reports the caller's usage without consuming quota.
func (g *Gate) Remaining(ctx context.Context, caller Caller) (Usage, error) {
	now := g.now().UTC()
	used, err := g.store.Get(ctx, g.counterKey(caller.Identity, now))
	if err != nil {
		return Usage{}, fmt.Errorf("failed to read usage counter: %w", err)
	}

	usage := Usage{
		Used:      used,
		ResetTime: nextMidnightUTC(now),
	}
	if caller.Tier == TierPremium {
		usage.Limit = -1
		usage.Remaining = -1
	} else {
		usage.Limit = g.freeLimit
		usage.Remaining = maxInt64(g.freeLimit-used, 0)
	}
	return usage, nil
}

// counterKey buckets usage per caller per UTC day. Day rollover needs no
// reset job, a new day simply uses a fresh key.
func (g *Gate) counterKey(identity string, now time.Time) string {
	return fmt.Sprintf("usage:%s:%s", identity, now.Format("2006-01-02"))
}

func nextMidnightUTC(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
