// Package quota implements per-client admission control for new summarization
// work. Each client key owns two token buckets, a short high-resolution
// window (admissions per rolling hour) and a long coarse window (admissions
// per rolling day), and the most restrictive one wins.
//
// Buckets are built on golang.org/x/time/rate with explicit timestamps, so a
// clock can be injected for deterministic tests. Entries live in a
// mutex-guarded map with opportunistic eviction of idle clients; an entry
// idle for a full day has fully refilled buckets, so dropping it cannot widen
// the quota.
//
// The ledger is process-local. It exists for cost protection on the external
// summarization call, not as an authorization mechanism.
package quota

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limits configures the two admission windows.
type Limits struct {
	// HourlyBurst is the ceiling of admissions per rolling hour.
	HourlyBurst int
	// Daily is the ceiling of admissions per rolling day.
	Daily int
}

// Decision is the tagged result of an admission check. When OK is false,
// RetryAfter carries the shortest wait after which the same key would be
// admitted again.
type Decision struct {
	OK         bool
	RetryAfter time.Duration
}

// client holds both buckets for one key and the last time it was seen.
type client struct {
	hour     *rate.Limiter
	day      *rate.Limiter
	lastSeen time.Time
}

// Ledger tracks admission counters per client key. Safe for concurrent use;
// the check-and-increment of both windows happens under one lock, so a key
// can never consume a token without having been admitted.
type Ledger struct {
	limits Limits
	now    func() time.Time

	mu       sync.Mutex
	clients  map[string]*client
	idleTTL  time.Duration
	cleanupN uint64
}

// NewLedger constructs a Ledger with the given window ceilings. Ceilings
// below 1 are coerced to 1. now is optional; nil means time.Now.
func NewLedger(limits Limits, now func() time.Time) *Ledger {
	if limits.HourlyBurst < 1 {
		limits.HourlyBurst = 1
	}
	if limits.Daily < 1 {
		limits.Daily = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		limits:  limits,
		now:     now,
		clients: make(map[string]*client),
		idleTTL: 24 * time.Hour, // both windows have fully refilled by then
	}
}

// Admit checks both windows for key and, when both have room, consumes one
// token from each atomically. Otherwise nothing is consumed and the decision
// carries the longer of the two waits.
func (l *Ledger) Admit(key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.getClient(key, now)

	rHour := c.hour.ReserveN(now, 1)
	rDay := c.day.ReserveN(now, 1)
	if !rHour.OK() || !rDay.OK() {
		// Unreachable with burst >= 1; keep buckets consistent regardless.
		rHour.CancelAt(now)
		rDay.CancelAt(now)
		return Decision{OK: false, RetryAfter: time.Hour}
	}

	delay := rHour.DelayFrom(now)
	if d := rDay.DelayFrom(now); d > delay {
		delay = d
	}
	if delay > 0 {
		rHour.CancelAt(now)
		rDay.CancelAt(now)
		return Decision{OK: false, RetryAfter: delay}
	}
	return Decision{OK: true}
}

// getClient returns the bucket pair for key, creating it on first sight.
// Must be called with l.mu held. Eviction of idle entries runs before the
// lookup (every ~5000 calls) so a stale entry cannot be refreshed first.
func (l *Ledger) getClient(key string, now time.Time) *client {
	l.cleanupN++
	if l.cleanupN >= 5000 {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) >= l.idleTTL {
				delete(l.clients, k)
			}
		}
		l.cleanupN = 0
	}

	if c, ok := l.clients[key]; ok {
		c.lastSeen = now
		return c
	}

	c := &client{
		hour:     newWindowLimiter(l.limits.HourlyBurst, time.Hour, now),
		day:      newWindowLimiter(l.limits.Daily, 24*time.Hour, now),
		lastSeen: now,
	}
	l.clients[key] = c
	return c
}

// newWindowLimiter builds a bucket that admits up to ceiling events per
// rolling window: tokens refill at ceiling/window and the bucket starts full.
func newWindowLimiter(ceiling int, window time.Duration, now time.Time) *rate.Limiter {
	lim := rate.NewLimiter(rate.Limit(float64(ceiling)/window.Seconds()), ceiling)
	// Align the limiter's internal clock with the injected one.
	lim.AllowN(now, 0)
	return lim
}

// Len reports the number of tracked client keys. Intended for tests.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
