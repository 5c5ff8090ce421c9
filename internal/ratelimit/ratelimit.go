// Package ratelimit implements the gateway's per-(tier, identifier)
// token-bucket admission control (spec.md §4.E). Buckets live in a
// sync.Map so distinct keys never contend; each bucket guards its own
// refill+consume step with a mutex, matching the concurrency model in
// spec.md §5 (bucket map supports concurrent insert/read, refill+consume
// is atomic per bucket).
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/joonake9644/koreagate/internal/telemetry"
)

// Tier is one of the closed set of admission classes.
type Tier string

const (
	TierAnonymous     Tier = "anonymous"
	TierAuthenticated Tier = "authenticated"
	TierPremium       Tier = "premium"
)

// tierPolicy is the fixed capacity/window table from spec.md §4.E.
var tierPolicy = map[Tier]struct {
	Capacity float64
	Window   time.Duration
}{
	TierAnonymous:     {Capacity: 100, Window: time.Hour},
	TierAuthenticated: {Capacity: 1000, Window: time.Hour},
	TierPremium:       {Capacity: 10000, Window: time.Hour},
}

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed    bool
	Remaining  int64
	Reset      int64 // unix seconds
	Limit      int64
	RetryAfter int64 // seconds, only set when !Allowed
}

// Violation records one denied admission decision.
type Violation struct {
	Identifier string
	Tier       Tier
	Timestamp  time.Time
	Limit      int64
}

// bucket is a single refillable token reservoir for one (tier, identifier).
type bucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per millisecond
	lastRefill time.Time
}

func newBucket(capacity float64, window time.Duration) *bucket {
	return &bucket{
		tokens:     capacity,
		capacity:   capacity,
		refillRate: capacity / float64(window.Milliseconds()),
		lastRefill: time.Now(),
	}
}

// refillLocked advances the bucket's token count to now. Caller must
// hold b.mu.
func (b *bucket) refillLocked(now time.Time) {
	elapsedMs := float64(now.Sub(b.lastRefill).Milliseconds())
	if elapsedMs <= 0 {
		return
	}
	b.tokens = math.Min(b.capacity, b.tokens+elapsedMs*b.refillRate)
	b.lastRefill = now
}

// Stats summarizes limiter-wide activity.
type Stats struct {
	TotalRequests    int64   `json:"totalRequests"`
	Allowed          int64   `json:"allowed"`
	Blocked          int64   `json:"blocked"`
	Violations       int64   `json:"violations"`
	ActiveBuckets    int     `json:"activeBuckets"`
	RecentViolations int     `json:"recentViolations"`
	BlockRate        float64 `json:"blockRate"`
}

// Limiter holds every (tier, identifier) bucket for the process lifetime.
type Limiter struct {
	buckets sync.Map // key: string -> *bucket

	mu         sync.Mutex
	violations []Violation

	totalRequests int64
	allowed       int64
	blocked       int64
}

// New creates an empty Limiter.
func New() *Limiter {
	return &Limiter{}
}

func bucketKey(tier Tier, identifier string) string {
	return fmt.Sprintf("%s:%s", tier, identifier)
}

func (l *Limiter) getOrCreate(tier Tier, identifier string) *bucket {
	policy := tierPolicy[tier]
	if policy.Capacity == 0 {
		policy = tierPolicy[TierAnonymous]
	}
	key := bucketKey(tier, identifier)
	if b, ok := l.buckets.Load(key); ok {
		return b.(*bucket)
	}
	actual, _ := l.buckets.LoadOrStore(key, newBucket(policy.Capacity, policy.Window))
	return actual.(*bucket)
}

// CheckLimit refills, attempts to consume one token, and returns the
// resulting Decision. Never fails — it always returns a decision.
func (l *Limiter) CheckLimit(identifier string, tier Tier) Decision {
	return l.check(identifier, tier, true)
}

// GetStatus is identical to CheckLimit but never consumes a token.
func (l *Limiter) GetStatus(identifier string, tier Tier) Decision {
	return l.check(identifier, tier, false)
}

func (l *Limiter) check(identifier string, tier Tier, consume bool) Decision {
	b := l.getOrCreate(tier, identifier)
	capacity := int64(tierPolicy[tier].Capacity)

	b.mu.Lock()
	now := time.Now()
	b.refillLocked(now)

	var d Decision
	d.Limit = capacity

	if b.tokens >= 1 {
		if consume {
			b.tokens--
		}
		d.Allowed = true
		d.Remaining = int64(math.Floor(b.tokens))
		msUntilFull := (b.capacity - b.tokens) / b.refillRate
		resetAt := b.lastRefill.Add(time.Duration(msUntilFull) * time.Millisecond)
		d.Reset = int64(math.Ceil(float64(resetAt.UnixMilli()) / 1000))
	} else {
		d.Allowed = false
		d.Remaining = 0
		msPerToken := 1 / b.refillRate
		d.RetryAfter = int64(math.Ceil(msPerToken / 1000))
	}
	b.mu.Unlock()

	if consume {
		l.recordOutcome(identifier, tier, d)
	}
	telemetry.RateLimitDecisionsTotal.WithLabelValues(string(tier), fmt.Sprintf("%t", d.Allowed)).Inc()

	return d
}

func (l *Limiter) recordOutcome(identifier string, tier Tier, d Decision) {
	l.mu.Lock()
	l.totalRequests++
	if d.Allowed {
		l.allowed++
	} else {
		l.blocked++
		l.violations = append(l.violations, Violation{
			Identifier: identifier,
			Tier:       tier,
			Timestamp:  time.Now(),
			Limit:      d.Limit,
		})
	}
	l.mu.Unlock()
}

// Reset clears a single (tier, identifier) bucket back to full capacity.
func (l *Limiter) Reset(identifier string, tier Tier) {
	policy := tierPolicy[tier]
	if policy.Capacity == 0 {
		policy = tierPolicy[TierAnonymous]
	}
	l.buckets.Store(bucketKey(tier, identifier), newBucket(policy.Capacity, policy.Window))
}

// ResetAll discards every bucket.
func (l *Limiter) ResetAll() {
	l.buckets.Range(func(key, _ any) bool {
		l.buckets.Delete(key)
		return true
	})
}

// Stats reports limiter-wide counters, pruning violations older than an
// hour before computing RecentViolations.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	l.pruneViolationsLocked(time.Now())
	total := l.totalRequests
	allowed := l.allowed
	blocked := l.blocked
	violations := int64(len(l.violations))
	recent := len(l.violations)
	l.mu.Unlock()

	active := 0
	l.buckets.Range(func(_, _ any) bool {
		active++
		return true
	})
	telemetry.RateLimitActiveBuckets.Set(float64(active))

	var blockRate float64
	if total > 0 {
		blockRate = float64(blocked) / float64(total) * 100
	}

	return Stats{
		TotalRequests:    total,
		Allowed:          allowed,
		Blocked:          blocked,
		Violations:       violations,
		ActiveBuckets:    active,
		RecentViolations: recent,
		BlockRate:        blockRate,
	}
}

// GetViolations returns recorded violations, optionally filtered by
// identifier. Only entries within the last hour are retained.
func (l *Limiter) GetViolations(identifier string) []Violation {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneViolationsLocked(time.Now())

	if identifier == "" {
		out := make([]Violation, len(l.violations))
		copy(out, l.violations)
		return out
	}

	var out []Violation
	for _, v := range l.violations {
		if v.Identifier == identifier {
			out = append(out, v)
		}
	}
	return out
}

// pruneViolationsLocked drops violations older than one hour. Caller
// must hold l.mu.
func (l *Limiter) pruneViolationsLocked(now time.Time) {
	cutoff := now.Add(-time.Hour)
	kept := l.violations[:0]
	for _, v := range l.violations {
		if v.Timestamp.After(cutoff) {
			kept = append(kept, v)
		}
	}
	l.violations = kept
}

// ResetStats zeroes the request/violation counters. Bucket state and
// the violation log are untouched.
func (l *Limiter) ResetStats() {
	l.mu.Lock()
	l.totalRequests = 0
	l.allowed = 0
	l.blocked = 0
	l.mu.Unlock()
}

// Housekeeping removes buckets whose last refill is older than 2x their
// tier's window. Intended to be called periodically (e.g. hourly).
func (l *Limiter) Housekeeping() int {
	now := time.Now()
	removed := 0
	l.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		stale := now.Sub(b.lastRefill) >= 2*staleWindowFor(b)
		b.mu.Unlock()
		if stale {
			l.buckets.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// staleWindowFor derives the window a bucket was created with from its
// capacity/refillRate ratio (capacity = refillRate * windowMs).
func staleWindowFor(b *bucket) time.Duration {
	if b.refillRate <= 0 {
		return time.Hour
	}
	return time.Duration(b.capacity/b.refillRate) * time.Millisecond
}

// RunHousekeeping starts a goroutine that sweeps stale buckets every
// hour until ctx-equivalent stop channel is closed.
func (l *Limiter) RunHousekeeping(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Housekeeping()
			case <-stop:
				return
			}
		}
	}()
}
