package relay

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kgroups/rootkey/capability"
)

// limiterKey identifies one (holder, capability) pair's quota. A
// holder with two distinct rate-limited capabilities gets two
// independent buckets.
type limiterKey struct {
	holder string
	capID  string
}

// limiterRegistry lazily creates and caches the token-bucket limiters
// backing capability.RateLimit enforcement. spec.md §4.D leaves
// enforcement to the collaborator; this is the relay's collaborator
// implementation, keyed by (holder, capability id) per SPEC_FULL.md's
// expansion.
type limiterRegistry struct {
	mu       sync.Mutex
	limiters map[limiterKey]*rate.Limiter
}

func newLimiterRegistry() *limiterRegistry {
	return &limiterRegistry{limiters: make(map[limiterKey]*rate.Limiter)}
}

func (r *limiterRegistry) allow(holder string, c *capability.Capability) bool {
	if c.Qualifiers.RateLimit == nil {
		return true
	}
	key := limiterKey{holder: holder, capID: c.EventID}

	r.mu.Lock()
	limiter, ok := r.limiters[key]
	if !ok {
		rl := c.Qualifiers.RateLimit
		every := time.Duration(rl.PeriodSeconds) * time.Second / time.Duration(rl.Count)
		limiter = rate.NewLimiter(rate.Every(every), rl.Count)
		r.limiters[key] = limiter
	}
	r.mu.Unlock()

	return limiter.Allow()
}
