package cache

import "time"

// Policy configures how long results are kept.
type Policy struct {
	// TTL is the longest an entry is kept. Zero disables caching.
	TTL time.Duration

	// MaxEntries bounds the cache size. Zero means DefaultMaxEntries.
	MaxEntries int
}

// DefaultMaxEntries bounds a MemoryCache when Policy.MaxEntries is zero.
const DefaultMaxEntries = 10000

// Enabled reports whether the policy caches anything.
func (p Policy) Enabled() bool {
	return p.TTL > 0
}

// EffectiveTTL returns TTL clamped so the entry expires no later than
// deadline. A zero deadline means no clamp.
func (p Policy) EffectiveTTL(now, deadline time.Time) time.Duration {
	ttl := p.TTL
	if !deadline.IsZero() {
		ttl = min(ttl, deadline.Sub(now))
	}
	return max(ttl, 0)
}
