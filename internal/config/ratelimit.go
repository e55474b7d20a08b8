package config

import "time"

// RateLimitConfig configures the token bucket applied to public write
// endpoints (login, register, waitlist signup, contact form). The bucket
// lives in Redis when a client is available and in process memory otherwise.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// normalize clamps values the bucket cannot work with. Idle buckets must
// outlive a few refill intervals or a client regains its burst early.
func (r RateLimitConfig) normalize() RateLimitConfig {
	if r.Capacity < 1 {
		r.Capacity = 1
	}
	if r.RefillTokens < 1 {
		r.RefillTokens = 1
	}
	if r.RefillInterval <= 0 {
		r.RefillInterval = time.Second
	}
	if minTTL := 5 * r.RefillInterval; r.TTL < minTTL {
		r.TTL = minTTL
	}
	return r
}
