package config

import "time"

// RateLimitConfig configures the Redis token bucket guarding the check-in
// and admin login endpoints.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
}

func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 20),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 3*time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "caller_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "zx:rl"),
    }
    if b := envInt("RATE_LIMIT_BURST", -1); b > 0 { def.Capacity = b }
    return def.normalize()
}

// normalize clamps values that would make the bucket unusable.
func (c RateLimitConfig) normalize() RateLimitConfig {
    if c.Capacity < 1 { c.Capacity = 1 }
    if c.RefillTokens < 1 { c.RefillTokens = 1 }
    if c.RefillInterval <= 0 { c.RefillInterval = time.Second }
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL { c.TTL = minTTL }
    return c
}

// LoginRateLimit derives a much stricter bucket for the admin login
// endpoint: a handful of attempts, then one attempt every ADMIN_LOGIN_EVERY.
func (c RateLimitConfig) LoginRateLimit() RateLimitConfig {
    l := c
    l.Capacity = envInt("ADMIN_LOGIN_BURST", 5)
    l.RefillTokens = 1
    l.RefillInterval = envDur("ADMIN_LOGIN_EVERY", 30*time.Second)
    l.KeyStrategy = "ip"
    l.Prefix = c.Prefix + ":login"
    return l.normalize()
}
