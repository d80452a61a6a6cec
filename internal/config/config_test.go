package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
    t.Setenv("ZX_BOOL", "YES")
    t.Setenv("ZX_BAD_BOOL", "maybe")
    t.Setenv("ZX_INT", "42")
    t.Setenv("ZX_BAD_INT", "x")
    t.Setenv("ZX_DUR", "90s")

    assert.True(t, envBool("ZX_BOOL", false))
    assert.True(t, envBool("ZX_BAD_BOOL", true))
    assert.False(t, envBool("ZX_UNSET_BOOL", false))
    assert.Equal(t, 42, envInt("ZX_INT", 1))
    assert.Equal(t, 1, envInt("ZX_BAD_INT", 1))
    assert.Equal(t, 90*time.Second, envDur("ZX_DUR", time.Second))
    assert.Equal(t, "def", envStr("ZX_UNSET_STR", "def"))
}

func TestLoad(t *testing.T) {
    t.Setenv("SESSION_HASH_KEY", "hash-key")
    t.Setenv("SESSION_BLOCK_KEY", "0123456789abcdef0123456789abcdef")
    t.Setenv("JWT_SECRET", "jwt-secret")
    t.Setenv("ADMIN_PASSWORD", "pw")
    t.Setenv("DB_DRIVER", "sqlite3")
    t.Setenv("DB_PATH", ":memory:")
    t.Setenv("CHECKIN_COOLDOWN", "2m")
    t.Setenv("TESTING_MODE", "true")

    cfg := Load()
    assert.Equal(t, "sqlite3", cfg.DBDriver)
    assert.Equal(t, ":memory:", cfg.DBPath)
    assert.Equal(t, 2*time.Minute, cfg.CheckinCooldown)
    assert.True(t, cfg.TestingMode)
    assert.Equal(t, "8080", cfg.Port)
    assert.False(t, cfg.IsProd())
    assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.SessionBlockKey)
}

func TestAESKeyLen(t *testing.T) {
    for n, want := range map[int]bool{0: false, 8: false, 16: true, 24: true, 32: true, 33: false} {
        assert.Equal(t, want, aesKeyLen(n), "len %d", n)
    }
}

func TestLoadRateLimitConfig(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    cfg := LoadRateLimitConfig()
    assert.Equal(t, 1, cfg.Capacity)
    assert.Equal(t, 50*time.Second, cfg.TTL)
    assert.Equal(t, "caller_route", cfg.KeyStrategy)

    login := cfg.LoginRateLimit()
    assert.Equal(t, 5, login.Capacity)
    assert.Equal(t, "ip", login.KeyStrategy)
    assert.Equal(t, "zx:rl:login", login.Prefix)
    assert.Equal(t, 30*time.Second, login.RefillInterval)
}

func TestLoadRedisConfig(t *testing.T) {
    t.Setenv("REDIS_HOST", "cache")
    t.Setenv("REDIS_PORT", "6380")
    t.Setenv("REDIS_TLS", "1")

    cfg := LoadRedisConfig()
    assert.Equal(t, "cache:6380", cfg.Addr)
    assert.True(t, cfg.TLS)
    assert.True(t, cfg.Enabled)
}

func TestLoadCacheConfig(t *testing.T) {
    t.Setenv("CACHE_METHODS", "get, head")
    cfg := LoadCacheConfig()
    assert.True(t, cfg.Methods["GET"])
    assert.True(t, cfg.Methods["HEAD"])
    assert.False(t, cfg.Methods["POST"])
}
