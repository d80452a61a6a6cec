package config

// Redis backs three optional features: the check-in lock that serializes
// concurrent scans of the same zone, the admin login rate limiter and the
// analytics response cache.  When Redis is disabled or unreachable the
// constructor returns nil and callers disable those features.

import (
    "context"
    "crypto/tls"
    "os"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

// RedisConfig holds connection parameters.
type RedisConfig struct {
    Enabled  bool
    Addr     string
    Password string
    DB       int
    TLS      bool
}

// LoadRedisConfig reads:
//   REDIS_ENABLED – "false" turns Redis off entirely (default true)
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand (used when host/port are not both set)
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
func LoadRedisConfig() RedisConfig {
    host := os.Getenv("REDIS_HOST")
    port := os.Getenv("REDIS_PORT")
    addr := os.Getenv("REDIS_ADDR")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    tlsEnv := os.Getenv("REDIS_TLS")
    return RedisConfig{
        Enabled:  envBool("REDIS_ENABLED", true),
        Addr:     addr,
        Password: os.Getenv("REDIS_PASSWORD"),
        DB:       envInt("REDIS_DB", 0),
        TLS:      strings.EqualFold(tlsEnv, "true") || tlsEnv == "1",
    }
}

// NewRedisClient instantiates a Redis client and pings it with a short
// timeout.  The returned client is nil when Redis is disabled or the ping
// fails.
func NewRedisClient(cfg RedisConfig, log *zap.Logger) *redis.Client {
    if !cfg.Enabled {
        log.Info("redis disabled")
        return nil
    }
    var tlsConf *tls.Config
    if cfg.TLS {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      cfg.Addr,
        Password:  cfg.Password,
        DB:        cfg.DB,
        TLSConfig: tlsConf,
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        log.Warn("redis unreachable, lock/cache/rate limit disabled", zap.String("addr", cfg.Addr), zap.Error(err))
        _ = client.Close()
        return nil
    }
    log.Info("redis connected", zap.String("addr", cfg.Addr))
    return client
}
