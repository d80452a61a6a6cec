package repository

import (
    "context"
    "time"

    "github.com/google/uuid"
    "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when it still holds our token, so a
// slow holder never removes a lock that expired and was taken by someone else.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisLocker is a short-lived mutual exclusion lock keyed by string.
type RedisLocker struct {
    rdb    *redis.Client
    prefix string
}

// NewRedisLocker returns nil when rdb is nil, which callers treat as "no
// locking".
func NewRedisLocker(rdb *redis.Client, prefix string) *RedisLocker {
    if rdb == nil {
        return nil
    }
    return &RedisLocker{rdb: rdb, prefix: prefix}
}

// Acquire takes the lock for ttl.  ok is false when another holder owns it.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
    full := l.prefix + ":" + key
    token := uuid.NewString()
    ok, err := l.rdb.SetNX(ctx, full, token, ttl).Result()
    if err != nil {
        return nil, false, err
    }
    if !ok {
        return nil, false, nil
    }
    release := func() {
        ctx, cancel := context.WithTimeout(context.Background(), time.Second)
        defer cancel()
        _ = releaseScript.Run(ctx, l.rdb, []string{full}, token).Err()
    }
    return release, true, nil
}
