package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/zone-explorer/internal/config"
)

// passThrough is used when an optional Redis-backed middleware is off.
func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// captureWriter copies the response while forwarding it to the client.
// Bodies larger than limit are marked truncated and never cached.
type captureWriter struct {
    http.ResponseWriter
    status    int
    buf       bytes.Buffer
    limit     int64
    truncated bool
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    if !cw.truncated {
        if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
            cw.truncated = true
            cw.buf.Reset()
        } else {
            cw.buf.Write(b)
        }
    }
    return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the parts selected by KeyStrategy under Prefix.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    method := r.Method
    route := c.Path()
    query := r.URL.RawQuery

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = append(parts, "route", route)
    case "method_route":
        parts = append(parts, "method", method, "route", route)
    case "method_route_query":
        parts = append(parts, "method", method, "route", route, "q", query)
    default: // "route_query"
        parts = append(parts, "route", route, "q", query)
    }

    tail := strings.Join(parts[1:], ":")
    sum := sha1.Sum([]byte(tail))
    return fmt.Sprintf("%s:%x", parts[0], sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    total := 4 + 4 + len(hdrJSON) + len(body)
    out := make([]byte, total)
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:8+len(hdrJSON)], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if 8+hlen > len(bs) || hlen < 0 {
        return 0, nil, nil, false
    }
    var hdr http.Header
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
            return 0, nil, nil, false
        }
    } else {
        hdr = make(http.Header)
    }
    body = bs[8+hlen:]
    return status, hdr, body, true
}

// ResponseCache stores successful responses of the admin analytics
// endpoints in Redis, headers included, so a hit is byte-identical to the
// original response.
type ResponseCache struct {
    cfg config.CacheConfig
    rdb *redis.Client
    log *zap.Logger
}

// NewResponseCache returns a cache that is a no-op when caching is disabled
// or rdb is nil.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) *ResponseCache {
    if log == nil {
        log = zap.NewNop()
    }
    if cfg.TTL <= 0 {
        cfg.TTL = 15 * time.Second
    }
    return &ResponseCache{cfg: cfg, rdb: rdb, log: log}
}

func (rc *ResponseCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
    if !rc.enabled() {
        return passThrough
    }
    cfg, rdb := rc.cfg, rc.rdb
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }

            ctx := c.Request().Context()
            key := cacheKeyFrom(cfg, c)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for k, vals := range hdr {
                        if strings.EqualFold(k, "Content-Length") {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    if len(body) > 0 {
                        _, _ = c.Response().Write(body)
                    }
                    return nil
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.truncated {
                return nil
            }
            hdr := c.Response().Header().Clone()
            hdr.Del("X-Cache")
            payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
            if err != nil {
                return nil
            }
            if err := rdb.SetEx(context.Background(), key, payload, cfg.TTL).Err(); err != nil {
                rc.log.Warn("cache: store failed", zap.String("key", key), zap.Error(err))
            }
            return nil
        }
    }
}

// Purge drops every cached response.  Writes that change analytics, such
// as a visitor reset, call it so the admin view does not lag behind.
func (rc *ResponseCache) Purge(ctx context.Context) error {
    if !rc.enabled() {
        return nil
    }
    iter := rc.rdb.Scan(ctx, 0, rc.cfg.Prefix+":*", 100).Iterator()
    var keys []string
    for iter.Next(ctx) {
        keys = append(keys, iter.Val())
    }
    if err := iter.Err(); err != nil {
        return err
    }
    if len(keys) == 0 {
        return nil
    }
    return rc.rdb.Del(ctx, keys...).Err()
}
