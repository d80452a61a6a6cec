package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
)

// RequestLogger writes one structured line per request.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            req, res := c.Request(), c.Response()
            fields := []zap.Field{
                zap.String("method", req.Method),
                zap.String("path", c.Path()),
                zap.Int("status", res.Status),
                zap.Duration("latency", time.Since(start)),
                zap.String("ip", c.RealIP()),
            }
            if id := VisitorID(c); id != "" {
                fields = append(fields, zap.String("visitor", id))
            }
            switch {
            case res.Status >= 500:
                log.Error("request", append(fields, zap.Error(err))...)
            case res.Status >= 400:
                log.Warn("request", fields...)
            default:
                log.Info("request", fields...)
            }
            return nil
        }
    }
}
