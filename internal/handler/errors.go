package handler

import (
    "errors"
    "math"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/zone-explorer/internal/service"
)

// writeError maps service sentinels to status codes.  Anything unknown is
// logged and reported as a generic 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
    switch {
    case errors.Is(err, service.ErrVisitorRequired):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "visitor not registered"})
    case errors.Is(err, service.ErrUnknownZone):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown zone"})
    case errors.Is(err, service.ErrNotComplete):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "visit every zone to enter the prize draw"})
    case errors.Is(err, service.ErrAlreadyEntered):
        return c.JSON(http.StatusConflict, echo.Map{"error": "already entered"})
    case errors.Is(err, service.ErrNoEligibleEntries):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no eligible entries"})
    default:
        log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

// writeCooldown answers a check-in that hit the cooldown window.
func writeCooldown(c echo.Context, retry time.Duration) error {
    secs := int(math.Ceil(retry.Seconds()))
    if secs < 1 {
        secs = 1
    }
    c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
    return c.JSON(http.StatusTooManyRequests, echo.Map{
        "error":       "already checked in to this zone recently",
        "retry_after": secs,
    })
}
