package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "database/sql"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// Health is a liveness check used by load balancers.  It returns "ok"
// with a 200 status as long as the process serves requests.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Ready reports 503 until the database answers a ping.
func Ready(db *sql.DB) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if err := db.PingContext(ctx); err != nil {
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "database unavailable"})
        }
        return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
    }
}
