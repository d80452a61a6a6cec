package middleware

// identity.go resolves who is calling.  Visitors are identified by the
// signed session cookie, admins by a JWT.  Handlers read the results via
// VisitorID and AdminSubject instead of touching the context keys.

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/zone-explorer/internal/session"
)

const (
    ctxVisitorID = "visitor_id"
    ctxAdminSub  = "admin_sub"
    ctxRole      = "role"
)

// VisitorSession loads the visitor identity from the session cookie when
// present.  It never rejects a request; use RequireVisitor for that.
func VisitorSession(store *session.Store) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if id, err := store.VisitorID(c.Request()); err == nil {
                c.Set(ctxVisitorID, id)
            }
            return next(c)
        }
    }
}

// RequireVisitor rejects requests without a visitor identity.
func RequireVisitor() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if VisitorID(c) == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "visitor not registered"})
            }
            return next(c)
        }
    }
}

// VisitorID returns the visitor of the request or "".
func VisitorID(c echo.Context) string {
    id, _ := c.Get(ctxVisitorID).(string)
    return id
}

// SetVisitorID stores id for the rest of the request.
func SetVisitorID(c echo.Context, id string) { c.Set(ctxVisitorID, id) }

// AdminSubject returns the subject of a verified admin token or "".
func AdminSubject(c echo.Context) string {
    sub, _ := c.Get(ctxAdminSub).(string)
    return sub
}

// callerKey identifies the caller for rate limiting: the visitor, the
// admin or "anon".
func callerKey(c echo.Context) string {
    if id := VisitorID(c); id != "" {
        return "visitor:" + id
    }
    if sub := AdminSubject(c); sub != "" {
        return "admin:" + sub
    }
    return "anon"
}
