package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/zone-explorer/internal/utils"
)

// AdminCookie carries the admin token for browser clients.
const AdminCookie = "zx_admin"

// AdminAuth validates an admin token taken from the Authorization header
// ("Bearer <jwt>") or, failing that, from the AdminCookie cookie.  The
// token's subject and role are stored in the context.
func AdminAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := bearerToken(c.Request())
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing admin token"})
            }
            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            c.Set(ctxAdminSub, claims.Subject)
            c.Set(ctxRole, claims.Role)
            return next(c)
        }
    }
}

func bearerToken(r *http.Request) string {
    if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
        return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
    }
    if ck, err := r.Cookie(AdminCookie); err == nil {
        return ck.Value
    }
    return ""
}
