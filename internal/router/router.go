package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/zone-explorer/internal/handler"
	"github.com/iliyamo/zone-explorer/internal/middleware"
	"github.com/iliyamo/zone-explorer/internal/session"
	"github.com/iliyamo/zone-explorer/internal/utils"
)

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// VisitorOptions carries the optional pieces of the visitor API.
type VisitorOptions struct {
	// CheckInLimit throttles check-in requests; nil disables it.
	CheckInLimit echo.MiddlewareFunc
	// TestingMode registers the /v1/debug routes.
	TestingMode bool
}

// RegisterVisitor registers the attendee endpoints under /v1.  Every route
// sees the visitor identity resolved from the session cookie; all but the
// identity routes require one.
func RegisterVisitor(e *echo.Echo, h *handler.VisitorHandler, sessions *session.Store, opts VisitorOptions) {
	g := e.Group("/v1", middleware.VisitorSession(sessions))

	// identity
	g.POST("/visitor", h.Register)
	g.DELETE("/visitor", h.Logout)
	// public board, no identity needed
	g.GET("/zones/traffic", h.RecentTraffic)

	visitor := middleware.RequireVisitor()
	checkIn := []echo.MiddlewareFunc{visitor}
	if opts.CheckInLimit != nil {
		checkIn = append(checkIn, opts.CheckInLimit)
	}
	g.GET("/checkin", h.CheckInLink, checkIn...)
	g.POST("/checkin", h.CheckIn, checkIn...)
	g.GET("/progress", h.GetProgress, visitor)
	g.POST("/prize-draw", h.EnterDraw, visitor)
	g.POST("/reset", h.Reset, visitor)

	if opts.TestingMode {
		d := g.Group("/debug")
		d.GET("/zones", h.DebugZones)
		d.PUT("/visitor", h.Override)
	}
}

// AdminOptions carries the optional Redis-backed middleware of the admin
// API.
type AdminOptions struct {
	LoginLimit echo.MiddlewareFunc // throttles login attempts; nil disables it
	Cache      echo.MiddlewareFunc // caches GET responses; nil disables it
}

// RegisterAdmin registers the organizer endpoints under /v1/admin.  Login
// is public; everything else needs an admin token.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, opts AdminOptions) {
	g := e.Group("/v1/admin")
	if opts.LoginLimit != nil {
		g.POST("/login", h.Login, opts.LoginLimit)
	} else {
		g.POST("/login", h.Login)
	}
	g.POST("/logout", h.Logout)

	auth := []echo.MiddlewareFunc{middleware.AdminAuth(jwtSecret), middleware.RequireRole(utils.RoleAdmin)}
	reads := auth
	if opts.Cache != nil {
		// after auth, so cached responses are only served to admins
		reads = append(reads[:len(reads):len(reads)], opts.Cache)
	}
	g.GET("/entries", h.Entries, reads...)
	g.GET("/visits", h.Visits, reads...)
	g.GET("/stats", h.Stats, reads...)
	g.GET("/funnel", h.Funnel, reads...)
	g.GET("/completion-times", h.CompletionTimes, reads...)
	g.POST("/draw", h.Draw, auth...)
}
