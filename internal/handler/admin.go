package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/zone-explorer/internal/clock"
    "github.com/iliyamo/zone-explorer/internal/logger"
    "github.com/iliyamo/zone-explorer/internal/middleware"
    "github.com/iliyamo/zone-explorer/internal/service"
    "github.com/iliyamo/zone-explorer/internal/utils"
)

// AdminHandler serves the organizer dashboard endpoints.
type AdminHandler struct {
    PasswordHash string // bcrypt hash the login password is compared against
    JWTSecret    string
    TokenTTL     time.Duration
    SecureCookie bool
    Prizes       *service.PrizeService
    Analytics    *service.AnalyticsService
    Clock        clock.Clock
    Timeout      time.Duration
    Log          *zap.Logger
}

func NewAdminHandler(passwordHash, jwtSecret string, tokenTTL time.Duration, prizes *service.PrizeService,
    analytics *service.AnalyticsService, clk clock.Clock, log *zap.Logger) *AdminHandler {
    return &AdminHandler{
        PasswordHash: passwordHash,
        JWTSecret:    jwtSecret,
        TokenTTL:     tokenTTL,
        Prizes:       prizes,
        Analytics:    analytics,
        Clock:        clk,
        Timeout:      5 * time.Second,
        Log:          logger.OrNop(log),
    }
}

type loginReq struct {
    Password string `json:"password"`
}

type tokenResp struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}

func (h *AdminHandler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), h.Timeout)
}

// Login: POST /v1/admin/login exchanges the admin password for a token.
func (h *AdminHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "password required"})
    }
    if !utils.VerifyPassword(h.PasswordHash, req.Password) {
        h.Log.Warn("admin login failed", zap.String("ip", c.RealIP()))
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    tok, err := utils.NewAccessToken(h.JWTSecret, "admin", utils.RoleAdmin, h.TokenTTL, h.Clock.Now())
    if err != nil {
        return writeError(c, h.Log, err)
    }
    c.SetCookie(&http.Cookie{
        Name:     middleware.AdminCookie,
        Value:    tok.Token,
        Path:     "/v1/admin",
        Expires:  tok.Exp,
        HttpOnly: true,
        Secure:   h.SecureCookie,
        SameSite: http.SameSiteStrictMode,
    })
    return c.JSON(http.StatusOK, tokenResp{Token: tok.Token, Expires: tok.Exp})
}

// Logout: POST /v1/admin/logout expires the token cookie.  Bearer tokens
// stay valid until they expire.
func (h *AdminHandler) Logout(c echo.Context) error {
    c.SetCookie(&http.Cookie{
        Name:     middleware.AdminCookie,
        Value:    "",
        Path:     "/v1/admin",
        MaxAge:   -1,
        HttpOnly: true,
        Secure:   h.SecureCookie,
    })
    return c.NoContent(http.StatusNoContent)
}

// Entries: GET /v1/admin/entries.
func (h *AdminHandler) Entries(c echo.Context) error {
    ctx, cancel := h.ctx(c)
    defer cancel()

    entries, err := h.Prizes.Entries(ctx)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"count": len(entries), "entries": entries})
}

// Visits: GET /v1/admin/visits?start=&end=.
func (h *AdminHandler) Visits(c echo.Context) error {
    r, ok := h.window(c)
    if !ok {
        return nil
    }
    ctx, cancel := h.ctx(c)
    defer cancel()

    visits, err := h.Analytics.Visits(ctx, r.Start, r.End)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"start": r.Start, "end": r.End, "visits": visits})
}

// Stats: GET /v1/admin/stats?start=&end= returns the headline numbers and
// per-zone traffic.
func (h *AdminHandler) Stats(c echo.Context) error {
    r, ok := h.window(c)
    if !ok {
        return nil
    }
    ctx, cancel := h.ctx(c)
    defer cancel()

    summary, err := h.Analytics.Summary(ctx, r.Start, r.End)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    traffic, err := h.Analytics.ZoneTraffic(ctx, r.Start, r.End)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "start":           r.Start,
        "end":             r.End,
        "unique_visitors": summary.UniqueVisitors,
        "total_visits":    summary.TotalVisits,
        "traffic":         traffic,
    })
}

// Funnel: GET /v1/admin/funnel?start=&end=.
func (h *AdminHandler) Funnel(c echo.Context) error {
    r, ok := h.window(c)
    if !ok {
        return nil
    }
    ctx, cancel := h.ctx(c)
    defer cancel()

    steps, err := h.Analytics.RetentionFunnel(ctx, r.Start, r.End)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"start": r.Start, "end": r.End, "steps": steps})
}

// CompletionTimes: GET /v1/admin/completion-times?start=&end=.
func (h *AdminHandler) CompletionTimes(c echo.Context) error {
    r, ok := h.window(c)
    if !ok {
        return nil
    }
    ctx, cancel := h.ctx(c)
    defer cancel()

    report, err := h.Analytics.CompletionTimes(ctx, r.Start, r.End)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"start": r.Start, "end": r.End, "report": report})
}

// Draw: POST /v1/admin/draw picks a winner among eligible entries.
func (h *AdminHandler) Draw(c echo.Context) error {
    ctx, cancel := h.ctx(c)
    defer cancel()

    winner, err := h.Prizes.DrawWinner(ctx)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"winner": winner})
}

// window parses start/end and writes a 400 itself when they are invalid.
func (h *AdminHandler) window(c echo.Context) (DateRange, bool) {
    r, err := ParseDateRange(c.QueryParam("start"), c.QueryParam("end"), h.Clock.Now())
    if err != nil {
        _ = c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        return DateRange{}, false
    }
    return r, true
}

// DateRange is an inclusive time window.
type DateRange struct {
    Start time.Time
    End   time.Time
}

const dayLayout = "2006-01-02"

var ErrBadRange = errors.New("start must not be after end")

// ParseDateRange reads admin window bounds.  Each bound is a UTC calendar
// day (YYYY-MM-DD, covering the whole day) or an RFC3339 instant.  Missing
// bounds default to today.
func ParseDateRange(start, end string, now time.Time) (DateRange, error) {
    today := now.UTC().Truncate(24 * time.Hour)
    r := DateRange{Start: today, End: endOfDay(today)}
    if start != "" {
        t, day, err := parseBound(start)
        if err != nil {
            return DateRange{}, errors.New("invalid start: use YYYY-MM-DD or RFC3339")
        }
        r.Start = t
        if end == "" && day {
            r.End = endOfDay(t)
        }
    }
    if end != "" {
        t, day, err := parseBound(end)
        if err != nil {
            return DateRange{}, errors.New("invalid end: use YYYY-MM-DD or RFC3339")
        }
        if day {
            t = endOfDay(t)
        }
        r.End = t
    }
    if r.Start.After(r.End) {
        return DateRange{}, ErrBadRange
    }
    return r, nil
}

func parseBound(s string) (time.Time, bool, error) {
    if t, err := time.Parse(dayLayout, s); err == nil {
        return t, true, nil
    }
    t, err := time.Parse(time.RFC3339, s)
    return t.UTC(), false, err
}

func endOfDay(day time.Time) time.Time {
    return day.Add(24*time.Hour - time.Nanosecond)
}
