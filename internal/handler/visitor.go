package handler

import (
    "context"
    "errors"
    "net/http"
    "net/mail"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/zone-explorer/internal/logger"
    "github.com/iliyamo/zone-explorer/internal/middleware"
    "github.com/iliyamo/zone-explorer/internal/service"
    "github.com/iliyamo/zone-explorer/internal/session"
    "github.com/iliyamo/zone-explorer/internal/zone"
)

// RecentWindow is the span of the public "recent zone activity" board.
const RecentWindow = 30 * time.Minute

// VisitorHandler serves the attendee-facing endpoints.
type VisitorHandler struct {
    Sessions  *session.Store
    CheckIns  *service.CheckInService
    Progress  *service.ProgressService
    Prizes    *service.PrizeService
    Analytics *service.AnalyticsService
    Zones     *zone.Registry
    Timeout   time.Duration         // per-request database timeout
    OnChange  func(context.Context) // called after a prize entry or a reset, e.g. to purge caches
    Log       *zap.Logger
}

func NewVisitorHandler(sessions *session.Store, checkIns *service.CheckInService, progress *service.ProgressService,
    prizes *service.PrizeService, analytics *service.AnalyticsService, zones *zone.Registry, log *zap.Logger) *VisitorHandler {
    return &VisitorHandler{
        Sessions:  sessions,
        CheckIns:  checkIns,
        Progress:  progress,
        Prizes:    prizes,
        Analytics: analytics,
        Zones:     zones,
        Timeout:   5 * time.Second,
        Log:       logger.OrNop(log),
    }
}

type identityReq struct {
    Email string `json:"email"`
}

type checkInReq struct {
    Zone string `json:"zone"`
}

type checkInResp struct {
    Message  string            `json:"message"`
    Zone     string            `json:"zone"`
    ZoneName string            `json:"zone_name"`
    At       time.Time         `json:"occurred_at"`
    Progress *service.Progress `json:"progress,omitempty"`
}

type progressResp struct {
    service.Progress
    PrizeEntered bool `json:"prize_entered"`
}

func (h *VisitorHandler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), h.Timeout)
}

// Register: POST /v1/visitor stores the e-mail as the visitor identity.
func (h *VisitorHandler) Register(c echo.Context) error {
    return h.setIdentity(c, http.StatusCreated)
}

// Override: PUT /v1/debug/visitor switches identity; testing mode only.
func (h *VisitorHandler) Override(c echo.Context) error {
    return h.setIdentity(c, http.StatusOK)
}

func (h *VisitorHandler) setIdentity(c echo.Context, status int) error {
    var req identityReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    email, err := normalizeEmail(req.Email)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "a valid email is required"})
    }
    if err := h.Sessions.SetVisitorID(c.Request(), c.Response(), email); err != nil {
        return writeError(c, h.Log, err)
    }
    middleware.SetVisitorID(c, email)
    return c.JSON(status, echo.Map{"visitor_id": email})
}

// normalizeEmail accepts a bare address only, without display name.
func normalizeEmail(raw string) (string, error) {
    raw = strings.TrimSpace(raw)
    addr, err := mail.ParseAddress(raw)
    if err != nil {
        return "", err
    }
    if addr.Address != raw || addr.Name != "" {
        return "", errors.New("display names are not accepted")
    }
    return service.NormalizeVisitorID(addr.Address), nil
}

// Logout: DELETE /v1/visitor clears the session cookie.
func (h *VisitorHandler) Logout(c echo.Context) error {
    if err := h.Sessions.Clear(c.Request(), c.Response()); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// CheckInLink: GET /v1/checkin?zone=<code> is what the QR codes point at.
func (h *VisitorHandler) CheckInLink(c echo.Context) error {
    return h.checkIn(c, c.QueryParam("zone"))
}

// CheckIn: POST /v1/checkin {"zone": "<code>"} for scanned or typed codes.
func (h *VisitorHandler) CheckIn(c echo.Context) error {
    var req checkInReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    return h.checkIn(c, req.Zone)
}

func (h *VisitorHandler) checkIn(c echo.Context, code string) error {
    ctx, cancel := h.ctx(c)
    defer cancel()

    res, err := h.CheckIns.CheckIn(ctx, middleware.VisitorID(c), strings.TrimSpace(code))
    if errors.Is(err, service.ErrCooldownActive) {
        return writeCooldown(c, res.RetryAfter)
    }
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, checkInResp{
        Message:  res.ZoneName + " logged",
        Zone:     res.Visit.ZoneCode,
        ZoneName: res.ZoneName,
        At:       res.Visit.OccurredAt,
        Progress: res.Progress,
    })
}

// GetProgress: GET /v1/progress.
func (h *VisitorHandler) GetProgress(c echo.Context) error {
    ctx, cancel := h.ctx(c)
    defer cancel()

    visitor := middleware.VisitorID(c)
    p, err := h.Progress.Progress(ctx, visitor)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    entered, err := h.Prizes.AlreadyEntered(ctx, visitor)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, progressResp{Progress: p, PrizeEntered: entered})
}

// EnterDraw: POST /v1/prize-draw.
func (h *VisitorHandler) EnterDraw(c echo.Context) error {
    ctx, cancel := h.ctx(c)
    defer cancel()

    if err := h.Prizes.Register(ctx, middleware.VisitorID(c)); err != nil {
        return writeError(c, h.Log, err)
    }
    h.changed(ctx)
    return c.JSON(http.StatusCreated, echo.Map{"message": "you have been entered into the prize draw"})
}

// Reset: POST /v1/reset deletes the caller's visits and entries.
func (h *VisitorHandler) Reset(c echo.Context) error {
    ctx, cancel := h.ctx(c)
    defer cancel()

    res, err := h.Prizes.ResetVisitor(ctx, middleware.VisitorID(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    h.changed(ctx)
    return c.JSON(http.StatusOK, res)
}

func (h *VisitorHandler) changed(ctx context.Context) {
    if h.OnChange != nil {
        h.OnChange(ctx)
    }
}

// RecentTraffic: GET /v1/zones/traffic.
func (h *VisitorHandler) RecentTraffic(c echo.Context) error {
    ctx, cancel := h.ctx(c)
    defer cancel()

    rows, err := h.Analytics.RecentTraffic(ctx, RecentWindow)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "window_minutes": int(RecentWindow / time.Minute),
        "zones":          rows,
    })
}

type debugZone struct {
    Code       string `json:"code"`
    Name       string `json:"name"`
    QRPayload  string `json:"qr_payload"`
    CheckInURL string `json:"checkin_url"`
}

// DebugZones: GET /v1/debug/zones lists the catalog with what each QR code
// encodes; testing mode only.
func (h *VisitorHandler) DebugZones(c echo.Context) error {
    zones := h.Zones.Zones()
    out := make([]debugZone, 0, len(zones))
    for _, z := range zones {
        out = append(out, debugZone{
            Code:       z.Code,
            Name:       z.Name,
            QRPayload:  z.Code,
            CheckInURL: "/v1/checkin?zone=" + z.Code,
        })
    }
    return c.JSON(http.StatusOK, out)
}
