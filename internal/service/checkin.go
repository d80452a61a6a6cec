package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/zone-explorer/internal/clock"
	"github.com/iliyamo/zone-explorer/internal/logger"
	"github.com/iliyamo/zone-explorer/internal/model"
	"github.com/iliyamo/zone-explorer/internal/queue"
	"github.com/iliyamo/zone-explorer/internal/zone"
)

const (
	// DefaultCooldown absorbs rapid repeat scans of the same QR code.
	DefaultCooldown = 60 * time.Second
	checkInLockTTL  = 5 * time.Second
)

// CheckInResult describes the outcome of a check-in.  Progress is only set
// for accepted check-ins; RetryAfter only for ErrCooldownActive.
type CheckInResult struct {
	Visit      model.Visit   `json:"visit"`
	ZoneName   string        `json:"zone_name"`
	RetryAfter time.Duration `json:"-"`
	Progress   *Progress     `json:"progress,omitempty"`
}

// CheckInService validates scans and appends visits.
type CheckInService struct {
	zones    *zone.Registry
	visits   VisitStore
	progress *ProgressService
	clock    clock.Clock
	cooldown time.Duration
	lock     Locker
	events   EventPublisher
	log      *zap.Logger
}

type CheckInOption func(*CheckInService)

// WithCooldown overrides DefaultCooldown.  Non-positive values are ignored.
func WithCooldown(d time.Duration) CheckInOption {
	return func(s *CheckInService) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithLocker serializes the cooldown check and the insert per visitor and
// zone, so two simultaneous scans cannot both be accepted.
func WithLocker(l Locker) CheckInOption {
	return func(s *CheckInService) { s.lock = l }
}

func WithCheckInPublisher(p EventPublisher) CheckInOption {
	return func(s *CheckInService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithCheckInLogger(l *zap.Logger) CheckInOption {
	return func(s *CheckInService) { s.log = logger.OrNop(l) }
}

func NewCheckInService(zones *zone.Registry, visits VisitStore, progress *ProgressService, clk clock.Clock, opts ...CheckInOption) *CheckInService {
	s := &CheckInService{
		zones:    zones,
		visits:   visits,
		progress: progress,
		clock:    clk,
		cooldown: DefaultCooldown,
		events:   nopPublisher{},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CheckInService) Cooldown() time.Duration { return s.cooldown }

// CheckIn logs a visit of visitorID at zoneCode.  It writes exactly one
// row on success and nothing on any error.
func (s *CheckInService) CheckIn(ctx context.Context, visitorID, zoneCode string) (CheckInResult, error) {
	visitorID = NormalizeVisitorID(visitorID)
	if visitorID == "" {
		return CheckInResult{}, ErrVisitorRequired
	}
	name, ok := s.zones.Resolve(zoneCode)
	if !ok {
		return CheckInResult{}, ErrUnknownZone
	}
	res := CheckInResult{ZoneName: name}

	if s.lock != nil {
		release, acquired, err := s.lock.Acquire(ctx, "checkin:"+visitorID+":"+zoneCode, checkInLockTTL)
		switch {
		case err != nil:
			// fall back to the unguarded path rather than refusing scans
			s.log.Warn("check-in lock unavailable", zap.Error(err))
		case !acquired:
			// a concurrent scan holds the lock; its outcome is not known yet
			res.RetryAfter = time.Second
			return res, ErrCooldownActive
		default:
			defer release()
		}
	}

	now := s.clock.Now()
	last, seen, err := s.visits.LatestAt(ctx, visitorID, zoneCode)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("check-in %s: %w", zoneCode, err)
	}
	if seen {
		if elapsed := now.Sub(last); elapsed < s.cooldown {
			res.RetryAfter = s.cooldown - elapsed
			return res, ErrCooldownActive
		}
	}

	visit := model.Visit{VisitorID: visitorID, ZoneCode: zoneCode, OccurredAt: now}
	id, err := s.visits.Insert(ctx, visit)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("check-in %s: %w", zoneCode, err)
	}
	visit.ID = id
	res.Visit = visit

	ev := queue.NewActivityEvent(queue.EventZoneVisited, visitorID, now)
	ev.ZoneCode, ev.ZoneName = zoneCode, name
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish zone visit failed", zap.String("visitor", visitorID), zap.Error(err))
	}

	p, err := s.progress.Progress(ctx, visitorID)
	if err != nil {
		// the visit is stored; report it without progress
		s.log.Error("load progress after check-in", zap.String("visitor", visitorID), zap.Error(err))
		return res, nil
	}
	res.Progress = &p
	return res, nil
}
