package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/zone-explorer/internal/clock"
	"github.com/iliyamo/zone-explorer/internal/logger"
	"github.com/iliyamo/zone-explorer/internal/model"
	"github.com/iliyamo/zone-explorer/internal/queue"
	"github.com/iliyamo/zone-explorer/internal/zone"
)

// ResetResult reports how many rows a visitor reset removed.
type ResetResult struct {
	Visits  int64 `json:"visits_deleted"`
	Entries int64 `json:"entries_deleted"`
}

// PrizeService is the prize draw ledger.
type PrizeService struct {
	entries  PrizeStore
	visits   VisitStore
	progress *ProgressService
	zones    *zone.Registry
	tx       TxRunner
	clock    clock.Clock
	events   EventPublisher
	intn     func(n int) int
	log      *zap.Logger
}

type PrizeOption func(*PrizeService)

// WithRandom replaces the random source used by DrawWinner.  intn must
// return a value in [0, n).
func WithRandom(intn func(n int) int) PrizeOption {
	return func(s *PrizeService) { s.intn = intn }
}

// WithTxRunner makes ResetVisitor atomic.
func WithTxRunner(tx TxRunner) PrizeOption {
	return func(s *PrizeService) { s.tx = tx }
}

func WithPrizePublisher(p EventPublisher) PrizeOption {
	return func(s *PrizeService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithPrizeLogger(l *zap.Logger) PrizeOption {
	return func(s *PrizeService) { s.log = logger.OrNop(l) }
}

func NewPrizeService(entries PrizeStore, visits VisitStore, progress *ProgressService, zones *zone.Registry, clk clock.Clock, opts ...PrizeOption) *PrizeService {
	s := &PrizeService{
		entries:  entries,
		visits:   visits,
		progress: progress,
		zones:    zones,
		clock:    clk,
		events:   nopPublisher{},
		intn:     rand.Intn,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enter records an entry without any eligibility or duplicate check.
// Callers that act on behalf of a visitor should use Register.  The
// visitor ID is normalized like every other ledger lookup; an empty
// email, or one matching the visitor ID, is stored as the visitor ID.
func (s *PrizeService) Enter(ctx context.Context, visitorID, email string) error {
	visitorID = NormalizeVisitorID(visitorID)
	if visitorID == "" {
		return ErrVisitorRequired
	}
	email = strings.TrimSpace(email)
	if email == "" || strings.EqualFold(email, visitorID) {
		email = visitorID
	}
	_, err := s.entries.Create(ctx, visitorID, email, s.clock.Now())
	return err
}

func (s *PrizeService) AlreadyEntered(ctx context.Context, visitorID string) (bool, error) {
	return s.entries.ExistsForVisitor(ctx, NormalizeVisitorID(visitorID))
}

// Register enters a visitor who completed every zone and has no entry
// yet.  The visitor's e-mail is their identity.
func (s *PrizeService) Register(ctx context.Context, visitorID string) error {
	visitorID = NormalizeVisitorID(visitorID)
	if visitorID == "" {
		return ErrVisitorRequired
	}
	complete, err := s.progress.IsComplete(ctx, visitorID)
	if err != nil {
		return fmt.Errorf("register %s: %w", visitorID, err)
	}
	if !complete {
		return ErrNotComplete
	}
	entered, err := s.entries.ExistsForVisitor(ctx, visitorID)
	if err != nil {
		return fmt.Errorf("register %s: %w", visitorID, err)
	}
	if entered {
		return ErrAlreadyEntered
	}
	if err := s.Enter(ctx, visitorID, visitorID); err != nil {
		return fmt.Errorf("register %s: %w", visitorID, err)
	}
	s.publish(ctx, queue.NewActivityEvent(queue.EventPrizeEntered, visitorID, s.clock.Now()))
	return nil
}

func (s *PrizeService) Entries(ctx context.Context) ([]model.PrizeEntry, error) {
	return s.entries.List(ctx)
}

// EligibleEntries returns one entry per visitor whose distinct zone count
// equals the catalog size, in ledger order.
func (s *PrizeService) EligibleEntries(ctx context.Context) ([]model.PrizeEntry, error) {
	entries, err := s.entries.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []model.PrizeEntry{}, nil
	}
	zonesByVisitor, err := s.visits.DistinctZonesByVisitor(ctx)
	if err != nil {
		return nil, err
	}
	eligible := []model.PrizeEntry{}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.VisitorID]; dup {
			continue
		}
		seen[e.VisitorID] = struct{}{}
		if s.registeredCount(zonesByVisitor[e.VisitorID]) == s.zones.Size() {
			eligible = append(eligible, e)
		}
	}
	return eligible, nil
}

func (s *PrizeService) registeredCount(zones map[string]struct{}) int {
	n := 0
	for code := range zones {
		if s.zones.Contains(code) {
			n++
		}
	}
	return n
}

// DrawWinner picks one eligible entry uniformly at random.
func (s *PrizeService) DrawWinner(ctx context.Context) (model.PrizeEntry, error) {
	eligible, err := s.EligibleEntries(ctx)
	if err != nil {
		return model.PrizeEntry{}, fmt.Errorf("draw winner: %w", err)
	}
	if len(eligible) == 0 {
		return model.PrizeEntry{}, ErrNoEligibleEntries
	}
	winner := eligible[s.intn(len(eligible))]
	s.log.Info("prize winner drawn", zap.String("visitor", winner.VisitorID), zap.Int("eligible", len(eligible)))
	s.publish(ctx, queue.NewActivityEvent(queue.EventWinnerDrawn, winner.VisitorID, s.clock.Now()))
	return winner, nil
}

// ResetVisitor deletes every visit and prize entry of the visitor.
func (s *PrizeService) ResetVisitor(ctx context.Context, visitorID string) (ResetResult, error) {
	visitorID = NormalizeVisitorID(visitorID)
	if visitorID == "" {
		return ResetResult{}, ErrVisitorRequired
	}
	var res ResetResult
	reset := func(ctx context.Context) error {
		var err error
		if res.Visits, err = s.visits.DeleteByVisitor(ctx, visitorID); err != nil {
			return err
		}
		res.Entries, err = s.entries.DeleteByVisitor(ctx, visitorID)
		return err
	}
	var err error
	if s.tx != nil {
		err = s.tx.WithTx(ctx, reset)
	} else {
		err = reset(ctx)
	}
	if err != nil {
		return ResetResult{}, fmt.Errorf("reset %s: %w", visitorID, err)
	}
	s.log.Info("visitor progress reset", zap.String("visitor", visitorID),
		zap.Int64("visits", res.Visits), zap.Int64("entries", res.Entries))
	return res, nil
}

func (s *PrizeService) publish(ctx context.Context, ev queue.ActivityEvent) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish event failed", zap.String("type", ev.Type), zap.Error(err))
	}
}
