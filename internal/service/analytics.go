package service

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/zone-explorer/internal/clock"
	"github.com/iliyamo/zone-explorer/internal/model"
	"github.com/iliyamo/zone-explorer/internal/zone"
)

// ZoneTraffic is the visit count of one zone in a window.
type ZoneTraffic struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Visits int    `json:"visits"`
}

// FunnelStep counts visitors who reached at least Threshold distinct
// zones.  DropOff is the loss compared with the previous step.
type FunnelStep struct {
	Threshold      int     `json:"threshold"`
	Visitors       int     `json:"visitors"`
	DropOff        int     `json:"drop_off"`
	DropOffPercent float64 `json:"drop_off_percent"`
}

// CompletionTime is the time a visitor needed from first to last visit.
type CompletionTime struct {
	VisitorID      string        `json:"visitor_id"`
	First          time.Time     `json:"first_visit"`
	Last           time.Time     `json:"last_visit"`
	Elapsed        time.Duration `json:"-"`
	ElapsedSeconds float64       `json:"elapsed_seconds"`
}

// CompletionReport lists completion times and their mean.
type CompletionReport struct {
	Visitors    []CompletionTime `json:"visitors"`
	Mean        time.Duration    `json:"-"`
	MeanSeconds float64          `json:"mean_seconds"`
}

// Summary holds the headline numbers of the admin page.
type Summary struct {
	UniqueVisitors int `json:"unique_visitors"`
	TotalVisits    int `json:"total_visits"`
}

// AnalyticsService aggregates the visit log for the admin view.  All
// methods are read-only and return empty aggregates for an empty log.
// Windows are inclusive on both ends.
type AnalyticsService struct {
	visits VisitStore
	zones  *zone.Registry
	clock  clock.Clock
}

func NewAnalyticsService(visits VisitStore, zones *zone.Registry, clk clock.Clock) *AnalyticsService {
	return &AnalyticsService{visits: visits, zones: zones, clock: clk}
}

// TrafficByZone maps every catalog zone to its visit count in the window.
func (s *AnalyticsService) TrafficByZone(ctx context.Context, start, end time.Time) (map[string]int, error) {
	raw, err := s.visits.CountByZoneBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, s.zones.Size())
	for _, code := range s.zones.AllCodes() {
		out[code] = raw[code]
	}
	return out, nil
}

// ZoneTraffic is TrafficByZone in catalog order with display names.
func (s *AnalyticsService) ZoneTraffic(ctx context.Context, start, end time.Time) ([]ZoneTraffic, error) {
	counts, err := s.TrafficByZone(ctx, start, end)
	if err != nil {
		return nil, err
	}
	zones := s.zones.Zones()
	out := make([]ZoneTraffic, 0, len(zones))
	for _, z := range zones {
		out = append(out, ZoneTraffic{Code: z.Code, Name: z.Name, Visits: counts[z.Code]})
	}
	return out, nil
}

// RecentTraffic reports zone traffic over the last window.
func (s *AnalyticsService) RecentTraffic(ctx context.Context, window time.Duration) ([]ZoneTraffic, error) {
	now := s.clock.Now()
	return s.ZoneTraffic(ctx, now.Add(-window), now)
}

func (s *AnalyticsService) Visits(ctx context.Context, start, end time.Time) ([]model.Visit, error) {
	return s.visits.ListBetween(ctx, start, end)
}

func (s *AnalyticsService) Summary(ctx context.Context, start, end time.Time) (Summary, error) {
	visits, err := s.visits.ListBetween(ctx, start, end)
	if err != nil {
		return Summary{}, err
	}
	visitors := make(map[string]struct{})
	for _, v := range visits {
		visitors[v.VisitorID] = struct{}{}
	}
	return Summary{UniqueVisitors: len(visitors), TotalVisits: len(visits)}, nil
}

// distinctInWindow returns registered distinct zones per visitor.
func (s *AnalyticsService) distinctInWindow(visits []model.Visit) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{})
	for _, v := range visits {
		if !s.zones.Contains(v.ZoneCode) {
			continue
		}
		set, ok := out[v.VisitorID]
		if !ok {
			set = make(map[string]struct{})
			out[v.VisitorID] = set
		}
		set[v.ZoneCode] = struct{}{}
	}
	return out
}

// RetentionFunnel returns one step per threshold 1..catalog size.
func (s *AnalyticsService) RetentionFunnel(ctx context.Context, start, end time.Time) ([]FunnelStep, error) {
	visits, err := s.visits.ListBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	n := s.zones.Size()
	// reached[k] = visitors with exactly k distinct zones
	reached := make([]int, n+1)
	for _, set := range s.distinctInWindow(visits) {
		reached[len(set)]++
	}
	steps := make([]FunnelStep, n)
	atLeast := 0
	for k := n; k >= 1; k-- {
		atLeast += reached[k]
		steps[k-1] = FunnelStep{Threshold: k, Visitors: atLeast}
	}
	prev := 0
	if n > 0 {
		prev = steps[0].Visitors
	}
	for i := range steps {
		drop := prev - steps[i].Visitors
		steps[i].DropOff = drop
		steps[i].DropOffPercent = percent(drop, prev)
		prev = steps[i].Visitors
	}
	return steps, nil
}

// CompletionTimes measures, for every visitor who visited the whole
// catalog inside the window, the time between their first and last visit.
func (s *AnalyticsService) CompletionTimes(ctx context.Context, start, end time.Time) (CompletionReport, error) {
	visits, err := s.visits.ListBetween(ctx, start, end)
	if err != nil {
		return CompletionReport{}, err
	}
	type span struct{ first, last time.Time }
	spans := make(map[string]*span)
	for _, v := range visits {
		sp, ok := spans[v.VisitorID]
		if !ok {
			spans[v.VisitorID] = &span{first: v.OccurredAt, last: v.OccurredAt}
			continue
		}
		if v.OccurredAt.Before(sp.first) {
			sp.first = v.OccurredAt
		}
		if v.OccurredAt.After(sp.last) {
			sp.last = v.OccurredAt
		}
	}

	report := CompletionReport{Visitors: []CompletionTime{}}
	var total time.Duration
	for visitorID, set := range s.distinctInWindow(visits) {
		if len(set) != s.zones.Size() {
			continue
		}
		sp := spans[visitorID]
		elapsed := sp.last.Sub(sp.first)
		total += elapsed
		report.Visitors = append(report.Visitors, CompletionTime{
			VisitorID:      visitorID,
			First:          sp.first,
			Last:           sp.last,
			Elapsed:        elapsed,
			ElapsedSeconds: elapsed.Seconds(),
		})
	}
	sort.Slice(report.Visitors, func(i, j int) bool {
		return report.Visitors[i].VisitorID < report.Visitors[j].VisitorID
	})
	if len(report.Visitors) > 0 {
		report.Mean = total / time.Duration(len(report.Visitors))
		report.MeanSeconds = report.Mean.Seconds()
	}
	return report, nil
}
