package service

import (
	"context"
	"math"
	"strings"

	"github.com/iliyamo/zone-explorer/internal/model"
	"github.com/iliyamo/zone-explorer/internal/zone"
)

// Stats summarizes a visitor's visits.
type Stats struct {
	TotalVisits          int            `json:"total_visits"`
	UniqueZones          int            `json:"unique_zones"`
	TotalZones           int            `json:"total_zones"`
	CompletionPercentage float64        `json:"completion_percentage"`
	VisitsPerZone        map[string]int `json:"visits_per_zone"`
}

// ZoneStatus is one row of the visitor's progress map.
type ZoneStatus struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Visited bool   `json:"visited"`
	Visits  int    `json:"visits"`
}

// Progress is everything the visitor page shows about a visitor.
type Progress struct {
	VisitorID string       `json:"visitor_id"`
	Stats     Stats        `json:"stats"`
	Rank      string       `json:"rank"`
	Complete  bool         `json:"complete"`
	Zones     []ZoneStatus `json:"zones"`
	Remaining []model.Zone `json:"remaining"`
}

// ProgressService derives completion state from the visit log.  Nothing
// is cached: every call reads the store, so a reset takes effect
// immediately.
type ProgressService struct {
	visits VisitStore
	zones  *zone.Registry
	ranks  RankTable
}

func NewProgressService(visits VisitStore, zones *zone.Registry) *ProgressService {
	return &ProgressService{visits: visits, zones: zones, ranks: DefaultRanks}
}

// WithRanks replaces the rank ladder.
func (s *ProgressService) WithRanks(t RankTable) *ProgressService {
	s.ranks = t
	return s
}

// NormalizeVisitorID trims and lower-cases an e-mail address used as
// visitor identity.
func NormalizeVisitorID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// counts returns visits per registered zone code for the visitor and
// their sum.  Visits to codes no longer in the catalog are not counted.
func (s *ProgressService) counts(ctx context.Context, visitorID string) (map[string]int, int, error) {
	raw, err := s.visits.CountByZoneForVisitor(ctx, visitorID)
	if err != nil {
		return nil, 0, err
	}
	total := 0
	counts := make(map[string]int, len(raw))
	for code, n := range raw {
		if s.zones.Contains(code) {
			counts[code] = n
			total += n
		}
	}
	return counts, total, nil
}

// VisitedZones returns the distinct registered zone codes the visitor has
// logged.
func (s *ProgressService) VisitedZones(ctx context.Context, visitorID string) (map[string]struct{}, error) {
	counts, _, err := s.counts(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(counts))
	for code := range counts {
		set[code] = struct{}{}
	}
	return set, nil
}

// IsComplete reports whether the visitor has visited every zone.
func (s *ProgressService) IsComplete(ctx context.Context, visitorID string) (bool, error) {
	visited, err := s.VisitedZones(ctx, visitorID)
	if err != nil {
		return false, err
	}
	return s.coversCatalog(visited), nil
}

func (s *ProgressService) coversCatalog(visited map[string]struct{}) bool {
	for _, code := range s.zones.AllCodes() {
		if _, ok := visited[code]; !ok {
			return false
		}
	}
	return true
}

func (s *ProgressService) Stats(ctx context.Context, visitorID string) (Stats, error) {
	p, err := s.Progress(ctx, visitorID)
	if err != nil {
		return Stats{}, err
	}
	return p.Stats, nil
}

func (s *ProgressService) Rank(ctx context.Context, visitorID string) (string, error) {
	p, err := s.Progress(ctx, visitorID)
	if err != nil {
		return "", err
	}
	return p.Rank, nil
}

// RemainingZones lists the catalog zones the visitor has not visited yet,
// in catalog order.
func (s *ProgressService) RemainingZones(ctx context.Context, visitorID string) ([]model.Zone, error) {
	p, err := s.Progress(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	return p.Remaining, nil
}

// Progress computes stats, rank, the progress map and the remaining zones
// from a single read of the visit log.
func (s *ProgressService) Progress(ctx context.Context, visitorID string) (Progress, error) {
	counts, total, err := s.counts(ctx, visitorID)
	if err != nil {
		return Progress{}, err
	}
	catalog := s.zones.Zones()
	p := Progress{
		VisitorID: visitorID,
		Zones:     make([]ZoneStatus, 0, len(catalog)),
		Remaining: []model.Zone{},
	}
	for _, z := range catalog {
		n := counts[z.Code]
		p.Zones = append(p.Zones, ZoneStatus{Code: z.Code, Name: z.Name, Visited: n > 0, Visits: n})
		if n == 0 {
			p.Remaining = append(p.Remaining, z)
		}
	}
	p.Complete = len(p.Remaining) == 0
	p.Stats = Stats{
		TotalVisits:          total,
		UniqueZones:          len(counts),
		TotalZones:           len(catalog),
		CompletionPercentage: percent(len(counts), len(catalog)),
		VisitsPerZone:        counts,
	}
	p.Rank = s.ranks.Label(p.Stats.UniqueZones, p.Complete)
	return p, nil
}

// percent returns 100*part/whole rounded to one decimal.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(1000*float64(part)/float64(whole)) / 10
}
