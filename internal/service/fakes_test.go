package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/zone-explorer/internal/model"
	"github.com/iliyamo/zone-explorer/internal/queue"
	"github.com/iliyamo/zone-explorer/internal/zone"
)

var t0 = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

// stepClock is a settable clock.
type stepClock struct{ now time.Time }

func newStepClock() *stepClock { return &stepClock{now: t0} }

func (c *stepClock) Now() time.Time { return c.now }

// Set moves the clock to t0+d.
func (c *stepClock) Set(d time.Duration) { c.now = t0.Add(d) }

type fakeVisitStore struct {
	mu     sync.Mutex
	visits []model.Visit
	err    error
}

func (f *fakeVisitStore) Insert(_ context.Context, v model.Visit) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	v.ID = uint64(len(f.visits) + 1)
	f.visits = append(f.visits, v)
	return v.ID, nil
}

func (f *fakeVisitStore) LatestAt(_ context.Context, visitorID, zone string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return time.Time{}, false, f.err
	}
	var (
		latest time.Time
		ok     bool
	)
	for _, v := range f.visits {
		if v.VisitorID == visitorID && v.ZoneCode == zone && (!ok || v.OccurredAt.After(latest)) {
			latest, ok = v.OccurredAt, true
		}
	}
	return latest, ok, nil
}

func (f *fakeVisitStore) CountByZoneForVisitor(_ context.Context, visitorID string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]int{}
	for _, v := range f.visits {
		if v.VisitorID == visitorID {
			out[v.ZoneCode]++
		}
	}
	return out, nil
}

func (f *fakeVisitStore) CountByZoneBetween(_ context.Context, from, to time.Time) (map[string]int, error) {
	out := map[string]int{}
	for _, v := range f.between(from, to) {
		out[v.ZoneCode]++
	}
	return out, nil
}

func (f *fakeVisitStore) ListBetween(_ context.Context, from, to time.Time) ([]model.Visit, error) {
	return f.between(from, to), nil
}

func (f *fakeVisitStore) between(from, to time.Time) []model.Visit {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Visit{}
	for _, v := range f.visits {
		if !v.OccurredAt.Before(from) && !v.OccurredAt.After(to) {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out
}

func (f *fakeVisitStore) DistinctZonesByVisitor(context.Context) (map[string]map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]map[string]struct{}{}
	for _, v := range f.visits {
		if out[v.VisitorID] == nil {
			out[v.VisitorID] = map[string]struct{}{}
		}
		out[v.VisitorID][v.ZoneCode] = struct{}{}
	}
	return out, nil
}

func (f *fakeVisitStore) DeleteByVisitor(_ context.Context, visitorID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.visits[:0]
	var n int64
	for _, v := range f.visits {
		if v.VisitorID == visitorID {
			n++
			continue
		}
		kept = append(kept, v)
	}
	f.visits = kept
	return n, nil
}

func (f *fakeVisitStore) add(visitorID, zone string, at time.Time) {
	_, _ = f.Insert(context.Background(), model.Visit{VisitorID: visitorID, ZoneCode: zone, OccurredAt: at})
}

func (f *fakeVisitStore) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visits)
}

type fakePrizeStore struct {
	entries []model.PrizeEntry
}

func (f *fakePrizeStore) Create(_ context.Context, visitorID, email string, at time.Time) (uint64, error) {
	id := uint64(len(f.entries) + 1)
	f.entries = append(f.entries, model.PrizeEntry{ID: id, VisitorID: visitorID, Email: email, CreatedAt: at})
	return id, nil
}

func (f *fakePrizeStore) ExistsForVisitor(_ context.Context, visitorID string) (bool, error) {
	for _, e := range f.entries {
		if e.VisitorID == visitorID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePrizeStore) List(context.Context) ([]model.PrizeEntry, error) {
	out := make([]model.PrizeEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

func (f *fakePrizeStore) DeleteByVisitor(_ context.Context, visitorID string) (int64, error) {
	kept := f.entries[:0]
	var n int64
	for _, e := range f.entries {
		if e.VisitorID == visitorID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return n, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ActivityEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// heldLocker refuses every key in held.
type heldLocker struct {
	held     map[string]bool
	acquired []string
	released int
	err      error
}

func (l *heldLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.acquired = append(l.acquired, key)
	return func() { l.released++ }, true, nil
}

func mustRegistry(zones ...model.Zone) *zone.Registry {
	r, err := zone.NewRegistry(zones)
	if err != nil {
		panic(err)
	}
	return r
}

func twoZones() *zone.Registry {
	return mustRegistry(model.Zone{Code: "zoneA", Name: "Zone 1"}, model.Zone{Code: "zoneB", Name: "Zone 2"})
}

func sixZones() *zone.Registry {
	return mustRegistry(zone.DefaultCatalog...)
}
