package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/zone-explorer/internal/clock"
	"github.com/iliyamo/zone-explorer/internal/model"
	"github.com/iliyamo/zone-explorer/internal/service"
	"github.com/iliyamo/zone-explorer/internal/testutil"
	"github.com/iliyamo/zone-explorer/internal/zone"
)

func TestNewRedisLocker_NilClient(t *testing.T) {
	assert.Nil(t, NewRedisLocker(nil, "zx:lock"))
}

func TestRedisLocker_Acquire(t *testing.T) {
	mr, rdb := testutil.NewRedis(t)
	l := NewRedisLocker(rdb, "zx:lock")
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "checkin:a:zoneA", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("zx:lock:checkin:a:zoneA"))
	assert.Equal(t, 5*time.Second, mr.TTL("zx:lock:checkin:a:zoneA"))

	_, ok, err = l.Acquire(ctx, "checkin:a:zoneA", 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = l.Acquire(ctx, "checkin:a:zoneB", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	release()
	assert.False(t, mr.Exists("zx:lock:checkin:a:zoneA"))

	_, ok, err = l.Acquire(ctx, "checkin:a:zoneA", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_ReleaseKeepsNewHolder(t *testing.T) {
	mr, rdb := testutil.NewRedis(t)
	l := NewRedisLocker(rdb, "zx:lock")
	ctx := context.Background()

	stale, ok, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	require.False(t, mr.Exists("zx:lock:k"))

	_, ok, err = l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	holder, err := mr.Get("zx:lock:k")
	require.NoError(t, err)

	stale()
	got, err := mr.Get("zx:lock:k")
	require.NoError(t, err)
	assert.Equal(t, holder, got)
}

func TestRedisLocker_ServerDown(t *testing.T) {
	mr, rdb := testutil.NewRedis(t)
	l := NewRedisLocker(rdb, "zx:lock")
	mr.SetError("ERR unavailable")

	_, ok, err := l.Acquire(context.Background(), "k", time.Second)
	assert.Error(t, err)
	assert.False(t, ok)
}

// Concurrent scans of one QR code store exactly one visit.
func TestRedisLocker_ConcurrentCheckIns(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	db := testutil.NewSQLite(t)
	zones, err := zone.NewRegistry([]model.Zone{{Code: "zoneA", Name: "Zone 1"}})
	require.NoError(t, err)
	visits := NewVisitRepo(db)
	progress := service.NewProgressService(visits, zones)
	svc := service.NewCheckInService(zones, visits, progress, clock.NewManual(base),
		service.WithLocker(NewRedisLocker(rdb, "zx:lock")))

	const scans = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		cooldown int
	)
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CheckIn(context.Background(), "ada@example.com", "zoneA")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, service.ErrCooldownActive):
				cooldown++
			default:
				t.Errorf("check-in: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, scans-1, cooldown)
	counts, err := visits.CountByZoneForVisitor(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"zoneA": 1}, counts)
}
