package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/zone-explorer/internal/queue"
)

type prizeFixture struct {
	visits  *fakeVisitStore
	entries *fakePrizeStore
	pub     *recordingPublisher
	svc     *PrizeService
}

func newPrizeFixture(opts ...PrizeOption) prizeFixture {
	f := prizeFixture{visits: &fakeVisitStore{}, entries: &fakePrizeStore{}, pub: &recordingPublisher{}}
	zones := twoZones()
	opts = append([]PrizeOption{WithPrizePublisher(f.pub)}, opts...)
	f.svc = NewPrizeService(f.entries, f.visits, NewProgressService(f.visits, zones), zones, newStepClock(), opts...)
	return f
}

func (f prizeFixture) complete(visitorID string) {
	f.visits.add(visitorID, "zoneA", t0)
	f.visits.add(visitorID, "zoneB", t0.Add(time.Minute))
}

func TestPrize_Register(t *testing.T) {
	f := newPrizeFixture()
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Register(ctx, " "), ErrVisitorRequired)

	f.visits.add("half@example.com", "zoneA", t0)
	assert.ErrorIs(t, f.svc.Register(ctx, "half@example.com"), ErrNotComplete)

	f.complete("done@example.com")
	require.NoError(t, f.svc.Register(ctx, "Done@Example.com"))
	assert.ErrorIs(t, f.svc.Register(ctx, "done@example.com"), ErrAlreadyEntered)

	entered, err := f.svc.AlreadyEntered(ctx, "DONE@example.com")
	require.NoError(t, err)
	assert.True(t, entered)

	entries, err := f.svc.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "done@example.com", entries[0].VisitorID)
	assert.Equal(t, "done@example.com", entries[0].Email)
	assert.True(t, entries[0].CreatedAt.Equal(t0))

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, queue.EventPrizeEntered, f.pub.events[0].Type)
}

func TestPrize_EnterNormalizesVisitor(t *testing.T) {
	f := newPrizeFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.Enter(ctx, " Alice@Example.com ", "Alice@Example.com"))
	assert.ErrorIs(t, f.svc.Enter(ctx, "  ", "x@example.com"), ErrVisitorRequired)

	entered, err := f.svc.AlreadyEntered(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.True(t, entered)

	entries, err := f.svc.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice@example.com", entries[0].VisitorID)
	assert.Equal(t, "alice@example.com", entries[0].Email)

	res, err := f.svc.ResetVisitor(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Entries)

	entries, err = f.svc.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = f.svc.DrawWinner(ctx)
	assert.ErrorIs(t, err, ErrNoEligibleEntries)
}

func TestPrize_DrawNeverPicksIncompleteVisitor(t *testing.T) {
	f := newPrizeFixture()
	ctx := context.Background()

	f.complete("a")
	f.visits.add("b", "zoneA", t0)
	require.NoError(t, f.svc.Enter(ctx, "a", "a@example.com"))
	// raw entries bypass eligibility; the draw filters them
	require.NoError(t, f.svc.Enter(ctx, "b", "b@example.com"))

	for i := 0; i < 50; i++ {
		winner, err := f.svc.DrawWinner(ctx)
		require.NoError(t, err)
		assert.Equal(t, "a", winner.VisitorID)
	}
}

func TestPrize_DrawDedupesVisitors(t *testing.T) {
	var sizes []int
	f := newPrizeFixture(WithRandom(func(n int) int {
		sizes = append(sizes, n)
		return n - 1
	}))
	ctx := context.Background()

	f.complete("a")
	f.complete("b")
	require.NoError(t, f.svc.Enter(ctx, "a", "a@example.com"))
	require.NoError(t, f.svc.Enter(ctx, "a", "a@example.com"))
	require.NoError(t, f.svc.Enter(ctx, "b", "b@example.com"))

	eligible, err := f.svc.EligibleEntries(ctx)
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, "a", eligible[0].VisitorID)
	assert.Equal(t, "b", eligible[1].VisitorID)

	winner, err := f.svc.DrawWinner(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", winner.VisitorID)
	assert.Equal(t, []int{2}, sizes)

	last := f.pub.events[len(f.pub.events)-1]
	assert.Equal(t, queue.EventWinnerDrawn, last.Type)
	assert.Equal(t, "b", last.VisitorID)
}

func TestPrize_DrawWithoutEligibleEntries(t *testing.T) {
	f := newPrizeFixture()
	ctx := context.Background()

	_, err := f.svc.DrawWinner(ctx)
	assert.ErrorIs(t, err, ErrNoEligibleEntries)

	f.visits.add("b", "zoneA", t0)
	f.visits.add("b", "retired", t0)
	require.NoError(t, f.svc.Enter(ctx, "b", "b@example.com"))
	_, err = f.svc.DrawWinner(ctx)
	assert.ErrorIs(t, err, ErrNoEligibleEntries)
}

type recordingTx struct {
	calls int
	err   error
}

func (r *recordingTx) WithTx(ctx context.Context, fn func(context.Context) error) error {
	r.calls++
	if err := fn(ctx); err != nil {
		return err
	}
	return r.err
}

func TestPrize_ResetVisitor(t *testing.T) {
	tx := &recordingTx{}
	f := newPrizeFixture(WithTxRunner(tx))
	ctx := context.Background()

	f.complete("x")
	f.complete("y")
	require.NoError(t, f.svc.Register(ctx, "x"))

	res, err := f.svc.ResetVisitor(ctx, " X ")
	require.NoError(t, err)
	assert.Equal(t, ResetResult{Visits: 2, Entries: 1}, res)
	assert.Equal(t, 1, tx.calls)

	p, err := f.svc.progress.Progress(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stats.TotalVisits)
	assert.Equal(t, 0, p.Stats.UniqueZones)
	assert.False(t, p.Complete)

	entered, err := f.svc.AlreadyEntered(ctx, "x")
	require.NoError(t, err)
	assert.False(t, entered)

	// other visitors are untouched
	assert.Equal(t, 2, f.visits.len())

	_, err = f.svc.ResetVisitor(ctx, "")
	assert.ErrorIs(t, err, ErrVisitorRequired)
}

func TestPrize_ResetVisitorTxError(t *testing.T) {
	errCommit := errors.New("commit failed")
	f := newPrizeFixture(WithTxRunner(&recordingTx{err: errCommit}))

	_, err := f.svc.ResetVisitor(context.Background(), "x")
	assert.ErrorIs(t, err, errCommit)
}
