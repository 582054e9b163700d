package window

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pemira/evote/internal/clock"
	"github.com/pemira/evote/internal/models"
)

type fakeStatusAPI struct {
	mu     sync.Mutex
	status models.VotingStatus
	err    error
	calls  atomic.Int64
}

func (f *fakeStatusAPI) VotingStatus(ctx context.Context) (models.VotingStatus, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.err
}

func (f *fakeStatusAPI) set(st models.VotingStatus, err error) {
	f.mu.Lock()
	f.status = st
	f.err = err
	f.mu.Unlock()
}

type recordingCache struct {
	mu   sync.Mutex
	last models.VotingStatus
	seen int
}

func (c *recordingCache) SetCachedSchedule(st models.VotingStatus) error {
	c.mu.Lock()
	c.last = st
	c.seen++
	c.mu.Unlock()
	return nil
}

func openStatus(serverTime time.Time) models.VotingStatus {
	start := serverTime.Add(-time.Hour)
	end := serverTime.Add(time.Hour)
	return models.VotingStatus{
		IsOpen:      true,
		VotingStart: &start,
		VotingEnd:   &end,
		ServerTime:  serverTime,
	}
}

func TestPollUpdatesSnapshotAndCache(t *testing.T) {
	serverTime := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeStatusAPI{}
	api.set(openStatus(serverTime), nil)

	local := serverTime.Add(-42 * time.Second) // local clock lags the server
	clk := clock.NewAt(func() time.Time { return local })

	cache := &recordingCache{}
	p := NewPoller(api, clk, time.Hour)
	p.Cache = cache

	require.NoError(t, p.Poll(context.Background()))

	snap := p.Snapshot()
	assert.Equal(t, PhasePendingClose, snap.Phase)
	assert.True(t, snap.HasCountdown)
	// the countdown must come from the skew-corrected clock, not local time
	assert.Equal(t, time.Hour, snap.Countdown)
	assert.NoError(t, snap.LastErr)

	cache.mu.Lock()
	defer cache.mu.Unlock()
	assert.Equal(t, 1, cache.seen)
	assert.True(t, cache.last.IsOpen)
}

func TestPollFailureKeepsPreviousSnapshot(t *testing.T) {
	serverTime := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeStatusAPI{}
	api.set(openStatus(serverTime), nil)

	clk := clock.NewAt(func() time.Time { return serverTime })
	p := NewPoller(api, clk, time.Hour)

	require.NoError(t, p.Poll(context.Background()))
	before := p.Snapshot()

	api.set(models.VotingStatus{}, fmt.Errorf("boom"))
	require.Error(t, p.Poll(context.Background()))

	after := p.Snapshot()
	assert.Equal(t, before.Phase, after.Phase)
	assert.Equal(t, before.Status, after.Status)
	assert.Error(t, after.LastErr)
}

func TestLatePollAfterCancelIsDropped(t *testing.T) {
	serverTime := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeStatusAPI{}
	api.set(openStatus(serverTime), nil)

	clk := clock.NewAt(func() time.Time { return serverTime })
	p := NewPoller(api, clk, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Poll(ctx)
	require.Error(t, err)

	snap := p.Snapshot()
	assert.Equal(t, PhaseUnknown, snap.Phase, "cancelled poll must not apply its result")
}

func TestCountdownTicksDownBetweenPolls(t *testing.T) {
	serverTime := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeStatusAPI{}
	api.set(openStatus(serverTime), nil)

	var mu sync.Mutex
	local := serverTime
	clk := clock.NewAt(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return local
	})

	p := NewPoller(api, clk, time.Hour)
	require.NoError(t, p.Poll(context.Background()))
	first := p.Snapshot().Countdown

	// local seconds pass without a poll
	mu.Lock()
	local = local.Add(3 * time.Second)
	mu.Unlock()
	p.rederive()

	second := p.Snapshot().Countdown
	assert.Equal(t, first-3*time.Second, second)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	serverTime := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeStatusAPI{}
	api.set(openStatus(serverTime), nil)

	p := NewPoller(api, clock.NewAt(func() time.Time { return serverTime }), time.Second)
	p.tick = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// let the initial poll land
	assert.Eventually(t, func() bool {
		return p.Snapshot().Phase == PhasePendingClose
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	calls := api.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, api.calls.Load(), "poller kept fetching after teardown")
}

func TestSeedFromCachedSchedule(t *testing.T) {
	serverTime := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewAt(func() time.Time { return serverTime })

	p := NewPoller(&fakeStatusAPI{}, clk, time.Hour)
	p.Seed(openStatus(serverTime))

	snap := p.Snapshot()
	assert.Equal(t, PhasePendingClose, snap.Phase)
	assert.True(t, snap.LastPoll.IsZero(), "seeded state must not claim a poll happened")
}
