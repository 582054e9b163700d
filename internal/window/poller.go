/* Package window tracks the voting window: a repeating poll of the
server's status plus a once-per-second local re-derivation of the
countdown from the skew-corrected clock.

The poller is owned by whoever starts it: Run blocks until the context is
cancelled, and a poll that completes after cancellation is dropped rather
than applied.  Between overlapping requests no ordering is guaranteed; the
most recently completed response wins and the next poll self-corrects. */
package window

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pemira/evote/internal/clock"
	"github.com/pemira/evote/internal/models"
)

// StatusAPI is the one call the poller needs from the API client.
type StatusAPI interface {
	VotingStatus(ctx context.Context) (models.VotingStatus, error)
}

// ScheduleCache persists the last-known schedule so a freshly started
// process can show something before its first poll lands.
type ScheduleCache interface {
	SetCachedSchedule(st models.VotingStatus) error
}

// Snapshot is one consistent read of the poller's state.
type Snapshot struct {
	Phase        Phase
	Status       models.VotingStatus
	Countdown    time.Duration
	HasCountdown bool
	LastPoll     time.Time // local receipt time of the last successful poll
	LastErr      error     // most recent poll failure, nil after a success
}

// CountdownText renders the countdown, or the empty string when none
// applies in the current phase.
func (s Snapshot) CountdownText() string {
	if !s.HasCountdown {
		return ""
	}
	return FormatCountdown(s.Countdown)
}

type Poller struct {
	// Cache, when set, receives every successfully polled status.
	Cache ScheduleCache

	api      StatusAPI
	clock    *clock.Clock
	interval time.Duration
	tick     time.Duration

	mu     sync.Mutex
	snap   Snapshot
	polled bool
}

func NewPoller(api StatusAPI, clk *clock.Clock, interval time.Duration) *Poller {
	if clk == nil {
		clk = clock.New()
	}
	if interval < time.Second {
		interval = time.Second
	}

	return &Poller{
		api:      api,
		clock:    clk,
		interval: interval,
		tick:     time.Second,
	}
}

// Seed primes the snapshot from a cached schedule, marked as not yet
// polled so Phase stays honest about freshness once Run takes over.
func (p *Poller) Seed(st models.VotingStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.polled {
		return
	}
	phase, countdown, has := Derive(st, p.clock.Now())
	p.snap = Snapshot{Phase: phase, Status: st, Countdown: countdown, HasCountdown: has}
}

// Run polls immediately, then keeps polling every interval and re-deriving
// the countdown every second until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.poll(ctx)

	pollTicker := time.NewTicker(p.interval)
	defer pollTicker.Stop()
	deriveTicker := time.NewTicker(p.tick)
	defer deriveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.poll(ctx)
		case <-deriveTicker.C:
			p.rederive()
		}
	}
}

// Poll performs a single synchronous status fetch, outside of Run.  Used
// by one-shot commands that want a fresh status without a background task.
func (p *Poller) Poll(ctx context.Context) error {
	return p.poll(ctx)
}

func (p *Poller) poll(ctx context.Context) error {
	st, err := p.api.VotingStatus(ctx)

	// The owning view may have been torn down while the request was in
	// flight; a late completion must not touch the snapshot.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		// keep the previous snapshot; the next poll is the retry
		p.snap.LastErr = err
		slog.Debug("voting status poll failed", "err", err)
		return err
	}

	p.clock.Sync(st.ServerTime)

	phase, countdown, has := Derive(st, p.clock.Now())
	p.snap = Snapshot{
		Phase:        phase,
		Status:       st,
		Countdown:    countdown,
		HasCountdown: has,
		LastPoll:     time.Now(),
	}
	p.polled = true

	if p.Cache != nil {
		if err := p.Cache.SetCachedSchedule(st); err != nil {
			slog.Warn("could not cache voting schedule", "err", err)
		}
	}

	return nil
}

// rederive advances the countdown between polls using only the clock.
func (p *Poller) rederive() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.polled {
		return
	}

	phase, countdown, has := Derive(p.snap.Status, p.clock.Now())
	p.snap.Phase = phase
	p.snap.Countdown = countdown
	p.snap.HasCountdown = has
}

// Snapshot returns a copy of the current state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}
