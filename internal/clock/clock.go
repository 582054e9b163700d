/* Package clock provides a skew-corrected time source.

The browser clock on a voter's machine cannot be trusted against the
server's schedule, so the countdown is derived from the server's notion of
"now".  Rather than asking the server every second, the clock records
skew = serverTime - localTime at each successful poll and advances locally
in between:

	now = local + skew

Skew is refreshed on every sync, so local drift is bounded by the polling
interval. */
package clock

import (
	"sync"
	"time"
)

type Clock struct {
	mu     sync.Mutex
	skew   time.Duration
	synced bool

	local func() time.Time
}

func New() *Clock {
	return &Clock{local: time.Now}
}

// NewAt returns a clock reading local time from fn, for tests.
func NewAt(fn func() time.Time) *Clock {
	if fn == nil {
		fn = time.Now
	}
	return &Clock{local: fn}
}

// Sync records the offset between the supplied server time and the local
// clock.  Call it with ServerTime from every successful status poll.
func (c *Clock) Sync(serverTime time.Time) {
	if serverTime.IsZero() {
		return
	}

	c.mu.Lock()
	c.skew = serverTime.Sub(c.local())
	c.synced = true
	c.mu.Unlock()
}

// Now returns the skew-corrected current time.  Before the first Sync it
// falls back to the plain local clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local().Add(c.skew)
}

// Synced reports whether at least one server time has been observed.
func (c *Clock) Synced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.synced
}

// Skew returns the last recorded server-minus-local offset.
func (c *Clock) Skew() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.skew
}

// NowFunc exposes Now as a function suitable for dependency injection.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}
