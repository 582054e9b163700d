package window

import (
	"fmt"
	"time"

	"github.com/pemira/evote/internal/models"
)

// Phase is the client's projection of where the voting window stands.
// Display-only: the server's response to the actual submit call is the
// authoritative gate, never this.
type Phase int

const (
	// PhaseUnknown means no status poll has succeeded yet.
	PhaseUnknown Phase = iota
	// PhaseClosed means voting is closed with no schedule in sight.
	PhaseClosed
	// PhasePendingOpen means a schedule exists and the window has not
	// opened yet; the countdown runs toward the start.
	PhasePendingOpen
	// PhaseOpen means voting is open without a known end (unscheduled).
	PhaseOpen
	// PhasePendingClose means voting is open and the countdown runs
	// toward the scheduled end.
	PhasePendingClose
	// PhaseEnded means the scheduled end has passed.
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhasePendingOpen:
		return "pending-open"
	case PhaseOpen:
		return "open"
	case PhasePendingClose:
		return "closing"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Votable reports whether the voting page may be entered in this phase.
func (p Phase) Votable() bool {
	return p == PhaseOpen || p == PhasePendingClose
}

/* Derive projects a phase and countdown from a server status and the
skew-corrected "now".  Rules, in order:

  - before the scheduled start: pending-open, counting down to start
  - open and before the scheduled end: counting down to close
  - a scheduled end has passed: ended
  - otherwise the raw isOpen flag decides, with no countdown

The returned bool reports whether a countdown applies at all. */
func Derive(st models.VotingStatus, now time.Time) (Phase, time.Duration, bool) {
	if st.VotingStart != nil && now.Before(*st.VotingStart) {
		return PhasePendingOpen, st.VotingStart.Sub(now), true
	}

	if st.IsOpen && st.VotingEnd != nil && now.Before(*st.VotingEnd) {
		return PhasePendingClose, st.VotingEnd.Sub(now), true
	}

	if st.VotingEnd != nil && !now.Before(*st.VotingEnd) {
		return PhaseEnded, 0, false
	}

	if st.IsOpen {
		return PhaseOpen, 0, false
	}

	return PhaseClosed, 0, false
}

// FormatCountdown renders a remaining duration as zero-padded HH:MM:SS.
// Negative remainders clamp to 00:00:00; hours do not wrap at 24.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	total := int(d / time.Second)
	h := total / 3600
	m := (total / 60) % 60
	s := total % 60

	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
