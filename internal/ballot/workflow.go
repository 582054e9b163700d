/* Package ballot drives the voting page's one-shot workflow:

	Loading -> Ready -> Submitting -> Submitted (locked)

Selection is freely reversible until a submit starts.  Once the server
accepts a vote the workflow locks for good; failure returns it to Ready
with the selection preserved so the user can retry by hand.

The lock is a courtesy, not the guarantee.  The server enforces one vote
per user; the workflow re-derives "already voted" from the server on every
load, which is what makes reloading the page after a vote safe. */
package ballot

import (
	"context"
	"sync"

	"github.com/pemira/evote/internal/errors"
	"github.com/pemira/evote/internal/models"
)

type State int

const (
	StateLoading State = iota
	StateReady
	StateSubmitting
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	default:
		return "loading"
	}
}

// API is the slice of the gateway client the workflow needs.
type API interface {
	VotingStatus(ctx context.Context) (models.VotingStatus, error)
	Candidates(ctx context.Context) ([]models.Candidate, error)
	MyVote(ctx context.Context, userID string) (models.VoteStatus, error)
	SubmitVote(ctx context.Context, candidateID string) error
}

type Workflow struct {
	api    API
	userID string

	mu         sync.Mutex
	state      State
	candidates []models.Candidate
	selected   string
	lastErr    string
}

func New(api API, userID string) *Workflow {
	return &Workflow{api: api, userID: userID, state: StateLoading}
}

/* Load is the entry guard plus initial fetch.  If the window is not open
it fails before any candidate data is shown, and the caller redirects
away.  If the server reports the user has already voted, the workflow
lands directly in Submitted with that candidate pre-selected. */
func (w *Workflow) Load(ctx context.Context) error {
	const op errors.Op = "ballot.Load"

	st, err := w.api.VotingStatus(ctx)
	if err != nil {
		return errors.E(op, err)
	}
	if !st.IsOpen {
		return errors.E(op, errors.KindVotingClosed, "voting is not open")
	}

	candidates, err := w.api.Candidates(ctx)
	if err != nil {
		return errors.E(op, err, "error loading candidates")
	}

	vote, err := w.api.MyVote(ctx, w.userID)
	if err != nil {
		return errors.E(op, err, "error checking vote status")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.candidates = candidates
	if vote.HasVoted {
		w.state = StateSubmitted
		w.selected = vote.CandidateID
	} else {
		w.state = StateReady
		w.selected = ""
	}

	return nil
}

// Select picks (or re-picks) a candidate.  Allowed only while Ready;
// once a submit is in flight or accepted the selection is frozen.
func (w *Workflow) Select(candidateID string) error {
	const op errors.Op = "ballot.Select"

	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateLoading:
		return errors.E(op, errors.KindBadRequest, "candidates not loaded yet")
	case StateSubmitting:
		return errors.E(op, errors.KindConflict, "submission in progress")
	case StateSubmitted:
		return errors.E(op, errors.KindConflict, "vote already cast")
	}

	for _, c := range w.candidates {
		if c.ID == candidateID {
			w.selected = candidateID
			w.lastErr = ""
			return nil
		}
	}

	return errors.E(op, errors.KindNotFound, "unknown candidate")
}

// SelectByNumber resolves a paslon number to its candidate and selects it.
func (w *Workflow) SelectByNumber(number int) error {
	const op errors.Op = "ballot.SelectByNumber"

	w.mu.Lock()
	var id string
	for _, c := range w.candidates {
		if c.Number == number {
			id = c.ID
			break
		}
	}
	w.mu.Unlock()

	if id == "" {
		return errors.E(op, errors.KindNotFound, "no candidate with that number")
	}
	return w.Select(id)
}

/* Submit dispatches the vote exactly once.  A second trigger while one
request is pending, or after a success, is a silent no-op: the UI treats
rapid double-clicks and re-renders as noise, not errors.

On failure the workflow returns to Ready with the selection intact and
the server's message recorded, and the error is returned for display. */
func (w *Workflow) Submit(ctx context.Context) error {
	const op errors.Op = "ballot.Submit"

	w.mu.Lock()
	if w.state == StateSubmitting || w.state == StateSubmitted {
		w.mu.Unlock()
		return nil
	}
	if w.state != StateReady || w.selected == "" {
		w.mu.Unlock()
		return errors.E(op, errors.KindBadRequest, "no candidate selected")
	}
	candidateID := w.selected
	w.state = StateSubmitting
	w.mu.Unlock()

	err := w.api.SubmitVote(ctx, candidateID)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.state = StateReady
		w.lastErr = errors.Message(err)
		return errors.E(op, err)
	}

	w.state = StateSubmitted
	w.lastErr = ""
	return nil
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Selected returns the current selection and whether one exists.
func (w *Workflow) Selected() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selected, w.selected != ""
}

// Candidates returns the loaded candidate list.
func (w *Workflow) Candidates() []models.Candidate {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.Candidate, len(w.candidates))
	copy(out, w.candidates)
	return out
}

// LastError returns the server message from the most recent failed
// submit, empty after a success or a fresh selection.
func (w *Workflow) LastError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Locked reports whether the vote is cast and the workflow is terminal.
func (w *Workflow) Locked() bool {
	return w.State() == StateSubmitted
}
