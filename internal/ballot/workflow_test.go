package ballot

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pemira/evote/internal/errors"
	"github.com/pemira/evote/internal/models"
)

const (
	testTimeout   = time.Second
	testPollEvery = 2 * time.Millisecond
)

var testCandidates = []models.Candidate{
	{ID: "cand-1", Number: 1, Name: "Budi Santoso", Vice: "Siti Rahma"},
	{ID: "cand-2", Number: 2, Name: "Citra Dewi", Vice: "Eko Prasetyo"},
}

// fakeAPI implements the API surface with programmable behavior.
type fakeAPI struct {
	status     models.VotingStatus
	candidates []models.Candidate
	myVote     models.VoteStatus
	submitErr  error

	submitCalls atomic.Int64
	submitGate  chan struct{} // when set, SubmitVote blocks until closed
}

func (f *fakeAPI) VotingStatus(ctx context.Context) (models.VotingStatus, error) {
	return f.status, nil
}

func (f *fakeAPI) Candidates(ctx context.Context) ([]models.Candidate, error) {
	return f.candidates, nil
}

func (f *fakeAPI) MyVote(ctx context.Context, userID string) (models.VoteStatus, error) {
	return f.myVote, nil
}

func (f *fakeAPI) SubmitVote(ctx context.Context, candidateID string) error {
	f.submitCalls.Add(1)
	if f.submitGate != nil {
		<-f.submitGate
	}
	return f.submitErr
}

func openAPI() *fakeAPI {
	return &fakeAPI{
		status:     models.VotingStatus{IsOpen: true},
		candidates: testCandidates,
	}
}

func TestLoadRedirectsWhenClosed(t *testing.T) {
	api := openAPI()
	api.status.IsOpen = false

	w := New(api, "u-1")
	err := w.Load(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.KindVotingClosed, errors.Kind(err))
	assert.Equal(t, StateLoading, w.State(), "no partial UI state after a closed-window load")
}

func TestLoadReady(t *testing.T) {
	w := New(openAPI(), "u-1")
	require.NoError(t, w.Load(context.Background()))

	assert.Equal(t, StateReady, w.State())
	assert.Len(t, w.Candidates(), 2)
	_, hasSelection := w.Selected()
	assert.False(t, hasSelection)
}

func TestAlreadyVotedPreselectsAndLocks(t *testing.T) {
	api := openAPI()
	api.myVote = models.VoteStatus{HasVoted: true, CandidateID: "cand-1"}

	w := New(api, "u-1")
	require.NoError(t, w.Load(context.Background()))

	// Budi pre-selected, controls disabled, and no POST /votes happens
	assert.Equal(t, StateSubmitted, w.State())
	selected, ok := w.Selected()
	require.True(t, ok)
	assert.Equal(t, "cand-1", selected)

	assert.Error(t, w.Select("cand-2"))
	assert.NoError(t, w.Submit(context.Background()), "submit on a locked workflow is a no-op")
	assert.Equal(t, int64(0), api.submitCalls.Load())
}

func TestIdempotentAcrossReloads(t *testing.T) {
	api := openAPI()
	api.myVote = models.VoteStatus{HasVoted: true, CandidateID: "cand-1"}

	w := New(api, "u-1")
	for i := 0; i < 5; i++ {
		require.NoError(t, w.Load(context.Background()))
		assert.Equal(t, StateSubmitted, w.State(), "reload %d re-enabled selection", i)
	}
}

func TestSelectionReversibleUntilSubmit(t *testing.T) {
	w := New(openAPI(), "u-1")
	require.NoError(t, w.Load(context.Background()))

	require.NoError(t, w.Select("cand-1"))
	require.NoError(t, w.Select("cand-2"))

	selected, _ := w.Selected()
	assert.Equal(t, "cand-2", selected)

	assert.Error(t, w.Select("nope"), "unknown candidate must not be selectable")
}

func TestSelectByNumber(t *testing.T) {
	w := New(openAPI(), "u-1")
	require.NoError(t, w.Load(context.Background()))

	require.NoError(t, w.SelectByNumber(2))
	selected, _ := w.Selected()
	assert.Equal(t, "cand-2", selected)

	assert.Error(t, w.SelectByNumber(9))
}

func TestSubmitWithoutSelection(t *testing.T) {
	w := New(openAPI(), "u-1")
	require.NoError(t, w.Load(context.Background()))

	err := w.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.KindBadRequest, errors.Kind(err))
}

func TestSubmitSuccessLocks(t *testing.T) {
	api := openAPI()
	w := New(api, "u-1")
	require.NoError(t, w.Load(context.Background()))
	require.NoError(t, w.Select("cand-1"))

	require.NoError(t, w.Submit(context.Background()))

	assert.True(t, w.Locked())
	assert.Equal(t, int64(1), api.submitCalls.Load())

	// and stays locked no matter how often submit fires again
	require.NoError(t, w.Submit(context.Background()))
	assert.Equal(t, int64(1), api.submitCalls.Load())
}

func TestSingleInFlightSubmit(t *testing.T) {
	api := openAPI()
	api.submitGate = make(chan struct{})

	w := New(api, "u-1")
	require.NoError(t, w.Load(context.Background()))
	require.NoError(t, w.Select("cand-1"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = w.Submit(context.Background())
	}()

	// wait until the first submit is holding the wire
	require.Eventually(t, func() bool {
		return w.State() == StateSubmitting
	}, testTimeout, testPollEvery)

	// two rapid re-triggers while the first is pending
	require.NoError(t, w.Submit(context.Background()))
	require.NoError(t, w.Submit(context.Background()))

	close(api.submitGate)
	wg.Wait()

	assert.Equal(t, int64(1), api.submitCalls.Load(), "exactly one POST /votes expected")
	assert.Equal(t, StateSubmitted, w.State())
}

func TestSubmitFailurePreservesSelectionAndMessage(t *testing.T) {
	api := openAPI()
	api.submitErr = errors.E(errors.Op("api.SubmitVote"), errors.KindConflict, "Anda sudah memilih")

	w := New(api, "u-1")
	require.NoError(t, w.Load(context.Background()))
	require.NoError(t, w.Select("cand-2"))

	err := w.Submit(context.Background())
	require.Error(t, err)

	// exact server text, selection visible, workflow retryable
	assert.Equal(t, "Anda sudah memilih", errors.Message(err))
	assert.Equal(t, "Anda sudah memilih", w.LastError())
	assert.Equal(t, StateReady, w.State())
	selected, ok := w.Selected()
	require.True(t, ok)
	assert.Equal(t, "cand-2", selected)

	// manual retry succeeds once the server lets it through
	api.submitErr = nil
	require.NoError(t, w.Submit(context.Background()))
	assert.True(t, w.Locked())
	assert.Empty(t, w.LastError())
}
