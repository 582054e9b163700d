package fakeapi

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pemira/evote/internal/errors"
	"github.com/pemira/evote/internal/models"
)

type user struct {
	ID           string
	Name         string
	NIM          string
	Role         models.Role
	PasswordHash []byte
	VotedFor     string // candidate ID, empty until the one vote is cast
}

/* store holds the whole election in memory behind one mutex.  It exists
to make the client's behavior testable end to end, so it enforces the
same business rules the production backend would: one vote per user, no
votes outside the window, archive-and-reset semantics. */
type store struct {
	mu sync.Mutex

	users      map[string]*user // keyed by NIM
	candidates []models.Candidate
	manualOpen bool
	start, end *time.Time
	history    []models.ElectionArchive

	now func() time.Time
}

func newStore(now func() time.Time) *store {
	if now == nil {
		now = time.Now
	}
	return &store{
		users: make(map[string]*user),
		now:   now,
	}
}

func (st *store) register(name, nim, password string, role models.Role) (*user, error) {
	const op errors.Op = "fakeapi.register"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.E(op, err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.users[nim]; exists {
		return nil, errors.E(op, errors.KindConflict, "NIM sudah terdaftar")
	}

	u := &user{
		ID:           uuid.NewString(),
		Name:         name,
		NIM:          nim,
		Role:         role,
		PasswordHash: hash,
	}
	st.users[nim] = u

	return u, nil
}

func (st *store) authenticate(nim, password string) (*user, error) {
	const op errors.Op = "fakeapi.authenticate"

	st.mu.Lock()
	u, exists := st.users[nim]
	st.mu.Unlock()

	if !exists {
		return nil, errors.E(op, errors.KindAuthError, "NIM atau password salah")
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, errors.E(op, errors.KindAuthError, "NIM atau password salah")
	}

	return u, nil
}

func (st *store) userByID(id string) (*user, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, u := range st.users {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}

// isOpenLocked decides the window state; the schedule takes precedence
// over the manual flag when one is set.
func (st *store) isOpenLocked(now time.Time) bool {
	if st.start != nil && st.end != nil {
		return !now.Before(*st.start) && now.Before(*st.end)
	}
	return st.manualOpen
}

func (st *store) status() models.VotingStatus {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	return models.VotingStatus{
		IsOpen:      st.isOpenLocked(now),
		VotingStart: st.start,
		VotingEnd:   st.end,
		ServerTime:  now,
	}
}

func (st *store) openVoting() {
	st.mu.Lock()
	st.manualOpen = true
	st.start, st.end = nil, nil
	st.mu.Unlock()
}

func (st *store) closeVoting() {
	st.mu.Lock()
	st.manualOpen = false
	st.start, st.end = nil, nil
	st.mu.Unlock()
}

func (st *store) schedule(start, end time.Time) error {
	const op errors.Op = "fakeapi.schedule"

	if !end.After(start) {
		return errors.E(op, errors.KindBadRequest, "Jadwal tidak valid")
	}

	st.mu.Lock()
	st.start, st.end = &start, &end
	st.mu.Unlock()
	return nil
}

func (st *store) clearSchedule() {
	st.mu.Lock()
	st.start, st.end = nil, nil
	st.mu.Unlock()
}

func (st *store) listCandidates() []models.Candidate {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]models.Candidate, len(st.candidates))
	copy(out, st.candidates)
	return out
}

func (st *store) addCandidate(c models.Candidate) models.Candidate {
	st.mu.Lock()
	defer st.mu.Unlock()

	c.ID = uuid.NewString()
	if c.Number == 0 {
		c.Number = len(st.candidates) + 1
	}
	st.candidates = append(st.candidates, c)
	return c
}

func (st *store) deleteCandidate(id string) error {
	const op errors.Op = "fakeapi.deleteCandidate"

	st.mu.Lock()
	defer st.mu.Unlock()

	for i, c := range st.candidates {
		if c.ID == id {
			st.candidates = append(st.candidates[:i], st.candidates[i+1:]...)
			return nil
		}
	}
	return errors.E(op, errors.KindNotFound, "Kandidat tidak ditemukan")
}

// vote enforces the real rules: window open, known candidate, one vote
// per user ever.
func (st *store) vote(userID, candidateID string) error {
	const op errors.Op = "fakeapi.vote"

	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.isOpenLocked(st.now()) {
		return errors.E(op, errors.KindVotingClosed, "Voting belum dibuka")
	}

	var u *user
	for _, candidate := range st.users {
		if candidate.ID == userID {
			u = candidate
			break
		}
	}
	if u == nil {
		return errors.E(op, errors.KindAuthError, "Token tidak valid")
	}
	if u.VotedFor != "" {
		return errors.E(op, errors.KindConflict, "Anda sudah memilih")
	}

	found := false
	for _, c := range st.candidates {
		if c.ID == candidateID {
			found = true
			break
		}
	}
	if !found {
		return errors.E(op, errors.KindNotFound, "Kandidat tidak ditemukan")
	}

	u.VotedFor = candidateID
	return nil
}

func (st *store) voteStatus(userID string) models.VoteStatus {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, u := range st.users {
		if u.ID == userID && u.VotedFor != "" {
			return models.VoteStatus{HasVoted: true, CandidateID: u.VotedFor}
		}
	}
	return models.VoteStatus{}
}

// resultsLocked tallies votes per candidate, sorted by votes descending
// with name as the tiebreak.
func (st *store) resultsLocked() []models.ResultRow {
	counts := make(map[string]int)
	total := 0
	for _, u := range st.users {
		if u.VotedFor != "" {
			counts[u.VotedFor]++
			total++
		}
	}

	rows := make([]models.ResultRow, 0, len(st.candidates))
	for _, c := range st.candidates {
		votes := counts[c.ID]
		percent := 0.0
		if total > 0 {
			percent = float64(votes) / float64(total) * 100
		}
		rows = append(rows, models.ResultRow{
			Name:       c.Name,
			Vice:       c.Vice,
			TotalVotes: votes,
			Percent:    percent,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalVotes == rows[j].TotalVotes {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].TotalVotes > rows[j].TotalVotes
	})

	return rows
}

func (st *store) results() []models.ResultRow {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.resultsLocked()
}

func (st *store) stats() models.AdminStats {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.statsLocked()
}

func (st *store) statsLocked() models.AdminStats {
	voters, votes := 0, 0
	for _, u := range st.users {
		if u.Role != models.RoleUser {
			continue
		}
		voters++
		if u.VotedFor != "" {
			votes++
		}
	}

	participation := 0.0
	if voters > 0 {
		participation = float64(votes) / float64(voters) * 100
	}

	return models.AdminStats{
		TotalVoters:     voters,
		TotalVotes:      votes,
		TotalCandidates: len(st.candidates),
		Participation:   participation,
	}
}

func (st *store) voters() []models.Voter {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]models.Voter, 0, len(st.users))
	for _, u := range st.users {
		if u.Role != models.RoleUser {
			continue
		}
		out = append(out, models.Voter{
			ID:       u.ID,
			Name:     u.Name,
			NIM:      u.NIM,
			HasVoted: u.VotedFor != "",
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].NIM < out[j].NIM })
	return out
}

func (st *store) listHistory() []models.ElectionArchive {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]models.ElectionArchive, len(st.history))
	copy(out, st.history)
	return out
}

// archiveAndReset snapshots the finished cycle into history, then clears
// candidates and everyone's vote.  Accounts survive the reset.
func (st *store) archiveAndReset() models.ElectionArchive {
	st.mu.Lock()
	defer st.mu.Unlock()

	stats := st.statsLocked()
	archive := models.ElectionArchive{
		ID:          uuid.NewString(),
		ArchivedAt:  st.now(),
		TotalVoters: stats.TotalVoters,
		TotalVotes:  stats.TotalVotes,
		Results:     st.resultsLocked(),
	}
	st.history = append(st.history, archive)

	st.candidates = nil
	st.manualOpen = false
	st.start, st.end = nil, nil
	for _, u := range st.users {
		u.VotedFor = ""
	}

	return archive
}
