package models

import "time"

// Role is the access level the server assigned at login time.  The client
// never decides roles itself; it only caches what the server said.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

/* Session is the locally cached proof of authentication: the bearer token
and the role it was issued for.  It is created at login, destroyed at
logout or when the token no longer decodes, and is never authoritative --
the server re-checks the token on every request.

The zero Session represents "not logged in". */
type Session struct {
	// example: eyJhbGciOiJIUzI1NiIs...
	Token string `json:"token"`
	// example: user
	Role Role `json:"role"`
}

func (s Session) LoggedIn() bool {
	return s.Token != "" && s.Role.Valid()
}

func (s Session) IsAdmin() bool {
	return s.LoggedIn() && s.Role == RoleAdmin
}

// Credentials is the login request body.
type Credentials struct {
	// example: 230104050
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Registration is the account-creation request body.  NIM is the student
// identification number used as the login identifier.
type Registration struct {
	Name     string `json:"name"`
	NIM      string `json:"nim"`
	Password string `json:"password"`
}

type Profile struct {
	Name string `json:"name"`
	NIM  string `json:"nim"`
}

// Candidate is a paslon: a chair and vice-chair pair running together.
// Read-only from the voter's perspective.
type Candidate struct {
	ID string `json:"id"`
	// example: 1
	Number int `json:"number"`
	// example: Budi Santoso
	Name string `json:"name"`
	// example: Siti Rahma
	Vice        string `json:"vice"`
	Photo       string `json:"photo,omitempty"`
	Description string `json:"description,omitempty"`
	Career      string `json:"career,omitempty"`
}

/* VotingStatus is the server's view of the voting window.  IsOpen is
authoritative only from the server; anything the client derives between
polls is a best-effort projection.  Start and End are nil when no schedule
is set (manually opened/closed voting).  Timestamps are RFC 3339 with an
explicit offset; any other wire format is rejected. */
type VotingStatus struct {
	IsOpen      bool       `json:"isOpen"`
	VotingStart *time.Time `json:"votingStart"`
	VotingEnd   *time.Time `json:"votingEnd"`
	ServerTime  time.Time  `json:"serverTime"`
}

func (vs VotingStatus) Scheduled() bool {
	return vs.VotingStart != nil && vs.VotingEnd != nil
}

// Schedule is the admin request to set the voting window boundaries.
type Schedule struct {
	VotingStart time.Time `json:"votingStart"`
	VotingEnd   time.Time `json:"votingEnd"`
}

// VoteStatus reports whether the authenticated user has already voted,
// and for whom.  The client treats HasVoted as a terminal state it
// re-derives from the server on every load.
type VoteStatus struct {
	HasVoted    bool   `json:"hasVoted"`
	CandidateID string `json:"candidateId,omitempty"`
}

// ResultRow is one already-aggregated tally line.  The client renders
// these numbers exactly as received and never recomputes them.
type ResultRow struct {
	Name       string  `json:"name"`
	Vice       string  `json:"vice"`
	TotalVotes int     `json:"total_votes"`
	Percent    float64 `json:"percent"`
}

type Voter struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	NIM      string `json:"nim"`
	HasVoted bool   `json:"hasVoted"`
}

type AdminStats struct {
	TotalVoters     int `json:"totalVoters"`
	TotalVotes      int `json:"totalVotes"`
	TotalCandidates int `json:"totalCandidates"`
	// Participation is TotalVotes/TotalVoters as a percentage, computed
	// server-side.
	Participation float64 `json:"participation"`
}

// ElectionArchive is a snapshot of one finished election cycle, produced
// by the archive-and-reset admin action.
type ElectionArchive struct {
	ID          string      `json:"id"`
	ArchivedAt  time.Time   `json:"archivedAt"`
	TotalVoters int         `json:"totalVoters"`
	TotalVotes  int         `json:"totalVotes"`
	Results     []ResultRow `json:"results"`
}
