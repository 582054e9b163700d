/* Package api is the gateway to the election REST API: one HTTP client,
one base URL, a method per endpoint.

There is no retry policy, no backoff and no circuit breaking here.  Reads
are retried implicitly by the next poll, and the vote submit is retried
only by an explicit user action.  Errors carry the server's message
payload when one was returned, retrievable with errors.Message. */
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pemira/evote/internal/errors"
	"github.com/pemira/evote/internal/models"
)

const maxResponseSize = 1 << 20 // 1 MB

type Client struct {
	base string
	http *http.Client
}

// New builds a client for the given base URL.  All requests made through
// it pass the TokenSource's bearer token along.
func New(baseURL string, tokens TokenSource) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}

	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &authTransport{
				next:   http.DefaultTransport,
				tokens: tokens,
			},
		},
	}
}

// errorPayload is the server's error body shape: {"message": "..."}.
type errorPayload struct {
	Message string `json:"message"`
}

func kindForStatus(status int) errors.Code {
	switch {
	case status == http.StatusBadRequest:
		return errors.KindBadRequest
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return errors.KindAuthError
	case status == http.StatusNotFound:
		return errors.KindNotFound
	case status == http.StatusConflict:
		return errors.KindConflict
	case status >= 500:
		return errors.KindServiceUnavailable
	default:
		return errors.KindUnexpected
	}
}

// do performs one JSON round trip.  body and out may be nil.
func (c *Client) do(ctx context.Context, op errors.Op, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return errors.E(op, err, "error encoding request body")
		}
		reqBody = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return errors.E(op, err, "error creating http request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.roundTrip(op, req, out)
}

func (c *Client) roundTrip(op errors.Op, req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.E(op, err, errors.KindServiceUnavailable, "error on http request to election API")
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return errors.E(op, err, errors.KindBadResponse, "error reading response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload errorPayload
		_ = json.Unmarshal(content, &payload)
		if payload.Message == "" {
			payload.Message = fmt.Sprintf("election API returned status %d %s", resp.StatusCode, resp.Status)
		}
		return errors.E(op, kindForStatus(resp.StatusCode), payload.Message)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(content, out); err != nil {
		return errors.E(op, err, errors.KindBadResponse, "error unmarshaling response from election API")
	}

	return nil
}

// Login exchanges credentials for a session.  The caller is responsible
// for persisting it before navigating anywhere guarded.
func (c *Client) Login(ctx context.Context, identifier, password string) (models.Session, error) {
	const op errors.Op = "api.Login"

	var sess models.Session
	err := c.do(ctx, op, http.MethodPost, "/api/auth/login",
		models.Credentials{Identifier: identifier, Password: password}, &sess)
	if err != nil {
		return models.Session{}, err
	}

	if !sess.LoggedIn() {
		return models.Session{}, errors.E(op, errors.KindBadResponse, "login response missing token or role")
	}

	return sess, nil
}

func (c *Client) Register(ctx context.Context, reg models.Registration) error {
	const op errors.Op = "api.Register"
	return c.do(ctx, op, http.MethodPost, "/api/auth/register", reg, nil)
}

func (c *Client) Me(ctx context.Context) (models.Profile, error) {
	const op errors.Op = "api.Me"

	var profile models.Profile
	err := c.do(ctx, op, http.MethodGet, "/api/auth/me", nil, &profile)
	return profile, err
}

func (c *Client) VotingStatus(ctx context.Context) (models.VotingStatus, error) {
	const op errors.Op = "api.VotingStatus"

	var st models.VotingStatus
	err := c.do(ctx, op, http.MethodGet, "/api/voting/status", nil, &st)
	return st, err
}

func (c *Client) OpenVoting(ctx context.Context) error {
	const op errors.Op = "api.OpenVoting"
	return c.do(ctx, op, http.MethodPost, "/api/voting/open", nil, nil)
}

func (c *Client) CloseVoting(ctx context.Context) error {
	const op errors.Op = "api.CloseVoting"
	return c.do(ctx, op, http.MethodPost, "/api/voting/close", nil, nil)
}

func (c *Client) ScheduleVoting(ctx context.Context, start, end time.Time) error {
	const op errors.Op = "api.ScheduleVoting"

	if !end.After(start) {
		return errors.E(op, errors.KindBadRequest, "voting end must be after voting start")
	}

	return c.do(ctx, op, http.MethodPost, "/api/voting/schedule",
		models.Schedule{VotingStart: start, VotingEnd: end}, nil)
}

func (c *Client) ClearSchedule(ctx context.Context) error {
	const op errors.Op = "api.ClearSchedule"
	return c.do(ctx, op, http.MethodPost, "/api/voting/clear-schedule", nil, nil)
}

func (c *Client) Candidates(ctx context.Context) ([]models.Candidate, error) {
	const op errors.Op = "api.Candidates"

	var candidates []models.Candidate
	err := c.do(ctx, op, http.MethodGet, "/api/candidates", nil, &candidates)
	return candidates, err
}

// AddCandidate posts a new candidate pair as multipart form data.  photo
// may be nil for a candidate without a photo.
func (c *Client) AddCandidate(ctx context.Context, cand models.Candidate, photo io.Reader, photoName string) (models.Candidate, error) {
	const op errors.Op = "api.AddCandidate"

	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)

	fields := map[string]string{
		"number":      strconv.Itoa(cand.Number),
		"name":        cand.Name,
		"vice":        cand.Vice,
		"description": cand.Description,
		"career":      cand.Career,
	}
	for field, value := range fields {
		if err := mw.WriteField(field, value); err != nil {
			return models.Candidate{}, errors.E(op, err, "error writing form field")
		}
	}

	if photo != nil {
		part, err := mw.CreateFormFile("photo", photoName)
		if err != nil {
			return models.Candidate{}, errors.E(op, err, "error creating photo part")
		}
		if _, err := io.Copy(part, photo); err != nil {
			return models.Candidate{}, errors.E(op, err, "error copying photo data")
		}
	}

	if err := mw.Close(); err != nil {
		return models.Candidate{}, errors.E(op, err, "error finalizing multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/candidates", buf)
	if err != nil {
		return models.Candidate{}, errors.E(op, err, "error creating http request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var created models.Candidate
	if err := c.roundTrip(op, req, &created); err != nil {
		return models.Candidate{}, err
	}
	return created, nil
}

func (c *Client) DeleteCandidate(ctx context.Context, id string) error {
	const op errors.Op = "api.DeleteCandidate"
	return c.do(ctx, op, http.MethodDelete, "/api/candidates/"+url.PathEscape(id), nil, nil)
}

// MyVote is the idempotency check: has this user already voted, and for
// whom.  userID is carried as a query parameter for wire compatibility;
// the server derives the real identity from the bearer token.
func (c *Client) MyVote(ctx context.Context, userID string) (models.VoteStatus, error) {
	const op errors.Op = "api.MyVote"

	path := "/api/votes/me"
	if userID != "" {
		path += "?userId=" + url.QueryEscape(userID)
	}

	var vs models.VoteStatus
	err := c.do(ctx, op, http.MethodGet, path, nil, &vs)
	return vs, err
}

// SubmitVote casts the one vote this user gets.  The server is the
// authoritative gate; a rejection comes back with its message intact.
func (c *Client) SubmitVote(ctx context.Context, candidateID string) error {
	const op errors.Op = "api.SubmitVote"

	body := struct {
		CandidateID string `json:"candidateId"`
	}{CandidateID: candidateID}

	return c.do(ctx, op, http.MethodPost, "/api/votes", body, nil)
}

func (c *Client) Results(ctx context.Context) ([]models.ResultRow, error) {
	const op errors.Op = "api.Results"

	var rows []models.ResultRow
	err := c.do(ctx, op, http.MethodGet, "/api/votes/results", nil, &rows)
	return rows, err
}

func (c *Client) AdminStats(ctx context.Context) (models.AdminStats, error) {
	const op errors.Op = "api.AdminStats"

	var stats models.AdminStats
	err := c.do(ctx, op, http.MethodGet, "/api/admin/stats", nil, &stats)
	return stats, err
}

func (c *Client) Voters(ctx context.Context) ([]models.Voter, error) {
	const op errors.Op = "api.Voters"

	var voters []models.Voter
	err := c.do(ctx, op, http.MethodGet, "/api/admin/voters", nil, &voters)
	return voters, err
}

func (c *Client) History(ctx context.Context) ([]models.ElectionArchive, error) {
	const op errors.Op = "api.History"

	var archives []models.ElectionArchive
	err := c.do(ctx, op, http.MethodGet, "/api/admin/history", nil, &archives)
	return archives, err
}

// ArchiveAndReset snapshots the finished election into history and resets
// candidates and votes for the next cycle.
func (c *Client) ArchiveAndReset(ctx context.Context) (models.ElectionArchive, error) {
	const op errors.Op = "api.ArchiveAndReset"

	var archive models.ElectionArchive
	err := c.do(ctx, op, http.MethodPost, "/api/admin/archive-and-reset", nil, &archive)
	return archive, err
}
