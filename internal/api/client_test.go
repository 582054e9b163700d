package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pemira/evote/internal/errors"
	"github.com/pemira/evote/internal/models"
)

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(models.Profile{Name: "Andi", NIM: "230104050"})
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("tok-123"))
	_, err := c.Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestAnonymousRequestHasNoHeader(t *testing.T) {
	var gotAuth string
	var hasHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, hasHeader = r.Header["Authorization"]
		_ = json.NewEncoder(w).Encode(models.Session{Token: "t", Role: models.RoleUser})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.Login(context.Background(), "230104050", "secret")
	require.NoError(t, err)

	assert.False(t, hasHeader, "anonymous request carried header %q", gotAuth)
}

func TestServerErrorMessageSurfacedVerbatim(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		expectedKind errors.Code
		expectedMsg  string
	}{
		{
			name:         "already voted",
			status:       http.StatusConflict,
			body:         `{"message":"Anda sudah memilih"}`,
			expectedKind: errors.KindConflict,
			expectedMsg:  "Anda sudah memilih",
		},
		{
			name:         "voting closed",
			status:       http.StatusForbidden,
			body:         `{"message":"Voting belum dibuka"}`,
			expectedKind: errors.KindAuthError,
			expectedMsg:  "Voting belum dibuka",
		},
		{
			name:         "unauthenticated",
			status:       http.StatusUnauthorized,
			body:         `{"message":"Token tidak valid"}`,
			expectedKind: errors.KindAuthError,
			expectedMsg:  "Token tidak valid",
		},
		{
			name:         "server failure without payload",
			status:       http.StatusInternalServerError,
			body:         "",
			expectedKind: errors.KindServiceUnavailable,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.body))
			}))
			defer srv.Close()

			c := New(srv.URL, StaticToken("tok"))
			err := c.SubmitVote(context.Background(), "cand-1")

			require.Error(t, err)
			assert.Equal(t, test.expectedKind, errors.Kind(err))
			if test.expectedMsg != "" {
				assert.Equal(t, test.expectedMsg, errors.Message(err))
			}
		})
	}
}

func TestResultsDecodedExactly(t *testing.T) {
	payload := `[{"name":"Budi Santoso","vice":"Siti Rahma","total_votes":42,"percent":60.87},
		{"name":"Citra Dewi","vice":"Eko Prasetyo","total_votes":27,"percent":39.13}]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/votes/results", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("tok"))
	rows, err := c.Results(context.Background())
	require.NoError(t, err)

	// rendered values must equal the server's numbers, no recomputation
	require.Len(t, rows, 2)
	assert.Equal(t, 42, rows[0].TotalVotes)
	assert.Equal(t, 60.87, rows[0].Percent)
	assert.Equal(t, "Citra Dewi", rows[1].Name)
	assert.Equal(t, 39.13, rows[1].Percent)
}

func TestMyVoteQueryParameter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/votes/me", r.URL.Path)
		assert.Equal(t, "u-17", r.URL.Query().Get("userId"))
		_ = json.NewEncoder(w).Encode(models.VoteStatus{HasVoted: true, CandidateID: "cand-2"})
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("tok"))
	vs, err := c.MyVote(context.Background(), "u-17")
	require.NoError(t, err)

	assert.True(t, vs.HasVoted)
	assert.Equal(t, "cand-2", vs.CandidateID)
}

func TestVotingStatusRejectsNonRFC3339(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// space-separated timestamps were a defect in the old frontend;
		// the client does not accommodate them
		_, _ = w.Write([]byte(`{"isOpen":true,"votingStart":"2026-09-01 08:00:00","votingEnd":null,"serverTime":"2026-09-01T09:00:00Z"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("tok"))
	_, err := c.VotingStatus(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.KindBadResponse, errors.Kind(err))
}

func TestScheduleVotingValidatesWindow(t *testing.T) {
	c := New("http://unused", StaticToken("tok"))

	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	err := c.ScheduleVoting(context.Background(), start, start)

	require.Error(t, err)
	assert.Equal(t, errors.KindBadRequest, errors.Kind(err))
}

func TestServiceUnavailableOnConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := New(srv.URL, StaticToken("tok"))
	_, err := c.Candidates(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.KindServiceUnavailable, errors.Kind(err))
}
