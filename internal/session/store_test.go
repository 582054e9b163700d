package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pemira/evote/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func TestEmptyStore(t *testing.T) {
	st := newTestStore(t)

	_, ok, err := st.Session()
	require.NoError(t, err)
	assert.False(t, ok)

	token, err := st.BearerToken()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestSessionRoundTrip(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.SetSession(models.Session{Token: "user-tok", Role: models.RoleUser}))

	sess, ok, err := st.SessionFor(models.RoleUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "user-tok", sess.Token)
	assert.Equal(t, models.RoleUser, sess.Role)

	_, ok, err = st.SessionFor(models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, ok, "user login must not populate the admin slot")
}

func TestAdminTokenTakesPrecedence(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.SetSession(models.Session{Token: "user-tok", Role: models.RoleUser}))
	require.NoError(t, st.SetSession(models.Session{Token: "admin-tok", Role: models.RoleAdmin}))

	sess, ok, err := st.Session()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.RoleAdmin, sess.Role)

	token, err := st.BearerToken()
	require.NoError(t, err)
	assert.Equal(t, "admin-tok", token)
}

func TestSetSessionRejectsEmpty(t *testing.T) {
	st := newTestStore(t)

	assert.Error(t, st.SetSession(models.Session{}))
	assert.Error(t, st.SetSession(models.Session{Token: "tok", Role: "superuser"}))
}

func TestClearWipesEverything(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.SetSession(models.Session{Token: "user-tok", Role: models.RoleUser}))
	require.NoError(t, st.SetCachedSchedule(models.VotingStatus{IsOpen: true}))

	require.NoError(t, st.Clear())

	_, ok, err := st.Session()
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = st.CachedSchedule()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachedScheduleRoundTrip(t *testing.T) {
	st := newTestStore(t)

	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)
	in := models.VotingStatus{
		IsOpen:      true,
		VotingStart: &start,
		VotingEnd:   &end,
		ServerTime:  start.Add(time.Hour),
	}

	require.NoError(t, st.SetCachedSchedule(in))

	out, ok, err := st.CachedSchedule()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, out.IsOpen)
	require.NotNil(t, out.VotingStart)
	assert.True(t, out.VotingStart.Equal(start))
	require.NotNil(t, out.VotingEnd)
	assert.True(t, out.VotingEnd.Equal(end))
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.SetSession(models.Session{Token: "user-tok", Role: models.RoleUser}))
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	sess, ok, err := st.SessionFor(models.RoleUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "user-tok", sess.Token)
}
