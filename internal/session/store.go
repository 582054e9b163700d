/* Package session holds the client's persisted local state: the bearer
token and role cached at login, and the last-known voting schedule used to
bridge gaps between polls.  It is the Go analogue of the browser's
localStorage, backed by a small SQLite file so state survives process
restarts.

Nothing in here is authoritative.  The server re-validates the token on
every request, and the cached schedule is only a display fallback. */
package session

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/pemira/evote/internal/errors"
	"github.com/pemira/evote/internal/models"
)

const (
	keyUserToken  = "user_token"
	keyAdminToken = "admin_token"
	keySchedule   = "voting_schedule"
)

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the state database at path.
func Open(path string) (*Store, error) {
	const op errors.Op = "session.Open"

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.E(op, err, errors.KindStorageError, "could not create state directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.E(op, err, errors.KindStorageError, "could not open state db")
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, errors.E(op, err, errors.KindStorageError, "could not set busy_timeout")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS local_state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, errors.E(op, err, errors.KindStorageError, "could not create state table")
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(op errors.Op, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM local_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.E(op, err, errors.KindStorageError, "error reading local state")
	}
	return value, true, nil
}

func (s *Store) set(op errors.Op, key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO local_state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return errors.E(op, err, errors.KindStorageError, "error writing local state")
	}
	return nil
}

func tokenKey(role models.Role) string {
	if role == models.RoleAdmin {
		return keyAdminToken
	}
	return keyUserToken
}

// SetSession persists a session under its role's slot.  Callers must write
// the session before issuing any guarded call (write-then-navigate).
func (s *Store) SetSession(sess models.Session) error {
	const op errors.Op = "session.SetSession"

	if !sess.LoggedIn() {
		return errors.E(op, errors.KindBadRequest, "refusing to store an empty or role-less session")
	}

	return s.set(op, tokenKey(sess.Role), sess.Token)
}

// SessionFor returns the stored session for one role.  The second return
// is false when nothing is stored.
func (s *Store) SessionFor(role models.Role) (models.Session, bool, error) {
	const op errors.Op = "session.SessionFor"

	token, ok, err := s.get(op, tokenKey(role))
	if err != nil || !ok {
		return models.Session{}, false, err
	}

	return models.Session{Token: token, Role: role}, true, nil
}

// Session returns the effective session, preferring the admin slot over
// the user slot when both are present.
func (s *Store) Session() (models.Session, bool, error) {
	if sess, ok, err := s.SessionFor(models.RoleAdmin); ok || err != nil {
		return sess, ok, err
	}
	return s.SessionFor(models.RoleUser)
}

// BearerToken returns the token to attach to outbound requests, with the
// same admin-over-user precedence as Session.  Empty means anonymous.
func (s *Store) BearerToken() (string, error) {
	sess, ok, err := s.Session()
	if err != nil || !ok {
		return "", err
	}
	return sess.Token, nil
}

// Clear wipes all local state: both token slots and the cached schedule.
// Logout and token-decode failures both land here.
func (s *Store) Clear() error {
	const op errors.Op = "session.Clear"

	if _, err := s.db.Exec("DELETE FROM local_state"); err != nil {
		return errors.E(op, err, errors.KindStorageError, "error clearing local state")
	}
	return nil
}

// SetCachedSchedule remembers the last voting status seen from the server.
func (s *Store) SetCachedSchedule(st models.VotingStatus) error {
	const op errors.Op = "session.SetCachedSchedule"

	data, err := json.Marshal(st)
	if err != nil {
		return errors.E(op, err, "could not encode schedule")
	}
	return s.set(op, keySchedule, string(data))
}

// CachedSchedule returns the last-known voting status, if any.
func (s *Store) CachedSchedule() (models.VotingStatus, bool, error) {
	const op errors.Op = "session.CachedSchedule"

	value, ok, err := s.get(op, keySchedule)
	if err != nil || !ok {
		return models.VotingStatus{}, false, err
	}

	var st models.VotingStatus
	if err := json.Unmarshal([]byte(value), &st); err != nil {
		return models.VotingStatus{}, false, errors.E(op, err, "could not decode cached schedule")
	}
	return st, true, nil
}
