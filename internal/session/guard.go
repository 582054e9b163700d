package session

import (
	"time"

	"github.com/pemira/evote/internal/errors"
	"github.com/pemira/evote/internal/models"
)

/* Guard is the admission check in front of role-specific operations: a
binary decision, not an auth protocol.  The real authorization happened
server-side at login; the guard only checks the cached result.

A failed check means "redirect to the landing page".  There is no retry
and no user-facing detail beyond that. */
type Guard struct {
	store *Store
	now   func() time.Time
}

func NewGuard(store *Store) *Guard {
	return &Guard{store: store, now: time.Now}
}

// NewGuardAt injects the time source, for tests.
func NewGuardAt(store *Store, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{store: store, now: now}
}

/* Require grants access iff a session is stored for exactly the required
role and its token still decodes.  Every other combination -- no session,
a session for a different role, a malformed or expired token -- denies.

A token that no longer decodes is treated identically to no session: the
whole local state is cleared so the next guard check fails fast, and the
caller redirects to re-login. */
func (g *Guard) Require(role models.Role) (models.Session, error) {
	const op errors.Op = "session.Require"

	sess, ok, err := g.store.SessionFor(role)
	if err != nil {
		return models.Session{}, errors.E(op, err)
	}
	if !ok {
		return models.Session{}, errors.E(op, errors.KindAuthError, "not logged in for required role")
	}

	claims, err := DecodeToken(sess.Token, g.now())
	if err != nil {
		_ = g.store.Clear()
		return models.Session{}, errors.E(op, err, errors.KindAuthError, "stored token is no longer usable")
	}

	// A token minted for another role in the wrong slot still denies.
	if claims.Role != "" && claims.Role != role {
		return models.Session{}, errors.E(op, errors.KindAuthError, "token role does not match required role")
	}

	return sess, nil
}
