package session

import (
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/pemira/evote/internal/errors"
	"github.com/pemira/evote/internal/models"
)

// TokenClaims is what the client can read out of its own bearer token
// without a verification key: enough for display and for a local sanity
// check.  Verification proper happens server-side.
type TokenClaims struct {
	ID        string
	Name      string
	NIM       string
	Role      models.Role
	ExpiresAt time.Time
}

func (tc TokenClaims) Expired(now time.Time) bool {
	return !tc.ExpiresAt.IsZero() && !now.Before(tc.ExpiresAt)
}

// DecodeToken parses a JWT without verifying its signature and extracts
// the claims this client cares about.  A token that does not decode, or
// whose exp has passed, is as good as no token at all.
func DecodeToken(tokenString string, now time.Time) (TokenClaims, error) {
	const op errors.Op = "session.DecodeToken"

	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return TokenClaims{}, errors.E(op, err, errors.KindJWTError, "token does not decode")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, errors.E(op, errors.KindJWTError, "token carries no claims")
	}

	var tc TokenClaims
	if v, ok := claims["id"].(string); ok {
		tc.ID = v
	}
	if v, ok := claims["name"].(string); ok {
		tc.Name = v
	}
	if v, ok := claims["nim"].(string); ok {
		tc.NIM = v
	}
	if v, ok := claims["role"].(string); ok {
		tc.Role = models.Role(v)
	}
	if v, ok := claims["exp"].(float64); ok {
		tc.ExpiresAt = time.Unix(int64(v), 0)
	}

	if tc.Expired(now) {
		return TokenClaims{}, errors.E(op, errors.KindJWTError, "token has expired")
	}

	return tc, nil
}
