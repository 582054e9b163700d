package fakeapi

import (
	"net/http"

	"github.com/go-chi/jwtauth"

	"github.com/pemira/evote/internal/errors"
	"github.com/pemira/evote/internal/models"
)

func (s *Server) createJWT(u *user) (string, error) {
	const op errors.Op = "fakeapi.createJWT"

	var claims jwtauth.Claims = make(map[string]interface{})
	claims["id"] = u.ID
	claims["name"] = u.Name
	claims["nim"] = u.NIM
	claims["role"] = string(u.Role)
	claims["exp"] = s.store.now().Add(s.tokenTTL).Unix()

	_, tokenString, err := s.tokenAuth.Encode(claims)
	if err != nil {
		return "", errors.E(op, errors.KindJWTError, err, "error creating jwt for user")
	}

	return tokenString, nil
}

// currentUser resolves the verified bearer token to a stored account.
// The identity always comes from the token, never from request fields.
func (s *Server) currentUser(r *http.Request) (*user, error) {
	const op errors.Op = "fakeapi.currentUser"

	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil || !token.Valid {
		return nil, errors.E(op, errors.KindAuthError, "Token tidak valid")
	}

	id, ok := claims["id"].(string)
	if !ok {
		return nil, errors.E(op, errors.KindAuthError, "Token tidak valid")
	}

	u, found := s.store.userByID(id)
	if !found {
		return nil, errors.E(op, errors.KindAuthError, "Token tidak valid")
	}

	return u, nil
}

func (s *Server) requireRole(r *http.Request, role models.Role) (*user, error) {
	const op errors.Op = "fakeapi.requireRole"

	u, err := s.currentUser(r)
	if err != nil {
		return nil, errors.E(op, err)
	}

	if u.Role != role {
		return nil, errors.E(op, errors.KindForbidden, "Akses ditolak")
	}

	return u, nil
}
