/* Package fakeapi is an in-memory stand-in for the production election
backend.  It implements the full REST contract the client speaks --
including the business rules the client must not enforce itself (one vote
per user, window gating, archive-and-reset) -- so integration tests and
local development run against something that behaves like the real thing.

It is deliberately not the production backend: no persistence, no
operational hardening. */
package fakeapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/pemira/evote/internal/errors"
	"github.com/pemira/evote/internal/models"
)

const maxRequestSize = 10 << 20 // 10 MB, candidate photos included

type Server struct {
	store     *store
	tokenAuth *jwtauth.JWTAuth
	router    *mux.Router
	tokenTTL  time.Duration
}

// NewServer builds a fake election API signing tokens with the given
// HS256 secret.
func NewServer(secret string) *Server {
	return NewServerAt(secret, time.Now)
}

// NewServerAt injects the time source so tests can pin the voting window
// against a fake clock.
func NewServerAt(secret string, now func() time.Time) *Server {
	srv := &Server{
		store:     newStore(now),
		tokenAuth: jwtauth.New("HS256", []byte(secret), nil),
		tokenTTL:  24 * time.Hour,
	}
	srv.routes()
	return srv
}

// Handler returns the full middleware stack: CORS for the browser SPA
// origin story, then JWT verification, then the routes.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(s.router)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}

// Seed provisions an admin account, a couple of voters and two candidate
// pairs, for local development.
func (s *Server) Seed() {
	_, _ = s.store.register("Administrator", "admin", "admin123", models.RoleAdmin)
	_, _ = s.store.register("Andi Wijaya", "230104050", "rahasia1", models.RoleUser)
	_, _ = s.store.register("Rina Putri", "230104051", "rahasia2", models.RoleUser)

	s.store.addCandidate(models.Candidate{
		Number:      1,
		Name:        "Budi Santoso",
		Vice:        "Siti Rahma",
		Description: "Transparansi anggaran dan kegiatan kampus.",
		Career:      "Ketua himpunan 2024, panitia ospek 2025.",
	})
	s.store.addCandidate(models.Candidate{
		Number:      2,
		Name:        "Citra Dewi",
		Vice:        "Eko Prasetyo",
		Description: "Fasilitas belajar dan ruang komunitas mahasiswa.",
		Career:      "Koordinator UKM debat, asisten laboratorium.",
	})
}

// RegisterAdmin creates an admin account directly, bypassing the public
// register endpoint which only makes voters.
func (s *Server) RegisterAdmin(name, nim, password string) error {
	_, err := s.store.register(name, nim, password, models.RoleAdmin)
	return err
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("fakeapi: json encode", "err", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	message := errors.Message(err)
	if message == "" {
		message = "Terjadi kesalahan pada server"
	}

	var status int
	switch errors.Kind(err) {
	case errors.KindBadRequest:
		status = http.StatusBadRequest
	case errors.KindAuthError:
		status = http.StatusUnauthorized
	case errors.KindForbidden, errors.KindVotingClosed:
		status = http.StatusForbidden
	case errors.KindNotFound:
		status = http.StatusNotFound
	case errors.KindConflict:
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}

	s.respond(w, r, errorBody{Message: message}, status)
}

type errorBody struct {
	Message string `json:"message"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxRequestSize)).Decode(v)
}
