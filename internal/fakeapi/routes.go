package fakeapi

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pemira/evote/internal/errors"
	"github.com/pemira/evote/internal/models"
)

func (s *Server) routes() {
	s.router = mux.NewRouter()
	s.router.Use(jwtauth.Verifier(s.tokenAuth))

	// auth
	s.router.HandleFunc("/api/auth/login", s.handleLogin()).Methods(http.MethodPost)
	s.router.HandleFunc("/api/auth/register", s.handleRegister()).Methods(http.MethodPost)
	s.router.HandleFunc("/api/auth/me", s.handleMe()).Methods(http.MethodGet)

	// voting window
	s.router.HandleFunc("/api/voting/status", s.handleVotingStatus()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/voting/open", s.handleOpenVoting()).Methods(http.MethodPost)
	s.router.HandleFunc("/api/voting/close", s.handleCloseVoting()).Methods(http.MethodPost)
	s.router.HandleFunc("/api/voting/schedule", s.handleSchedule()).Methods(http.MethodPost)
	s.router.HandleFunc("/api/voting/clear-schedule", s.handleClearSchedule()).Methods(http.MethodPost)

	// candidates
	s.router.HandleFunc("/api/candidates", s.handleListCandidates()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/candidates", s.handleAddCandidate()).Methods(http.MethodPost)
	s.router.HandleFunc("/api/candidates/{id}", s.handleDeleteCandidate()).Methods(http.MethodDelete)

	// votes
	s.router.HandleFunc("/api/votes/me", s.handleMyVote()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/votes", s.handleSubmitVote()).Methods(http.MethodPost)
	s.router.HandleFunc("/api/votes/results", s.handleResults()).Methods(http.MethodGet)

	// admin aggregates & lifecycle
	s.router.HandleFunc("/api/admin/stats", s.handleStats()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/admin/voters", s.handleVoters()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/admin/history", s.handleHistory()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/admin/archive-and-reset", s.handleArchiveAndReset()).Methods(http.MethodPost)
}

func (s *Server) handleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds models.Credentials
		if err := s.decode(w, r, &creds); err != nil {
			s.respondError(w, r, errors.E(errors.KindBadRequest, "Format request tidak valid"))
			return
		}

		u, err := s.store.authenticate(creds.Identifier, creds.Password)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		token, err := s.createJWT(u)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		s.respond(w, r, models.Session{Token: token, Role: u.Role}, http.StatusOK)
	}
}

func (s *Server) handleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reg models.Registration
		if err := s.decode(w, r, &reg); err != nil {
			s.respondError(w, r, errors.E(errors.KindBadRequest, "Format request tidak valid"))
			return
		}

		if reg.Name == "" || reg.NIM == "" || reg.Password == "" {
			s.respondError(w, r, errors.E(errors.KindBadRequest, "Nama, NIM dan password wajib diisi"))
			return
		}

		// public registration only ever creates voters
		if _, err := s.store.register(reg.Name, reg.NIM, reg.Password, models.RoleUser); err != nil {
			s.respondError(w, r, err)
			return
		}

		s.respond(w, r, nil, http.StatusCreated)
	}
}

func (s *Server) handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.currentUser(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		s.respond(w, r, models.Profile{Name: u.Name, NIM: u.NIM}, http.StatusOK)
	}
}

func (s *Server) handleVotingStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, r, s.store.status(), http.StatusOK)
	}
}

func (s *Server) handleOpenVoting() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.requireRole(r, models.RoleAdmin); err != nil {
			s.respondError(w, r, err)
			return
		}

		s.store.openVoting()
		s.respond(w, r, s.store.status(), http.StatusOK)
	}
}

func (s *Server) handleCloseVoting() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.requireRole(r, models.RoleAdmin); err != nil {
			s.respondError(w, r, err)
			return
		}

		s.store.closeVoting()
		s.respond(w, r, s.store.status(), http.StatusOK)
	}
}

func (s *Server) handleSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.requireRole(r, models.RoleAdmin); err != nil {
			s.respondError(w, r, err)
			return
		}

		var sched models.Schedule
		if err := s.decode(w, r, &sched); err != nil {
			s.respondError(w, r, errors.E(errors.KindBadRequest, "Format request tidak valid"))
			return
		}

		if err := s.store.schedule(sched.VotingStart, sched.VotingEnd); err != nil {
			s.respondError(w, r, err)
			return
		}

		s.respond(w, r, s.store.status(), http.StatusOK)
	}
}

func (s *Server) handleClearSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.requireRole(r, models.RoleAdmin); err != nil {
			s.respondError(w, r, err)
			return
		}

		s.store.clearSchedule()
		s.respond(w, r, s.store.status(), http.StatusOK)
	}
}

func (s *Server) handleListCandidates() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, r, s.store.listCandidates(), http.StatusOK)
	}
}

func (s *Server) handleAddCandidate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.requireRole(r, models.RoleAdmin); err != nil {
			s.respondError(w, r, err)
			return
		}

		if err := r.ParseMultipartForm(maxRequestSize); err != nil {
			s.respondError(w, r, errors.E(errors.KindBadRequest, "Format multipart tidak valid"))
			return
		}

		cand := models.Candidate{
			Name:        r.FormValue("name"),
			Vice:        r.FormValue("vice"),
			Description: r.FormValue("description"),
			Career:      r.FormValue("career"),
		}
		if n := r.FormValue("number"); n != "" {
			num, err := strconv.Atoi(n)
			if err != nil {
				s.respondError(w, r, errors.E(errors.KindBadRequest, "Nomor urut tidak valid"))
				return
			}
			cand.Number = num
		}
		if cand.Name == "" || cand.Vice == "" {
			s.respondError(w, r, errors.E(errors.KindBadRequest, "Nama ketua dan wakil wajib diisi"))
			return
		}

		// the photo itself is discarded; only a reference is kept
		if file, header, err := r.FormFile("photo"); err == nil {
			_ = file.Close()
			cand.Photo = "/uploads/" + uuid.NewString() + filepath.Ext(header.Filename)
		}

		created := s.store.addCandidate(cand)
		s.respond(w, r, created, http.StatusCreated)
	}
}

func (s *Server) handleDeleteCandidate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.requireRole(r, models.RoleAdmin); err != nil {
			s.respondError(w, r, err)
			return
		}

		if err := s.store.deleteCandidate(mux.Vars(r)["id"]); err != nil {
			s.respondError(w, r, err)
			return
		}

		s.respond(w, r, nil, http.StatusNoContent)
	}
}

func (s *Server) handleMyVote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// the userId query parameter is accepted for compatibility but the
		// identity comes from the token
		u, err := s.currentUser(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		s.respond(w, r, s.store.voteStatus(u.ID), http.StatusOK)
	}
}

func (s *Server) handleSubmitVote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.requireRole(r, models.RoleUser)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		var body struct {
			CandidateID string `json:"candidateId"`
		}
		if err := s.decode(w, r, &body); err != nil {
			s.respondError(w, r, errors.E(errors.KindBadRequest, "Format request tidak valid"))
			return
		}

		if err := s.store.vote(u.ID, body.CandidateID); err != nil {
			s.respondError(w, r, err)
			return
		}

		s.respond(w, r, nil, http.StatusCreated)
	}
}

func (s *Server) handleResults() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, r, s.store.results(), http.StatusOK)
	}
}

func (s *Server) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.requireRole(r, models.RoleAdmin); err != nil {
			s.respondError(w, r, err)
			return
		}

		s.respond(w, r, s.store.stats(), http.StatusOK)
	}
}

func (s *Server) handleVoters() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.requireRole(r, models.RoleAdmin); err != nil {
			s.respondError(w, r, err)
			return
		}

		s.respond(w, r, s.store.voters(), http.StatusOK)
	}
}

func (s *Server) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.requireRole(r, models.RoleAdmin); err != nil {
			s.respondError(w, r, err)
			return
		}

		s.respond(w, r, s.store.listHistory(), http.StatusOK)
	}
}

func (s *Server) handleArchiveAndReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.requireRole(r, models.RoleAdmin); err != nil {
			s.respondError(w, r, err)
			return
		}

		s.respond(w, r, s.store.archiveAndReset(), http.StatusOK)
	}
}
