package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/claude/gymtrack/internal/storage"
	"github.com/claude/gymtrack/internal/token"
)

// authResponse is the body returned by register and login.
type authResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	u, err := s.store.CreateUser(r.Context(), req.Name)
	if err != nil {
		s.log.Error("creating user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not create account"})
		return
	}
	s.issueToken(w, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	uid, err := uuid.Parse(req.UserID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}

	u, err := s.store.GetUser(r.Context(), uid)
	if errors.Is(err, storage.ErrUserNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown user id"})
		return
	}
	if err != nil {
		s.log.Error("looking up user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not log in"})
		return
	}
	s.issueToken(w, u)
}

func (s *Server) issueToken(w http.ResponseWriter, u storage.User) {
	tok := token.Sign(u.ID.String(), time.Now().Add(token.Lifetime), s.secret)
	writeJSON(w, http.StatusOK, authResponse{UserID: u.ID.String(), Token: tok})
}
