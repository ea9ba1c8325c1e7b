package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/claude/gymtrack/internal/match"
)

func (s *Server) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	records := s.cat.All()
	if zone := r.URL.Query().Get("zone"); zone != "" {
		records = s.cat.ByZone(zone)
	} else if pattern := r.URL.Query().Get("pattern"); pattern != "" {
		records = s.cat.ByPattern(pattern)
	} else if muscle := r.URL.Query().Get("muscle"); muscle != "" {
		records = s.cat.ByMuscle(muscle)
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleSubstitutes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	results, err := match.FindSubstitutes(s.cat.All(), id, limit)
	var notFound *match.NotFoundError
	if errors.As(err, &notFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, results)
}
