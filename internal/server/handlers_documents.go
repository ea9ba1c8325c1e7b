package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/gymtrack/internal/merge"
	"github.com/claude/gymtrack/internal/models"
	"github.com/claude/gymtrack/internal/stats"
	"github.com/claude/gymtrack/internal/storage"
	"github.com/claude/gymtrack/internal/validate"
)

// maxBodyBytes bounds any incoming document.
const maxBodyBytes = 1 << 20

var errWorkoutNotFound = errors.New("workout not found")

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.serveDocument(w, r, storage.DocSettings)
}

func (s *Server) handleGetWorkoutLog(w http.ResponseWriter, r *http.Request) {
	s.serveDocument(w, r, storage.DocWorkoutLog)
}

func (s *Server) serveDocument(w http.ResponseWriter, r *http.Request, docType string) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	body, etag, err := s.store.GetDocument(r.Context(), uid, docType)
	if errors.Is(err, storage.ErrDocNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no " + docType + " document"})
		return
	}
	if err != nil {
		s.log.Error("reading document", "docType", docType, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not read document"})
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	raw, err := readBody(w, r)
	if err != nil {
		return
	}

	res := validate.Settings(raw)
	if !res.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid settings document", "details": res.Errors})
		return
	}
	body, _ := json.Marshal(res.Cleaned)
	s.putDocument(w, r, uid, storage.DocSettings, body)
}

func (s *Server) handlePutWorkoutLog(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	raw, err := readBody(w, r)
	if err != nil {
		return
	}

	res := validate.WorkoutLog(raw)
	if !res.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid workout log document", "details": res.Errors})
		return
	}
	body, _ := json.Marshal(res.Cleaned)
	s.putDocument(w, r, uid, storage.DocWorkoutLog, body)
}

// putDocument performs a conditional write guarded by If-Match and answers
// with the new ETag. A stale or vanished version is a 409 so the client
// refetches and re-merges rather than blindly retrying.
func (s *Server) putDocument(w http.ResponseWriter, r *http.Request, uid uuid.UUID, docType string, body []byte) {
	etag, err := s.store.PutDocument(r.Context(), uid, docType, body, r.Header.Get("If-Match"))
	switch {
	case errors.Is(err, storage.ErrETagMismatch):
		writeJSON(w, http.StatusConflict, map[string]string{"error": docType + " was modified by another device; fetch and merge before retrying"})
		return
	case errors.Is(err, storage.ErrDocNotFound):
		writeJSON(w, http.StatusConflict, map[string]string{"error": docType + " no longer exists; fetch and merge before retrying"})
		return
	case err != nil:
		s.log.Error("writing document", "docType", docType, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not write document"})
		return
	}
	w.Header().Set("ETag", etag)
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
}

func (s *Server) handlePostWorkout(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	raw, err := readBody(w, r)
	if err != nil {
		return
	}
	res := validate.Workout(raw)
	if !res.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid workout", "details": res.Errors})
		return
	}

	etag, err := s.store.MutateDocument(r.Context(), uid, storage.DocWorkoutLog, func(body []byte) ([]byte, error) {
		doc := decodeLog(body)
		// Same id posted twice (a replayed queue item) must not duplicate.
		for i := range doc.Workouts {
			if doc.Workouts[i].ID == res.Cleaned.ID {
				doc.Workouts[i] = res.Cleaned
				return encodeLog(doc)
			}
		}
		doc.Workouts = append(doc.Workouts, res.Cleaned)
		return encodeLog(doc)
	})
	s.answerMutation(w, etag, err)
}

func (s *Server) handlePutWorkout(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	raw, err := readBody(w, r)
	if err != nil {
		return
	}
	res := validate.Workout(raw)
	if !res.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid workout", "details": res.Errors})
		return
	}
	id := chi.URLParam(r, "id")
	res.Cleaned.ID = id

	etag, err := s.store.MutateDocument(r.Context(), uid, storage.DocWorkoutLog, func(body []byte) ([]byte, error) {
		doc := decodeLog(body)
		for i := range doc.Workouts {
			if doc.Workouts[i].ID == id {
				doc.Workouts[i] = res.Cleaned
				return encodeLog(doc)
			}
		}
		return nil, errWorkoutNotFound
	})
	s.answerMutation(w, etag, err)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	etag, err := s.store.MutateDocument(r.Context(), uid, storage.DocWorkoutLog, func(body []byte) ([]byte, error) {
		doc := decodeLog(body)
		for i := range doc.Workouts {
			if doc.Workouts[i].ID == id {
				doc.Workouts = append(doc.Workouts[:i], doc.Workouts[i+1:]...)
				return encodeLog(doc)
			}
		}
		return nil, errWorkoutNotFound
	})
	s.answerMutation(w, etag, err)
}

func (s *Server) answerMutation(w http.ResponseWriter, etag string, err error) {
	switch {
	case errors.Is(err, errWorkoutNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
	case err != nil:
		s.log.Error("mutating workout log", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not update workout log"})
	default:
		w.Header().Set("ETag", etag)
		writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
	}
}

// handleMigrate folds a client's anonymous local documents into the
// account. Existing remote documents are merged with the incoming ones
// winning, matching the client-side merge direction.
func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	raw, err := readBody(w, r)
	if err != nil {
		return
	}

	var req struct {
		Settings    json.RawMessage `json:"settings"`
		WorkoutLogs json.RawMessage `json:"workoutLogs"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	summary := map[string]any{"userId": uid.String(), "settingsMerged": false, "workoutsMerged": 0, "templatesMerged": 0}

	if len(req.Settings) > 0 {
		res := validate.Settings(req.Settings)
		if !res.Valid {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid settings document", "details": res.Errors})
			return
		}
		_, err := s.store.MutateDocument(r.Context(), uid, storage.DocSettings, func(body []byte) ([]byte, error) {
			var existing *models.SettingsDocument
			if len(body) > 0 {
				existing = &models.SettingsDocument{}
				if err := json.Unmarshal(body, existing); err != nil {
					existing = nil
				}
			}
			merged := merge.Settings(existing, &res.Cleaned)
			return json.Marshal(merged)
		})
		if err != nil {
			s.log.Error("migrating settings", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not migrate settings"})
			return
		}
		summary["settingsMerged"] = true
	}

	if len(req.WorkoutLogs) > 0 {
		res := validate.WorkoutLog(req.WorkoutLogs)
		if !res.Valid {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid workout log document", "details": res.Errors})
			return
		}
		var mergedLog *models.WorkoutLogDocument
		_, err := s.store.MutateDocument(r.Context(), uid, storage.DocWorkoutLog, func(body []byte) ([]byte, error) {
			var existing *models.WorkoutLogDocument
			if len(body) > 0 {
				existing = &models.WorkoutLogDocument{}
				if err := json.Unmarshal(body, existing); err != nil {
					existing = nil
				}
			}
			mergedLog = merge.WorkoutLogs(existing, &res.Cleaned)
			return json.Marshal(mergedLog)
		})
		if err != nil {
			s.log.Error("migrating workout log", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not migrate workout log"})
			return
		}
		summary["workoutsMerged"] = len(mergedLog.Workouts)
		summary["templatesMerged"] = len(mergedLog.Templates)
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleExport assembles the account's documents in the export file format.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	doc := models.ExportDocument{Version: models.ExportVersion, ExportedAt: time.Now().UTC()}

	if body, _, err := s.store.GetDocument(r.Context(), uid, storage.DocSettings); err == nil {
		var settings models.SettingsDocument
		if json.Unmarshal(body, &settings) == nil {
			doc.Settings = &settings
		}
	} else if !errors.Is(err, storage.ErrDocNotFound) {
		s.log.Error("exporting settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not export"})
		return
	}

	if body, _, err := s.store.GetDocument(r.Context(), uid, storage.DocWorkoutLog); err == nil {
		var log models.WorkoutLogDocument
		if json.Unmarshal(body, &log) == nil {
			doc.WorkoutLogs = &log
		}
	} else if !errors.Is(err, storage.ErrDocNotFound) {
		s.log.Error("exporting workout log", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not export"})
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// decodeLog tolerates a missing or corrupt stored log by starting from the
// empty document; the replacement write repairs it.
func decodeLog(body []byte) models.WorkoutLogDocument {
	doc := models.DefaultWorkoutLog()
	if len(body) > 0 {
		json.Unmarshal(body, &doc)
	}
	return doc
}

func encodeLog(doc models.WorkoutLogDocument) ([]byte, error) {
	sort.SliceStable(doc.Workouts, func(i, j int) bool {
		return doc.Workouts[i].Date.After(doc.Workouts[j].Date)
	})
	doc.Statistics = stats.Compute(doc.Workouts)
	return json.Marshal(doc)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading body: " + err.Error()})
		return nil, err
	}
	return raw, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
