package validate

import (
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/claude/gymtrack/internal/models"
	"github.com/claude/gymtrack/internal/stats"
)

// Bounds enforced on persisted documents.
const (
	MaxEquipmentNameLen    = 100
	MaxNotesLen            = 500
	MaxWorkoutsPerLog      = 1000
	MaxExercisesPerWorkout = 50
	MaxWeight              = 2000
	MaxReps                = 1000
	MaxEquipmentCount      = 100
	MaxPrimaryMuscles      = 10
)

// SettingsResult is the outcome of validating a settings document.
// Cleaned is always usable as a best-effort fallback, but when Valid is
// false the caller must surface Errors.
type SettingsResult struct {
	Valid   bool
	Errors  []string
	Cleaned models.SettingsDocument
}

// WorkoutLogResult is the outcome of validating a workout log document.
type WorkoutLogResult struct {
	Valid   bool
	Errors  []string
	Cleaned models.WorkoutLogDocument
}

// EquipmentDatabaseResult is the outcome of validating an equipment
// database. Unlike the per-user documents, a database that breaks the
// count or muscle-list caps fails as a whole.
type EquipmentDatabaseResult struct {
	Valid   bool
	Errors  []string
	Cleaned models.EquipmentDatabase
}

// decodeScrubbed scrubs raw JSON and decodes it into dst, which must be
// pre-populated with defaults. A type mismatch on one field leaves that
// field at its default and is reported, rather than rejecting the document
// outright.
func decodeScrubbed(raw []byte, dst any) []string {
	cleaned, err := ScrubJSON(raw)
	if err != nil {
		return []string{"not a JSON document: " + err.Error()}
	}
	buf, err := json.Marshal(cleaned)
	if err != nil {
		return []string{"re-encoding scrubbed document: " + err.Error()}
	}
	if err := json.Unmarshal(buf, dst); err != nil {
		// encoding/json keeps decoding past a type mismatch, so dst holds
		// defaults for the invalid parts and real values for the rest.
		return []string{"structural violation: " + err.Error()}
	}
	return nil
}

// Settings validates a raw settings document.
func Settings(raw []byte) SettingsResult {
	res := SettingsResult{Valid: true, Cleaned: models.DefaultSettings()}
	if errs := decodeScrubbed(raw, &res.Cleaned); errs != nil {
		res.Valid = false
		res.Errors = errs
	}

	switch res.Cleaned.User.ExperienceLevel {
	case models.ExperienceBeginner, models.ExperienceIntermediate, models.ExperienceAdvanced:
	case "":
		res.Cleaned.User.ExperienceLevel = models.ExperienceBeginner
	default:
		res.fail("unknown experience level %q", res.Cleaned.User.ExperienceLevel)
		res.Cleaned.User.ExperienceLevel = models.ExperienceBeginner
	}

	if res.Cleaned.Equipment == nil {
		res.Cleaned.Equipment = map[string]models.EquipmentSettings{}
	}
	if res.Cleaned.Preferences == nil {
		res.Cleaned.Preferences = map[string]any{}
	}

	// Deterministic error order over map iteration.
	ids := make([]string, 0, len(res.Cleaned.Equipment))
	for id := range res.Cleaned.Equipment {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		es := res.Cleaned.Equipment[id]
		if len(es.Notes) > MaxNotesLen {
			res.fail("equipment %s: notes exceed %d characters", id, MaxNotesLen)
			es.Notes = truncate(es.Notes, MaxNotesLen)
		}
		if es.LastWeight < 0 || es.LastWeight > MaxWeight {
			res.fail("equipment %s: last weight %.1f out of range [0, %d]", id, es.LastWeight, MaxWeight)
			es.LastWeight = clampWeight(es.LastWeight)
		}
		res.Cleaned.Equipment[id] = es
	}

	return res
}

func (r *SettingsResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// WorkoutLog validates a raw workout log document. Statistics are always
// recomputed from the cleaned workout list, never trusted from the input.
func WorkoutLog(raw []byte) WorkoutLogResult {
	res := WorkoutLogResult{Valid: true, Cleaned: models.DefaultWorkoutLog()}
	if errs := decodeScrubbed(raw, &res.Cleaned); errs != nil {
		res.Valid = false
		res.Errors = errs
	}

	if len(res.Cleaned.Workouts) > MaxWorkoutsPerLog {
		res.fail("workout log has %d workouts, cap is %d", len(res.Cleaned.Workouts), MaxWorkoutsPerLog)
		res.Cleaned.Workouts = res.Cleaned.Workouts[:MaxWorkoutsPerLog]
	}

	for wi := range res.Cleaned.Workouts {
		w := &res.Cleaned.Workouts[wi]
		if w.ID == "" {
			res.fail("workout %d has no id", wi)
		}
		if len(w.Notes) > MaxNotesLen {
			res.fail("workout %s: notes exceed %d characters", w.ID, MaxNotesLen)
			w.Notes = truncate(w.Notes, MaxNotesLen)
		}
		if len(w.Exercises) > MaxExercisesPerWorkout {
			res.fail("workout %s has %d exercises, cap is %d", w.ID, len(w.Exercises), MaxExercisesPerWorkout)
			w.Exercises = w.Exercises[:MaxExercisesPerWorkout]
		}
		for ei := range w.Exercises {
			for si := range w.Exercises[ei].Sets {
				set := &w.Exercises[ei].Sets[si]
				if set.Weight < 0 || set.Weight > MaxWeight {
					res.fail("workout %s: set weight %.1f out of range [0, %d]", w.ID, set.Weight, MaxWeight)
					set.Weight = clampWeight(set.Weight)
				}
				if set.Reps < 0 || set.Reps > MaxReps {
					res.fail("workout %s: reps %d out of range [0, %d]", w.ID, set.Reps, MaxReps)
					set.Reps = clampReps(set.Reps)
				}
			}
		}
	}

	if res.Cleaned.Workouts == nil {
		res.Cleaned.Workouts = []models.Workout{}
	}
	if res.Cleaned.Templates == nil {
		res.Cleaned.Templates = []models.Template{}
	}
	res.Cleaned.Statistics = stats.Compute(res.Cleaned.Workouts)

	return res
}

func (r *WorkoutLogResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// WorkoutResult is the outcome of validating a single workout.
type WorkoutResult struct {
	Valid   bool
	Errors  []string
	Cleaned models.Workout
}

// Workout validates one raw workout, as submitted to the per-workout
// endpoints. Same bounds as a workout inside a log.
func Workout(raw []byte) WorkoutResult {
	res := WorkoutResult{Valid: true}
	if errs := decodeScrubbed(raw, &res.Cleaned); errs != nil {
		res.Valid = false
		res.Errors = errs
	}

	w := &res.Cleaned
	if w.ID == "" {
		res.fail("workout has no id")
	}
	if len(w.Notes) > MaxNotesLen {
		res.fail("workout %s: notes exceed %d characters", w.ID, MaxNotesLen)
		w.Notes = truncate(w.Notes, MaxNotesLen)
	}
	if len(w.Exercises) > MaxExercisesPerWorkout {
		res.fail("workout %s has %d exercises, cap is %d", w.ID, len(w.Exercises), MaxExercisesPerWorkout)
		w.Exercises = w.Exercises[:MaxExercisesPerWorkout]
	}
	for ei := range w.Exercises {
		for si := range w.Exercises[ei].Sets {
			set := &w.Exercises[ei].Sets[si]
			if set.Weight < 0 || set.Weight > MaxWeight {
				res.fail("workout %s: set weight %.1f out of range [0, %d]", w.ID, set.Weight, MaxWeight)
				set.Weight = clampWeight(set.Weight)
			}
			if set.Reps < 0 || set.Reps > MaxReps {
				res.fail("workout %s: reps %d out of range [0, %d]", w.ID, set.Reps, MaxReps)
				set.Reps = clampReps(set.Reps)
			}
		}
	}
	return res
}

func (r *WorkoutResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// EquipmentDatabase validates a raw equipment database. Exceeding the item
// count or a primary-muscle-list cap fails the whole database, not just the
// offending item.
func EquipmentDatabase(raw []byte) EquipmentDatabaseResult {
	res := EquipmentDatabaseResult{Valid: true}
	if errs := decodeScrubbed(raw, &res.Cleaned); errs != nil {
		res.Valid = false
		res.Errors = errs
		return res
	}

	if len(res.Cleaned.Equipment) > MaxEquipmentCount {
		res.fail("equipment database has %d items, cap is %d", len(res.Cleaned.Equipment), MaxEquipmentCount)
		return res
	}

	seen := map[string]bool{}
	for i, eq := range res.Cleaned.Equipment {
		if eq.ID == "" {
			res.fail("equipment %d has no id", i)
			continue
		}
		if seen[eq.ID] {
			res.fail("duplicate equipment id %q", eq.ID)
		}
		seen[eq.ID] = true

		if len(eq.Name) > MaxEquipmentNameLen {
			res.fail("equipment %s: name exceeds %d characters", eq.ID, MaxEquipmentNameLen)
		}
		if len(eq.Muscles.Primary) > MaxPrimaryMuscles {
			res.fail("equipment %s: %d primary muscles, cap is %d", eq.ID, len(eq.Muscles.Primary), MaxPrimaryMuscles)
			return res
		}
	}

	return res
}

func (r *EquipmentDatabaseResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func clampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > MaxWeight {
		return MaxWeight
	}
	return w
}

func clampReps(r int) int {
	if r < 0 {
		return 0
	}
	if r > MaxReps {
		return MaxReps
	}
	return r
}
