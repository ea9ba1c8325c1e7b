package validate

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/claude/gymtrack/internal/models"
)

// TestScrubValueDangerousKeys verifies dangerous keys are removed at every
// nesting depth, including inside arrays.
func TestScrubValueDangerousKeys(t *testing.T) {
	raw := []byte(`{
		"user": {"name": "X", "__proto__": {"polluted": true}},
		"equipment": {
			"e1": {"notes": "ok", "constructor": "bad"},
			"prototype": {"nested": {"$where": "1"}}
		},
		"list": [{"__proto__": 1, "keep": 2}]
	}`)

	cleaned, err := ScrubJSON(raw)
	if err != nil {
		t.Fatal(err)
	}

	var found []string
	var walk func(v any)
	walk = func(v any) {
		switch val := v.(type) {
		case map[string]any:
			for k, inner := range val {
				if IsDangerousKey(k) {
					found = append(found, k)
				}
				walk(inner)
			}
		case []any:
			for _, inner := range val {
				walk(inner)
			}
		}
	}
	walk(cleaned)

	if len(found) > 0 {
		t.Errorf("dangerous keys survived scrubbing: %v", found)
	}

	// Benign siblings survive.
	top := cleaned.(map[string]any)
	if top["user"].(map[string]any)["name"] != "X" {
		t.Error("benign user.name was lost")
	}
	if top["list"].([]any)[0].(map[string]any)["keep"] != float64(2) {
		t.Error("benign list element field was lost")
	}
}

// TestSettingsValidIdempotent verifies a valid document round-trips with
// Valid=true and an equal cleaned document.
func TestSettingsValidIdempotent(t *testing.T) {
	doc := models.DefaultSettings()
	doc.User.Name = "Dana"
	doc.User.ExperienceLevel = models.ExperienceIntermediate
	doc.Equipment["chest-press"] = models.EquipmentSettings{
		LastWeight: 55, SeatPosition: "4", Notes: "narrow grip", LastUsedDate: "2026-08-30",
	}
	raw, _ := json.Marshal(doc)

	res := Settings(raw)
	if !res.Valid {
		t.Fatalf("Valid = false, errors: %v", res.Errors)
	}
	if res.Cleaned.User.Name != "Dana" {
		t.Errorf("user.name = %q, want Dana", res.Cleaned.User.Name)
	}
	if got := res.Cleaned.Equipment["chest-press"]; got.LastWeight != 55 || got.Notes != "narrow grip" {
		t.Errorf("equipment settings changed: %+v", got)
	}
}

// TestSettingsBounds verifies note truncation and weight clamping with
// Valid=false.
func TestSettingsBounds(t *testing.T) {
	doc := models.DefaultSettings()
	doc.Equipment["e1"] = models.EquipmentSettings{
		LastWeight: 9000,
		Notes:      strings.Repeat("n", MaxNotesLen+50),
	}
	raw, _ := json.Marshal(doc)

	res := Settings(raw)
	if res.Valid {
		t.Fatal("Valid = true, want false")
	}
	if len(res.Errors) != 2 {
		t.Errorf("errors = %v, want 2 entries", res.Errors)
	}
	got := res.Cleaned.Equipment["e1"]
	if len(got.Notes) != MaxNotesLen {
		t.Errorf("notes length = %d, want %d", len(got.Notes), MaxNotesLen)
	}
	if got.LastWeight != MaxWeight {
		t.Errorf("last weight = %.1f, want %d", got.LastWeight, MaxWeight)
	}
}

// TestNotesTruncateOnRuneBoundary verifies byte-limit truncation never
// splits a multi-byte character, so cleaned documents stay valid UTF-8.
func TestNotesTruncateOnRuneBoundary(t *testing.T) {
	// Fill to one byte short of the cap, then a 3-byte rune straddling it.
	notes := strings.Repeat("n", MaxNotesLen-1) + "日本"
	doc := models.DefaultSettings()
	doc.Equipment["e1"] = models.EquipmentSettings{Notes: notes}
	raw, _ := json.Marshal(doc)

	res := Settings(raw)
	got := res.Cleaned.Equipment["e1"].Notes
	if len(got) > MaxNotesLen {
		t.Errorf("notes length = %d, want <= %d", len(got), MaxNotesLen)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncated notes are not valid UTF-8: %q", got[len(got)-4:])
	}
	if got != strings.Repeat("n", MaxNotesLen-1) {
		t.Errorf("notes end = %q, want the straddling rune dropped whole", got[len(got)-4:])
	}
}

// TestSettingsStructuralViolation verifies a wrong-typed field yields
// Valid=false with defaults for the invalid parts.
func TestSettingsStructuralViolation(t *testing.T) {
	raw := []byte(`{"user": "not an object", "preferences": {"theme": "dark"}}`)

	res := Settings(raw)
	if res.Valid {
		t.Fatal("Valid = true, want false")
	}
	if res.Cleaned.User.ExperienceLevel != models.ExperienceBeginner {
		t.Errorf("experience level = %q, want default beginner", res.Cleaned.User.ExperienceLevel)
	}
	if res.Cleaned.Preferences["theme"] != "dark" {
		t.Error("valid sibling field preferences.theme was lost")
	}
}

// TestWorkoutLogBounds verifies set weight/rep clamping and the exercise cap.
func TestWorkoutLogBounds(t *testing.T) {
	doc := models.DefaultWorkoutLog()
	exercises := make([]models.ExerciseRecord, MaxExercisesPerWorkout+5)
	for i := range exercises {
		exercises[i] = models.ExerciseRecord{EquipmentID: "e1"}
	}
	exercises[0].Sets = []models.SetRecord{{Weight: -10, Reps: 5000}}
	doc.Workouts = []models.Workout{{ID: "w1", Exercises: exercises}}
	raw, _ := json.Marshal(doc)

	res := WorkoutLog(raw)
	if res.Valid {
		t.Fatal("Valid = true, want false")
	}
	w := res.Cleaned.Workouts[0]
	if len(w.Exercises) != MaxExercisesPerWorkout {
		t.Errorf("exercises = %d, want %d", len(w.Exercises), MaxExercisesPerWorkout)
	}
	set := w.Exercises[0].Sets[0]
	if set.Weight != 0 {
		t.Errorf("weight = %.1f, want clamped to 0", set.Weight)
	}
	if set.Reps != MaxReps {
		t.Errorf("reps = %d, want clamped to %d", set.Reps, MaxReps)
	}
}

// TestWorkoutLogRecomputesStatistics verifies stored statistics are ignored
// and recomputed from the workout list.
func TestWorkoutLogRecomputesStatistics(t *testing.T) {
	raw := []byte(`{
		"workouts": [{"id": "w1", "date": "2026-05-01T10:00:00Z", "durationMinutes": 30}],
		"statistics": {"totalWorkouts": 999, "totalMinutes": 99999}
	}`)

	res := WorkoutLog(raw)
	if res.Cleaned.Statistics.TotalWorkouts != 1 {
		t.Errorf("totalWorkouts = %d, want recomputed 1", res.Cleaned.Statistics.TotalWorkouts)
	}
	if res.Cleaned.Statistics.TotalMinutes != 30 {
		t.Errorf("totalMinutes = %d, want recomputed 30", res.Cleaned.Statistics.TotalMinutes)
	}
}

// TestEquipmentDatabaseCaps verifies the whole-database failure modes.
func TestEquipmentDatabaseCaps(t *testing.T) {
	t.Run("too many items", func(t *testing.T) {
		db := models.EquipmentDatabase{Version: 1}
		for i := 0; i <= MaxEquipmentCount; i++ {
			db.Equipment = append(db.Equipment, models.EquipmentRecord{ID: strings.Repeat("x", i%5+1)})
		}
		raw, _ := json.Marshal(db)
		if res := EquipmentDatabase(raw); res.Valid {
			t.Error("Valid = true for oversized database")
		}
	})

	t.Run("too many primary muscles", func(t *testing.T) {
		db := models.EquipmentDatabase{Version: 1, Equipment: []models.EquipmentRecord{
			{ID: "ok", Name: "OK"},
			{ID: "bad", Muscles: models.Muscles{Primary: make([]string, MaxPrimaryMuscles+1)}},
		}}
		raw, _ := json.Marshal(db)
		if res := EquipmentDatabase(raw); res.Valid {
			t.Error("Valid = true despite muscle cap violation")
		}
	})

	t.Run("valid database", func(t *testing.T) {
		db := models.EquipmentDatabase{Version: 1, Equipment: []models.EquipmentRecord{
			{ID: "chest-press", Name: "Chest Press", Zone: "B", Type: "machine", Pattern: "push",
				Muscles: models.Muscles{Primary: []string{"chest"}}},
		}}
		raw, _ := json.Marshal(db)
		res := EquipmentDatabase(raw)
		if !res.Valid {
			t.Errorf("Valid = false, errors: %v", res.Errors)
		}
		if len(res.Cleaned.Equipment) != 1 {
			t.Errorf("cleaned equipment = %d items, want 1", len(res.Cleaned.Equipment))
		}
	})
}
