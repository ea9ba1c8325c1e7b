package models

import "time"

// ExperienceLevel classifies a user's training experience.
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceAdvanced     ExperienceLevel = "advanced"
)

// UserProfile is the user section of a settings document.
type UserProfile struct {
	Name            string          `json:"name"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel"`
	Goals           []string        `json:"goals"`
}

// EquipmentSettings holds per-equipment user state: the last weight used,
// seat position, free-form notes. Keyed by equipment id inside the settings
// document; never deleted automatically.
type EquipmentSettings struct {
	LastWeight   float64 `json:"lastWeight"`
	SeatPosition string  `json:"seatPosition"`
	Notes        string  `json:"notes"`
	LastUsedDate string  `json:"lastUsedDate"` // YYYY-MM-DD
}

// SettingsDocument is the per-user settings blob synced between devices.
type SettingsDocument struct {
	User         UserProfile                  `json:"user"`
	Equipment    map[string]EquipmentSettings `json:"equipment"`
	Preferences  map[string]any               `json:"preferences"`
	LastModified time.Time                    `json:"lastModified"`
}

// DefaultSettings returns a settings document with defaults for first use.
func DefaultSettings() SettingsDocument {
	return SettingsDocument{
		User:        UserProfile{ExperienceLevel: ExperienceBeginner, Goals: []string{}},
		Equipment:   map[string]EquipmentSettings{},
		Preferences: map[string]any{},
	}
}

// SetRecord is a single set within an exercise: weight, reps, done or not.
type SetRecord struct {
	Weight    float64 `json:"weight"`
	Reps      int     `json:"reps"`
	Completed bool    `json:"completed"`
}

// ExerciseRecord groups the sets performed on one piece of equipment.
type ExerciseRecord struct {
	EquipmentID string      `json:"equipmentId"`
	Sets        []SetRecord `json:"sets"`
}

// Workout is one logged gym session. Workouts are append-only facts: once
// created they are never edited during a merge, only unioned by id.
type Workout struct {
	ID              string           `json:"id"`
	Date            time.Time        `json:"date"`
	Exercises       []ExerciseRecord `json:"exercises"`
	DurationMinutes int              `json:"durationMinutes"`
	ZonesVisited    []string         `json:"zonesVisited"`
	Notes           string           `json:"notes"`
}

// Template is a reusable workout plan, identified by name.
type Template struct {
	Name      string   `json:"name"`
	Equipment []string `json:"equipment"`
	Notes     string   `json:"notes"`
}

// MonthlySummary aggregates workouts for one calendar month.
type MonthlySummary struct {
	Workouts     int `json:"workouts"`
	TotalMinutes int `json:"totalMinutes"`
}

// Statistics are derived from the workout list and always recomputed in
// full; they are never patched incrementally.
type Statistics struct {
	TotalWorkouts  int                       `json:"totalWorkouts"`
	TotalMinutes   int                       `json:"totalMinutes"`
	EquipmentUsage map[string]int            `json:"equipmentUsage"`
	Monthly        map[string]MonthlySummary `json:"monthly"` // keyed YYYY-MM
}

// WorkoutLogDocument is the per-user workout history blob.
type WorkoutLogDocument struct {
	Workouts   []Workout  `json:"workouts"`
	Templates  []Template `json:"templates"`
	Statistics Statistics `json:"statistics"`
}

// DefaultWorkoutLog returns an empty workout log document.
func DefaultWorkoutLog() WorkoutLogDocument {
	return WorkoutLogDocument{
		Workouts:  []Workout{},
		Templates: []Template{},
		Statistics: Statistics{
			EquipmentUsage: map[string]int{},
			Monthly:        map[string]MonthlySummary{},
		},
	}
}

// ExportDocument is the import/export file format.
type ExportDocument struct {
	Version           int                 `json:"version"`
	ExportedAt        time.Time           `json:"exportedAt"`
	Settings          *SettingsDocument   `json:"settings,omitempty"`
	WorkoutLogs       *WorkoutLogDocument `json:"workoutLogs,omitempty"`
	EquipmentDatabase *EquipmentDatabase  `json:"equipmentDatabase,omitempty"`
}

// ExportVersion is the current export file format version.
const ExportVersion = 1
