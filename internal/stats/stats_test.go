package stats

import (
	"reflect"
	"testing"
	"time"

	"github.com/claude/gymtrack/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// TestComputeAggregates verifies totals, per-equipment usage, and monthly
// summaries over a small mixed workout list.
func TestComputeAggregates(t *testing.T) {
	workouts := []models.Workout{
		{
			ID: "w1", Date: day("2026-01-05"), DurationMinutes: 45,
			Exercises: []models.ExerciseRecord{
				{EquipmentID: "chest-press"},
				{EquipmentID: "lat-pulldown"},
			},
		},
		{
			ID: "w2", Date: day("2026-01-12"), DurationMinutes: 30,
			Exercises: []models.ExerciseRecord{
				{EquipmentID: "chest-press"},
			},
		},
		{
			ID: "w3", Date: day("2026-02-01"), DurationMinutes: 60,
		},
	}

	s := Compute(workouts)

	if s.TotalWorkouts != 3 {
		t.Errorf("TotalWorkouts = %d, want 3", s.TotalWorkouts)
	}
	if s.TotalMinutes != 135 {
		t.Errorf("TotalMinutes = %d, want 135", s.TotalMinutes)
	}
	if s.EquipmentUsage["chest-press"] != 2 {
		t.Errorf("chest-press usage = %d, want 2", s.EquipmentUsage["chest-press"])
	}
	if s.EquipmentUsage["lat-pulldown"] != 1 {
		t.Errorf("lat-pulldown usage = %d, want 1", s.EquipmentUsage["lat-pulldown"])
	}
	if got := s.Monthly["2026-01"]; got.Workouts != 2 || got.TotalMinutes != 75 {
		t.Errorf("2026-01 = %+v, want {2 75}", got)
	}
	if got := s.Monthly["2026-02"]; got.Workouts != 1 || got.TotalMinutes != 60 {
		t.Errorf("2026-02 = %+v, want {1 60}", got)
	}
}

// TestComputeIsPure verifies that recomputing from the same list yields
// identical statistics.
func TestComputeIsPure(t *testing.T) {
	workouts := []models.Workout{
		{ID: "w1", Date: day("2026-03-03"), DurationMinutes: 40,
			Exercises: []models.ExerciseRecord{{EquipmentID: "leg-press"}}},
	}
	a := Compute(workouts)
	b := Compute(workouts)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated Compute differs: %+v vs %+v", a, b)
	}
}

// TestComputeEmpty verifies an empty list yields zeroed, non-nil maps.
func TestComputeEmpty(t *testing.T) {
	s := Compute(nil)
	if s.TotalWorkouts != 0 || s.TotalMinutes != 0 {
		t.Errorf("empty totals = %d/%d, want 0/0", s.TotalWorkouts, s.TotalMinutes)
	}
	if s.EquipmentUsage == nil || s.Monthly == nil {
		t.Error("maps should be initialized, not nil")
	}
}
