// Package stats recomputes workout-log statistics. Statistics are always an
// exact function of the current workout list: every caller that changes the
// list replaces the statistics wholesale with Compute's result, so the
// derived numbers can never drift from the data.
package stats

import (
	"github.com/claude/gymtrack/internal/models"
)

// Compute derives statistics from a workout list.
func Compute(workouts []models.Workout) models.Statistics {
	s := models.Statistics{
		TotalWorkouts:  len(workouts),
		EquipmentUsage: map[string]int{},
		Monthly:        map[string]models.MonthlySummary{},
	}

	for _, w := range workouts {
		s.TotalMinutes += w.DurationMinutes

		for _, ex := range w.Exercises {
			if ex.EquipmentID == "" {
				continue
			}
			s.EquipmentUsage[ex.EquipmentID]++
		}

		if !w.Date.IsZero() {
			month := w.Date.Format("2006-01")
			m := s.Monthly[month]
			m.Workouts++
			m.TotalMinutes += w.DurationMinutes
			s.Monthly[month] = m
		}
	}

	return s
}
