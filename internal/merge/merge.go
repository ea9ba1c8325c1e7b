// Package merge reconciles local and remote copies of the per-user
// documents. It is the single merge implementation in the module: the client
// migration flow and the server migrate handler both call it, so the two
// paths cannot drift apart. Policy is "local wins" for settings and
// templates (the most recently active device is authoritative); workouts
// are immutable facts and are unioned by id.
package merge

import (
	"sort"

	"github.com/claude/gymtrack/internal/models"
	"github.com/claude/gymtrack/internal/stats"
)

// Settings merges a remote and a local settings document. Either side may
// be nil, in which case the other is returned unchanged. Top-level sections
// are shallow-merged with local values taking precedence per key.
func Settings(remote, local *models.SettingsDocument) *models.SettingsDocument {
	if remote == nil {
		return local
	}
	if local == nil {
		return remote
	}

	merged := *remote

	if local.User.Name != "" {
		merged.User.Name = local.User.Name
	}
	if local.User.ExperienceLevel != "" {
		merged.User.ExperienceLevel = local.User.ExperienceLevel
	}
	if len(local.User.Goals) > 0 {
		merged.User.Goals = local.User.Goals
	}

	merged.Equipment = make(map[string]models.EquipmentSettings, len(remote.Equipment)+len(local.Equipment))
	for id, es := range remote.Equipment {
		merged.Equipment[id] = es
	}
	for id, es := range local.Equipment {
		merged.Equipment[id] = es
	}

	merged.Preferences = make(map[string]any, len(remote.Preferences)+len(local.Preferences))
	for k, v := range remote.Preferences {
		merged.Preferences[k] = v
	}
	for k, v := range local.Preferences {
		merged.Preferences[k] = v
	}

	if local.LastModified.After(merged.LastModified) {
		merged.LastModified = local.LastModified
	}

	return &merged
}

// WorkoutLogs merges a remote and a local workout log. Workouts are unioned
// by id (remote first, so a local copy of the same id does not duplicate
// it), then re-sorted by date descending. Templates merge by name with
// local winning collisions. Statistics are recomputed in full from the
// merged list.
func WorkoutLogs(remote, local *models.WorkoutLogDocument) *models.WorkoutLogDocument {
	if remote == nil {
		if local != nil {
			local.Statistics = stats.Compute(local.Workouts)
		}
		return local
	}
	if local == nil {
		remote.Statistics = stats.Compute(remote.Workouts)
		return remote
	}

	merged := models.WorkoutLogDocument{}

	seen := make(map[string]bool, len(remote.Workouts))
	for _, w := range remote.Workouts {
		if w.ID == "" || seen[w.ID] {
			continue
		}
		seen[w.ID] = true
		merged.Workouts = append(merged.Workouts, w)
	}
	for _, w := range local.Workouts {
		if w.ID == "" || seen[w.ID] {
			continue
		}
		seen[w.ID] = true
		merged.Workouts = append(merged.Workouts, w)
	}

	sort.SliceStable(merged.Workouts, func(i, j int) bool {
		return merged.Workouts[i].Date.After(merged.Workouts[j].Date)
	})

	merged.Templates = mergeTemplates(remote.Templates, local.Templates)
	merged.Statistics = stats.Compute(merged.Workouts)

	if merged.Workouts == nil {
		merged.Workouts = []models.Workout{}
	}
	return &merged
}

// mergeTemplates keeps remote ordering for templates both sides know,
// replacing bodies with the local version, and appends local-only templates.
func mergeTemplates(remote, local []models.Template) []models.Template {
	byName := make(map[string]models.Template, len(local))
	for _, t := range local {
		byName[t.Name] = t
	}

	merged := make([]models.Template, 0, len(remote)+len(local))
	seen := make(map[string]bool, len(remote))
	for _, t := range remote {
		if lt, ok := byName[t.Name]; ok {
			t = lt
		}
		merged = append(merged, t)
		seen[t.Name] = true
	}
	for _, t := range local {
		if !seen[t.Name] {
			merged = append(merged, t)
		}
	}
	return merged
}
