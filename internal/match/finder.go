package match

import (
	"fmt"
	"sort"

	"github.com/claude/gymtrack/internal/models"
)

// DefaultLimit is the number of substitutes returned when the caller does
// not ask for a specific count.
const DefaultLimit = 5

// NotFoundError reports a substitute lookup for an id absent from the
// catalog. Unknown targets are a hard failure, never an empty result.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("equipment %q not found in catalog", e.ID)
}

// FindSubstitutes ranks every other equipment in the catalog by similarity
// to the target and returns at most limit results, best first. Candidates
// scoring 0 are excluded. Ties keep catalog order, so results are
// deterministic for a given catalog snapshot. limit <= 0 means DefaultLimit.
func FindSubstitutes(catalog []models.EquipmentRecord, targetID string, limit int) ([]models.MatchResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var target *models.EquipmentRecord
	for i := range catalog {
		if catalog[i].ID == targetID {
			target = &catalog[i]
			break
		}
	}
	if target == nil {
		return nil, &NotFoundError{ID: targetID}
	}

	results := make([]models.MatchResult, 0, len(catalog)-1)
	for _, candidate := range catalog {
		if candidate.ID == targetID {
			continue
		}
		if score := Score(*target, candidate); score > 0 {
			results = append(results, models.MatchResult{Equipment: candidate, Score: score})
		}
	}

	// Stable: equal scores keep catalog order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
