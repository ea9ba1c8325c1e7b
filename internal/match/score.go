// Package match implements the equipment substitute-matching engine: a
// weighted similarity score between two equipment records and a ranked
// substitute lookup over the catalog.
package match

import "github.com/claude/gymtrack/internal/models"

// Scoring weights. Additive, no normalization; a total of 0 means no
// meaningful similarity.
const (
	weightPattern         = 50
	weightPrimaryMuscle   = 30
	weightSecondaryMuscle = 10
	weightSameZone        = 20
	weightAdjacentZone    = 10
	weightSameType        = 15
)

// Score computes the similarity between a source equipment and a candidate.
// Pure; symmetry is not guaranteed and not relied upon. Self-comparison is
// the caller's job to exclude.
func Score(source, candidate models.EquipmentRecord) int {
	score := 0

	if source.Pattern != "" && source.Pattern == candidate.Pattern {
		score += weightPattern
	}

	score += weightPrimaryMuscle * intersectionSize(source.Muscles.Primary, candidate.Muscles.Primary)
	score += weightSecondaryMuscle * intersectionSize(source.Muscles.Secondary, candidate.Muscles.Secondary)

	if d, ok := zoneDistance(source.Zone, candidate.Zone); ok {
		switch d {
		case 0:
			score += weightSameZone
		case 1:
			score += weightAdjacentZone
		}
	}

	if source.Type != "" && source.Type == candidate.Type {
		score += weightSameType
	}

	return score
}

// intersectionSize counts muscles present in both lists. Duplicate entries
// within one list count once.
func intersectionSize(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, m := range a {
		set[m] = true
	}
	n := 0
	for _, m := range b {
		if set[m] {
			n++
			set[m] = false // count each shared muscle once
		}
	}
	return n
}

// zoneDistance returns the absolute distance between two single-letter zone
// codes. Zones that are not a single character are unresolvable and the
// proximity term is skipped.
func zoneDistance(a, b string) (int, bool) {
	if len(a) != 1 || len(b) != 1 {
		return 0, false
	}
	d := int(a[0]) - int(b[0])
	if d < 0 {
		d = -d
	}
	return d, true
}
