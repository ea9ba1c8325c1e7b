package models

// EquipmentRecord describes one piece of gym equipment. Records are loaded
// once per session from the equipment database and never mutated afterwards.
type EquipmentRecord struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Zone    string  `json:"zone"`    // single-letter area code A-F
	Type    string  `json:"type"`    // machine, cable, free-weight, ...
	Pattern string  `json:"pattern"` // movement pattern: push, pull, squat, hinge, ...
	Muscles Muscles `json:"muscles"`

	// Programming recommendations are optional passthrough text shown in
	// the UI; they are scrubbed but not bounds-checked.
	Programming *Programming `json:"programming,omitempty"`
}

// Muscles lists the primary and secondary muscles an equipment targets.
type Muscles struct {
	Primary   []string `json:"primary"`
	Secondary []string `json:"secondary"`
}

// Programming holds free-text set/rep recommendations per training goal.
type Programming struct {
	Strength    string `json:"strength,omitempty"`
	Hypertrophy string `json:"hypertrophy,omitempty"`
	Endurance   string `json:"endurance,omitempty"`
}

// EquipmentDatabase is the on-disk shape of the equipment catalog.
type EquipmentDatabase struct {
	Version   int               `json:"version"`
	Equipment []EquipmentRecord `json:"equipment"`
}

// MatchResult pairs an equipment record with its similarity score for one
// substitute lookup. Never persisted.
type MatchResult struct {
	Equipment EquipmentRecord `json:"equipment"`
	Score     int             `json:"score"`
}
