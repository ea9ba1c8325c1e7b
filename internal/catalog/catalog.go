// Package catalog owns the in-memory equipment catalog for a session. The
// catalog is loaded once (from the embedded database or an external file),
// validated, and never mutated afterwards.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/claude/gymtrack/internal/models"
	"github.com/claude/gymtrack/internal/validate"
)

//go:embed equipment.json
var embeddedDB []byte

// Catalog is an immutable equipment list with id lookup.
type Catalog struct {
	records []models.EquipmentRecord
	byID    map[string]int
}

// Load validates a raw equipment database and builds a catalog from it.
func Load(raw []byte) (*Catalog, error) {
	res := validate.EquipmentDatabase(raw)
	if !res.Valid {
		return nil, fmt.Errorf("invalid equipment database: %s", strings.Join(res.Errors, "; "))
	}

	c := &Catalog{
		records: res.Cleaned.Equipment,
		byID:    make(map[string]int, len(res.Cleaned.Equipment)),
	}
	for i, eq := range c.records {
		c.byID[eq.ID] = i
	}
	return c, nil
}

// LoadEmbedded builds the catalog from the equipment database compiled into
// the binary.
func LoadEmbedded() (*Catalog, error) {
	return Load(embeddedDB)
}

// LoadFile builds the catalog from an external JSON file.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading equipment database: %w", err)
	}
	return Load(raw)
}

// All returns the catalog records in database order. Callers must not
// modify the returned slice.
func (c *Catalog) All() []models.EquipmentRecord {
	return c.records
}

// Len returns the number of equipment records.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Get looks up an equipment record by id.
func (c *Catalog) Get(id string) (models.EquipmentRecord, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.EquipmentRecord{}, false
	}
	return c.records[i], true
}

// ByZone returns the records in the given zone, in catalog order.
func (c *Catalog) ByZone(zone string) []models.EquipmentRecord {
	var out []models.EquipmentRecord
	for _, eq := range c.records {
		if eq.Zone == zone {
			out = append(out, eq)
		}
	}
	return out
}

// ByPattern returns the records with the given movement pattern.
func (c *Catalog) ByPattern(pattern string) []models.EquipmentRecord {
	var out []models.EquipmentRecord
	for _, eq := range c.records {
		if eq.Pattern == pattern {
			out = append(out, eq)
		}
	}
	return out
}

// ByMuscle returns the records that target the given muscle, primary
// matches first.
func (c *Catalog) ByMuscle(muscle string) []models.EquipmentRecord {
	var primary, secondary []models.EquipmentRecord
	for _, eq := range c.records {
		if contains(eq.Muscles.Primary, muscle) {
			primary = append(primary, eq)
		} else if contains(eq.Muscles.Secondary, muscle) {
			secondary = append(secondary, eq)
		}
	}
	return append(primary, secondary...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
