// Package importer reads and writes the portable export file format:
// a single JSON document carrying settings, workout history, and optionally
// an equipment database. Imports are scrubbed and validated before anything
// touches the local store, and merge with existing data rather than
// replacing it.
package importer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/claude/gymtrack/internal/catalog"
	"github.com/claude/gymtrack/internal/localstore"
	"github.com/claude/gymtrack/internal/merge"
	"github.com/claude/gymtrack/internal/models"
	"github.com/claude/gymtrack/internal/validate"
)

// Stats tracks what an import changed.
type Stats struct {
	SettingsMerged   bool
	WorkoutsAdded    int
	WorkoutsTotal    int
	TemplatesTotal   int
	EquipmentItems   int
	ValidationErrors []string
}

// Importer moves export files in and out of the local store.
type Importer struct {
	store *localstore.Store
	cat   *catalog.Catalog
	log   *slog.Logger
}

// New creates a new Importer. cat supplies the equipment database for
// exports when the store holds no imported one.
func New(store *localstore.Store, cat *catalog.Catalog, log *slog.Logger) *Importer {
	return &Importer{store: store, cat: cat, log: log}
}

// ImportFile reads an export file and merges its documents into the local
// store, local data winning on conflicts. Invalid sub-documents abort the
// import before any write.
func (imp *Importer) ImportFile(path string) (*Stats, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading export file: %w", err)
	}
	return imp.Import(raw)
}

// Import merges a raw export document into the local store.
func (imp *Importer) Import(raw []byte) (*Stats, error) {
	var header struct {
		Version           int             `json:"version"`
		Settings          json.RawMessage `json:"settings"`
		WorkoutLogs       json.RawMessage `json:"workoutLogs"`
		EquipmentDatabase json.RawMessage `json:"equipmentDatabase"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("parsing export file: %w", err)
	}
	if header.Version != models.ExportVersion {
		return nil, fmt.Errorf("unsupported export version %d (supported: %d)", header.Version, models.ExportVersion)
	}

	stats := &Stats{}

	// Validate everything before the first write so a bad file cannot
	// leave the store half-imported.
	var incomingSettings *models.SettingsDocument
	if len(header.Settings) > 0 && string(header.Settings) != "null" {
		res := validate.Settings(header.Settings)
		if !res.Valid {
			stats.ValidationErrors = res.Errors
			return stats, fmt.Errorf("invalid settings in export file: %v", res.Errors)
		}
		incomingSettings = &res.Cleaned
	}
	var incomingLog *models.WorkoutLogDocument
	if len(header.WorkoutLogs) > 0 && string(header.WorkoutLogs) != "null" {
		res := validate.WorkoutLog(header.WorkoutLogs)
		if !res.Valid {
			stats.ValidationErrors = res.Errors
			return stats, fmt.Errorf("invalid workout log in export file: %v", res.Errors)
		}
		incomingLog = &res.Cleaned
	}
	var incomingEquipment *models.EquipmentDatabase
	if len(header.EquipmentDatabase) > 0 && string(header.EquipmentDatabase) != "null" {
		res := validate.EquipmentDatabase(header.EquipmentDatabase)
		if !res.Valid {
			stats.ValidationErrors = res.Errors
			return stats, fmt.Errorf("invalid equipment database in export file: %v", res.Errors)
		}
		incomingEquipment = &res.Cleaned
	}

	if incomingSettings != nil {
		local := models.DefaultSettings()
		if _, err := imp.store.GetJSON(localstore.KeySettings, &local); err != nil {
			return stats, fmt.Errorf("loading settings: %w", err)
		}
		merged := merge.Settings(incomingSettings, &local)
		if err := imp.store.SetJSON(localstore.KeySettings, merged); err != nil {
			return stats, fmt.Errorf("saving merged settings: %w", err)
		}
		stats.SettingsMerged = true
	}

	if incomingLog != nil {
		local := models.DefaultWorkoutLog()
		if _, err := imp.store.GetJSON(localstore.KeyWorkoutLog, &local); err != nil {
			return stats, fmt.Errorf("loading workout log: %w", err)
		}
		before := len(local.Workouts)
		merged := merge.WorkoutLogs(incomingLog, &local)
		if err := imp.store.SetJSON(localstore.KeyWorkoutLog, merged); err != nil {
			return stats, fmt.Errorf("saving merged workout log: %w", err)
		}
		stats.WorkoutsAdded = len(merged.Workouts) - before
		stats.WorkoutsTotal = len(merged.Workouts)
		stats.TemplatesTotal = len(merged.Templates)
	}

	if incomingEquipment != nil {
		// Imported databases replace any previously imported one; the
		// embedded catalog is untouched and keeps serving this session.
		if err := imp.store.SetJSON(localstore.KeyEquipmentCache, incomingEquipment); err != nil {
			return stats, fmt.Errorf("saving equipment database: %w", err)
		}
		stats.EquipmentItems = len(incomingEquipment.Equipment)
	}

	imp.log.Info("import complete",
		"settingsMerged", stats.SettingsMerged,
		"workoutsAdded", stats.WorkoutsAdded)
	return stats, nil
}

// Export assembles the export document from the local store.
func (imp *Importer) Export() (*models.ExportDocument, error) {
	doc := &models.ExportDocument{Version: models.ExportVersion, ExportedAt: time.Now().UTC()}

	settings := models.DefaultSettings()
	ok, err := imp.store.GetJSON(localstore.KeySettings, &settings)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if ok {
		doc.Settings = &settings
	}

	log := models.DefaultWorkoutLog()
	ok, err = imp.store.GetJSON(localstore.KeyWorkoutLog, &log)
	if err != nil {
		return nil, fmt.Errorf("loading workout log: %w", err)
	}
	if ok {
		doc.WorkoutLogs = &log
	}

	// A previously imported database wins over the embedded catalog.
	var equip models.EquipmentDatabase
	ok, err = imp.store.GetJSON(localstore.KeyEquipmentCache, &equip)
	if err != nil {
		return nil, fmt.Errorf("loading equipment database: %w", err)
	}
	switch {
	case ok:
		doc.EquipmentDatabase = &equip
	case imp.cat != nil:
		doc.EquipmentDatabase = &models.EquipmentDatabase{Version: 1, Equipment: imp.cat.All()}
	}

	return doc, nil
}

// ExportFile writes the export document to path as indented JSON.
func (imp *Importer) ExportFile(path string) error {
	doc, err := imp.Export()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}
	return nil
}
