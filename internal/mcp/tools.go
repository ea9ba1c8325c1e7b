package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/gymtrack/internal/models"
)

// --- Tool definitions ---

var toolFindSubstitutes = mcp.NewTool("find_substitutes",
	mcp.WithDescription("Rank alternative equipment for a machine that is taken. Scores by shared movement pattern, trained muscles, gym zone proximity, and loading type; highest score first."),
	mcp.WithString("equipment_id", mcp.Required(), mcp.Description("Catalog id of the equipment to replace (e.g. 'chest-press-machine')")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of suggestions. Defaults to 5.")),
)

var toolGetEquipment = mcp.NewTool("get_equipment",
	mcp.WithDescription("Look up gym equipment. With an id, returns that record; otherwise lists the catalog, optionally filtered by zone, movement pattern, or muscle."),
	mcp.WithString("id", mcp.Description("Catalog id of a single piece of equipment")),
	mcp.WithString("zone", mcp.Description("Filter by gym zone (e.g. 'A')")),
	mcp.WithString("pattern", mcp.Description("Filter by movement pattern (e.g. 'horizontal-press')")),
	mcp.WithString("muscle", mcp.Description("Filter by trained muscle (e.g. 'lats'); primary matches rank before secondary")),
)

var toolLogWorkout = mcp.NewTool("log_workout",
	mcp.WithDescription("Record a gym session for one piece of equipment. Saved locally immediately and synced to the account in the background."),
	mcp.WithString("equipment_id", mcp.Required(), mcp.Description("Catalog id of the equipment used")),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description("Weight per set")),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Reps per set")),
	mcp.WithNumber("sets", mcp.Description("Number of sets performed. Defaults to 1.")),
	mcp.WithNumber("duration_minutes", mcp.Description("Session length in minutes")),
	mcp.WithString("date", mcp.Description("Session date (YYYY-MM-DD). Defaults to today.")),
	mcp.WithString("notes", mcp.Description("Free-form notes")),
)

var toolGetStatistics = mcp.NewTool("get_statistics",
	mcp.WithDescription("Training statistics derived from the workout history: totals, per-equipment usage counts, and monthly summaries."),
)

var toolGetSettings = mcp.NewTool("get_settings",
	mcp.WithDescription("The user's profile and per-equipment state: last weight used, seat position, notes."),
)

// --- Tool handlers ---

func (h *handlers) findSubstitutes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("equipment_id")
	if err != nil {
		return mcp.NewToolResultError("equipment_id parameter is required"), nil
	}
	limit := req.GetInt("limit", 0)

	results, err := h.app.FindSubstitutes(id, limit)
	if err != nil {
		return mcp.NewToolResultError("lookup failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(results)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getEquipment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat := h.app.Catalog()

	if id := req.GetString("id", ""); id != "" {
		rec, ok := cat.Get(id)
		if !ok {
			return mcp.NewToolResultError("no equipment with id " + id), nil
		}
		result, err := mcp.NewToolResultJSON(rec)
		if err != nil {
			return mcp.NewToolResultError("serialization failed"), nil
		}
		return result, nil
	}

	records := cat.All()
	if zone := req.GetString("zone", ""); zone != "" {
		records = cat.ByZone(zone)
	} else if pattern := req.GetString("pattern", ""); pattern != "" {
		records = cat.ByPattern(pattern)
	} else if muscle := req.GetString("muscle", ""); muscle != "" {
		records = cat.ByMuscle(muscle)
	}

	result, err := mcp.NewToolResultJSON(records)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) logWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	equipmentID, err := req.RequireString("equipment_id")
	if err != nil {
		return mcp.NewToolResultError("equipment_id parameter is required"), nil
	}
	if _, ok := h.app.Catalog().Get(equipmentID); !ok {
		return mcp.NewToolResultError("no equipment with id " + equipmentID), nil
	}
	weight, err := req.RequireFloat("weight")
	if err != nil {
		return mcp.NewToolResultError("weight parameter is required"), nil
	}
	reps, err := req.RequireInt("reps")
	if err != nil {
		return mcp.NewToolResultError("reps parameter is required"), nil
	}
	setCount := req.GetInt("sets", 1)
	if setCount < 1 {
		setCount = 1
	}

	var date time.Time
	if d := req.GetString("date", ""); d != "" {
		date, err = time.Parse("2006-01-02", d)
		if err != nil {
			return mcp.NewToolResultError("invalid date, want YYYY-MM-DD: " + err.Error()), nil
		}
	}

	sets := make([]models.SetRecord, setCount)
	for i := range sets {
		sets[i] = models.SetRecord{Weight: weight, Reps: reps, Completed: true}
	}
	w := models.Workout{
		Date:            date,
		DurationMinutes: req.GetInt("duration_minutes", 0),
		Notes:           req.GetString("notes", ""),
		Exercises: []models.ExerciseRecord{
			{EquipmentID: equipmentID, Sets: sets},
		},
	}

	saved, err := h.app.LogWorkout(ctx, w)
	if err != nil {
		h.log.Error("mcp log_workout", "error", err)
		return mcp.NewToolResultError("saving workout failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(saved)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getStatistics(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.app.Statistics()
	if err != nil {
		h.log.Error("mcp get_statistics", "error", err)
		return mcp.NewToolResultError("reading statistics failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(stats)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSettings(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := h.app.Settings()
	if err != nil {
		h.log.Error("mcp get_settings", "error", err)
		return mcp.NewToolResultError("reading settings failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(doc)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
