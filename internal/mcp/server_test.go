package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/gymtrack/internal/app"
	"github.com/claude/gymtrack/internal/catalog"
	"github.com/claude/gymtrack/internal/localstore"
	"github.com/claude/gymtrack/internal/models"
	"github.com/claude/gymtrack/internal/remote"
	"github.com/claude/gymtrack/internal/syncqueue"
)

func testHandlers(t *testing.T) *handlers {
	t.Helper()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	store, err := localstore.Open(t.TempDir(), log)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	cat, err := catalog.LoadEmbedded()
	if err != nil {
		t.Fatal(err)
	}
	rc := remote.New("http://127.0.0.1:1", store, log)
	a := app.New(store, rc, cat, syncqueue.NotifierFunc(func(string) {}), log)
	return &handlers{app: a, log: log}
}

func callReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// textOf pulls the text payload out of a tool result.
func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return tc.Text
}

func TestFindSubstitutesTool(t *testing.T) {
	h := testHandlers(t)

	res, err := h.findSubstitutes(context.Background(), callReq(map[string]any{
		"equipment_id": "chest-press-machine",
		"limit":        3,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", textOf(t, res))
	}

	var results []models.MatchResult
	if err := json.Unmarshal([]byte(textOf(t, res)), &results); err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || len(results) > 3 {
		t.Errorf("got %d results, want 1..3", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Error("results not sorted by descending score")
		}
	}
}

func TestFindSubstitutesUnknownID(t *testing.T) {
	h := testHandlers(t)
	res, err := h.findSubstitutes(context.Background(), callReq(map[string]any{
		"equipment_id": "no-such-machine",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("unknown id should yield a tool error result")
	}
}

func TestLogWorkoutTool(t *testing.T) {
	h := testHandlers(t)

	res, err := h.logWorkout(context.Background(), callReq(map[string]any{
		"equipment_id":     "lat-pulldown",
		"weight":           50.0,
		"reps":             10,
		"sets":             3,
		"duration_minutes": 20,
		"date":             "2026-03-01",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", textOf(t, res))
	}

	var saved models.Workout
	if err := json.Unmarshal([]byte(textOf(t, res)), &saved); err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" {
		t.Error("no workout id assigned")
	}
	if len(saved.Exercises) != 1 || len(saved.Exercises[0].Sets) != 3 {
		t.Errorf("exercises = %+v, want 1 exercise with 3 sets", saved.Exercises)
	}

	stats, err := h.app.Statistics()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalWorkouts != 1 || stats.EquipmentUsage["lat-pulldown"] != 1 {
		t.Errorf("stats = %+v, want the logged workout counted", stats)
	}
}

func TestLogWorkoutUnknownEquipment(t *testing.T) {
	h := testHandlers(t)
	res, err := h.logWorkout(context.Background(), callReq(map[string]any{
		"equipment_id": "no-such-machine",
		"weight":       50.0,
		"reps":         10,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("unknown equipment should yield a tool error result")
	}
}

func TestGetEquipmentByID(t *testing.T) {
	h := testHandlers(t)
	res, err := h.getEquipment(context.Background(), callReq(map[string]any{
		"id": "lat-pulldown",
	}))
	if err != nil {
		t.Fatal(err)
	}
	var rec models.EquipmentRecord
	if err := json.Unmarshal([]byte(textOf(t, res)), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID != "lat-pulldown" {
		t.Errorf("id = %q", rec.ID)
	}
}
