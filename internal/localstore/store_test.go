package localstore

import (
	"log/slog"
	"os"
	"slices"
	"testing"

	"github.com/claude/gymtrack/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestRoundTrip verifies JSON values survive a set/get cycle and absent
// keys report false.
func TestRoundTrip(t *testing.T) {
	s := testStore(t)

	doc := models.DefaultSettings()
	doc.User.Name = "Kim"
	if err := s.SetJSON(KeySettings, doc); err != nil {
		t.Fatal(err)
	}

	var got models.SettingsDocument
	ok, err := s.GetJSON(KeySettings, &got)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("key reported absent after set")
	}
	if got.User.Name != "Kim" {
		t.Errorf("user.name = %q, want Kim", got.User.Name)
	}

	ok, err = s.GetJSON("missing", &got)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("missing key reported present")
	}
}

// TestNonJSONValueReturnedVerbatim verifies a stored plain string that is
// not valid JSON comes back as-is instead of failing.
func TestNonJSONValueReturnedVerbatim(t *testing.T) {
	s := testStore(t)

	if err := s.SetRaw(KeyTheme, "dark"); err != nil {
		t.Fatal(err)
	}

	var theme string
	ok, err := s.GetJSON(KeyTheme, &theme)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || theme != "dark" {
		t.Errorf("theme = %q (present %v), want verbatim dark", theme, ok)
	}
}

// TestRemoveAndKeys verifies key listing and deletion.
func TestRemoveAndKeys(t *testing.T) {
	s := testStore(t)

	_ = s.SetRaw("a", `1`)
	_ = s.SetRaw("b", `2`)

	keys, err := s.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(keys, "a") || !slices.Contains(keys, "b") {
		t.Errorf("keys = %v, want a and b", keys)
	}

	if err := s.Remove("a"); err != nil {
		t.Fatal(err)
	}
	var v string
	if ok, _ := s.GetJSON("a", &v); ok {
		t.Error("removed key still present")
	}
}

// TestMemoryFallback verifies that when the disk store stops accepting
// writes, the store degrades to memory, fires the quota signal once, and
// keeps serving reads and writes.
func TestMemoryFallback(t *testing.T) {
	s := testStore(t)

	if err := s.SetRaw("persisted", `"before"`); err != nil {
		t.Fatal(err)
	}

	// Closing the database makes every subsequent disk write fail, which
	// exercises the cleanup-then-fallback path.
	s.db.Close()

	signals := 0
	s.OnQuotaExceeded = func() { signals++ }

	if err := s.SetRaw("after", `"value"`); err != nil {
		t.Fatalf("degraded set should not error: %v", err)
	}
	if !s.Degraded() {
		t.Fatal("store should be degraded after failed retry")
	}
	if signals != 1 {
		t.Errorf("quota signal fired %d times, want 1", signals)
	}

	var v string
	ok, err := s.GetJSON("after", &v)
	if err != nil || !ok || v != "value" {
		t.Errorf("in-memory read = %q (%v, %v), want value", v, ok, err)
	}

	// Further writes stay in memory and do not re-signal.
	if err := s.SetRaw("more", `1`); err != nil {
		t.Fatal(err)
	}
	if signals != 1 {
		t.Errorf("quota signal fired %d times after second write, want 1", signals)
	}
}
