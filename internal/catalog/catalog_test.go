package catalog

import (
	"testing"
)

// TestLoadEmbedded verifies the compiled-in equipment database is valid and
// indexable.
func TestLoadEmbedded(t *testing.T) {
	c, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("embedded database failed validation: %v", err)
	}
	if c.Len() == 0 {
		t.Fatal("embedded catalog is empty")
	}

	eq, ok := c.Get("lat-pulldown")
	if !ok {
		t.Fatal("lat-pulldown missing from embedded catalog")
	}
	if eq.Pattern != "pull" || eq.Zone != "B" {
		t.Errorf("lat-pulldown = pattern %q zone %q, want pull/B", eq.Pattern, eq.Zone)
	}

	if _, ok := c.Get("does-not-exist"); ok {
		t.Error("Get returned ok for unknown id")
	}
}

// TestLoadRejectsInvalid verifies a database that fails validation is not
// loaded at all.
func TestLoadRejectsInvalid(t *testing.T) {
	raw := []byte(`{"version": 1, "equipment": [{"id": "a"}, {"id": "a"}]}`)
	if _, err := Load(raw); err == nil {
		t.Fatal("expected error for duplicate equipment ids")
	}
}

// TestFilters exercises the zone/pattern/muscle browse helpers.
func TestFilters(t *testing.T) {
	c, err := LoadEmbedded()
	if err != nil {
		t.Fatal(err)
	}

	for _, eq := range c.ByZone("B") {
		if eq.Zone != "B" {
			t.Errorf("ByZone(B) returned %s in zone %s", eq.ID, eq.Zone)
		}
	}
	if len(c.ByZone("B")) == 0 {
		t.Error("zone B should not be empty")
	}

	for _, eq := range c.ByPattern("hinge") {
		if eq.Pattern != "hinge" {
			t.Errorf("ByPattern(hinge) returned %s with pattern %s", eq.ID, eq.Pattern)
		}
	}

	chest := c.ByMuscle("chest")
	if len(chest) == 0 {
		t.Fatal("no chest equipment found")
	}
	// Primary matches come before secondary-only matches.
	sawSecondary := false
	for _, eq := range chest {
		isPrimary := false
		for _, m := range eq.Muscles.Primary {
			if m == "chest" {
				isPrimary = true
			}
		}
		if !isPrimary {
			sawSecondary = true
		} else if sawSecondary {
			t.Errorf("primary match %s appeared after a secondary-only match", eq.ID)
		}
	}
}
