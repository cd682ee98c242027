package document

import "testing"

func TestGlobals_SetCreatesIntermediates(t *testing.T) {
	g := make(globals)
	g.set("google.maps.version", "weekly")

	if _, ok := g.lookup("google"); !ok {
		t.Error("Expected 'google' to exist after nested set")
	}
	if _, ok := g.lookup("google.maps"); !ok {
		t.Error("Expected 'google.maps' to exist after nested set")
	}

	v, ok := g.lookup("google.maps.version")
	if !ok {
		t.Fatal("Expected 'google.maps.version' to exist")
	}
	if v != "weekly" {
		t.Errorf("Expected 'weekly', got '%v'", v)
	}
}

func TestGlobals_LookupMissing(t *testing.T) {
	g := make(globals)
	g.set("google.maps", 1)

	cases := []string{"goog", "google.map", "google.maps.anything", "other.path"}
	for _, path := range cases {
		if _, ok := g.lookup(path); ok {
			t.Errorf("Expected lookup(%q) to miss", path)
		}
	}
}

func TestGlobals_SetOverwritesLeafIntermediate(t *testing.T) {
	g := make(globals)
	g.set("google", "not an object")
	g.set("google.maps", 42)

	v, ok := g.lookup("google.maps")
	if !ok {
		t.Fatal("Expected 'google.maps' after overwriting a leaf intermediate")
	}
	if v != 42 {
		t.Errorf("Expected 42, got '%v'", v)
	}
}

func TestGlobals_DeleteSubtree(t *testing.T) {
	g := make(globals)
	g.set("google.maps", 1)
	g.set("google.charts", 2)

	g.delete("google")

	if _, ok := g.lookup("google.maps"); ok {
		t.Error("Expected 'google.maps' to be gone after deleting 'google'")
	}
	if _, ok := g.lookup("google"); ok {
		t.Error("Expected 'google' to be gone")
	}

	// Deleting again or deleting through a non-object is a no-op.
	g.delete("google")
	g.set("top", "leaf")
	g.delete("top.inner")
	if _, ok := g.lookup("top"); !ok {
		t.Error("Expected 'top' to survive a delete through a leaf")
	}
}
