package drafts

import "testing"

func TestColorForIsDeterministic(t *testing.T) {
	ids := []string{"u1", "u2", "c2f1a0d4-1b9e-4a55-9e0e-8f7a2d3c4b5a", ""}
	for _, id := range ids {
		first := ColorFor(id)
		for i := 0; i < 3; i++ {
			if got := ColorFor(id); got != first {
				t.Fatalf("ColorFor(%q) changed: %v vs %v", id, got, first)
			}
		}
		found := false
		for _, p := range palette {
			if p == first {
				found = true
			}
		}
		if !found {
			t.Fatalf("ColorFor(%q) returned pair outside palette", id)
		}
	}
}

func TestColorForSpreadsAcrossPalette(t *testing.T) {
	seen := map[ColorPair]struct{}{}
	for i := 0; i < 200; i++ {
		seen[ColorFor(string(rune('a'+i%26))+string(rune('0'+i/26)))] = struct{}{}
	}
	if len(seen) < len(palette)/2 {
		t.Fatalf("expected ids to spread over the palette, got %d distinct pairs", len(seen))
	}
}
