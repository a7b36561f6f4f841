package world

import (
	"fmt"
	"testing"
)

func TestStationLayout(t *testing.T) {
	w := testWorld(1)
	stations := w.Stations()
	if len(stations) != 15 {
		t.Fatalf("placed %d stations, want 15", len(stations))
	}

	// one lane per discipline along Z, tiers stepping outward along X
	lanes := map[string]int{
		"alchemy":     -8,
		"cooking":     -4,
		"engineering": 0,
		"smithing":    4,
		"tailoring":   8,
	}
	seen := map[string]bool{}
	for _, s := range stations {
		if seen[s.ID] {
			t.Fatalf("duplicate station id %s", s.ID)
		}
		seen[s.ID] = true
		if want := fmt.Sprintf("station-%s-%d", s.Discipline, s.Tier); s.ID != want {
			t.Fatalf("station id %q, want %q", s.ID, want)
		}
		laneZ, ok := lanes[s.Discipline]
		if !ok {
			t.Fatalf("unknown discipline %q", s.Discipline)
		}
		if want := TileCenter(8+4*s.Tier, laneZ); s.Pos != want {
			t.Fatalf("station %s at %v, want %v", s.ID, s.Pos, want)
		}
	}
}

func TestNearestStation(t *testing.T) {
	w := testWorld(1)

	if got := w.NearestStation(V3(0, 0, 0), "smithing"); got == nil || got.Tier != 1 || got.Discipline != "smithing" {
		t.Fatalf("nearest smithing station from spawn: %+v", got)
	}
	// unfiltered, the engineering lane runs along z=0 and wins
	if got := w.NearestStation(V3(0, 0, 0), ""); got == nil || got.Discipline != "engineering" || got.Tier != 1 {
		t.Fatalf("nearest station from spawn: %+v", got)
	}
	// equidistant between tiers keeps the lower tier
	if got := w.NearestStation(V3(14.5, 0, 4.5), "smithing"); got == nil || got.Tier != 1 {
		t.Fatalf("tie broke to %+v, want tier 1", got)
	}
	if got := w.NearestStation(V3(0, 0, 0), "fletching"); got != nil {
		t.Fatalf("unknown discipline matched %+v", got)
	}
}
