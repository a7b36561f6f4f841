package world

import "testing"

func TestCreateDeathChest(t *testing.T) {
	w := testWorld(53)
	items := map[string]int{"iron_ore": 4, "oak_log": 2, "dust": 0}
	c := w.CreateDeathChest(V3(10.25, 0, -2.75), items)

	if c.ID != "chest-000001" {
		t.Fatalf("first chest id %q", c.ID)
	}
	// chests hold the drop position exactly, no tile snapping
	if c.Pos != V3(10.25, 0, -2.75) {
		t.Fatalf("chest at %v", c.Pos)
	}
	if len(c.Items) != 2 || c.Items["iron_ore"] != 4 || c.Items["oak_log"] != 2 {
		t.Fatalf("chest items %v", c.Items)
	}

	// the chest owns a copy of the inventory
	items["iron_ore"] = 99
	if c.Items["iron_ore"] != 4 {
		t.Fatalf("chest shares the caller's map")
	}

	// an empty inventory still marks the death site
	empty := w.CreateDeathChest(V3(0.5, 0, 0.5), nil)
	if empty == nil || len(empty.Items) != 0 {
		t.Fatalf("empty chest %+v", empty)
	}
	if w.DeathChestCount() != 2 {
		t.Fatalf("chest count %d, want 2", w.DeathChestCount())
	}
}

func TestGetNearbyDeathChest(t *testing.T) {
	w := testWorld(59)
	a := w.CreateDeathChest(V3(0, 0, 0), nil)
	b := w.CreateDeathChest(V3(10, 0, 0), nil)

	if got := w.GetNearbyDeathChest(V3(2, 0, 0), 5); got != a {
		t.Fatalf("nearby lookup returned %+v", got)
	}
	if got := w.GetNearbyDeathChest(V3(2, 0, 0), 1); got != nil {
		t.Fatalf("lookup outside radius returned %+v", got)
	}
	if got := w.GetNearbyDeathChest(V3(7, 0, 0), 50); got != b {
		t.Fatalf("nearest-wins lookup returned %+v", got)
	}
}

func TestRemoveDeathChest(t *testing.T) {
	w := testWorld(61)
	c := w.CreateDeathChest(V3(1, 0, 1), map[string]int{"resin": 1})

	if !w.RemoveDeathChest(c.ID) {
		t.Fatalf("remove returned false")
	}
	if w.GetDeathChest(c.ID) != nil {
		t.Fatalf("removed chest still found")
	}
	if w.DeathChestCount() != 0 {
		t.Fatalf("chest count %d after removal", w.DeathChestCount())
	}
	if w.RemoveDeathChest(c.ID) {
		t.Fatalf("second remove returned true")
	}
}
