package world

import (
	"testing"

	"emberwild.gg/internal/sim/catalogs"
)

func TestHarvestDamageAndDepletion(t *testing.T) {
	w := testWorld(21)
	n := findResource(t, w, func(n *ResourceNode) bool { return n.Tool == catalogs.ToolAxe && n.MaxHP > 10 })

	r, ok := w.HarvestResource(n.Pos, 10, "axe") // tool match is case-insensitive
	if !ok {
		t.Fatalf("harvest missed")
	}
	if r.NodeDef != n.DefID || r.Remaining != n.MaxHP-10 || r.Depleted {
		t.Fatalf("harvest result %+v", r)
	}
	if len(r.Loot) != 0 {
		t.Fatalf("loot rolled before depletion: %v", r.Loot)
	}

	r, ok = w.HarvestResource(n.Pos, n.MaxHP, "AXE")
	if !ok || !r.Depleted || r.Remaining != 0 {
		t.Fatalf("depleting hit: ok=%v %+v", ok, r)
	}
	if len(r.Loot) == 0 {
		t.Fatalf("depleting hit rolled no loot")
	}
	for _, stack := range r.Loot {
		var drop *catalogs.Drop
		for i := range n.Drops {
			if n.Drops[i].Item == stack.Item {
				drop = &n.Drops[i]
			}
		}
		if drop == nil {
			t.Fatalf("loot %q not in the drop table", stack.Item)
		}
		if stack.Count < drop.Min || stack.Count > drop.Max {
			t.Fatalf("loot %q x%d outside [%d,%d]", stack.Item, stack.Count, drop.Min, drop.Max)
		}
	}

	// depleted nodes are invisible and passable
	if got := w.GetResourceAt(n.Pos, 0.5); got != nil {
		t.Fatalf("depleted node still visible")
	}
	if !w.IsWalkable(n.Pos) {
		t.Fatalf("depleted node still blocking")
	}
	if n.RespawnIn != n.RespawnSec {
		t.Fatalf("respawn timer %v, want %v", n.RespawnIn, n.RespawnSec)
	}
	if _, ok := w.HarvestResource(n.Pos, 1, "axe"); ok {
		t.Fatalf("harvested a depleted node")
	}
}

func TestHarvestToolMismatch(t *testing.T) {
	w := testWorld(37)
	n := findResource(t, w, func(n *ResourceNode) bool { return n.Tool == catalogs.ToolPickaxe })

	if _, ok := w.HarvestResource(n.Pos, 5, "axe"); ok {
		t.Fatalf("wrong tool accepted")
	}
	if _, ok := w.HarvestResource(n.Pos, 5, ""); ok {
		t.Fatalf("empty tool accepted against a tool requirement")
	}
	if n.HP != n.MaxHP {
		t.Fatalf("miss still damaged the node: %d/%d", n.HP, n.MaxHP)
	}
	if _, ok := w.HarvestResource(n.Pos, 5, "Pickaxe"); !ok {
		t.Fatalf("matching tool rejected")
	}
}

func TestHarvestAmountFloor(t *testing.T) {
	w := testWorld(41)
	n := findResource(t, w, func(n *ResourceNode) bool { return n.MaxHP > 3 })

	if r, ok := w.HarvestResource(n.Pos, 0, n.Tool); !ok || r.Remaining != n.MaxHP-1 {
		t.Fatalf("zero amount: ok=%v remaining=%d", ok, r.Remaining)
	}
	if r, ok := w.HarvestResource(n.Pos, -5, n.Tool); !ok || r.Remaining != n.MaxHP-2 {
		t.Fatalf("negative amount: ok=%v remaining=%d", ok, r.Remaining)
	}
}

func TestHarvestMiss(t *testing.T) {
	w := testWorld(43)
	tx, tz := findOpenTile(t, w)
	if _, ok := w.HarvestResource(TileCenter(tx, tz), 5, "axe"); ok {
		t.Fatalf("harvest on an empty tile reported a hit")
	}
}

func TestResourceRespawnTick(t *testing.T) {
	w := testWorld(47)
	n := findResource(t, w, func(n *ResourceNode) bool { return n.RespawnSec >= 60 })

	if _, ok := w.HarvestResource(n.Pos, n.MaxHP, n.Tool); !ok {
		t.Fatalf("depleting harvest missed")
	}
	if !n.Depleted {
		t.Fatalf("node not depleted")
	}

	w.Update(n.RespawnSec - 1)
	if !n.Depleted {
		t.Fatalf("node respawned a second early")
	}
	w.Update(1.5)
	if n.Depleted || n.HP != n.MaxHP {
		t.Fatalf("node did not respawn: depleted=%v hp=%d/%d", n.Depleted, n.HP, n.MaxHP)
	}
	if got := w.GetResourceAt(n.Pos, 0.5); got != n {
		t.Fatalf("respawned node not visible")
	}
	if w.IsWalkable(n.Pos) {
		t.Fatalf("respawned node not blocking")
	}
}
