package worldtest

import (
	"testing"

	"emberwild.gg/internal/persistence/chunkstore"
	"emberwild.gg/internal/protocol"
	"emberwild.gg/internal/sim/mathx"
	"emberwild.gg/internal/sim/world"
)

// A depleted node keeps its respawn timer ticking while its chunk sits on
// disk: deplete, age 10s, unload, and the reload far past the timer comes
// back respawned even though no loaded chunk ever ticked it down.
func TestRespawnCatchesUpAcrossUnload(t *testing.T) {
	st, err := chunkstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	w := world.New(world.Config{Seed: 2040, DebugChecks: true}, nil, discardLogger())
	w.SetStore(st)
	h := NewHarnessWithWorld(t, w, "forager")

	// a node far enough out that dropping the tracking anchor unloads it
	type target struct {
		pos   world.Vec3
		tool  string
		maxHP int
		rs    float64
		key   world.ChunkKey
	}
	var tgt *target
	for r := 2; r <= 6 && tgt == nil; r++ {
		for cx := -r; cx <= r && tgt == nil; cx++ {
			for cz := -r; cz <= r; cz++ {
				if mathx.Chebyshev(cx, cz) != r {
					continue
				}
				c := w.GetChunk(cx, cz)
				if c == nil || len(c.Resources) == 0 {
					continue
				}
				n := c.Resources[0]
				tgt = &target{pos: n.Pos, tool: n.Tool, maxHP: n.MaxHP, rs: n.RespawnSec, key: c.Key()}
				break
			}
		}
	}
	if tgt == nil {
		t.Fatalf("no resource found between 2 and 6 chunks out")
	}

	h.Track(tgt.pos)

	res := h.MustCmd(protocol.CmdMsg{
		Cmd:    protocol.CmdHarvest,
		Pos:    &protocol.Vec3{X: tgt.pos.X, Z: tgt.pos.Z},
		Tool:   tgt.tool,
		Amount: tgt.maxHP,
	})
	if res.Data == nil || res.Data.Depleted == nil || !*res.Data.Depleted {
		t.Fatalf("full-strength harvest did not deplete: %+v", res)
	}

	h.Advance(10)
	if n := w.GetResourceAt(tgt.pos, 0.3); n != nil {
		t.Fatalf("depleted node still visible: %s", n.DefID)
	}

	// dropping the anchor evicts the chunk, persisting the delta
	h.Untrack()
	for _, k := range w.LoadedChunkKeys() {
		if k == tgt.key {
			t.Fatalf("chunk %s survived untrack", k)
		}
	}

	// the timer elapses entirely while the chunk is unloaded
	h.Advance(tgt.rs)

	h.Track(tgt.pos)
	n := w.GetResourceAt(tgt.pos, 0.3)
	if n == nil {
		t.Fatalf("node missing after catch-up reload")
	}
	if n.Depleted || n.HP != tgt.maxHP {
		t.Fatalf("node not respawned: depleted=%v hp=%d/%d", n.Depleted, n.HP, tgt.maxHP)
	}
	if w.IsWalkable(tgt.pos) {
		t.Fatalf("respawned node does not block its tile")
	}
}

// Reloading before the timer has fully elapsed must keep the node depleted,
// with only the offline time subtracted.
func TestEarlyReloadStaysDepleted(t *testing.T) {
	st, err := chunkstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	w := world.New(world.Config{Seed: 2041, DebugChecks: true}, nil, discardLogger())
	w.SetStore(st)
	h := NewHarnessWithWorld(t, w, "forager")

	var (
		pos   world.Vec3
		tool  string
		maxHP int
		rs    float64
	)
	found := false
	for r := 2; r <= 6 && !found; r++ {
		for cx := -r; cx <= r && !found; cx++ {
			for cz := -r; cz <= r; cz++ {
				if mathx.Chebyshev(cx, cz) != r {
					continue
				}
				c := w.GetChunk(cx, cz)
				if c == nil || len(c.Resources) == 0 {
					continue
				}
				n := c.Resources[0]
				pos, tool, maxHP, rs = n.Pos, n.Tool, n.MaxHP, n.RespawnSec
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatalf("no resource found between 2 and 6 chunks out")
	}

	h.Track(pos)
	h.MustCmd(protocol.CmdMsg{
		Cmd:    protocol.CmdHarvest,
		Pos:    &protocol.Vec3{X: pos.X, Z: pos.Z},
		Tool:   tool,
		Amount: maxHP,
	})
	h.Untrack()

	// stay offline for half the timer, then look again
	h.Advance(rs / 2)
	h.Track(pos)

	if n := w.GetResourceAt(pos, 0.3); n != nil {
		t.Fatalf("node respawned after only half the timer: %s", n.DefID)
	}
	if !w.IsWalkable(pos) {
		t.Fatalf("depleted node blocks its tile")
	}

	// the remaining half passes while loaded
	h.AdvanceBy(rs/2+1, 5)
	n := w.GetResourceAt(pos, 0.3)
	if n == nil {
		t.Fatalf("node never respawned")
	}
	if n.HP != maxHP {
		t.Fatalf("respawned at %d/%d hp", n.HP, maxHP)
	}
}
