package worldtest

import (
	"math"
	"testing"

	"emberwild.gg/internal/sim/biome"
	"emberwild.gg/internal/sim/mathx"
	"emberwild.gg/internal/sim/nav"
	"emberwild.gg/internal/sim/world"
)

func TestLineOfSightBarrierAndBypass(t *testing.T) {
	w := newWorld(99)
	wx, wz := findClearWindow(t, w, 5)

	from := world.TileCenter(wx, wz+2)
	to := world.TileCenter(wx+4, wz+2)
	if r := w.HasLineOfSight(from, to); !r.Clear {
		t.Fatalf("open row blocked: %+v", r)
	}

	buildWall(t, w, [][2]int{{wx + 2, wz + 2}})

	r := w.HasLineOfSight(from, to)
	if r.Clear {
		t.Fatalf("barrier did not block sight")
	}
	if r.Blocker != nav.BlockBarrier {
		t.Fatalf("blocker kind %q, want barrier", r.Blocker)
	}
	if r.TileX != wx+2 || r.TileZ != wz+2 {
		t.Fatalf("blocker at (%d,%d), want (%d,%d)", r.TileX, r.TileZ, wx+2, wz+2)
	}
	if math.Abs(r.Distance-2.0) > 1e-9 {
		t.Fatalf("blocker distance %v, want 2.0", r.Distance)
	}

	// area and ground-targeted effects skip the check, case-insensitively
	for _, tag := range []string{"circle", "aoe", "AOE", "ground", "Circle"} {
		if r := w.HasLineOfSight(from, to, tag); !r.Clear {
			t.Fatalf("tag %q did not bypass the barrier", tag)
		}
	}
	if r := w.HasLineOfSight(from, to, "pierce"); r.Clear {
		t.Fatalf("unknown tag bypassed the barrier")
	}
	if r := w.HasLineOfSight(from, to, "pierce", "circle"); !r.Clear {
		t.Fatalf("mixed tags with one bypass still blocked")
	}
}

func TestLineOfSightEndpointsNeverBlock(t *testing.T) {
	w := newWorld(99)
	wx, wz := findClearWindow(t, w, 5)

	// standing inside a barrier ring and shooting out: the source tile's own
	// barrier must not block, only tiles strictly between the endpoints do
	buildWall(t, w, [][2]int{{wx + 1, wz + 1}, {wx + 3, wz + 3}})

	from := world.TileCenter(wx+1, wz+1)
	to := world.TileCenter(wx+3, wz+3)
	if r := w.HasLineOfSight(from, to); !r.Clear {
		t.Fatalf("endpoint barriers blocked the line: %+v", r)
	}

	// but a barrier on the single interior tile does
	buildWall(t, w, [][2]int{{wx + 2, wz + 2}})
	if r := w.HasLineOfSight(from, to); r.Clear {
		t.Fatalf("interior barrier ignored")
	}
}

// A lake chunk carries a water disc of radius 5 around its center, so the
// column lx=7 is land at lz 2 and 13 and water for every lz between. That
// makes terrain blocking checkable without caring where resources landed.
func TestLineOfSightTerrainBlocks(t *testing.T) {
	w := newWorld(77)

	var lake *world.Chunk
	for r := 0; r <= 12 && lake == nil; r++ {
		for cx := -r; cx <= r && lake == nil; cx++ {
			for cz := -r; cz <= r; cz++ {
				if mathx.Chebyshev(cx, cz) != r {
					continue
				}
				if c := w.GetChunk(cx, cz); c != nil && c.Type.Variant == biome.VariantLake {
					lake = c
					break
				}
			}
		}
	}
	if lake == nil {
		t.Fatalf("no lake chunk within 12 chunks of the origin")
	}

	bx := lake.CX * world.ChunkSize
	bz := lake.CZ * world.ChunkSize
	from := world.TileCenter(bx+7, bz+2)
	to := world.TileCenter(bx+7, bz+13)

	r := w.HasLineOfSight(from, to)
	if r.Clear {
		t.Fatalf("sight crossed open water")
	}
	if r.Blocker != nav.BlockTerrain {
		t.Fatalf("blocker kind %q, want terrain", r.Blocker)
	}
	if r.TileX != bx+7 || r.TileZ != bz+3 {
		t.Fatalf("first water tile reported at (%d,%d), want (%d,%d)", r.TileX, r.TileZ, bx+7, bz+3)
	}
}

func TestLineOfSightResourceBlocks(t *testing.T) {
	w := newWorld(99)

	// aim across a live resource node: two tiles out on either side along x
	var node *world.ResourceNode
	for r := 0; r <= 8 && node == nil; r++ {
		for cx := -r; cx <= r && node == nil; cx++ {
			for cz := -r; cz <= r; cz++ {
				if mathx.Chebyshev(cx, cz) != r {
					continue
				}
				c := w.GetChunk(cx, cz)
				if c == nil {
					continue
				}
				for _, n := range c.Resources {
					if w.IsWalkable(world.TileCenter(n.TX-2, n.TZ)) && w.IsWalkable(world.TileCenter(n.TX+2, n.TZ)) &&
						w.IsWalkable(world.TileCenter(n.TX-1, n.TZ)) && w.IsWalkable(world.TileCenter(n.TX+1, n.TZ)) {
						node = n
						break
					}
				}
				if node != nil {
					break
				}
			}
		}
	}
	if node == nil {
		t.Fatalf("no resource with clear flanks found")
	}

	from := world.TileCenter(node.TX-2, node.TZ)
	to := world.TileCenter(node.TX+2, node.TZ)
	r := w.HasLineOfSight(from, to)
	if r.Clear {
		t.Fatalf("sight passed through %s", node.DefID)
	}
	if r.Blocker != nav.BlockResource {
		t.Fatalf("blocker kind %q, want resource", r.Blocker)
	}
	if r.TileX != node.TX || r.TileZ != node.TZ {
		t.Fatalf("blocker at (%d,%d), want the node tile (%d,%d)", r.TileX, r.TileZ, node.TX, node.TZ)
	}
}
