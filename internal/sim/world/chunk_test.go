package world

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"emberwild.gg/internal/sim/biome"
	"emberwild.gg/internal/sim/mathx"
)

// chunkFingerprint flattens everything generation decides about a chunk into
// a comparable string.
func chunkFingerprint(c *Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "type=%s\n", c.Type)
	for tz := c.CZ * ChunkSize; tz < (c.CZ+1)*ChunkSize; tz++ {
		for tx := c.CX * ChunkSize; tx < (c.CX+1)*ChunkSize; tx++ {
			tile := c.Tiles[TileKey{X: tx, Z: tz}]
			fmt.Fprintf(&b, "%d", tile.Terrain)
		}
		b.WriteByte('\n')
	}
	for _, n := range c.Resources {
		fmt.Fprintf(&b, "res %s t%d (%d,%d) hp=%d/%d respawn=%.1f\n",
			n.DefID, n.Tier, n.TX, n.TZ, n.HP, n.MaxHP, n.RespawnSec)
	}
	for _, e := range c.Enemies {
		fmt.Fprintf(&b, "enemy %s %s t%d hp=%d (%.1f,%.1f)\n",
			e.ID, e.DefID, e.Tier, e.Health, e.Pos.X, e.Pos.Z)
	}
	return b.String()
}

func TestChunkGenerationDeterministic(t *testing.T) {
	coords := [][2]int{{0, 0}, {1, 0}, {5, -3}, {-7, 2}, {3, 3}, {-4, -6}, {12, 9}, {-11, -12}}
	a := testWorld(2026)
	b := testWorld(2026)
	for _, cc := range coords {
		ca := a.GetChunk(cc[0], cc[1])
		cb := b.GetChunk(cc[0], cc[1])
		if ca == nil || cb == nil {
			t.Fatalf("chunk (%d,%d) failed to load", cc[0], cc[1])
		}
		fa, fb := chunkFingerprint(ca), chunkFingerprint(cb)
		if fa != fb {
			t.Fatalf("chunk (%d,%d) diverged across worlds with the same seed:\n%s\n---\n%s", cc[0], cc[1], fa, fb)
		}
	}
}

func TestChunkGenerationSeedDivergence(t *testing.T) {
	a := testWorld(1)
	b := testWorld(2)
	for cx := 0; cx < 4; cx++ {
		for cz := 0; cz < 4; cz++ {
			if chunkFingerprint(a.GetChunk(cx, cz)) != chunkFingerprint(b.GetChunk(cx, cz)) {
				return
			}
		}
	}
	t.Fatalf("16 chunks identical across different seeds")
}

func TestChunkTileBounds(t *testing.T) {
	w := testWorld(77)
	c := w.GetChunk(2, -1)
	if len(c.Tiles) != ChunkSize*ChunkSize {
		t.Fatalf("chunk holds %d tiles, want %d", len(c.Tiles), ChunkSize*ChunkSize)
	}
	for k, tile := range c.Tiles {
		if k.X < 2*ChunkSize || k.X >= 3*ChunkSize || k.Z < -ChunkSize || k.Z >= 0 {
			t.Fatalf("tile (%d,%d) outside chunk (2,-1)", k.X, k.Z)
		}
		if tile.Walkable != (tile.Terrain != TerrainWater) {
			t.Fatalf("tile (%d,%d) walkable=%v terrain=%s", k.X, k.Z, tile.Walkable, tile.Terrain)
		}
	}
}

func TestSwampChunkLayout(t *testing.T) {
	w := testWorld(12345)
	var c *Chunk
	for cx := -40; cx <= 40 && c == nil; cx++ {
		for cz := -40; cz <= 40; cz++ {
			if w.Biome().TypeAt(cx, cz).Variant == biome.VariantSwamp {
				c = w.GetChunk(cx, cz)
				break
			}
		}
	}
	if c == nil {
		t.Fatalf("no swamp chunk in scan range")
	}

	water, path := 0, 0
	for k, tile := range c.Tiles {
		lx, lz := mathx.Mod(k.X, ChunkSize), mathx.Mod(k.Z, ChunkSize)
		onCross := lx == 7 || lx == 8 || lz == 7 || lz == 8
		if onCross && tile.Terrain != TerrainPath {
			t.Fatalf("cross tile (%d,%d) terrain=%s, want PATH", k.X, k.Z, tile.Terrain)
		}
		switch tile.Terrain {
		case TerrainWater:
			water++
		case TerrainPath:
			path++
		default:
			// the wet remainder is water-or-path, nothing else
			t.Fatalf("swamp tile (%d,%d) terrain=%s", k.X, k.Z, tile.Terrain)
		}
	}
	if water == 0 || path <= 60 {
		t.Fatalf("swamp mix water=%d path=%d", water, path)
	}
}

func TestSpawnChunkContent(t *testing.T) {
	w := testWorld(404)
	c := w.GetChunk(0, 0)
	if c.Type.Danger != biome.DangerPeaceful {
		t.Fatalf("spawn chunk danger = %s", c.Type.Danger)
	}
	// the starting area stays sparse
	if len(c.Resources) < 1 || len(c.Resources) > 3 {
		t.Fatalf("spawn chunk has %d resources, want 1..3", len(c.Resources))
	}
	for _, n := range c.Resources {
		if n.Tier != 1 {
			t.Fatalf("spawn chunk rolled a tier %d node", n.Tier)
		}
		if n.HP != n.MaxHP || n.Depleted {
			t.Fatalf("fresh node %s not at full health", n.DefID)
		}
		tile := c.Tiles[TileKey{X: n.TX, Z: n.TZ}]
		if tile == nil || !tile.Walkable {
			t.Fatalf("node %s placed on unwalkable tile (%d,%d)", n.DefID, n.TX, n.TZ)
		}
	}
	if len(c.Enemies) != 0 {
		t.Fatalf("spawn chunk spawned %d enemies", len(c.Enemies))
	}
}

func TestNoEnemiesInsideSafeRadius(t *testing.T) {
	w := testWorld(505)
	for cx := -2; cx <= 2; cx++ {
		for cz := -2; cz <= 2; cz++ {
			c := w.GetChunk(cx, cz)
			centerX := float64(cx*ChunkSize) + float64(ChunkSize)/2
			centerZ := float64(cz*ChunkSize) + float64(ChunkSize)/2
			if math.Hypot(centerX, centerZ) > 40 {
				continue
			}
			if len(c.Enemies) != 0 {
				t.Fatalf("chunk (%d,%d) inside the safe radius has %d enemies", cx, cz, len(c.Enemies))
			}
		}
	}
}

func TestEnemyPlacement(t *testing.T) {
	w := testWorld(606)
	var c *Chunk
	for r := 4; r <= 10 && c == nil; r++ {
		for cx := -r; cx <= r && c == nil; cx++ {
			for cz := -r; cz <= r; cz++ {
				if mathx.Chebyshev(cx, cz) != r {
					continue
				}
				if cand := w.GetChunk(cx, cz); cand != nil && len(cand.Enemies) > 0 {
					c = cand
					break
				}
			}
		}
	}
	if c == nil {
		t.Fatalf("no enemies within 10 chunk rings")
	}
	if len(c.Enemies) > maxEnemiesPerChunk {
		t.Fatalf("chunk (%d,%d) has %d enemies, cap is %d", c.CX, c.CZ, len(c.Enemies), maxEnemiesPerChunk)
	}
	onResource := map[TileKey]bool{}
	for _, n := range c.Resources {
		onResource[TileKey{X: n.TX, Z: n.TZ}] = true
	}
	for i, e := range c.Enemies {
		wantPrefix := fmt.Sprintf("enemy-%d.%d-", c.CX, c.CZ)
		if !strings.HasPrefix(e.ID, wantPrefix) {
			t.Fatalf("enemy id %q missing prefix %q", e.ID, wantPrefix)
		}
		if e.Tier < 1 || e.Tier > 4 {
			t.Fatalf("enemy %s tier %d out of range", e.ID, e.Tier)
		}
		if e.Health <= 0 || e.Damage <= 0 {
			t.Fatalf("enemy %s has empty combat stats", e.ID)
		}
		tx, tz := TileOf(e.Pos)
		lx, lz := mathx.Mod(tx, ChunkSize), mathx.Mod(tz, ChunkSize)
		if lx < enemyEdgeBuffer || lx >= ChunkSize-enemyEdgeBuffer || lz < enemyEdgeBuffer || lz >= ChunkSize-enemyEdgeBuffer {
			t.Fatalf("enemy %d at local (%d,%d) violates the edge buffer", i, lx, lz)
		}
		if onResource[TileKey{X: tx, Z: tz}] {
			t.Fatalf("enemy %s shares tile (%d,%d) with a resource", e.ID, tx, tz)
		}
	}
}

func TestResourceCapsByDanger(t *testing.T) {
	w := testWorld(707)
	checked := 0
	for cx := -6; cx <= 6; cx++ {
		for cz := -6; cz <= 6; cz++ {
			if mathx.Chebyshev(cx, cz) < 3 {
				continue // spawn-adjacent chunks run a reduced count
			}
			c := w.GetChunk(cx, cz)
			var maxCount, maxTier int
			switch c.Type.Danger {
			case biome.DangerPeaceful:
				maxCount, maxTier = 5, 1
			case biome.DangerDangerous:
				maxCount, maxTier = 7, 2
			default:
				maxCount, maxTier = 5, 3
			}
			if len(c.Resources) > maxCount {
				t.Fatalf("%s chunk (%d,%d) has %d resources, cap %d", c.Type.Danger, cx, cz, len(c.Resources), maxCount)
			}
			for _, n := range c.Resources {
				if n.Tier > maxTier {
					t.Fatalf("%s chunk (%d,%d) rolled tier %d node %s, cap %d", c.Type.Danger, cx, cz, n.Tier, n.DefID, maxTier)
				}
			}
			checked++
		}
	}
	if checked == 0 {
		t.Fatalf("no chunks checked")
	}
}
