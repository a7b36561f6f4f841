package worldtest

import (
	"io"
	"log"
	"testing"

	"emberwild.gg/internal/sim/mathx"
	"emberwild.gg/internal/sim/world"
)

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newWorld(seed int64) *world.World {
	return world.New(world.Config{Seed: seed, DebugChecks: true}, nil, discardLogger())
}

// findClearWindow returns the origin tile of a size x size block of walkable
// tiles, scanning chunks ring by ring from the origin so the result is stable
// for a given seed.
func findClearWindow(t *testing.T, w *world.World, size int) (int, int) {
	t.Helper()
	for r := 0; r <= 10; r++ {
		for cx := -r; cx <= r; cx++ {
			for cz := -r; cz <= r; cz++ {
				if mathx.Chebyshev(cx, cz) != r {
					continue
				}
				c := w.GetChunk(cx, cz)
				if c == nil || c.Type.IsWater() {
					continue
				}
				for ox := 0; ox+size <= world.ChunkSize; ox++ {
					for oz := 0; oz+size <= world.ChunkSize; oz++ {
						wx := cx*world.ChunkSize + ox
						wz := cz*world.ChunkSize + oz
						if windowClear(w, wx, wz, size) {
							return wx, wz
						}
					}
				}
			}
		}
	}
	t.Fatalf("no clear %dx%d window within 10 chunks of the origin", size, size)
	return 0, 0
}

func windowClear(w *world.World, wx, wz, size int) bool {
	for dx := 0; dx < size; dx++ {
		for dz := 0; dz < size; dz++ {
			if !w.IsWalkable(world.TileCenter(wx+dx, wz+dz)) {
				return false
			}
		}
	}
	return true
}

// buildWall drops blocking barriers on the given tiles and returns their
// entity ids for later removal.
func buildWall(t *testing.T, w *world.World, tiles [][2]int) []string {
	t.Helper()
	ids := make([]string, 0, len(tiles))
	for _, tile := range tiles {
		e, err := w.PlaceEntity(world.PlaceEntityRequest{DefID: "barrier", Pos: world.TileCenter(tile[0], tile[1])})
		if err != nil {
			t.Fatalf("place barrier at (%d,%d): %v", tile[0], tile[1], err)
		}
		ids = append(ids, e.ID)
	}
	return ids
}

func removeWall(t *testing.T, w *world.World, ids []string) {
	t.Helper()
	for _, id := range ids {
		if !w.RemoveEntity(id) {
			t.Fatalf("remove barrier %s", id)
		}
	}
}
