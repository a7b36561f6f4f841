package world

import (
	"errors"
	"fmt"
)

// ErrDungeonIneligible rejects discovery in chunks the biome roll never
// marked for a dungeon, and anywhere inside the spawn override.
var ErrDungeonIneligible = errors.New("world: chunk is not dungeon eligible")

// ErrOutOfBounds marks operations aimed past the world boundary.
var ErrOutOfBounds = errors.New("world: out of bounds")

// DungeonEntrance is a discovered portal site. Eligibility is decided by the
// seed; discovery is the one-time act of a player finding it, after which it
// persists with its chunk and in the world record.
type DungeonEntrance struct {
	ID           string
	Pos          Vec3
	CX, CZ       int
	DiscoveredAt float64
}

// DiscoverDungeonEntrance marks the entrance in pos's chunk as found.
// Discovery is idempotent: a second find returns the original entrance.
func (w *World) DiscoverDungeonEntrance(pos Vec3) (*DungeonEntrance, error) {
	k := ChunkKeyOf(pos)
	if !w.gen.DungeonEligible(k.CX, k.CZ) {
		return nil, fmt.Errorf("%w: %s", ErrDungeonIneligible, k)
	}
	c := w.GetChunk(k.CX, k.CZ)
	if c == nil {
		return nil, fmt.Errorf("discover dungeon: %s: %w", k, ErrOutOfBounds)
	}
	if c.Entrance != nil {
		return c.Entrance, nil
	}
	tx, tz := TileOf(pos)
	d := &DungeonEntrance{
		ID:           fmt.Sprintf("dungeon-%d.%d", k.CX, k.CZ),
		Pos:          TileCenter(tx, tz),
		CX:           k.CX,
		CZ:           k.CZ,
		DiscoveredAt: w.clock,
	}
	c.Entrance = d
	c.dungeonDirty = true
	w.addEntrance(d)
	w.logEvent(Event{Kind: EventDungeonDiscovered, EntityID: d.ID, Pos: d.Pos, CX: k.CX, CZ: k.CZ})
	return d, nil
}

// addEntrance registers d in the world-level list, deduplicating by id so
// chunk records and the world record can both restore it.
func (w *World) addEntrance(d *DungeonEntrance) {
	for _, e := range w.entrances {
		if e.ID == d.ID {
			return
		}
	}
	w.entrances = append(w.entrances, d)
}

// NearestDungeonEntrance returns the closest discovered entrance within
// radius, or nil. Radius <= 0 means unbounded.
func (w *World) NearestDungeonEntrance(pos Vec3, radius float64) *DungeonEntrance {
	var best *DungeonEntrance
	var bestD float64
	for _, d := range w.entrances {
		dist := Dist2D(pos, d.Pos)
		if radius > 0 && dist > radius {
			continue
		}
		if best == nil || dist < bestD {
			best = d
			bestD = dist
		}
	}
	return best
}

func (w *World) DungeonEntrances() []*DungeonEntrance { return w.entrances }
