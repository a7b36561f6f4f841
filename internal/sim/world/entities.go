package world

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownPlaceable = errors.New("world: unknown placeable")
	ErrTileOccupied     = errors.New("world: tile occupied")
)

// PlacedEntity is anything a player put into the world: turrets, traps,
// bombs, barriers, dropped item piles. Entities snap to the center of the
// tile they were aimed at and live until removed or expired.
type PlacedEntity struct {
	ID       string
	DefID    string
	Kind     string
	Pos      Vec3
	TX, TZ   int
	Blocking bool

	Damage         float64
	AttackInterval float64
	LifetimeLeft   float64 // seconds; <= 0 means permanent

	// dropped item payload
	Item  string
	Count int

	PlacedAt float64
}

// CraftedStats carry over from the crafting system. Each stat point shifts
// the matching base value by 10%, capped at 10 points (a 2x multiplier);
// zero stats leave the def values untouched.
type CraftedStats struct {
	Power      float64 `json:"power"`
	Durability float64 `json:"durability"`
	Efficiency float64 `json:"efficiency"`
}

type PlaceEntityRequest struct {
	DefID string
	Pos   Vec3
	Stats CraftedStats

	// for DROPPED_ITEM placeables
	Item  string
	Count int
}

// PlaceEntity validates the def, snaps the position to the tile center,
// applies crafted-stat multipliers to the base def values, and registers the
// tile in the barrier set when the def blocks movement.
func (w *World) PlaceEntity(req PlaceEntityRequest) (*PlacedEntity, error) {
	def, ok := w.cats.Placeables.Defs[req.DefID]
	if !ok {
		return nil, fmt.Errorf("place entity: %w: %q", ErrUnknownPlaceable, req.DefID)
	}
	tx, tz := TileOf(req.Pos)
	tile := TileKey{X: tx, Z: tz}
	if def.Blocking {
		if other, taken := w.barriers[tile]; taken {
			return nil, fmt.Errorf("place entity: %w: (%d,%d) held by %s", ErrTileOccupied, tx, tz, other)
		}
	}

	e := &PlacedEntity{
		ID:       w.nextEntityID(),
		DefID:    def.ID,
		Kind:     def.Kind,
		Pos:      TileCenter(tx, tz),
		TX:       tx,
		TZ:       tz,
		Blocking: def.Blocking,
		Item:     req.Item,
		Count:    req.Count,
		PlacedAt: w.clock,
	}
	e.Damage = def.BaseDamage * statScale(req.Stats.Power)
	e.AttackInterval = def.BaseAttackSec
	if e.AttackInterval > 0 {
		e.AttackInterval = def.BaseAttackSec / statScale(req.Stats.Efficiency)
	}
	e.LifetimeLeft = def.BaseLifetimeSec * statScale(req.Stats.Durability)

	w.entities = append(w.entities, e)
	if e.Blocking {
		w.barriers[tile] = e.ID
		w.nav.InvalidateCache()
	}
	w.logEvent(Event{Kind: EventEntityPlaced, EntityID: e.ID, Pos: e.Pos, Detail: e.DefID})
	return e, nil
}

// statScale turns a crafted stat into a multiplier: 0 -> 1.0, each point
// +10%, capped at 2.0.
func statScale(stat float64) float64 {
	if stat < 0 {
		stat = 0
	}
	if stat > 10 {
		stat = 10
	}
	return 1 + stat*0.10
}

func (w *World) nextEntityID() string {
	w.nextEntity++
	return fmt.Sprintf("ent-%06d", w.nextEntity)
}

// RemoveEntity drops the entity and, for blockers, releases its tile from the
// barrier set. Returns false when no such entity exists.
func (w *World) RemoveEntity(id string) bool {
	return w.removeEntity(id, EventEntityRemoved)
}

func (w *World) removeEntity(id, eventKind string) bool {
	for i, e := range w.entities {
		if e.ID != id {
			continue
		}
		w.entities = append(w.entities[:i], w.entities[i+1:]...)
		w.releaseBarrier(e)
		w.logEvent(Event{Kind: eventKind, EntityID: e.ID, Pos: e.Pos, Detail: e.DefID})
		return true
	}
	return false
}

// releaseBarrier keeps the barrier set exactly in sync with blocking
// entities. The set is a cache of the entity list; with DebugChecks on, any
// drift panics instead of silently corrupting walkability.
func (w *World) releaseBarrier(e *PlacedEntity) {
	if !e.Blocking {
		return
	}
	tile := TileKey{X: e.TX, Z: e.TZ}
	if w.cfg.DebugChecks {
		if owner, ok := w.barriers[tile]; !ok || owner != e.ID {
			panic(fmt.Sprintf("barrier set out of sync at (%d,%d): have %q want %q", e.TX, e.TZ, owner, e.ID))
		}
	}
	delete(w.barriers, tile)
	w.nav.InvalidateCache()
}

// GetEntity looks an entity up by id.
func (w *World) GetEntity(id string) *PlacedEntity {
	for _, e := range w.entities {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// GetEntityAt returns the entity standing on pos's tile, or nil.
func (w *World) GetEntityAt(pos Vec3) *PlacedEntity {
	tx, tz := TileOf(pos)
	for _, e := range w.entities {
		if e.TX == tx && e.TZ == tz {
			return e
		}
	}
	return nil
}

// GetEntitiesInRange returns entities within radius of center, in placement
// order.
func (w *World) GetEntitiesInRange(center Vec3, radius float64) []*PlacedEntity {
	var out []*PlacedEntity
	for _, e := range w.entities {
		if Dist2D(center, e.Pos) <= radius {
			out = append(out, e)
		}
	}
	return out
}

func (w *World) EntityCount() int { return len(w.entities) }

func (w *World) BarrierCount() int { return len(w.barriers) }
