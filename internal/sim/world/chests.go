package world

import "fmt"

// DeathChest holds a dead player's inventory at the spot they fell. Chests
// never expire on their own; the loot flow removes them once emptied.
type DeathChest struct {
	ID        string
	Pos       Vec3
	Items     map[string]int
	CreatedAt float64
}

// CreateDeathChest drops a chest at pos with a copy of items. Empty
// inventories still get a chest so the death site is findable.
func (w *World) CreateDeathChest(pos Vec3, items map[string]int) *DeathChest {
	held := make(map[string]int, len(items))
	for id, n := range items {
		if n > 0 {
			held[id] = n
		}
	}
	w.nextChest++
	c := &DeathChest{
		ID:        fmt.Sprintf("chest-%06d", w.nextChest),
		Pos:       pos,
		Items:     held,
		CreatedAt: w.clock,
	}
	w.chests = append(w.chests, c)
	w.logEvent(Event{Kind: EventChestCreated, EntityID: c.ID, Pos: c.Pos})
	return c
}

// GetDeathChest looks a chest up by id.
func (w *World) GetDeathChest(id string) *DeathChest {
	for _, c := range w.chests {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// GetNearbyDeathChest returns the nearest chest within radius, or nil.
func (w *World) GetNearbyDeathChest(pos Vec3, radius float64) *DeathChest {
	var best *DeathChest
	var bestD float64
	for _, c := range w.chests {
		d := Dist2D(pos, c.Pos)
		if d > radius {
			continue
		}
		if best == nil || d < bestD {
			best = c
			bestD = d
		}
	}
	return best
}

// RemoveDeathChest deletes a chest after looting. Returns false for unknown
// ids.
func (w *World) RemoveDeathChest(id string) bool {
	for i, c := range w.chests {
		if c.ID != id {
			continue
		}
		w.chests = append(w.chests[:i], w.chests[i+1:]...)
		w.logEvent(Event{Kind: EventChestRemoved, EntityID: c.ID, Pos: c.Pos})
		return true
	}
	return false
}

func (w *World) DeathChestCount() int { return len(w.chests) }
