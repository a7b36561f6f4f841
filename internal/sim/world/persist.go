package world

import (
	"errors"
	"fmt"
	"sort"

	"emberwild.gg/internal/persistence/chunkstore"
)

// buildChunkRecord serializes the live state of every dirty resource plus the
// discovered entrance. Tiles and pristine resources are never written; the
// baseline regenerates them.
func (w *World) buildChunkRecord(c *Chunk) chunkstore.ChunkRecordV1 {
	rec := chunkstore.ChunkRecordV1{
		CX:          c.CX,
		CZ:          c.CZ,
		ChunkType:   c.Type.String(),
		UnloadClock: c.unloadClock,
	}

	keys := make([]LocalKey, 0, len(c.dirty))
	for lk := range c.dirty {
		keys = append(keys, lk)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		return keys[i].Z < keys[j].Z
	})
	for _, lk := range keys {
		n := c.resourceAtLocal(lk)
		if n == nil {
			continue
		}
		rec.Resources = append(rec.Resources, chunkstore.ResourceDeltaV1{
			LocalX:    lk.X,
			LocalZ:    lk.Z,
			DefID:     n.DefID,
			HP:        n.HP,
			MaxHP:     n.MaxHP,
			Depleted:  n.Depleted,
			RespawnIn: n.RespawnIn,
		})
	}

	if c.Entrance != nil {
		rec.Dungeon = &chunkstore.DungeonV1{
			ID:           c.Entrance.ID,
			Pos:          [3]float64{c.Entrance.Pos.X, c.Entrance.Pos.Y, c.Entrance.Pos.Z},
			CX:           c.Entrance.CX,
			CZ:           c.Entrance.CZ,
			DiscoveredAt: c.Entrance.DiscoveredAt,
		}
	}
	return rec
}

// applyChunkRecord replays persisted deltas over a fresh baseline. Respawn
// timers run against the world clock, so a resource due while the chunk sat
// unloaded comes back right here instead of waiting out its timer again.
func (w *World) applyChunkRecord(c *Chunk, rec chunkstore.ChunkRecordV1) {
	elapsed := w.clock - rec.UnloadClock
	if elapsed < 0 {
		elapsed = 0
	}
	for _, d := range rec.Resources {
		n := c.resourceAtLocal(LocalKey{X: d.LocalX, Z: d.LocalZ})
		if n == nil || n.DefID != d.DefID {
			// content tables changed under the save; this delta no longer
			// has a target and the baseline node stands
			w.log.Printf("world: %s: dropping stale delta at local (%d,%d) for %s", c.Key(), d.LocalX, d.LocalZ, d.DefID)
			continue
		}
		n.HP = d.HP
		if n.HP > n.MaxHP {
			n.HP = n.MaxHP
		}
		if n.HP < 0 {
			n.HP = 0
		}
		n.Depleted = d.Depleted
		n.RespawnIn = d.RespawnIn
		if n.Depleted {
			n.RespawnIn -= elapsed
			if n.RespawnIn <= 0 {
				n.respawn()
			}
		}
		// keep the delta alive so the next save rewrites current state
		c.markResourceDirty(n)
	}
	if rec.Dungeon != nil {
		d := &DungeonEntrance{
			ID:           rec.Dungeon.ID,
			Pos:          Vec3{X: rec.Dungeon.Pos[0], Y: rec.Dungeon.Pos[1], Z: rec.Dungeon.Pos[2]},
			CX:           rec.Dungeon.CX,
			CZ:           rec.Dungeon.CZ,
			DiscoveredAt: rec.Dungeon.DiscoveredAt,
		}
		c.Entrance = d
		c.dungeonDirty = true
		w.addEntrance(d)
	}
}

// SaveWorld writes the world record and flushes every modified loaded chunk.
// Chunk write failures are logged and skipped; one bad disk sector should
// cost one chunk's deltas, not the save.
func (w *World) SaveWorld() error {
	if w.store == nil {
		return nil
	}
	if err := w.store.WriteWorld(w.buildWorldRecord()); err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	saved := 0
	for _, k := range w.LoadedChunkKeys() {
		c := w.chunks[k]
		c.PrepareForUnload(w.clock)
		if !c.Modified() {
			continue
		}
		if err := w.store.WriteChunk(w.buildChunkRecord(c)); err != nil {
			w.log.Printf("world: persist %s: %v", k, err)
			continue
		}
		saved++
		w.logEvent(Event{Kind: EventChunkPersisted, CX: k.CX, CZ: k.CZ})
	}
	w.sinceSave = 0
	w.logEvent(Event{Kind: EventWorldSaved, Detail: fmt.Sprintf("chunks=%d", saved)})
	return nil
}

func (w *World) buildWorldRecord() chunkstore.WorldRecordV1 {
	rec := chunkstore.WorldRecordV1{
		Seed:  w.cfg.Seed,
		Clock: w.clock,
		Counters: chunkstore.CountersV1{
			NextEntity: w.nextEntity,
			NextChest:  w.nextChest,
		},
	}
	for _, e := range w.entities {
		rec.Entities = append(rec.Entities, chunkstore.PlacedEntityV1{
			ID:             e.ID,
			DefID:          e.DefID,
			Kind:           e.Kind,
			Pos:            [3]float64{e.Pos.X, e.Pos.Y, e.Pos.Z},
			TX:             e.TX,
			TZ:             e.TZ,
			Blocking:       e.Blocking,
			Damage:         e.Damage,
			AttackInterval: e.AttackInterval,
			LifetimeLeft:   e.LifetimeLeft,
			Item:           e.Item,
			Count:          e.Count,
			PlacedAt:       e.PlacedAt,
		})
	}
	for _, s := range w.stations {
		rec.Stations = append(rec.Stations, chunkstore.StationV1{
			ID:         s.ID,
			DefID:      s.DefID,
			Discipline: s.Discipline,
			Tier:       s.Tier,
			Pos:        [3]float64{s.Pos.X, s.Pos.Y, s.Pos.Z},
		})
	}
	for _, c := range w.chests {
		items := make(map[string]int, len(c.Items))
		for id, n := range c.Items {
			items[id] = n
		}
		rec.Chests = append(rec.Chests, chunkstore.DeathChestV1{
			ID:        c.ID,
			Pos:       [3]float64{c.Pos.X, c.Pos.Y, c.Pos.Z},
			Items:     items,
			CreatedAt: c.CreatedAt,
		})
	}
	for _, d := range w.entrances {
		rec.Dungeons = append(rec.Dungeons, chunkstore.DungeonV1{
			ID:           d.ID,
			Pos:          [3]float64{d.Pos.X, d.Pos.Y, d.Pos.Z},
			CX:           d.CX,
			CZ:           d.CZ,
			DiscoveredAt: d.DiscoveredAt,
		})
	}
	return rec
}

// LoadWorld restores the world record written by SaveWorld. A missing record
// is a fresh world; a corrupt one is logged and ignored. A seed mismatch is
// the one hard error, since replaying deltas over a different baseline would
// corrupt every chunk it touches.
func (w *World) LoadWorld() error {
	if w.store == nil {
		return nil
	}
	rec, err := w.store.ReadWorld()
	if errors.Is(err, chunkstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		w.log.Printf("world: load world record: %v (starting fresh)", err)
		return nil
	}
	if rec.Seed != w.cfg.Seed {
		return fmt.Errorf("load world: record seed %d does not match configured seed %d", rec.Seed, w.cfg.Seed)
	}

	w.clock = rec.Clock
	w.nextEntity = rec.Counters.NextEntity
	w.nextChest = rec.Counters.NextChest

	w.entities = w.entities[:0]
	w.barriers = map[TileKey]string{}
	for _, e := range rec.Entities {
		pe := &PlacedEntity{
			ID:             e.ID,
			DefID:          e.DefID,
			Kind:           e.Kind,
			Pos:            Vec3{X: e.Pos[0], Y: e.Pos[1], Z: e.Pos[2]},
			TX:             e.TX,
			TZ:             e.TZ,
			Blocking:       e.Blocking,
			Damage:         e.Damage,
			AttackInterval: e.AttackInterval,
			LifetimeLeft:   e.LifetimeLeft,
			Item:           e.Item,
			Count:          e.Count,
			PlacedAt:       e.PlacedAt,
		}
		w.entities = append(w.entities, pe)
		if pe.Blocking {
			w.barriers[TileKey{X: pe.TX, Z: pe.TZ}] = pe.ID
		}
	}

	if len(rec.Stations) > 0 {
		w.stations = w.stations[:0]
		for _, s := range rec.Stations {
			w.stations = append(w.stations, &CraftingStation{
				ID:         s.ID,
				DefID:      s.DefID,
				Discipline: s.Discipline,
				Tier:       s.Tier,
				Pos:        Vec3{X: s.Pos[0], Y: s.Pos[1], Z: s.Pos[2]},
			})
		}
	}

	w.chests = w.chests[:0]
	for _, c := range rec.Chests {
		items := make(map[string]int, len(c.Items))
		for id, n := range c.Items {
			items[id] = n
		}
		w.chests = append(w.chests, &DeathChest{
			ID:        c.ID,
			Pos:       Vec3{X: c.Pos[0], Y: c.Pos[1], Z: c.Pos[2]},
			Items:     items,
			CreatedAt: c.CreatedAt,
		})
	}

	w.entrances = w.entrances[:0]
	for _, d := range rec.Dungeons {
		w.addEntrance(&DungeonEntrance{
			ID:           d.ID,
			Pos:          Vec3{X: d.Pos[0], Y: d.Pos[1], Z: d.Pos[2]},
			CX:           d.CX,
			CZ:           d.CZ,
			DiscoveredAt: d.DiscoveredAt,
		})
	}

	w.nav.InvalidateCache()
	return nil
}
