package world

// Update advances the world clock by dt seconds: respawn timers on loaded
// chunks tick down, placed entities with finite lifetimes expire. Chunks are
// walked in sorted key order so the event stream replays identically.
func (w *World) Update(dt float64) {
	if dt <= 0 {
		return
	}
	w.clock += dt
	w.sinceSave += dt

	for _, k := range w.LoadedChunkKeys() {
		c := w.chunks[k]
		for _, n := range c.Resources {
			if !n.Depleted {
				continue
			}
			if n.tickRespawn(dt) {
				c.markResourceDirty(n)
				w.nav.InvalidateCache()
				w.logEvent(Event{Kind: EventResourceRespawned, Pos: n.Pos, CX: c.CX, CZ: c.CZ, Detail: n.DefID})
			}
		}
	}

	var expired []string
	for _, e := range w.entities {
		if e.LifetimeLeft <= 0 {
			continue
		}
		e.LifetimeLeft -= dt
		if e.LifetimeLeft <= 0 {
			expired = append(expired, e.ID)
		}
	}
	for _, id := range expired {
		w.removeEntity(id, EventEntityExpired)
	}
}
