package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
)

// StateDigest hashes all observable world state in a fixed order: header,
// loaded chunks (tiles, resources, entrance), placed entities, barrier set,
// stations, chests, dungeon entrances. Determinism tests compare digests
// across seeds, processes and save/load cycles.
func (w *World) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteI64(h, &tmp, w.cfg.Seed)
	digestWriteU64(h, &tmp, math.Float64bits(w.clock))

	w.digestChunks(h, &tmp)
	w.digestEntities(h, &tmp)
	w.digestBarriers(h, &tmp)
	w.digestStations(h, &tmp)
	w.digestChests(h, &tmp)
	w.digestEntrances(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) digestChunks(h hashWriter, tmp *[8]byte) {
	for _, k := range w.LoadedChunkKeys() {
		c := w.chunks[k]
		digestWriteI64(h, tmp, int64(k.CX))
		digestWriteI64(h, tmp, int64(k.CZ))
		h.Write([]byte(c.Type.String()))

		for lz := 0; lz < ChunkSize; lz++ {
			for lx := 0; lx < ChunkSize; lx++ {
				t := c.Tiles[TileKey{X: k.CX*ChunkSize + lx, Z: k.CZ*ChunkSize + lz}]
				h.Write([]byte{byte(t.Terrain), boolByte(t.Walkable)})
			}
		}

		// generation order, stable for a given seed and replayed record
		for _, n := range c.Resources {
			h.Write([]byte(n.DefID))
			digestWriteI64(h, tmp, int64(n.TX))
			digestWriteI64(h, tmp, int64(n.TZ))
			digestWriteI64(h, tmp, int64(n.HP))
			digestWriteI64(h, tmp, int64(n.MaxHP))
			h.Write([]byte{boolByte(n.Depleted)})
			digestWriteU64(h, tmp, math.Float64bits(n.RespawnIn))
		}
		for _, e := range c.Enemies {
			h.Write([]byte(e.DefID))
			digestWriteU64(h, tmp, math.Float64bits(e.Pos.X))
			digestWriteU64(h, tmp, math.Float64bits(e.Pos.Z))
		}
		if c.Entrance != nil {
			h.Write([]byte(c.Entrance.ID))
			digestWriteU64(h, tmp, math.Float64bits(c.Entrance.DiscoveredAt))
		}
	}
}

func (w *World) digestEntities(h hashWriter, tmp *[8]byte) {
	for _, e := range w.entities {
		h.Write([]byte(e.ID))
		h.Write([]byte(e.DefID))
		digestWriteI64(h, tmp, int64(e.TX))
		digestWriteI64(h, tmp, int64(e.TZ))
		h.Write([]byte{boolByte(e.Blocking)})
		digestWriteU64(h, tmp, math.Float64bits(e.Damage))
		digestWriteU64(h, tmp, math.Float64bits(e.AttackInterval))
		digestWriteU64(h, tmp, math.Float64bits(e.LifetimeLeft))
		h.Write([]byte(e.Item))
		digestWriteI64(h, tmp, int64(e.Count))
	}
}

func (w *World) digestBarriers(h hashWriter, tmp *[8]byte) {
	keys := make([]TileKey, 0, len(w.barriers))
	for k := range w.barriers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		return keys[i].Z < keys[j].Z
	})
	for _, k := range keys {
		digestWriteI64(h, tmp, int64(k.X))
		digestWriteI64(h, tmp, int64(k.Z))
		h.Write([]byte(w.barriers[k]))
	}
}

func (w *World) digestStations(h hashWriter, tmp *[8]byte) {
	for _, s := range w.stations {
		h.Write([]byte(s.ID))
		digestWriteU64(h, tmp, math.Float64bits(s.Pos.X))
		digestWriteU64(h, tmp, math.Float64bits(s.Pos.Z))
	}
}

func (w *World) digestChests(h hashWriter, tmp *[8]byte) {
	for _, c := range w.chests {
		h.Write([]byte(c.ID))
		digestWriteU64(h, tmp, math.Float64bits(c.Pos.X))
		digestWriteU64(h, tmp, math.Float64bits(c.Pos.Z))
		items := make([]string, 0, len(c.Items))
		for id := range c.Items {
			items = append(items, id)
		}
		sort.Strings(items)
		for _, id := range items {
			h.Write([]byte(id))
			digestWriteI64(h, tmp, int64(c.Items[id]))
		}
	}
}

func (w *World) digestEntrances(h hashWriter, tmp *[8]byte) {
	for _, d := range w.entrances {
		h.Write([]byte(d.ID))
		digestWriteI64(h, tmp, int64(d.CX))
		digestWriteI64(h, tmp, int64(d.CZ))
	}
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
