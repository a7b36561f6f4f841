package world

import "fmt"

// CraftingStation is fixed infrastructure near spawn. Stations are placed
// from the catalog at world construction and only move when a world record
// overrides them on load.
type CraftingStation struct {
	ID         string
	DefID      string
	Discipline string
	Tier       int
	Pos        Vec3
}

// placeStations lays the spawn workshop out as one lane per discipline along
// Z, tiers stepping outward along X. Disciplines come pre-sorted from the
// catalog, so layout is stable for a given catalog set.
func (w *World) placeStations() {
	w.stations = w.stations[:0]
	disciplines := w.cats.Stations.Disciplines
	for i, d := range disciplines {
		laneZ := (i - len(disciplines)/2) * 4
		for _, def := range w.cats.Stations.ByDiscipline(d) {
			tx := 8 + 4*def.Tier
			w.stations = append(w.stations, &CraftingStation{
				ID:         fmt.Sprintf("station-%s-%d", def.Discipline, def.Tier),
				DefID:      def.ID,
				Discipline: def.Discipline,
				Tier:       def.Tier,
				Pos:        TileCenter(tx, laneZ),
			})
		}
	}
}

func (w *World) Stations() []*CraftingStation { return w.stations }

// NearestStation returns the closest station, optionally filtered by
// discipline ("" matches all). Ties keep the earlier (lower tier) station.
func (w *World) NearestStation(pos Vec3, discipline string) *CraftingStation {
	var best *CraftingStation
	var bestD float64
	for _, s := range w.stations {
		if discipline != "" && s.Discipline != discipline {
			continue
		}
		d := Dist2D(pos, s.Pos)
		if best == nil || d < bestD {
			best = s
			bestD = d
		}
	}
	return best
}
