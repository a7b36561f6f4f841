package world

import "emberwild.gg/internal/sim/nav"

// worldView adapts World to nav.WorldView. The pathfinder probes through it
// during searches, so lookups here load chunks on demand like any other
// spatial query.
type worldView struct {
	w *World
}

func (v worldView) WalkableAt(x, z float64) bool {
	return v.w.IsWalkable(Vec3{X: x, Z: z})
}

func (v worldView) TerrainBlocked(tx, tz int) bool {
	t, ok := v.w.TileAt(tx, tz)
	return ok && !t.Walkable
}

func (v worldView) ResourceBlocked(tx, tz int) bool {
	c := TileCenter(tx, tz)
	return v.w.GetResourceAt(c, v.w.cfg.ResourceBlockRadius) != nil
}

func (v worldView) BarrierBlocked(tx, tz int) bool {
	_, ok := v.w.barriers[TileKey{X: tx, Z: tz}]
	return ok
}

func toNav(v Vec3) nav.Vec3 { return nav.Vec3{X: v.X, Y: v.Y, Z: v.Z} }

func fromNav(v nav.Vec3) Vec3 { return Vec3{X: v.X, Y: v.Y, Z: v.Z} }

func fromNavPath(path []nav.Vec3) []Vec3 {
	if path == nil {
		return nil
	}
	out := make([]Vec3, len(path))
	for i, p := range path {
		out[i] = fromNav(p)
	}
	return out
}
