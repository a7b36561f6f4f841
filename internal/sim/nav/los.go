package nav

import "strings"

// HasLineOfSight rasterizes the segment src->dst with Bresenham and tests
// every intermediate tile against all three blocking layers. Attacks carrying
// a bypass tag (area effects, ground-targeted) skip the check entirely.
func (p *Pathfinder) HasLineOfSight(src, dst Vec3, tags ...string) SightResult {
	for _, tag := range tags {
		if _, ok := p.bypass[strings.ToLower(tag)]; ok {
			return SightResult{Clear: true}
		}
	}
	return p.Sight(src, dst, AllLayers())
}

// Sight is HasLineOfSight with explicit layer toggles and no tag handling.
func (p *Pathfinder) Sight(src, dst Vec3, opts SightOptions) SightResult {
	x0, z0 := TileOf(src)
	x1, z1 := TileOf(dst)

	line := rasterLine(x0, z0, x1, z1)

	// Source and destination tiles never block their own sight line, but a
	// point-blank check (adjacent or same tile) has no interior to skip.
	lo, hi := 0, len(line)
	if len(line) > 2 {
		lo, hi = 1, len(line)-1
	}
	for i := lo; i < hi; i++ {
		tx, tz := line[i][0], line[i][1]
		var kind BlockKind
		switch {
		case opts.Terrain && p.view.TerrainBlocked(tx, tz):
			kind = BlockTerrain
		case opts.Resources && p.view.ResourceBlocked(tx, tz):
			kind = BlockResource
		case opts.Barriers && p.view.BarrierBlocked(tx, tz):
			kind = BlockBarrier
		default:
			continue
		}
		return SightResult{
			Blocker:  kind,
			TileX:    tx,
			TileZ:    tz,
			Distance: dist2D(src, TileCenter(tx, tz)),
		}
	}
	return SightResult{Clear: true}
}

// rasterLine is integer Bresenham over tile coordinates, endpoints included.
func rasterLine(x0, z0, x1, z1 int) [][2]int {
	dx := absInt(x1 - x0)
	dz := absInt(z1 - z0)
	sx, sz := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if z0 > z1 {
		sz = -1
	}
	err := dx - dz

	line := make([][2]int, 0, dx+dz+1)
	x, z := x0, z0
	for {
		line = append(line, [2]int{x, z})
		if x == x1 && z == z1 {
			break
		}
		e2 := 2 * err
		if e2 > -dz {
			err -= dz
			x += sx
		}
		if e2 < dx {
			err += dx
			z += sz
		}
	}
	return line
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
