package nav

import (
	"fmt"
	"math"
)

// Neighbor order is fixed so searches replay identically.
var dirs = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// FindPath runs bounded A* on tile centers, 8-connected without corner
// cutting. An unwalkable goal is retargeted to the nearest walkable tile in
// expanding rings before searching. Returns nil when no path exists within
// the expansion budget.
func (p *Pathfinder) FindPath(start, goal Vec3) []Vec3 {
	sx, sz := TileOf(start)
	gx, gz := TileOf(goal)

	if !p.walkableTile(gx, gz) {
		var ok bool
		gx, gz, ok = p.retargetGoal(gx, gz)
		if !ok {
			return nil
		}
	}

	key := fmt.Sprintf("%d,%d>%d,%d", sx, sz, gx, gz)
	if hit, ok := p.cache[key]; ok {
		out := make([]Vec3, len(hit))
		copy(out, hit)
		return out
	}

	if sx == gx && sz == gz {
		return []Vec3{TileCenter(gx, gz)}
	}

	type cell [2]int
	startN := &node{x: sx, z: sz, f: octile(sx, sz, gx, gz)}
	open := []*node{startN}
	bestG := map[cell]float64{{sx, sz}: 0}
	closed := map[cell]bool{}

	expansions := 0
	for len(open) > 0 {
		// Linear min scan. The expansion cap keeps the open list small
		// enough that a heap would not pay for itself.
		mi := 0
		for i := 1; i < len(open); i++ {
			if open[i].f < open[mi].f {
				mi = i
			}
		}
		cur := open[mi]
		open[mi] = open[len(open)-1]
		open = open[:len(open)-1]

		ck := cell{cur.x, cur.z}
		if closed[ck] {
			continue
		}
		closed[ck] = true

		if cur.x == gx && cur.z == gz {
			return p.finish(key, cur)
		}

		expansions++
		if expansions >= p.opt.MaxSteps {
			return nil
		}

		for _, d := range dirs {
			nx, nz := cur.x+d[0], cur.z+d[1]
			nk := cell{nx, nz}
			if closed[nk] {
				continue
			}
			if !p.walkableTile(nx, nz) {
				continue
			}
			cost := 1.0
			if d[0] != 0 && d[1] != 0 {
				// both orthogonal neighbors must be open to cut the diagonal
				if !p.walkableTile(cur.x+d[0], cur.z) || !p.walkableTile(cur.x, cur.z+d[1]) {
					continue
				}
				cost = math.Sqrt2
			}
			g := cur.g + cost
			if prev, ok := bestG[nk]; ok && g >= prev {
				continue
			}
			bestG[nk] = g
			open = append(open, &node{x: nx, z: nz, g: g, f: g + octile(nx, nz, gx, gz), parent: cur})
		}
	}
	return nil
}

type node struct {
	x, z   int
	g, f   float64
	parent *node
}

func (p *Pathfinder) finish(key string, goal *node) []Vec3 {
	var rev []Vec3
	for n := goal; n != nil; n = n.parent {
		rev = append(rev, TileCenter(n.x, n.z))
	}
	out := make([]Vec3, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	if len(out) <= p.opt.CacheMaxWaypoints {
		cp := make([]Vec3, len(out))
		copy(cp, out)
		p.cache[key] = cp
	}
	return out
}

// retargetGoal walks square rings of growing radius around the blocked goal
// and returns the walkable tile nearest to it. Ring cells are visited in a
// fixed order so ties break the same way every time.
func (p *Pathfinder) retargetGoal(gx, gz int) (int, int, bool) {
	for r := 1; r <= p.opt.RetargetRadius; r++ {
		best := math.MaxFloat64
		bx, bz := 0, 0
		for _, c := range ringCells(gx, gz, r) {
			if !p.walkableTile(c[0], c[1]) {
				continue
			}
			dx := float64(c[0] - gx)
			dz := float64(c[1] - gz)
			if d := dx*dx + dz*dz; d < best {
				best = d
				bx, bz = c[0], c[1]
			}
		}
		if best < math.MaxFloat64 {
			return bx, bz, true
		}
	}
	return 0, 0, false
}

func ringCells(cx, cz, r int) [][2]int {
	cells := make([][2]int, 0, 8*r)
	for x := cx - r; x <= cx+r; x++ {
		cells = append(cells, [2]int{x, cz - r}, [2]int{x, cz + r})
	}
	for z := cz - r + 1; z <= cz+r-1; z++ {
		cells = append(cells, [2]int{cx - r, z}, [2]int{cx + r, z})
	}
	return cells
}

func octile(x, z, gx, gz int) float64 {
	dx := absInt(gx - x)
	dz := absInt(gz - z)
	if dx < dz {
		dx, dz = dz, dx
	}
	return float64(dx) + (math.Sqrt2-1)*float64(dz)
}
