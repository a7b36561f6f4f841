// Package nav answers sight, movement and path questions over a tile grid.
// It knows nothing about chunks or entities; the owner hands it a WorldView
// and invalidates the path cache whenever blocking state changes.
package nav

import (
	"math"
	"strings"
)

type Vec3 struct {
	X, Y, Z float64
}

// TileOf floors a position onto its tile.
func TileOf(v Vec3) (int, int) {
	return int(math.Floor(v.X)), int(math.Floor(v.Z))
}

// TileCenter is the +0.5 center of a tile, the coordinate all waypoints use.
func TileCenter(tx, tz int) Vec3 {
	return Vec3{X: float64(tx) + 0.5, Z: float64(tz) + 0.5}
}

// WorldView is the grid the pathfinder runs over. WalkableAt is the full
// composite check (terrain, undepleted resources, barriers); the three
// *Blocked methods answer for one layer at a time so sight checks can skip
// layers independently.
type WorldView interface {
	WalkableAt(x, z float64) bool
	TerrainBlocked(tx, tz int) bool
	ResourceBlocked(tx, tz int) bool
	BarrierBlocked(tx, tz int) bool
}

type BlockKind string

const (
	BlockNone     BlockKind = ""
	BlockTerrain  BlockKind = "terrain"
	BlockResource BlockKind = "resource"
	BlockBarrier  BlockKind = "barrier"
)

type SightResult struct {
	Clear    bool
	Blocker  BlockKind
	TileX    int
	TileZ    int
	Distance float64 // from the source to the blocking tile center
}

type SightOptions struct {
	Terrain   bool
	Resources bool
	Barriers  bool
}

// AllLayers blocks on every layer, the default for combat sight checks.
func AllLayers() SightOptions {
	return SightOptions{Terrain: true, Resources: true, Barriers: true}
}

type MoveResult struct {
	Pos   Vec3
	Moved bool
	Slid  bool
}

type Options struct {
	MaxSteps          int      // A* node expansions before giving up
	CacheMaxWaypoints int      // longer paths are not cached
	RetargetRadius    int      // ring search radius for unwalkable goals
	BypassTags        []string // attack tags that skip sight checks entirely
}

func (o *Options) applyDefaults() {
	if o.MaxSteps <= 0 {
		o.MaxSteps = 200
	}
	if o.CacheMaxWaypoints <= 0 {
		o.CacheMaxWaypoints = 50
	}
	if o.RetargetRadius <= 0 {
		o.RetargetRadius = 4
	}
	if o.BypassTags == nil {
		o.BypassTags = []string{"circle", "aoe", "ground"}
	}
}

type Pathfinder struct {
	view   WorldView
	opt    Options
	bypass map[string]struct{}
	cache  map[string][]Vec3
}

func New(view WorldView, opt Options) *Pathfinder {
	opt.applyDefaults()
	p := &Pathfinder{
		view:   view,
		opt:    opt,
		bypass: make(map[string]struct{}, len(opt.BypassTags)),
		cache:  map[string][]Vec3{},
	}
	for _, tag := range opt.BypassTags {
		p.bypass[strings.ToLower(tag)] = struct{}{}
	}
	return p
}

// InvalidateCache drops every cached path. The owner calls this synchronously
// on any change to blocking state: chunk load or unload, barrier placed or
// removed, resource depleted or respawned. A stale path through a new wall is
// worse than a recompute.
func (p *Pathfinder) InvalidateCache() {
	if len(p.cache) > 0 {
		p.cache = map[string][]Vec3{}
	}
}

func (p *Pathfinder) CacheSize() int { return len(p.cache) }

func (p *Pathfinder) walkableTile(tx, tz int) bool {
	c := TileCenter(tx, tz)
	return p.view.WalkableAt(c.X, c.Z)
}

func dist2D(a, b Vec3) float64 {
	return math.Hypot(b.X-a.X, b.Z-a.Z)
}
