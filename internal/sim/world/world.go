package world

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync/atomic"

	"emberwild.gg/internal/persistence/chunkstore"
	"emberwild.gg/internal/sim/biome"
	"emberwild.gg/internal/sim/catalogs"
	"emberwild.gg/internal/sim/mathx"
	"emberwild.gg/internal/sim/nav"
)

// Store is what the world needs from persistence. chunkstore.Store satisfies
// it; a missing record must come back as chunkstore.ErrNotFound.
type Store interface {
	ReadChunk(cx, cz int) (chunkstore.ChunkRecordV1, error)
	WriteChunk(rec chunkstore.ChunkRecordV1) error
	ReadWorld() (chunkstore.WorldRecordV1, error)
	WriteWorld(rec chunkstore.WorldRecordV1) error
}

// World owns all mutable state. Once Run starts, only the loop goroutine may
// touch it; everything else goes through the inbox channels. Tests and
// embedders that never call Run may use the methods directly from a single
// goroutine.
type World struct {
	cfg  Config
	log  *log.Logger
	cats *catalogs.Catalogs
	gen  *biome.Generator

	clock  float64 // accumulated simulated seconds, persisted
	chunks map[ChunkKey]*Chunk

	entities  []*PlacedEntity
	barriers  map[TileKey]string // tile -> blocking entity id
	stations  []*CraftingStation
	chests    []*DeathChest
	entrances []*DungeonEntrance

	nav *nav.Pathfinder

	store  Store
	events EventLogger

	nextEntity uint64
	nextChest  uint64
	nextSess   uint64

	sinceSave float64

	// loop plumbing
	sessions map[string]*session
	joinCh   chan JoinRequest
	leaveCh  chan string
	cmdCh    chan CmdEnvelope
	queryCh  chan QueryEnvelope
	saveCh   chan chan error
	stopCh   chan struct{}

	tick atomic.Uint64
	met  atomic.Pointer[Metrics]
}

func New(cfg Config, cats *catalogs.Catalogs, logger *log.Logger) *World {
	cfg.applyDefaults()
	if cats == nil {
		cats = catalogs.Default()
	}
	if logger == nil {
		logger = log.Default()
	}
	w := &World{
		cfg:      cfg,
		log:      logger,
		cats:     cats,
		gen:      biome.New(cfg.Seed, biomeConfig(cfg)),
		chunks:   map[ChunkKey]*Chunk{},
		barriers: map[TileKey]string{},
		sessions: map[string]*session{},
		joinCh:   make(chan JoinRequest, 16),
		leaveCh:  make(chan string, 16),
		cmdCh:    make(chan CmdEnvelope, 256),
		queryCh:  make(chan QueryEnvelope, 256),
		saveCh:   make(chan chan error, 4),
		stopCh:   make(chan struct{}),
	}
	w.nav = nav.New(worldView{w}, nav.Options{
		MaxSteps:          cfg.MaxPathSteps,
		CacheMaxWaypoints: cfg.PathCacheMaxWaypoints,
		RetargetRadius:    cfg.GoalRetargetRadius,
		BypassTags:        cfg.SightBypassTags,
	})
	w.placeStations()
	return w
}

func biomeConfig(cfg Config) biome.Config {
	return biome.Config{
		WaterRatio:     cfg.WaterRatio,
		ForestRatio:    cfg.ForestRatio,
		SafeZoneRadius: cfg.SafeZoneRadius,
		SpawnRadius:    cfg.SpawnRadius,
		LakeBias:       cfg.LakeBias,
		QuarryBias:     cfg.QuarryBias,
		DungeonChance:  cfg.DungeonChance,
	}
}

func (w *World) Seed() int64                  { return w.cfg.Seed }
func (w *World) Clock() float64               { return w.clock }
func (w *World) Catalogs() *catalogs.Catalogs { return w.cats }
func (w *World) Biome() *biome.Generator      { return w.gen }
func (w *World) Tick() uint64                 { return w.tick.Load() }

// SetStore attaches persistence. Call before the first GetChunk so loads can
// replay saved deltas.
func (w *World) SetStore(s Store) { w.store = s }

func (w *World) SetEventLogger(l EventLogger) { w.events = l }

func (w *World) inBounds(cx, cz int) bool {
	r := w.cfg.BoundaryChunks
	return mathx.AbsInt(cx) <= r && mathx.AbsInt(cz) <= r
}

// GetChunk returns the chunk, materializing it on demand: regenerate the
// baseline from the seed, then replay the persisted delta record on top, with
// respawn timers advanced by the time the chunk spent unloaded. Out-of-bounds
// coordinates return nil.
func (w *World) GetChunk(cx, cz int) *Chunk {
	k := ChunkKey{CX: cx, CZ: cz}
	if c, ok := w.chunks[k]; ok {
		return c
	}
	if !w.inBounds(cx, cz) {
		return nil
	}
	c := generateChunk(cx, cz, w.gen, w.cats, &w.cfg)
	if w.store != nil {
		rec, err := w.store.ReadChunk(cx, cz)
		switch {
		case err == nil:
			w.applyChunkRecord(c, rec)
		case errors.Is(err, chunkstore.ErrNotFound):
			// first visit, baseline stands
		default:
			// a broken record costs that chunk's deltas, never the world
			w.log.Printf("world: %s: %v (using baseline)", k, err)
		}
	}
	w.chunks[k] = c
	w.nav.InvalidateCache()
	w.logEvent(Event{Kind: EventChunkLoaded, CX: cx, CZ: cz, Detail: c.Type.String()})
	return c
}

// LoadedChunkCount is the number of chunks currently in memory.
func (w *World) LoadedChunkCount() int { return len(w.chunks) }

// LoadedChunkKeys returns the loaded set in sorted order.
func (w *World) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(w.chunks))
	for k := range w.chunks {
		keys = append(keys, k)
	}
	sortChunkKeys(keys)
	return keys
}

func sortChunkKeys(keys []ChunkKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
}

type loadAnchor struct {
	px, pz float64
	radius int
}

// EnsureChunksLoaded recomputes the full required set from scratch: the
// always-loaded ring around the origin union the ring around (px,pz). Chunks
// that fall out of the set are persisted (if modified) and dropped.
func (w *World) EnsureChunksLoaded(px, pz float64, radius int) {
	w.ensureChunks([]loadAnchor{{px: px, pz: pz, radius: radius}})
}

func (w *World) ensureChunks(anchors []loadAnchor) {
	need := map[ChunkKey]bool{}
	ar := w.cfg.AlwaysLoadedRadius
	for dx := -ar; dx <= ar; dx++ {
		for dz := -ar; dz <= ar; dz++ {
			need[ChunkKey{CX: dx, CZ: dz}] = true
		}
	}
	for _, a := range anchors {
		r := a.radius
		if r <= 0 {
			r = w.cfg.LoadRadius
		}
		ck := ChunkKeyOf(Vec3{X: a.px, Z: a.pz})
		for dx := -r; dx <= r; dx++ {
			for dz := -r; dz <= r; dz++ {
				need[ChunkKey{CX: ck.CX + dx, CZ: ck.CZ + dz}] = true
			}
		}
	}

	// load in sorted order so the event stream is reproducible
	want := make([]ChunkKey, 0, len(need))
	for k := range need {
		if w.inBounds(k.CX, k.CZ) {
			want = append(want, k)
		}
	}
	sortChunkKeys(want)
	for _, k := range want {
		w.GetChunk(k.CX, k.CZ)
	}

	var drop []ChunkKey
	for k := range w.chunks {
		if !need[k] {
			drop = append(drop, k)
		}
	}
	sortChunkKeys(drop)
	for _, k := range drop {
		w.unloadChunk(k)
	}
}

func (w *World) unloadChunk(k ChunkKey) {
	c, ok := w.chunks[k]
	if !ok {
		return
	}
	c.PrepareForUnload(w.clock)
	if c.Modified() && w.store != nil {
		if err := w.store.WriteChunk(w.buildChunkRecord(c)); err != nil {
			w.log.Printf("world: persist %s: %v", k, err)
		} else {
			w.logEvent(Event{Kind: EventChunkPersisted, CX: k.CX, CZ: k.CZ})
		}
	}
	delete(w.chunks, k)
	w.nav.InvalidateCache()
	w.logEvent(Event{Kind: EventChunkUnloaded, CX: k.CX, CZ: k.CZ})
}

// TileAt fetches the tile at an absolute tile coordinate, loading its chunk
// if needed. ok is false outside the world boundary.
func (w *World) TileAt(tx, tz int) (*WorldTile, bool) {
	k := ChunkKeyAt(tx, tz)
	c := w.GetChunk(k.CX, k.CZ)
	if c == nil {
		return nil, false
	}
	t, ok := c.Tiles[TileKey{X: tx, Z: tz}]
	return t, ok
}

// GetTile is TileAt for a world position.
func (w *World) GetTile(pos Vec3) (*WorldTile, bool) {
	tx, tz := TileOf(pos)
	return w.TileAt(tx, tz)
}

// IsWalkable runs the composite check: terrain, then undepleted resource
// within the blocking radius, then barrier entity. A missing tile fails open
// so a position probe beyond the boundary never strands a mover.
func (w *World) IsWalkable(pos Vec3) bool {
	tx, tz := TileOf(pos)
	if t, ok := w.TileAt(tx, tz); ok && !t.Walkable {
		return false
	}
	if n := w.GetResourceAt(pos, w.cfg.ResourceBlockRadius); n != nil {
		return false
	}
	if _, ok := w.barriers[TileKey{X: tx, Z: tz}]; ok {
		return false
	}
	return true
}

// GetResourceAt returns the nearest undepleted resource node within tolerance
// of pos, or nil. Depleted nodes are invisible here: they neither block nor
// take harvest hits. Every chunk overlapping the search box is scanned; a wide
// tolerance spans more than the corner chunks.
func (w *World) GetResourceAt(pos Vec3, tolerance float64) *ResourceNode {
	if tolerance <= 0 {
		tolerance = w.cfg.ResourceBlockRadius
	}
	lo := ChunkKeyAt(int(math.Floor(pos.X-tolerance)), int(math.Floor(pos.Z-tolerance)))
	hi := ChunkKeyAt(int(math.Floor(pos.X+tolerance)), int(math.Floor(pos.Z+tolerance)))

	var best *ResourceNode
	var bestD float64
	for cx := lo.CX; cx <= hi.CX; cx++ {
		for cz := lo.CZ; cz <= hi.CZ; cz++ {
			c := w.GetChunk(cx, cz)
			if c == nil {
				continue
			}
			for _, n := range c.Resources {
				if n.Depleted {
					continue
				}
				d := Dist2D(pos, n.Pos)
				if d > tolerance {
					continue
				}
				if best == nil || d < bestD {
					best = n
					bestD = d
				}
			}
		}
	}
	return best
}

// chunkOfResource returns the loaded chunk owning the node. The node came out
// of a loaded chunk, so a miss is an internal error.
func (w *World) chunkOfResource(n *ResourceNode) *Chunk {
	c := w.chunks[ChunkKeyAt(n.TX, n.TZ)]
	if c == nil && w.cfg.DebugChecks {
		panic(fmt.Sprintf("resource %s at (%d,%d) has no loaded chunk", n.DefID, n.TX, n.TZ))
	}
	return c
}

// ChunkTypeAt answers without forcing a load; biome typing is independent of
// chunk materialization.
func (w *World) ChunkTypeAt(cx, cz int) biome.ChunkType {
	return w.gen.TypeAt(cx, cz)
}

// FindPath, HasLineOfSight and CheckMovement delegate to the pathfinder over
// this world's blocking state.
func (w *World) FindPath(start, goal Vec3) []Vec3 {
	return fromNavPath(w.nav.FindPath(toNav(start), toNav(goal)))
}

func (w *World) HasLineOfSight(src, dst Vec3, tags ...string) nav.SightResult {
	return w.nav.HasLineOfSight(toNav(src), toNav(dst), tags...)
}

func (w *World) CheckMovement(from, to Vec3) MoveResult {
	r := w.nav.CheckMovement(toNav(from), toNav(to))
	return MoveResult{Pos: fromNav(r.Pos), Moved: r.Moved, Slid: r.Slid}
}

type MoveResult struct {
	Pos   Vec3
	Moved bool
	Slid  bool
}

func (w *World) PathCacheSize() int { return w.nav.CacheSize() }
