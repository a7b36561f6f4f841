package world

import (
	"fmt"
	"math"
	"math/rand"

	"emberwild.gg/internal/sim/biome"
	"emberwild.gg/internal/sim/catalogs"
	"emberwild.gg/internal/sim/mathx"
)

const (
	maxEnemiesPerChunk = 3
	placementRetries   = 10
	enemyEdgeBuffer    = 2
)

// Chunk is a 16x16 tile region materialized in memory. Everything in it is a
// pure function of (world seed, cx, cz) plus the replayed delta record; the
// rng is seeded once from the chunk seed and consumed in a fixed order
// (tiles, then resources, then enemies), never reseeded.
type Chunk struct {
	CX, CZ int
	Type   biome.ChunkType

	Tiles     map[TileKey]*WorldTile
	Resources []*ResourceNode
	Enemies   []*SpawnedEnemy
	Entrance  *DungeonEntrance

	rng *rand.Rand

	// dirty holds the local coords of resources that have diverged from
	// baseline at least once. buildRecord serializes their live state.
	dirty        map[LocalKey]struct{}
	dungeonDirty bool
	unloadClock  float64
}

// SpawnedEnemy is placement data for the combat layer. Enemies are not
// persisted; a chunk regrows the same set on every load.
type SpawnedEnemy struct {
	ID     string
	DefID  string
	Name   string
	Tier   int
	Health int
	Damage int
	Speed  float64
	Pos    Vec3
}

func (c *Chunk) Key() ChunkKey { return ChunkKey{CX: c.CX, CZ: c.CZ} }

func (c *Chunk) Modified() bool { return len(c.dirty) > 0 || c.dungeonDirty }

func (c *Chunk) markResourceDirty(n *ResourceNode) {
	c.dirty[localOf(n.TX, n.TZ)] = struct{}{}
}

// PrepareForUnload stamps the clock the next record will carry and sweeps
// resources once more so damage taken since the last explicit change is not
// lost. Runs before every chunk write, not just unload.
func (c *Chunk) PrepareForUnload(clock float64) {
	c.unloadClock = clock
	for _, n := range c.Resources {
		if n.Depleted || n.HP < n.MaxHP {
			c.markResourceDirty(n)
		}
	}
}

func (c *Chunk) resourceAtLocal(lk LocalKey) *ResourceNode {
	for _, n := range c.Resources {
		if localOf(n.TX, n.TZ) == lk {
			return n
		}
	}
	return nil
}

func generateChunk(cx, cz int, gen *biome.Generator, cats *catalogs.Catalogs, cfg *Config) *Chunk {
	c := &Chunk{
		CX:    cx,
		CZ:    cz,
		Type:  gen.TypeAt(cx, cz),
		Tiles: make(map[TileKey]*WorldTile, ChunkSize*ChunkSize),
		rng:   rand.New(rand.NewSource(int64(gen.ChunkSeed(cx, cz)))),
		dirty: map[LocalKey]struct{}{},
	}
	c.generateTiles(cfg)
	c.generateResources(cats, cfg)
	c.generateEnemies(cats, cfg)
	return c
}

func (c *Chunk) generateTiles(cfg *Config) {
	half := float64(ChunkSize-1) / 2
	for lz := 0; lz < ChunkSize; lz++ {
		for lx := 0; lx < ChunkSize; lx++ {
			var terrain Terrain
			switch c.Type.Variant {
			case biome.VariantLake:
				dx := float64(lx) - half
				dz := float64(lz) - half
				if dx*dx+dz*dz <= cfg.LakeRadius*cfg.LakeRadius {
					terrain = TerrainWater
				} else {
					terrain = c.rollLandTile(TerrainGrass, cfg)
				}
			case biome.VariantRiver:
				// a band through the horizontal middle of the chunk
				if lz >= ChunkSize/2-2 && lz <= ChunkSize/2+1 {
					terrain = TerrainWater
				} else {
					terrain = c.rollLandTile(TerrainGrass, cfg)
				}
			case biome.VariantSwamp:
				// a dry cross keeps swamps crossable on foot
				if lx == 7 || lx == 8 || lz == 7 || lz == 8 {
					terrain = TerrainPath
				} else if c.rng.Float64() < cfg.SwampWaterChance {
					terrain = TerrainWater
				} else {
					terrain = TerrainPath
				}
			case biome.VariantQuarry, biome.VariantCavern:
				terrain = c.rollLandTile(TerrainStone, cfg)
			default:
				terrain = c.rollLandTile(TerrainGrass, cfg)
			}
			tx := c.CX*ChunkSize + lx
			tz := c.CZ*ChunkSize + lz
			c.Tiles[TileKey{X: tx, Z: tz}] = &WorldTile{
				Terrain:  terrain,
				Walkable: terrain != TerrainWater,
			}
		}
	}
}

func (c *Chunk) rollLandTile(base Terrain, cfg *Config) Terrain {
	if c.rng.Float64() < cfg.PathVariantChance {
		return TerrainPath
	}
	return base
}

func (c *Chunk) generateResources(cats *catalogs.Catalogs, cfg *Config) {
	var count, maxTier int
	switch c.Type.Danger {
	case biome.DangerPeaceful:
		count = 3 + c.rng.Intn(3) // 3..5
		maxTier = 1
	case biome.DangerDangerous:
		count = 4 + c.rng.Intn(4) // 4..7
		maxTier = 2
	default:
		count = 3 + c.rng.Intn(3) // 3..5
		maxTier = 3
	}
	// the starting area stays sparse so early harvesting means exploring
	if mathx.Chebyshev(c.CX, c.CZ) <= cfg.SpawnRadius+1 {
		count -= 2
		if count < 1 {
			count = 1
		}
	}

	taken := map[TileKey]bool{}
	for i := 0; i < count; i++ {
		lx, lz, ok := c.findOpenTile(taken, 0)
		if !ok {
			continue
		}
		tier := 1 + c.rng.Intn(maxTier)
		if tier > 1 && c.rng.Intn(2) == 0 {
			tier--
		}
		def, ok := c.rollResourceDef(cats, tier)
		if !ok {
			continue
		}
		tx := c.CX*ChunkSize + lx
		tz := c.CZ*ChunkSize + lz
		taken[TileKey{X: tx, Z: tz}] = true
		c.Resources = append(c.Resources, &ResourceNode{
			DefID:      def.ID,
			Name:       def.Name,
			Category:   def.Category,
			Tool:       def.Tool,
			Tier:       def.Tier,
			TX:         tx,
			TZ:         tz,
			Pos:        TileCenter(tx, tz),
			HP:         def.Health,
			MaxHP:      def.Health,
			RespawnSec: def.RespawnSec,
			Drops:      def.Drops,
		})
	}
}

// findOpenTile rolls random in-chunk coordinates until it hits a land tile
// not already taken, giving up after a fixed number of retries so a chunk
// that is mostly water underfills rather than loops.
func (c *Chunk) findOpenTile(taken map[TileKey]bool, margin int) (int, int, bool) {
	span := ChunkSize - 2*margin
	for attempt := 0; attempt < placementRetries; attempt++ {
		lx := margin + c.rng.Intn(span)
		lz := margin + c.rng.Intn(span)
		tx := c.CX*ChunkSize + lx
		tz := c.CZ*ChunkSize + lz
		k := TileKey{X: tx, Z: tz}
		if taken[k] {
			continue
		}
		if t := c.Tiles[k]; t == nil || !t.Walkable {
			continue
		}
		return lx, lz, true
	}
	return 0, 0, false
}

func (c *Chunk) rollResourceDef(cats *catalogs.Catalogs, tier int) (catalogs.ResourceDef, bool) {
	defs := cats.Resources.ByCategoryTier(c.rollCategory(), tier)
	if len(defs) == 0 {
		defs = cats.Resources.ByTier(tier)
	}
	if len(defs) == 0 {
		return catalogs.ResourceDef{}, false
	}
	return defs[c.rng.Intn(len(defs))], true
}

// rollCategory biases resource kinds by chunk family: forests grow trees,
// quarries and caverns hold ore.
func (c *Chunk) rollCategory() string {
	r := c.rng.Float64()
	switch c.Type.Family {
	case biome.FamilyForest:
		switch {
		case r < 0.70:
			return catalogs.CategoryTree
		case r < 0.85:
			return catalogs.CategoryRock
		default:
			return catalogs.CategoryOre
		}
	case biome.FamilyCave:
		switch {
		case r < 0.60:
			return catalogs.CategoryOre
		case r < 0.90:
			return catalogs.CategoryRock
		default:
			return catalogs.CategoryTree
		}
	default:
		if r < 0.50 {
			return catalogs.CategoryRock
		}
		return catalogs.CategoryTree
	}
}

func (c *Chunk) generateEnemies(cats *catalogs.Catalogs, cfg *Config) {
	centerX := float64(c.CX*ChunkSize) + float64(ChunkSize)/2
	centerZ := float64(c.CZ*ChunkSize) + float64(ChunkSize)/2
	if math.Hypot(centerX, centerZ) <= cfg.EnemySafeRadius {
		return
	}

	var count, maxTier int
	switch c.Type.Danger {
	case biome.DangerPeaceful:
		if c.rng.Float64() < 0.60 {
			return
		}
		count, maxTier = 1, 1
	case biome.DangerDangerous:
		count, maxTier = 1+c.rng.Intn(3), 3 // 1..3
	default:
		count, maxTier = 1+c.rng.Intn(2), 4 // 1..2
	}
	if count > maxEnemiesPerChunk {
		count = maxEnemiesPerChunk
	}

	pool := cats.Enemies.ByMaxTier(maxTier)
	if len(pool) == 0 {
		return
	}

	taken := map[TileKey]bool{}
	for _, n := range c.Resources {
		taken[TileKey{X: n.TX, Z: n.TZ}] = true
	}
	for i := 0; i < count; i++ {
		lx, lz, ok := c.findOpenTile(taken, enemyEdgeBuffer)
		if !ok {
			continue
		}
		tier := 1 + c.rng.Intn(maxTier)
		var tierPool []catalogs.EnemyDef
		for _, d := range pool {
			if d.Tier == tier {
				tierPool = append(tierPool, d)
			}
		}
		if len(tierPool) == 0 {
			tierPool = pool
		}
		def := tierPool[c.rng.Intn(len(tierPool))]
		tx := c.CX*ChunkSize + lx
		tz := c.CZ*ChunkSize + lz
		taken[TileKey{X: tx, Z: tz}] = true
		c.Enemies = append(c.Enemies, &SpawnedEnemy{
			ID:     fmt.Sprintf("enemy-%d.%d-%d", c.CX, c.CZ, i+1),
			DefID:  def.ID,
			Name:   def.Name,
			Tier:   def.Tier,
			Health: def.Health,
			Damage: def.Damage,
			Speed:  def.Speed,
			Pos:    TileCenter(tx, tz),
		})
	}
}
