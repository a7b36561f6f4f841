package biome

import (
	"math/rand"

	"emberwild.gg/internal/sim/mathx"
)

// Hash purposes. Each decision about a chunk reads its own lane of the hash
// space so biome, danger, variant and dungeon rolls never correlate.
const (
	purposeBiome   = 100
	purposeDanger  = 200
	purposeVariant = 300
	purposeDungeon = 400
)

type Family uint8

const (
	FamilyForest Family = iota
	FamilyCave
	FamilyWater
)

func (f Family) String() string {
	switch f {
	case FamilyForest:
		return "FOREST"
	case FamilyCave:
		return "CAVE"
	case FamilyWater:
		return "WATER"
	}
	return "UNKNOWN"
}

type Danger uint8

const (
	DangerPeaceful Danger = iota
	DangerDangerous
	DangerRare
)

func (d Danger) String() string {
	switch d {
	case DangerPeaceful:
		return "PEACEFUL"
	case DangerDangerous:
		return "DANGEROUS"
	case DangerRare:
		return "RARE"
	}
	return "UNKNOWN"
}

type Variant uint8

const (
	VariantNone Variant = iota
	VariantQuarry
	VariantCavern
	VariantLake
	VariantRiver
	VariantSwamp
)

func (v Variant) String() string {
	switch v {
	case VariantNone:
		return ""
	case VariantQuarry:
		return "QUARRY"
	case VariantCavern:
		return "CAVERN"
	case VariantLake:
		return "LAKE"
	case VariantRiver:
		return "RIVER"
	case VariantSwamp:
		return "SWAMP"
	}
	return "UNKNOWN"
}

// ChunkType is comparable so it can key maps and be compared in tests.
type ChunkType struct {
	Family  Family
	Danger  Danger
	Variant Variant
}

func (t ChunkType) String() string {
	s := t.Family.String() + "_" + t.Danger.String()
	if v := t.Variant.String(); v != "" {
		s += "_" + v
	}
	return s
}

func (t ChunkType) IsWater() bool { return t.Family == FamilyWater }

type Key struct {
	CX, CZ int
}

type Config struct {
	WaterRatio     float64
	ForestRatio    float64
	SafeZoneRadius int // chunks; danger gradient reaches baseline here
	SpawnRadius    int // chunks; forced-peaceful override inside
	LakeBias       float64
	QuarryBias     float64
	DungeonChance  float64
}

func (c *Config) applyDefaults() {
	if c.WaterRatio <= 0 {
		c.WaterRatio = 0.10
	}
	if c.ForestRatio <= 0 {
		c.ForestRatio = 0.55
	}
	if c.SafeZoneRadius <= 0 {
		c.SafeZoneRadius = 8
	}
	if c.SpawnRadius <= 0 {
		c.SpawnRadius = 1
	}
	if c.LakeBias <= 0 {
		c.LakeBias = 0.6
	}
	if c.QuarryBias <= 0 {
		c.QuarryBias = 0.5
	}
	if c.DungeonChance <= 0 {
		c.DungeonChance = 0.08
	}
}

// Generator assigns a ChunkType to every chunk coordinate as a pure function
// of (seed, cx, cz). The memo map is only a cache: dropping it and asking
// again returns the same answer.
type Generator struct {
	seed int64
	cfg  Config
	memo map[Key]ChunkType
}

func New(seed int64, cfg Config) *Generator {
	cfg.applyDefaults()
	return &Generator{seed: seed, cfg: cfg, memo: map[Key]ChunkType{}}
}

func (g *Generator) Seed() int64 { return g.seed }

func (g *Generator) Config() Config { return g.cfg }

// ChunkSeed is the per-chunk RNG seed used by tile, resource and enemy
// placement inside the chunk.
func (g *Generator) ChunkSeed(cx, cz int) uint64 {
	return mathx.ChunkSeed(g.seed, cx, cz)
}

func (g *Generator) Hash01(cx, cz, purpose int) float64 {
	return mathx.Hash01(g.seed, cx, cz, purpose)
}

func (g *Generator) TypeAt(cx, cz int) ChunkType {
	k := Key{cx, cz}
	if t, ok := g.memo[k]; ok {
		return t
	}
	t := g.compute(cx, cz)
	g.memo[k] = t
	return t
}

func (g *Generator) DangerAt(cx, cz int) Danger { return g.TypeAt(cx, cz).Danger }

func (g *Generator) IsWaterAt(cx, cz int) bool { return g.TypeAt(cx, cz).IsWater() }

// DungeonEligible reports whether the chunk may host a dungeon entrance:
// land chunks outside the spawn override that win an independent roll.
func (g *Generator) DungeonEligible(cx, cz int) bool {
	if mathx.Chebyshev(cx, cz) <= g.cfg.SpawnRadius {
		return false
	}
	if g.IsWaterAt(cx, cz) {
		return false
	}
	return g.Hash01(cx, cz, purposeDungeon) < g.cfg.DungeonChance
}

// PeacefulThreshold rises toward 1.0 at the origin so everything near spawn
// is peaceful, and settles at 0.40 once d reaches the safe-zone radius.
func (g *Generator) PeacefulThreshold(d int) float64 {
	r := g.cfg.SafeZoneRadius
	if d >= r {
		return 0.40
	}
	return 0.40 + 0.60*(1-float64(d)/float64(r))
}

// DangerousThreshold settles at 0.80 outside the safe zone; the remaining
// 20% of the roll space is rare.
func (g *Generator) DangerousThreshold(d int) float64 {
	r := g.cfg.SafeZoneRadius
	if d >= r {
		return 0.80
	}
	return 0.80 + 0.20*(1-float64(d)/float64(r))
}

// ClearCache drops the memo. Used by tests to prove recomputation agrees.
func (g *Generator) ClearCache() {
	g.memo = map[Key]ChunkType{}
}

func (g *Generator) compute(cx, cz int) ChunkType {
	d := mathx.Chebyshev(cx, cz)
	if d <= g.cfg.SpawnRadius {
		return g.spawnOverride(cx, cz)
	}

	var fam Family
	switch br := g.Hash01(cx, cz, purposeBiome); {
	case br < g.cfg.WaterRatio:
		fam = FamilyWater
	case br < g.cfg.WaterRatio+g.cfg.ForestRatio:
		fam = FamilyForest
	default:
		fam = FamilyCave
	}

	var danger Danger
	switch dr := g.Hash01(cx, cz, purposeDanger); {
	case dr < g.PeacefulThreshold(d):
		danger = DangerPeaceful
	case dr < g.DangerousThreshold(d):
		danger = DangerDangerous
	default:
		danger = DangerRare
	}

	var variant Variant
	switch fam {
	case FamilyWater:
		switch {
		case danger == DangerRare:
			// rare water is always swamp
			variant = VariantSwamp
		case g.Hash01(cx, cz, purposeVariant) < g.cfg.LakeBias:
			variant = VariantLake
		default:
			variant = VariantRiver
		}
	case FamilyCave:
		if g.Hash01(cx, cz, purposeVariant) < g.cfg.QuarryBias {
			variant = VariantQuarry
		} else {
			variant = VariantCavern
		}
	}

	return ChunkType{Family: fam, Danger: danger, Variant: variant}
}

// spawnOverride picks one of three hand-safe starting types so the area around
// the origin always has trees, stone and water within a chunk or two. The
// chunk seed drives the pick, keeping it stable per world.
func (g *Generator) spawnOverride(cx, cz int) ChunkType {
	rng := rand.New(rand.NewSource(int64(g.ChunkSeed(cx, cz))))
	switch rng.Intn(3) {
	case 0:
		return ChunkType{Family: FamilyForest, Danger: DangerPeaceful}
	case 1:
		return ChunkType{Family: FamilyCave, Danger: DangerPeaceful, Variant: VariantQuarry}
	default:
		return ChunkType{Family: FamilyWater, Danger: DangerPeaceful, Variant: VariantLake}
	}
}
