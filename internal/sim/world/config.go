package world

type Config struct {
	Seed int64

	// Chunk streaming.
	LoadRadius         int // chunks kept loaded around each tracked position
	AlwaysLoadedRadius int // chunks kept loaded around the origin
	BoundaryChunks     int // |cx|,|cz| past this are void
	SaveEverySec       float64

	// Biome layout.
	WaterRatio     float64
	ForestRatio    float64
	SafeZoneRadius int
	SpawnRadius    int
	LakeBias       float64
	QuarryBias     float64
	DungeonChance  float64

	// Chunk content.
	PathVariantChance   float64
	LakeRadius          float64
	SwampWaterChance    float64
	EnemySafeRadius     float64 // world units from origin; no enemies inside
	ResourceBlockRadius float64

	// Navigation.
	MaxPathSteps          int
	PathCacheMaxWaypoints int
	GoalRetargetRadius    int
	SightBypassTags       []string

	// Loop.
	TickRateHz int

	// DebugChecks turns on internal consistency panics. Tests set it; the
	// server leaves it off.
	DebugChecks bool
}

func (c *Config) applyDefaults() {
	if c.LoadRadius <= 0 {
		c.LoadRadius = 2
	}
	if c.AlwaysLoadedRadius <= 0 {
		c.AlwaysLoadedRadius = 1
	}
	if c.BoundaryChunks <= 0 {
		c.BoundaryChunks = 4096
	}
	if c.SaveEverySec < 0 {
		c.SaveEverySec = 0
	}
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
	if c.PathVariantChance <= 0 {
		c.PathVariantChance = 0.05
	}
	if c.LakeRadius <= 0 {
		c.LakeRadius = 5
	}
	if c.SwampWaterChance <= 0 {
		c.SwampWaterChance = 0.55
	}
	if c.EnemySafeRadius <= 0 {
		c.EnemySafeRadius = 40
	}
	if c.ResourceBlockRadius <= 0 {
		c.ResourceBlockRadius = 0.5
	}
	if c.MaxPathSteps <= 0 {
		c.MaxPathSteps = 200
	}
	if c.PathCacheMaxWaypoints <= 0 {
		c.PathCacheMaxWaypoints = 50
	}
	if c.GoalRetargetRadius <= 0 {
		c.GoalRetargetRadius = 4
	}
	if c.SightBypassTags == nil {
		c.SightBypassTags = []string{"circle", "aoe", "ground"}
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 10
	}
}
