package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int     `yaml:"tick_rate_hz"`
	LoadRadius         int     `yaml:"load_radius"`
	AlwaysLoadedRadius int     `yaml:"always_loaded_radius"`
	WorldBoundaryR     int     `yaml:"world_boundary_r"`
	SaveEverySec       float64 `yaml:"save_every_sec"`

	Biome BiomeTuning `yaml:"biome"`
	Gen   GenTuning   `yaml:"gen"`
	Nav   NavTuning   `yaml:"nav"`
}

type BiomeTuning struct {
	WaterRatio     float64 `yaml:"water_ratio"`
	ForestRatio    float64 `yaml:"forest_ratio"`
	SafeZoneRadius int     `yaml:"safe_zone_radius"`
	SpawnRadius    int     `yaml:"spawn_radius"`
	LakeBias       float64 `yaml:"lake_bias"`
	QuarryBias     float64 `yaml:"quarry_bias"`
	DungeonChance  float64 `yaml:"dungeon_chance"`
}

type GenTuning struct {
	PathVariantChance   float64 `yaml:"path_variant_chance"`
	LakeRadius          float64 `yaml:"lake_radius"`
	SwampWaterChance    float64 `yaml:"swamp_water_chance"`
	EnemySafeRadius     float64 `yaml:"enemy_safe_radius"`
	ResourceBlockRadius float64 `yaml:"resource_block_radius"`
}

type NavTuning struct {
	MaxPathSteps          int      `yaml:"max_path_steps"`
	PathCacheMaxWaypoints int      `yaml:"path_cache_max_waypoints"`
	GoalRetargetRadius    int      `yaml:"goal_retarget_radius"`
	SightBypassTags       []string `yaml:"sight_bypass_tags"`
}

// Defaults returns the values the server runs with when no tuning.yaml is
// present. Load applies these to any field left at its zero value, so a
// partial file only overrides what it names.
func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         10,
		LoadRadius:         2,
		AlwaysLoadedRadius: 1,
		WorldBoundaryR:     4096,
		SaveEverySec:       30,
		Biome: BiomeTuning{
			WaterRatio:     0.10,
			ForestRatio:    0.55,
			SafeZoneRadius: 8,
			SpawnRadius:    1,
			LakeBias:       0.6,
			QuarryBias:     0.5,
			DungeonChance:  0.08,
		},
		Gen: GenTuning{
			PathVariantChance:   0.05,
			LakeRadius:          5,
			SwampWaterChance:    0.55,
			EnemySafeRadius:     40,
			ResourceBlockRadius: 0.5,
		},
		Nav: NavTuning{
			MaxPathSteps:          200,
			PathCacheMaxWaypoints: 50,
			GoalRetargetRadius:    4,
			SightBypassTags:       []string{"circle", "aoe", "ground"},
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	return t, nil
}

func (t *Tuning) applyDefaults() {
	d := Defaults()
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = d.ProtocolVersion
	}
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.LoadRadius <= 0 {
		t.LoadRadius = d.LoadRadius
	}
	if t.AlwaysLoadedRadius < 0 {
		t.AlwaysLoadedRadius = d.AlwaysLoadedRadius
	}
	if t.WorldBoundaryR <= 0 {
		t.WorldBoundaryR = d.WorldBoundaryR
	}
	if t.SaveEverySec <= 0 {
		t.SaveEverySec = d.SaveEverySec
	}
	if t.Biome.WaterRatio <= 0 {
		t.Biome.WaterRatio = d.Biome.WaterRatio
	}
	if t.Biome.ForestRatio <= 0 {
		t.Biome.ForestRatio = d.Biome.ForestRatio
	}
	if t.Biome.SafeZoneRadius <= 0 {
		t.Biome.SafeZoneRadius = d.Biome.SafeZoneRadius
	}
	if t.Biome.SpawnRadius <= 0 {
		t.Biome.SpawnRadius = d.Biome.SpawnRadius
	}
	if t.Biome.LakeBias <= 0 {
		t.Biome.LakeBias = d.Biome.LakeBias
	}
	if t.Biome.QuarryBias <= 0 {
		t.Biome.QuarryBias = d.Biome.QuarryBias
	}
	if t.Biome.DungeonChance <= 0 {
		t.Biome.DungeonChance = d.Biome.DungeonChance
	}
	if t.Gen.PathVariantChance <= 0 {
		t.Gen.PathVariantChance = d.Gen.PathVariantChance
	}
	if t.Gen.LakeRadius <= 0 {
		t.Gen.LakeRadius = d.Gen.LakeRadius
	}
	if t.Gen.SwampWaterChance <= 0 {
		t.Gen.SwampWaterChance = d.Gen.SwampWaterChance
	}
	if t.Gen.EnemySafeRadius <= 0 {
		t.Gen.EnemySafeRadius = d.Gen.EnemySafeRadius
	}
	if t.Gen.ResourceBlockRadius <= 0 {
		t.Gen.ResourceBlockRadius = d.Gen.ResourceBlockRadius
	}
	if t.Nav.MaxPathSteps <= 0 {
		t.Nav.MaxPathSteps = d.Nav.MaxPathSteps
	}
	if t.Nav.PathCacheMaxWaypoints <= 0 {
		t.Nav.PathCacheMaxWaypoints = d.Nav.PathCacheMaxWaypoints
	}
	if t.Nav.GoalRetargetRadius <= 0 {
		t.Nav.GoalRetargetRadius = d.Nav.GoalRetargetRadius
	}
	if len(t.Nav.SightBypassTags) == 0 {
		t.Nav.SightBypassTags = d.Nav.SightBypassTags
	}
}
