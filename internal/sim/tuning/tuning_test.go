package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	body := "tick_rate_hz: 20\nbiome:\n  water_ratio: 0.25\n  safe_zone_radius: 4\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tune, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tune.TickRateHz != 20 {
		t.Fatalf("TickRateHz=%d want 20", tune.TickRateHz)
	}
	if tune.Biome.WaterRatio != 0.25 {
		t.Fatalf("WaterRatio=%v want 0.25", tune.Biome.WaterRatio)
	}
	if tune.Biome.SafeZoneRadius != 4 {
		t.Fatalf("SafeZoneRadius=%d want 4", tune.Biome.SafeZoneRadius)
	}
	// untouched fields keep defaults
	d := Defaults()
	if tune.Biome.ForestRatio != d.Biome.ForestRatio {
		t.Fatalf("ForestRatio=%v want default %v", tune.Biome.ForestRatio, d.Biome.ForestRatio)
	}
	if tune.Nav.MaxPathSteps != d.Nav.MaxPathSteps {
		t.Fatalf("MaxPathSteps=%d want default %d", tune.Nav.MaxPathSteps, d.Nav.MaxPathSteps)
	}
	if len(tune.Nav.SightBypassTags) != 3 {
		t.Fatalf("SightBypassTags=%v want defaults", tune.Nav.SightBypassTags)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	tune, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	d := Defaults()
	if tune.TickRateHz != d.TickRateHz || tune.Biome.WaterRatio != d.Biome.WaterRatio {
		t.Fatalf("missing file should still hand back defaults, got %+v", tune)
	}
}
