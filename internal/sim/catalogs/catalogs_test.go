package catalogs

import "testing"

func TestDefaultCatalogsValid(t *testing.T) {
	c := Default()
	if err := c.validate(); err != nil {
		t.Fatalf("default catalogs invalid: %v", err)
	}
	if len(c.Resources.Palette) != 9 {
		t.Fatalf("resources=%d want 9", len(c.Resources.Palette))
	}
	if len(c.Stations.Disciplines) != 5 {
		t.Fatalf("disciplines=%v want 5", c.Stations.Disciplines)
	}
	if c.Resources.Digest == "" || c.Items.Digest == "" {
		t.Fatalf("digests must be set")
	}
}

func TestFallbackTableCoversAllCategoryTiers(t *testing.T) {
	c := Default()
	for _, cat := range []string{CategoryTree, CategoryOre, CategoryRock} {
		for tier := 1; tier <= 3; tier++ {
			defs := c.Resources.ByCategoryTier(cat, tier)
			if len(defs) == 0 {
				t.Fatalf("no resource for %s tier %d", cat, tier)
			}
		}
	}
}

func TestToolAssignments(t *testing.T) {
	c := Default()
	for _, id := range c.Resources.Palette {
		d := c.Resources.Defs[id]
		switch d.Category {
		case CategoryTree:
			if d.Tool != ToolAxe {
				t.Fatalf("%s: tree with tool %s", id, d.Tool)
			}
		case CategoryOre, CategoryRock:
			if d.Tool != ToolPickaxe {
				t.Fatalf("%s: %s with tool %s", id, d.Category, d.Tool)
			}
		}
	}
}

func TestEnemySelectorsSortedAndBounded(t *testing.T) {
	c := Default()
	defs := c.Enemies.ByMaxTier(2)
	if len(defs) != 4 {
		t.Fatalf("tier<=2 enemies=%d want 4", len(defs))
	}
	for i := 1; i < len(defs); i++ {
		if defs[i-1].Tier > defs[i].Tier {
			t.Fatalf("selector not sorted by tier: %v", defs)
		}
	}
	for _, d := range defs {
		if d.Tier > 2 {
			t.Fatalf("selector leaked tier %d", d.Tier)
		}
	}
}

func TestLoadFromConfigsDir(t *testing.T) {
	c, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Resources.Palette) == 0 || len(c.Placeables.Palette) == 0 {
		t.Fatalf("configs dir produced empty catalogs")
	}
	// the shipped configs mirror the built-in tables
	d := Default()
	if len(c.Resources.Palette) != len(d.Resources.Palette) {
		t.Fatalf("configs resources=%d builtin=%d", len(c.Resources.Palette), len(d.Resources.Palette))
	}
	for _, id := range d.Stations.Palette {
		if _, ok := c.Stations.Defs[id]; !ok {
			t.Fatalf("configs missing station %s", id)
		}
	}
}
