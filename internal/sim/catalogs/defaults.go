package catalogs

// Default returns the built-in catalog set. The server prefers configs/ on
// disk; worlds generated against these tables stay identical when the same
// tables are later served from files, because selection only depends on
// (category, tier) lookups and sorted ids.
func Default() *Catalogs {
	c := &Catalogs{
		Resources:  buildResources(defaultResources(), nil),
		Enemies:    buildEnemies(defaultEnemies(), nil),
		Items:      buildItems(defaultItems(), nil),
		Placeables: buildPlaceables(defaultPlaceables(), nil),
		Stations:   buildStations(defaultStations(), nil),
	}
	return c
}

func defaultResources() []ResourceDef {
	return []ResourceDef{
		{ID: "oak_tree", Name: "Oak Tree", Category: CategoryTree, Tier: 1, Health: 30, Tool: ToolAxe, RespawnSec: 60,
			Drops: []Drop{{Item: "oak_log", Min: 2, Max: 4, Chance: 1}, {Item: "plant_fiber", Min: 0, Max: 2, Chance: 0.5}}},
		{ID: "ash_tree", Name: "Ash Tree", Category: CategoryTree, Tier: 2, Health: 50, Tool: ToolAxe, RespawnSec: 90,
			Drops: []Drop{{Item: "ash_log", Min: 2, Max: 4, Chance: 1}, {Item: "resin", Min: 1, Max: 1, Chance: 0.25}}},
		{ID: "ironwood_tree", Name: "Ironwood Tree", Category: CategoryTree, Tier: 3, Health: 80, Tool: ToolAxe, RespawnSec: 150,
			Drops: []Drop{{Item: "ironwood_log", Min: 1, Max: 3, Chance: 1}, {Item: "resin", Min: 1, Max: 2, Chance: 0.4}}},

		{ID: "copper_vein", Name: "Copper Vein", Category: CategoryOre, Tier: 1, Health: 40, Tool: ToolPickaxe, RespawnSec: 90,
			Drops: []Drop{{Item: "copper_ore", Min: 2, Max: 3, Chance: 1}}},
		{ID: "iron_vein", Name: "Iron Vein", Category: CategoryOre, Tier: 2, Health: 60, Tool: ToolPickaxe, RespawnSec: 120,
			Drops: []Drop{{Item: "iron_ore", Min: 2, Max: 3, Chance: 1}, {Item: "rough_gem", Min: 1, Max: 1, Chance: 0.1}}},
		{ID: "mithril_vein", Name: "Mithril Vein", Category: CategoryOre, Tier: 3, Health: 100, Tool: ToolPickaxe, RespawnSec: 240,
			Drops: []Drop{{Item: "mithril_ore", Min: 1, Max: 2, Chance: 1}, {Item: "rough_gem", Min: 1, Max: 1, Chance: 0.2}}},

		{ID: "limestone_rock", Name: "Limestone", Category: CategoryRock, Tier: 1, Health: 35, Tool: ToolPickaxe, RespawnSec: 75,
			Drops: []Drop{{Item: "limestone", Min: 2, Max: 4, Chance: 1}}},
		{ID: "granite_rock", Name: "Granite", Category: CategoryRock, Tier: 2, Health: 55, Tool: ToolPickaxe, RespawnSec: 110,
			Drops: []Drop{{Item: "granite", Min: 2, Max: 3, Chance: 1}}},
		{ID: "obsidian_rock", Name: "Obsidian", Category: CategoryRock, Tier: 3, Health: 90, Tool: ToolPickaxe, RespawnSec: 200,
			Drops: []Drop{{Item: "obsidian", Min: 1, Max: 2, Chance: 1}, {Item: "rough_gem", Min: 1, Max: 1, Chance: 0.15}}},
	}
}

func defaultEnemies() []EnemyDef {
	return []EnemyDef{
		{ID: "wolf", Name: "Wolf", Tier: 1, Health: 25, Damage: 4, Speed: 3.5},
		{ID: "bandit", Name: "Bandit", Tier: 1, Health: 30, Damage: 5, Speed: 2.8},
		{ID: "dire_wolf", Name: "Dire Wolf", Tier: 2, Health: 55, Damage: 9, Speed: 3.8},
		{ID: "rock_golem", Name: "Rock Golem", Tier: 2, Health: 90, Damage: 12, Speed: 1.6},
		{ID: "wraith", Name: "Wraith", Tier: 3, Health: 80, Damage: 16, Speed: 3.2},
		{ID: "swamp_horror", Name: "Swamp Horror", Tier: 4, Health: 160, Damage: 24, Speed: 2.2},
	}
}

func defaultItems() []ItemDef {
	return []ItemDef{
		{ID: "oak_log", Name: "Oak Log", Kind: "MATERIAL", Stack: 50},
		{ID: "ash_log", Name: "Ash Log", Kind: "MATERIAL", Stack: 50},
		{ID: "ironwood_log", Name: "Ironwood Log", Kind: "MATERIAL", Stack: 50},
		{ID: "copper_ore", Name: "Copper Ore", Kind: "MATERIAL", Stack: 50},
		{ID: "iron_ore", Name: "Iron Ore", Kind: "MATERIAL", Stack: 50},
		{ID: "mithril_ore", Name: "Mithril Ore", Kind: "MATERIAL", Stack: 50},
		{ID: "limestone", Name: "Limestone", Kind: "MATERIAL", Stack: 50},
		{ID: "granite", Name: "Granite", Kind: "MATERIAL", Stack: 50},
		{ID: "obsidian", Name: "Obsidian", Kind: "MATERIAL", Stack: 50},
		{ID: "plant_fiber", Name: "Plant Fiber", Kind: "MATERIAL", Stack: 99},
		{ID: "resin", Name: "Resin", Kind: "MATERIAL", Stack: 99},
		{ID: "rough_gem", Name: "Rough Gem", Kind: "MATERIAL", Stack: 20},
	}
}

func defaultPlaceables() []PlaceableDef {
	return []PlaceableDef{
		{ID: "turret", Name: "Turret", Kind: "TURRET", Blocking: true, BaseDamage: 8, BaseAttackSec: 1.5, BaseLifetimeSec: 300},
		{ID: "spike_trap", Name: "Spike Trap", Kind: "TRAP", Blocking: false, BaseDamage: 15, BaseLifetimeSec: 600},
		{ID: "bomb", Name: "Bomb", Kind: "BOMB", Blocking: false, BaseDamage: 40, BaseLifetimeSec: 5},
		{ID: "barrier", Name: "Barrier", Kind: "BARRIER", Blocking: true, BaseLifetimeSec: 900},
		{ID: "dropped_item", Name: "Dropped Item", Kind: "DROPPED_ITEM", Blocking: false, BaseLifetimeSec: 1800},
	}
}

func defaultStations() []StationDef {
	var defs []StationDef
	for _, d := range []string{"smithing", "alchemy", "cooking", "tailoring", "engineering"} {
		for tier := 1; tier <= 3; tier++ {
			defs = append(defs, StationDef{
				ID:         stationID(d, tier),
				Name:       stationName(d, tier),
				Discipline: d,
				Tier:       tier,
			})
		}
	}
	return defs
}

func stationID(discipline string, tier int) string {
	return discipline + "_station_" + tierSuffix(tier)
}

func stationName(discipline string, tier int) string {
	switch discipline {
	case "smithing":
		return "Forge " + romanTier(tier)
	case "alchemy":
		return "Alchemy Bench " + romanTier(tier)
	case "cooking":
		return "Cookfire " + romanTier(tier)
	case "tailoring":
		return "Loom " + romanTier(tier)
	default:
		return "Workbench " + romanTier(tier)
	}
}

func tierSuffix(tier int) string {
	return [...]string{"", "t1", "t2", "t3"}[tier]
}

func romanTier(tier int) string {
	return [...]string{"", "I", "II", "III"}[tier]
}
