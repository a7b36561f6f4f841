package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	CategoryTree = "TREE"
	CategoryOre  = "ORE"
	CategoryRock = "ROCK"

	ToolAxe     = "AXE"
	ToolPickaxe = "PICKAXE"
)

type Catalogs struct {
	Resources  ResourceCatalog
	Enemies    EnemyCatalog
	Items      ItemCatalog
	Placeables PlaceableCatalog
	Stations   StationCatalog
}

type ResourceCatalog struct {
	Palette []string
	Defs    map[string]ResourceDef
	Digest  string
}

type ResourceDef struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"` // "TREE","ORE","ROCK"
	Tier       int     `json:"tier"`
	Health     int     `json:"health"`
	Tool       string  `json:"tool"` // "AXE","PICKAXE"
	RespawnSec float64 `json:"respawn_sec"`
	Drops      []Drop  `json:"drops"`
}

type Drop struct {
	Item   string  `json:"item"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Chance float64 `json:"chance"`
}

type EnemyCatalog struct {
	Palette []string
	Defs    map[string]EnemyDef
	Digest  string
}

type EnemyDef struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Tier   int     `json:"tier"`
	Health int     `json:"health"`
	Damage int     `json:"damage"`
	Speed  float64 `json:"speed"`
}

type ItemCatalog struct {
	Palette []string
	Defs    map[string]ItemDef
	Digest  string
}

type ItemDef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Kind  string `json:"kind"` // "MATERIAL","TOOL","CONSUMABLE"
	Stack int    `json:"stack"`
}

type PlaceableCatalog struct {
	Palette []string
	Defs    map[string]PlaceableDef
	Digest  string
}

type PlaceableDef struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Kind            string  `json:"kind"` // "TURRET","TRAP","BOMB","BARRIER","DROPPED_ITEM"
	Blocking        bool    `json:"blocking"`
	BaseDamage      float64 `json:"base_damage,omitempty"`
	BaseAttackSec   float64 `json:"base_attack_sec,omitempty"`
	BaseLifetimeSec float64 `json:"base_lifetime_sec,omitempty"`
}

type StationCatalog struct {
	Palette     []string
	Defs        map[string]StationDef
	Disciplines []string
	Digest      string
}

type StationDef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Discipline string `json:"discipline"` // "smithing","alchemy",...
	Tier       int    `json:"tier"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadResources(filepath.Join(configDir, "resources.json"), &c.Resources); err != nil {
		return nil, err
	}
	if err := loadEnemies(filepath.Join(configDir, "enemies.json"), &c.Enemies); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadPlaceables(filepath.Join(configDir, "placeables.json"), &c.Placeables); err != nil {
		return nil, err
	}
	if err := loadStations(filepath.Join(configDir, "stations.json"), &c.Stations); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalogs) validate() error {
	for _, id := range c.Resources.Palette {
		d := c.Resources.Defs[id]
		switch d.Category {
		case CategoryTree, CategoryOre, CategoryRock:
		default:
			return fmt.Errorf("resources.json: %s: unknown category %q", id, d.Category)
		}
		if d.Tier < 1 {
			return fmt.Errorf("resources.json: %s: tier %d", id, d.Tier)
		}
		if d.Health <= 0 {
			return fmt.Errorf("resources.json: %s: health %d", id, d.Health)
		}
		for _, drop := range d.Drops {
			if _, ok := c.Items.Defs[drop.Item]; !ok {
				return fmt.Errorf("resources.json: %s: drop references unknown item %q", id, drop.Item)
			}
			if drop.Max < drop.Min {
				return fmt.Errorf("resources.json: %s: drop %s max < min", id, drop.Item)
			}
		}
	}
	for _, id := range c.Enemies.Palette {
		if d := c.Enemies.Defs[id]; d.Tier < 1 {
			return fmt.Errorf("enemies.json: %s: tier %d", id, d.Tier)
		}
	}
	for _, id := range c.Stations.Palette {
		d := c.Stations.Defs[id]
		if d.Discipline == "" {
			return fmt.Errorf("stations.json: %s: empty discipline", id)
		}
		if d.Tier < 1 || d.Tier > 3 {
			return fmt.Errorf("stations.json: %s: tier %d", id, d.Tier)
		}
	}
	return nil
}

// ByCategoryTier returns the resource defs matching category and exact tier,
// sorted by id. Chunk generation indexes into this with its own RNG, so the
// order has to be stable across runs.
func (rc *ResourceCatalog) ByCategoryTier(category string, tier int) []ResourceDef {
	var out []ResourceDef
	for _, id := range rc.Palette {
		d := rc.Defs[id]
		if d.Category == category && d.Tier == tier {
			out = append(out, d)
		}
	}
	return out
}

// ByTier returns every resource def of the exact tier, sorted by id.
func (rc *ResourceCatalog) ByTier(tier int) []ResourceDef {
	var out []ResourceDef
	for _, id := range rc.Palette {
		if d := rc.Defs[id]; d.Tier == tier {
			out = append(out, d)
		}
	}
	return out
}

// ByMaxTier returns enemy defs with tier <= maxTier, sorted by tier then id.
func (ec *EnemyCatalog) ByMaxTier(maxTier int) []EnemyDef {
	var out []EnemyDef
	for _, id := range ec.Palette {
		if d := ec.Defs[id]; d.Tier <= maxTier {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ByDiscipline returns station defs for one discipline sorted by tier.
func (sc *StationCatalog) ByDiscipline(discipline string) []StationDef {
	var out []StationDef
	for _, id := range sc.Palette {
		if d := sc.Defs[id]; d.Discipline == discipline {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadResources(path string, out *ResourceCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []ResourceDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("resources.json: %w", err)
	}
	*out = buildResources(defs, raw)
	return nil
}

func buildResources(defs []ResourceDef, raw []byte) ResourceCatalog {
	if raw == nil {
		raw, _ = json.Marshal(defs)
	}
	out := ResourceCatalog{Defs: map[string]ResourceDef{}, Digest: sha256Hex(raw)}
	for _, d := range defs {
		out.Defs[d.ID] = d
	}
	out.Palette = sortedKeys(out.Defs)
	return out
}

func loadEnemies(path string, out *EnemyCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []EnemyDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("enemies.json: %w", err)
	}
	*out = buildEnemies(defs, raw)
	return nil
}

func buildEnemies(defs []EnemyDef, raw []byte) EnemyCatalog {
	if raw == nil {
		raw, _ = json.Marshal(defs)
	}
	out := EnemyCatalog{Defs: map[string]EnemyDef{}, Digest: sha256Hex(raw)}
	for _, d := range defs {
		out.Defs[d.ID] = d
	}
	out.Palette = sortedKeys(out.Defs)
	return out
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	*out = buildItems(defs, raw)
	return nil
}

func buildItems(defs []ItemDef, raw []byte) ItemCatalog {
	if raw == nil {
		raw, _ = json.Marshal(defs)
	}
	out := ItemCatalog{Defs: map[string]ItemDef{}, Digest: sha256Hex(raw)}
	for _, d := range defs {
		out.Defs[d.ID] = d
	}
	out.Palette = sortedKeys(out.Defs)
	return out
}

func loadPlaceables(path string, out *PlaceableCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []PlaceableDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("placeables.json: %w", err)
	}
	*out = buildPlaceables(defs, raw)
	return nil
}

func buildPlaceables(defs []PlaceableDef, raw []byte) PlaceableCatalog {
	if raw == nil {
		raw, _ = json.Marshal(defs)
	}
	out := PlaceableCatalog{Defs: map[string]PlaceableDef{}, Digest: sha256Hex(raw)}
	for _, d := range defs {
		out.Defs[d.ID] = d
	}
	out.Palette = sortedKeys(out.Defs)
	return out
}

func loadStations(path string, out *StationCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []StationDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("stations.json: %w", err)
	}
	*out = buildStations(defs, raw)
	return nil
}

func buildStations(defs []StationDef, raw []byte) StationCatalog {
	if raw == nil {
		raw, _ = json.Marshal(defs)
	}
	out := StationCatalog{Defs: map[string]StationDef{}, Digest: sha256Hex(raw)}
	seen := map[string]bool{}
	for _, d := range defs {
		out.Defs[d.ID] = d
		if !seen[d.Discipline] {
			seen[d.Discipline] = true
			out.Disciplines = append(out.Disciplines, d.Discipline)
		}
	}
	sort.Strings(out.Disciplines)
	out.Palette = sortedKeys(out.Defs)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
