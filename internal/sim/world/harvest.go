package world

import "strings"

// harvestReach is how far from a node's center a harvest strike may land.
const harvestReach = 1.0

type HarvestResult struct {
	NodeDef   string
	Remaining int
	Depleted  bool
	Loot      []LootStack // rolled only on the depleting hit
}

type LootStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// HarvestResource applies amount damage to the undepleted node within reach
// of pos. The tool must match the node's requirement (case-insensitive). ok
// is false when there is nothing to hit or the tool is wrong; a miss changes
// nothing.
func (w *World) HarvestResource(pos Vec3, amount int, tool string) (HarvestResult, bool) {
	n := w.GetResourceAt(pos, harvestReach)
	if n == nil {
		return HarvestResult{}, false
	}
	if n.Tool != "" && !strings.EqualFold(tool, n.Tool) {
		return HarvestResult{}, false
	}
	if amount <= 0 {
		amount = 1
	}

	c := w.chunkOfResource(n)
	if c == nil {
		return HarvestResult{}, false
	}
	depleted := n.damage(amount)
	c.markResourceDirty(n)

	res := HarvestResult{NodeDef: n.DefID, Remaining: n.HP, Depleted: depleted}
	if depleted {
		res.Loot = rollLoot(c, n)
		// the tile just opened up
		w.nav.InvalidateCache()
		w.logEvent(Event{Kind: EventResourceDepleted, Pos: n.Pos, CX: c.CX, CZ: c.CZ, Detail: n.DefID})
	}
	return res, true
}

// rollLoot draws from the node's drop table using the chunk RNG. Loot is
// gameplay randomness, not regeneration state, so consuming the chunk stream
// here is fine; baselines never depend on post-generation draws.
func rollLoot(c *Chunk, n *ResourceNode) []LootStack {
	var out []LootStack
	for _, d := range n.Drops {
		if d.Chance < 1 && c.rng.Float64() >= d.Chance {
			continue
		}
		count := d.Min
		if d.Max > d.Min {
			count += c.rng.Intn(d.Max - d.Min + 1)
		}
		if count <= 0 {
			continue
		}
		out = append(out, LootStack{Item: d.Item, Count: count})
	}
	return out
}
