package world

import "emberwild.gg/internal/protocol"

// Converters between sim types and wire types. The sim never hands out
// pointers into its own state; everything crossing the protocol boundary is
// copied.

func protoVec(v Vec3) protocol.Vec3     { return protocol.Vec3{X: v.X, Y: v.Y, Z: v.Z} }
func vecFromProto(v protocol.Vec3) Vec3 { return Vec3{X: v.X, Y: v.Y, Z: v.Z} }

func protoPath(path []Vec3) []protocol.Vec3 {
	if len(path) == 0 {
		return nil
	}
	out := make([]protocol.Vec3, len(path))
	for i, p := range path {
		out[i] = protoVec(p)
	}
	return out
}

func entityInfo(e *PlacedEntity) protocol.EntityInfo {
	return protocol.EntityInfo{
		ID:           e.ID,
		DefID:        e.DefID,
		Kind:         e.Kind,
		Pos:          protoVec(e.Pos),
		Blocking:     e.Blocking,
		Item:         e.Item,
		Count:        e.Count,
		LifetimeLeft: e.LifetimeLeft,
	}
}

func resourceInfo(n *ResourceNode) protocol.ResourceInfo {
	return protocol.ResourceInfo{
		DefID:     n.DefID,
		Name:      n.Name,
		Category:  n.Category,
		Tool:      n.Tool,
		Tier:      n.Tier,
		Pos:       protoVec(n.Pos),
		HP:        n.HP,
		MaxHP:     n.MaxHP,
		Depleted:  n.Depleted,
		RespawnIn: n.RespawnIn,
	}
}

func chestInfo(c *DeathChest) protocol.ChestInfo {
	items := make(map[string]int, len(c.Items))
	for id, n := range c.Items {
		items[id] = n
	}
	return protocol.ChestInfo{ID: c.ID, Pos: protoVec(c.Pos), Items: items}
}

func stationInfo(s *CraftingStation) protocol.StationInfo {
	return protocol.StationInfo{
		ID:         s.ID,
		DefID:      s.DefID,
		Discipline: s.Discipline,
		Tier:       s.Tier,
		Pos:        protoVec(s.Pos),
	}
}

func dungeonInfo(d *DungeonEntrance) protocol.DungeonInfo {
	return protocol.DungeonInfo{ID: d.ID, Pos: protoVec(d.Pos), CX: d.CX, CZ: d.CZ}
}

func lootStacks(loot []LootStack) []protocol.ItemStack {
	if len(loot) == 0 {
		return nil
	}
	out := make([]protocol.ItemStack, len(loot))
	for i, l := range loot {
		out[i] = protocol.ItemStack{Item: l.Item, Count: l.Count}
	}
	return out
}
