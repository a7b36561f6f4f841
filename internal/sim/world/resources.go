package world

import "emberwild.gg/internal/sim/catalogs"

// ResourceNode is a harvestable feature on a tile. Nodes never move or leave
// their chunk; depletion flips them passable and arms the respawn timer.
type ResourceNode struct {
	DefID    string
	Name     string
	Category string
	Tool     string
	Tier     int

	TX, TZ int
	Pos    Vec3 // tile center

	HP        int
	MaxHP     int
	Depleted  bool
	RespawnIn float64 // seconds until respawn while depleted

	RespawnSec float64
	Drops      []catalogs.Drop
}

// Blocking reports whether the node occupies its tile for walkability and
// sight. Depleted nodes are ghosts until they respawn.
func (r *ResourceNode) Blocking() bool { return !r.Depleted }

func (r *ResourceNode) Harvestable() bool { return !r.Depleted }

// damage applies harvest damage and reports whether this hit depleted the
// node.
func (r *ResourceNode) damage(amount int) bool {
	if r.Depleted || amount <= 0 {
		return false
	}
	r.HP -= amount
	if r.HP > 0 {
		return false
	}
	r.HP = 0
	r.Depleted = true
	r.RespawnIn = r.RespawnSec
	return true
}

// tickRespawn advances the respawn timer and reports whether the node came
// back this step.
func (r *ResourceNode) tickRespawn(dt float64) bool {
	if !r.Depleted {
		return false
	}
	r.RespawnIn -= dt
	if r.RespawnIn > 0 {
		return false
	}
	r.respawn()
	return true
}

func (r *ResourceNode) respawn() {
	r.HP = r.MaxHP
	r.Depleted = false
	r.RespawnIn = 0
}
