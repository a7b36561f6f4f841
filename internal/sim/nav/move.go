package nav

// CheckMovement validates a proposed move. If the destination is blocked it
// tries the X-only move, then the Z-only move, so walking diagonally into a
// wall slides along it instead of stopping dead. The order is fixed: full
// move, X slide, Z slide.
func (p *Pathfinder) CheckMovement(from, to Vec3) MoveResult {
	if p.view.WalkableAt(to.X, to.Z) {
		return MoveResult{Pos: to, Moved: true}
	}
	if p.view.WalkableAt(to.X, from.Z) {
		return MoveResult{Pos: Vec3{X: to.X, Y: from.Y, Z: from.Z}, Moved: true, Slid: true}
	}
	if p.view.WalkableAt(from.X, to.Z) {
		return MoveResult{Pos: Vec3{X: from.X, Y: from.Y, Z: to.Z}, Moved: true, Slid: true}
	}
	return MoveResult{Pos: from}
}
