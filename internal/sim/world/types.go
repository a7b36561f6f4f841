package world

import (
	"fmt"
	"math"

	"emberwild.gg/internal/sim/mathx"
)

// ChunkSize is the tile edge length of a chunk. Tile (tx,tz) belongs to chunk
// (floorDiv(tx,16), floorDiv(tz,16)); the grid is anchored at the origin, so
// negative coordinates floor correctly instead of truncating toward zero.
const ChunkSize = 16

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func V3(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

// Dist2D ignores Y; the world is a flat tile plane.
func Dist2D(a, b Vec3) float64 {
	return math.Hypot(b.X-a.X, b.Z-a.Z)
}

// TileOf floors a world position onto its tile.
func TileOf(v Vec3) (int, int) {
	return int(math.Floor(v.X)), int(math.Floor(v.Z))
}

// TileCenter is the +0.5 center of a tile.
func TileCenter(tx, tz int) Vec3 {
	return Vec3{X: float64(tx) + 0.5, Z: float64(tz) + 0.5}
}

type ChunkKey struct {
	CX int `json:"cx"`
	CZ int `json:"cz"`
}

func (k ChunkKey) String() string { return fmt.Sprintf("c(%d,%d)", k.CX, k.CZ) }

// ChunkKeyAt maps an absolute tile coordinate to its owning chunk.
func ChunkKeyAt(tx, tz int) ChunkKey {
	return ChunkKey{CX: mathx.FloorDiv(tx, ChunkSize), CZ: mathx.FloorDiv(tz, ChunkSize)}
}

func ChunkKeyOf(v Vec3) ChunkKey {
	tx, tz := TileOf(v)
	return ChunkKeyAt(tx, tz)
}

// TileKey is an absolute tile coordinate.
type TileKey struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// LocalKey is a tile coordinate relative to its chunk origin, 0..15 on both
// axes. Persistence records use local keys so a record stays valid no matter
// where the file lands.
type LocalKey struct {
	X int `json:"x"`
	Z int `json:"z"`
}

func localOf(tx, tz int) LocalKey {
	return LocalKey{X: mathx.Mod(tx, ChunkSize), Z: mathx.Mod(tz, ChunkSize)}
}

type Terrain uint8

const (
	TerrainGrass Terrain = iota
	TerrainStone
	TerrainPath
	TerrainWater
)

func (t Terrain) String() string {
	switch t {
	case TerrainGrass:
		return "GRASS"
	case TerrainStone:
		return "STONE"
	case TerrainPath:
		return "PATH"
	case TerrainWater:
		return "WATER"
	}
	return "UNKNOWN"
}

type WorldTile struct {
	Terrain  Terrain
	Walkable bool
}
