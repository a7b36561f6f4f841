package chunkstore

// Records are delta-over-baseline: a chunk file carries only what differs
// from deterministic regeneration, never tiles or pristine resources. The
// world file carries state that exists outside any chunk's baseline.

type Header struct {
	Version   int    `json:"version"`
	Kind      string `json:"kind"` // "chunk" or "world"
	CX        int    `json:"cx,omitempty"`
	CZ        int    `json:"cz,omitempty"`
	SavedUnix int64  `json:"saved_unix"`
}

type ChunkRecordV1 struct {
	Header Header `json:"header"`

	CX        int    `json:"cx"`
	CZ        int    `json:"cz"`
	ChunkType string `json:"chunk_type"`

	// UnloadClock is the world clock when this record was written. Respawn
	// catch-up on reload advances timers by (clock now - UnloadClock).
	UnloadClock float64 `json:"unload_clock"`

	Resources []ResourceDeltaV1 `json:"resources,omitempty"`
	Dungeon   *DungeonV1        `json:"dungeon,omitempty"`
}

type ResourceDeltaV1 struct {
	LocalX    int     `json:"local_x"`
	LocalZ    int     `json:"local_z"`
	DefID     string  `json:"def_id"`
	HP        int     `json:"hp"`
	MaxHP     int     `json:"max_hp"`
	Depleted  bool    `json:"depleted"`
	RespawnIn float64 `json:"respawn_in"`
}

type DungeonV1 struct {
	ID           string     `json:"id"`
	Pos          [3]float64 `json:"pos"`
	CX           int        `json:"cx"`
	CZ           int        `json:"cz"`
	DiscoveredAt float64    `json:"discovered_at"`
}

type WorldRecordV1 struct {
	Header Header `json:"header"`

	Seed  int64   `json:"seed"`
	Clock float64 `json:"clock"`

	Entities []PlacedEntityV1 `json:"entities,omitempty"`
	Stations []StationV1      `json:"stations,omitempty"`
	Chests   []DeathChestV1   `json:"chests,omitempty"`
	Dungeons []DungeonV1      `json:"dungeons,omitempty"`

	Counters CountersV1 `json:"counters"`
}

type CountersV1 struct {
	NextEntity uint64 `json:"next_entity"`
	NextChest  uint64 `json:"next_chest"`
	NextDrop   uint64 `json:"next_drop,omitempty"`
}

type PlacedEntityV1 struct {
	ID             string     `json:"id"`
	DefID          string     `json:"def_id"`
	Kind           string     `json:"kind"`
	Pos            [3]float64 `json:"pos"`
	TX             int        `json:"tx"`
	TZ             int        `json:"tz"`
	Blocking       bool       `json:"blocking"`
	Damage         float64    `json:"damage,omitempty"`
	AttackInterval float64    `json:"attack_interval,omitempty"`
	LifetimeLeft   float64    `json:"lifetime_left,omitempty"`
	Item           string     `json:"item,omitempty"`
	Count          int        `json:"count,omitempty"`
	PlacedAt       float64    `json:"placed_at"`
}

type StationV1 struct {
	ID         string     `json:"id"`
	DefID      string     `json:"def_id"`
	Discipline string     `json:"discipline"`
	Tier       int        `json:"tier"`
	Pos        [3]float64 `json:"pos"`
}

type DeathChestV1 struct {
	ID        string         `json:"id"`
	Pos       [3]float64     `json:"pos"`
	Items     map[string]int `json:"items"`
	CreatedAt float64        `json:"created_at"`
}
