package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type WorldParams struct {
	TickRateHz     int     `json:"tick_rate_hz"`
	ChunkSize      int     `json:"chunk_size"`
	LoadRadius     int     `json:"load_radius"`
	BoundaryChunks int     `json:"boundary_chunks"`
	Seed           int64   `json:"seed"`
	Clock          float64 `json:"clock"`
}

type CatalogDigests struct {
	Resources  DigestRef `json:"resources"`
	Enemies    DigestRef `json:"enemies"`
	Items      DigestRef `json:"items"`
	Placeables DigestRef `json:"placeables"`
	Stations   DigestRef `json:"stations"`
}

type DigestRef struct {
	Digest string `json:"digest"` // sha256 hex
	Count  int    `json:"count"`
}

// CATALOG (server -> client): one catalog per message.
type CatalogMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Name            string      `json:"name"`
	Digest          string      `json:"digest"`
	Part            int         `json:"part"`
	TotalParts      int         `json:"total_parts"`
	Data            interface{} `json:"data"`
}

// Command names (CMD.cmd).
const (
	CmdTrack            = "track"
	CmdUntrack          = "untrack"
	CmdPlaceEntity      = "place_entity"
	CmdRemoveEntity     = "remove_entity"
	CmdHarvest          = "harvest"
	CmdCreateDeathChest = "create_death_chest"
	CmdLootDeathChest   = "loot_death_chest"
	CmdDiscoverDungeon  = "discover_dungeon"
)

// CMD (client -> server): a state-changing command. ID is echoed back on the
// RESULT so clients can correlate.
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Cmd             string `json:"cmd"`

	Pos    *Vec3 `json:"pos,omitempty"`
	Radius int   `json:"radius,omitempty"` // track: chunk load radius override

	DefID    string        `json:"def_id,omitempty"`
	EntityID string        `json:"entity_id,omitempty"`
	ChestID  string        `json:"chest_id,omitempty"`
	Stats    *CraftedStats `json:"stats,omitempty"`

	// place_entity dropped-item payload
	Item  string `json:"item,omitempty"`
	Count int    `json:"count,omitempty"`

	// harvest
	Tool   string `json:"tool,omitempty"`
	Amount int    `json:"amount,omitempty"`

	// create_death_chest
	Items map[string]int `json:"items,omitempty"`
}

type CraftedStats struct {
	Power      float64 `json:"power,omitempty"`
	Durability float64 `json:"durability,omitempty"`
	Efficiency float64 `json:"efficiency,omitempty"`
}

// Query names (QUERY.query).
const (
	QueryTile              = "tile"
	QueryWalkable          = "walkable"
	QueryResourceAt        = "resource_at"
	QueryEntityAt          = "entity_at"
	QueryEntitiesInRange   = "entities_in_range"
	QueryFindPath          = "find_path"
	QueryLineOfSight       = "line_of_sight"
	QueryCheckMovement     = "check_movement"
	QueryChunkType         = "chunk_type"
	QueryNearestDeathChest = "nearest_death_chest"
	QueryNearestStation    = "nearest_station"
	QueryNearestDungeon    = "nearest_dungeon"
)

// QUERY (client -> server): read-only, answered with a RESULT on the same ID.
type QueryMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Query           string `json:"query"`

	Pos  *Vec3 `json:"pos,omitempty"`
	From *Vec3 `json:"from,omitempty"`
	To   *Vec3 `json:"to,omitempty"`

	CX int `json:"cx,omitempty"`
	CZ int `json:"cz,omitempty"`

	Radius     float64  `json:"radius,omitempty"`
	Tolerance  float64  `json:"tolerance,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Discipline string   `json:"discipline,omitempty"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Tick            uint64 `json:"tick"`

	Data *ResultData `json:"data,omitempty"`
}

// ResultData is a union: each query/cmd fills the fields it owns and leaves
// the rest empty.
type ResultData struct {
	Tile     *TileInfo     `json:"tile,omitempty"`
	Walkable *bool         `json:"walkable,omitempty"`
	Resource *ResourceInfo `json:"resource,omitempty"`
	Entity   *EntityInfo   `json:"entity,omitempty"`
	Entities []EntityInfo  `json:"entities,omitempty"`

	PathFound *bool  `json:"path_found,omitempty"`
	Path      []Vec3 `json:"path,omitempty"`

	Sight *SightInfo `json:"sight,omitempty"`
	Move  *MoveInfo  `json:"move,omitempty"`

	ChunkType string `json:"chunk_type,omitempty"`

	Chest   *ChestInfo   `json:"chest,omitempty"`
	Station *StationInfo `json:"station,omitempty"`
	Dungeon *DungeonInfo `json:"dungeon,omitempty"`

	// harvest outcome
	Remaining *int        `json:"remaining,omitempty"`
	Depleted  *bool       `json:"depleted,omitempty"`
	Drops     []ItemStack `json:"drops,omitempty"`
}

// STATE (server -> client): per-tick push to tracking sessions. Send with
// drop-oldest semantics; a slow client sees the latest state, not a backlog.
type StateMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Tick            uint64  `json:"tick"`
	Clock           float64 `json:"clock"`
	SessionID       string  `json:"session_id"`

	Pos          Vec3   `json:"pos"`
	ChunkType    string `json:"chunk_type"`
	LoadedChunks int    `json:"loaded_chunks"`

	Entities  []EntityInfo   `json:"entities,omitempty"`
	Resources []ResourceInfo `json:"resources,omitempty"`
	Chests    []ChestInfo    `json:"chests,omitempty"`
	Dungeons  []DungeonInfo  `json:"dungeons,omitempty"`
}

// ERROR (server -> client): protocol-level failure outside any RESULT.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
	For             string `json:"for,omitempty"` // offending message id, when known
}

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type TileInfo struct {
	TX       int    `json:"tx"`
	TZ       int    `json:"tz"`
	Terrain  string `json:"terrain"`
	Walkable bool   `json:"walkable"`
}

type ResourceInfo struct {
	DefID     string  `json:"def_id"`
	Name      string  `json:"name,omitempty"`
	Category  string  `json:"category,omitempty"`
	Tool      string  `json:"tool,omitempty"`
	Tier      int     `json:"tier,omitempty"`
	Pos       Vec3    `json:"pos"`
	HP        int     `json:"hp"`
	MaxHP     int     `json:"max_hp"`
	Depleted  bool    `json:"depleted,omitempty"`
	RespawnIn float64 `json:"respawn_in,omitempty"`
}

type EntityInfo struct {
	ID           string  `json:"id"`
	DefID        string  `json:"def_id"`
	Kind         string  `json:"kind"`
	Pos          Vec3    `json:"pos"`
	Blocking     bool    `json:"blocking,omitempty"`
	Item         string  `json:"item,omitempty"`
	Count        int     `json:"count,omitempty"`
	LifetimeLeft float64 `json:"lifetime_left,omitempty"`
}

type SightInfo struct {
	Clear    bool    `json:"clear"`
	Blocker  string  `json:"blocker,omitempty"` // "terrain", "resource", "barrier"
	TileX    int     `json:"tile_x,omitempty"`
	TileZ    int     `json:"tile_z,omitempty"`
	Distance float64 `json:"distance,omitempty"`
}

type MoveInfo struct {
	Pos   Vec3 `json:"pos"`
	Moved bool `json:"moved"`
	Slid  bool `json:"slid,omitempty"`
}

type ChestInfo struct {
	ID    string         `json:"id"`
	Pos   Vec3           `json:"pos"`
	Items map[string]int `json:"items,omitempty"`
}

type StationInfo struct {
	ID         string `json:"id"`
	DefID      string `json:"def_id"`
	Discipline string `json:"discipline"`
	Tier       int    `json:"tier"`
	Pos        Vec3   `json:"pos"`
}

type DungeonInfo struct {
	ID  string `json:"id"`
	Pos Vec3   `json:"pos"`
	CX  int    `json:"cx"`
	CZ  int    `json:"cz"`
}

type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}
