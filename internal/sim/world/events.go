package world

// Event kinds emitted by the world. Consumers fan these out to the JSONL
// audit log and the sqlite index.
const (
	EventChunkLoaded       = "CHUNK_LOADED"
	EventChunkUnloaded     = "CHUNK_UNLOADED"
	EventChunkPersisted    = "CHUNK_PERSISTED"
	EventEntityPlaced      = "ENTITY_PLACED"
	EventEntityRemoved     = "ENTITY_REMOVED"
	EventEntityExpired     = "ENTITY_EXPIRED"
	EventChestCreated      = "CHEST_CREATED"
	EventChestRemoved      = "CHEST_REMOVED"
	EventDungeonDiscovered = "DUNGEON_DISCOVERED"
	EventResourceDepleted  = "RESOURCE_DEPLETED"
	EventResourceRespawned = "RESOURCE_RESPAWNED"
	EventWorldSaved        = "WORLD_SAVED"
	EventSessionJoined     = "SESSION_JOINED"
	EventSessionLeft       = "SESSION_LEFT"
)

type Event struct {
	Clock    float64 `json:"clock"`
	Kind     string  `json:"kind"`
	CX       int     `json:"cx,omitempty"`
	CZ       int     `json:"cz,omitempty"`
	Pos      Vec3    `json:"pos"`
	EntityID string  `json:"entity_id,omitempty"`
	Detail   string  `json:"detail,omitempty"`
}

// EventLogger receives world events. Implementations must not block the
// world loop; buffered or drop-on-full sinks only.
type EventLogger interface {
	WriteEvent(e Event) error
}

func (w *World) logEvent(e Event) {
	if w.events == nil {
		return
	}
	e.Clock = w.clock
	// sink errors must never stall or kill the loop
	_ = w.events.WriteEvent(e)
}
