package world

// Metrics is an immutable per-step snapshot. The loop publishes a fresh value
// after every step; readers on other goroutines load the latest pointer and
// never see a partially updated struct.
type Metrics struct {
	Tick         uint64  `json:"tick"`
	Clock        float64 `json:"clock"`
	LoadedChunks int     `json:"loaded_chunks"`
	Entities     int     `json:"entities"`
	Barriers     int     `json:"barriers"`
	Stations     int     `json:"stations"`
	DeathChests  int     `json:"death_chests"`
	Dungeons     int     `json:"dungeons"`
	Sessions     int     `json:"sessions"`
	PathCache    int     `json:"path_cache"`
	StepMS       float64 `json:"step_ms"`
	CmdBacklog   int     `json:"cmd_backlog"`
	QueryBacklog int     `json:"query_backlog"`
}

// Metrics returns the last published snapshot, zero before the first step.
func (w *World) Metrics() Metrics {
	if m := w.met.Load(); m != nil {
		return *m
	}
	return Metrics{}
}

func (w *World) publishMetrics(stepMS float64) {
	w.met.Store(&Metrics{
		Tick:         w.tick.Load(),
		Clock:        w.clock,
		LoadedChunks: len(w.chunks),
		Entities:     len(w.entities),
		Barriers:     len(w.barriers),
		Stations:     len(w.stations),
		DeathChests:  len(w.chests),
		Dungeons:     len(w.entrances),
		Sessions:     len(w.sessions),
		PathCache:    w.nav.CacheSize(),
		StepMS:       stepMS,
		CmdBacklog:   len(w.cmdCh),
		QueryBacklog: len(w.queryCh),
	})
}
