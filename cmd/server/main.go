package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"emberwild.gg/internal/persistence/chunkstore"
	"emberwild.gg/internal/persistence/indexdb"
	persistlog "emberwild.gg/internal/persistence/log"
	"emberwild.gg/internal/sim/catalogs"
	"emberwild.gg/internal/sim/tuning"
	"emberwild.gg/internal/sim/world"
	"emberwild.gg/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		seed       = flag.Int64("seed", 1337, "world seed (used only when starting a fresh world)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		schemasDir = flag.String("schemas", "", "schemas directory for strict frame validation (empty to disable)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite side-index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load catalogs: %v", err)
		}
		logger.Printf("catalogs not found in %s; using built-in defaults", *configDir)
		cats = catalogs.Default()
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	worldDir := filepath.Join(*dataDir, "world")
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	store, err := chunkstore.Open(worldDir)
	if err != nil {
		logger.Fatalf("open chunk store: %v", err)
	}

	// Optional read-model index (does not affect sim determinism).
	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index: %v", err)
	}
	if idx != nil {
		defer func() { _ = idx.Close() }()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	eventLog := persistlog.NewEventLogger(worldDir)
	defer func() { _ = eventLog.Close() }()

	w := world.New(world.Config{
		Seed:                  *seed,
		LoadRadius:            tune.LoadRadius,
		AlwaysLoadedRadius:    tune.AlwaysLoadedRadius,
		BoundaryChunks:        tune.WorldBoundaryR,
		SaveEverySec:          tune.SaveEverySec,
		WaterRatio:            tune.Biome.WaterRatio,
		ForestRatio:           tune.Biome.ForestRatio,
		SafeZoneRadius:        tune.Biome.SafeZoneRadius,
		SpawnRadius:           tune.Biome.SpawnRadius,
		LakeBias:              tune.Biome.LakeBias,
		QuarryBias:            tune.Biome.QuarryBias,
		DungeonChance:         tune.Biome.DungeonChance,
		PathVariantChance:     tune.Gen.PathVariantChance,
		LakeRadius:            tune.Gen.LakeRadius,
		SwampWaterChance:      tune.Gen.SwampWaterChance,
		EnemySafeRadius:       tune.Gen.EnemySafeRadius,
		ResourceBlockRadius:   tune.Gen.ResourceBlockRadius,
		MaxPathSteps:          tune.Nav.MaxPathSteps,
		PathCacheMaxWaypoints: tune.Nav.PathCacheMaxWaypoints,
		GoalRetargetRadius:    tune.Nav.GoalRetargetRadius,
		SightBypassTags:       tune.Nav.SightBypassTags,
		TickRateHz:            tune.TickRateHz,
	}, cats, logger)

	w.SetStore(indexedStore{s: store, idx: idx})
	w.SetEventLogger(multiEventLogger{a: eventLog, b: idx})

	if err := w.LoadWorld(); err != nil {
		logger.Fatalf("load world: %v", err)
	}
	if w.Clock() > 0 {
		logger.Printf("resumed world seed=%d clock=%.1fs", w.Seed(), w.Clock())
	} else {
		logger.Printf("fresh world seed=%d", w.Seed())
	}
	if idx != nil {
		if err := idx.SetMeta("seed", strconv.FormatInt(w.Seed(), 10)); err != nil {
			logger.Printf("index: set meta: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := w.Metrics()
		tick := w.Tick()
		if m.Tick != 0 {
			tick = m.Tick
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP emberwild_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE emberwild_world_tick gauge\n")
		fmt.Fprintf(rw, "emberwild_world_tick %d\n", tick)

		fmt.Fprintf(rw, "# HELP emberwild_world_clock Simulated seconds since world start.\n")
		fmt.Fprintf(rw, "# TYPE emberwild_world_clock gauge\n")
		fmt.Fprintf(rw, "emberwild_world_clock %.3f\n", m.Clock)

		fmt.Fprintf(rw, "# HELP emberwild_world_sessions Connected sessions.\n")
		fmt.Fprintf(rw, "# TYPE emberwild_world_sessions gauge\n")
		fmt.Fprintf(rw, "emberwild_world_sessions %d\n", m.Sessions)

		fmt.Fprintf(rw, "# HELP emberwild_world_loaded_chunks Loaded chunk count.\n")
		fmt.Fprintf(rw, "# TYPE emberwild_world_loaded_chunks gauge\n")
		fmt.Fprintf(rw, "emberwild_world_loaded_chunks %d\n", m.LoadedChunks)

		fmt.Fprintf(rw, "# HELP emberwild_world_objects Live world object counts.\n")
		fmt.Fprintf(rw, "# TYPE emberwild_world_objects gauge\n")
		fmt.Fprintf(rw, "emberwild_world_objects{kind=%q} %d\n", "entities", m.Entities)
		fmt.Fprintf(rw, "emberwild_world_objects{kind=%q} %d\n", "barriers", m.Barriers)
		fmt.Fprintf(rw, "emberwild_world_objects{kind=%q} %d\n", "stations", m.Stations)
		fmt.Fprintf(rw, "emberwild_world_objects{kind=%q} %d\n", "death_chests", m.DeathChests)
		fmt.Fprintf(rw, "emberwild_world_objects{kind=%q} %d\n", "dungeons", m.Dungeons)

		fmt.Fprintf(rw, "# HELP emberwild_world_path_cache_entries Cached paths held by the pathfinder.\n")
		fmt.Fprintf(rw, "# TYPE emberwild_world_path_cache_entries gauge\n")
		fmt.Fprintf(rw, "emberwild_world_path_cache_entries %d\n", m.PathCache)

		fmt.Fprintf(rw, "# HELP emberwild_world_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE emberwild_world_queue_depth gauge\n")
		fmt.Fprintf(rw, "emberwild_world_queue_depth{queue=%q} %d\n", "cmd", m.CmdBacklog)
		fmt.Fprintf(rw, "emberwild_world_queue_depth{queue=%q} %d\n", "query", m.QueryBacklog)

		fmt.Fprintf(rw, "# HELP emberwild_world_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE emberwild_world_step_ms gauge\n")
		fmt.Fprintf(rw, "emberwild_world_step_ms %.3f\n", m.StepMS)

		writeIndexMetrics(rw, idx)
	})

	enableAdminHTTP := envBool("EW_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("EW_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints (no effect on sim determinism).
		mux.HandleFunc("/admin/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				Seed    int64         `json:"seed"`
				Tick    uint64        `json:"tick"`
				Metrics world.Metrics `json:"metrics"`
			}{
				Seed:    w.Seed(),
				Tick:    w.Tick(),
				Metrics: w.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/save", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			err := w.RequestSave(ctx2)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": w.Tick()})
		})
		mux.HandleFunc("/admin/chunks", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			if idx == nil {
				http.Error(rw, "index disabled", http.StatusServiceUnavailable)
				return
			}
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			saves, err := idx.RecentChunkSaves(limit)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			last, ok, err := idx.LastWorldSave()
			if err != nil {
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			resp := struct {
				LoadedChunks  int                     `json:"loaded_chunks"`
				LastWorldSave *indexdb.WorldSaveInfo  `json:"last_world_save,omitempty"`
				RecentSaves   []indexdb.ChunkSaveInfo `json:"recent_saves"`
			}{
				LoadedChunks: w.Metrics().LoadedChunks,
				RecentSaves:  saves,
			}
			if ok {
				resp.LastWorldSave = &last
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/chunk", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			if idx == nil {
				http.Error(rw, "index disabled", http.StatusServiceUnavailable)
				return
			}
			q := r.URL.Query()
			cx, errX := strconv.Atoi(q.Get("cx"))
			cz, errZ := strconv.Atoi(q.Get("cz"))
			if errX != nil || errZ != nil {
				http.Error(rw, "cx and cz are required", http.StatusBadRequest)
				return
			}
			limit, _ := strconv.Atoi(q.Get("limit"))
			hist, err := idx.ChunkSaveHistory(cx, cz, limit)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			resp := struct {
				CX    int                     `json:"cx"`
				CZ    int                     `json:"cz"`
				Saves []indexdb.ChunkSaveInfo `json:"saves"`
			}{CX: cx, CZ: cz, Saves: hist}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(resp)
		})
	} else {
		logger.Printf("admin endpoints disabled (EW_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (EW_ENABLE_PPROF_HTTP=false)")
	}

	wsrv := ws.NewServer(w, logger)
	if sd := strings.TrimSpace(*schemasDir); sd != "" {
		err := wsrv.EnableStrictValidation(
			filepath.Join(sd, "cmd.schema.json"),
			filepath.Join(sd, "query.schema.json"),
		)
		if err != nil {
			logger.Fatalf("strict validation: %v", err)
		}
		logger.Printf("strict frame validation enabled (%s)", sd)
	}
	mux.HandleFunc("/v1/ws", wsrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// Let the loop finish its shutdown save before the deferred closes run.
	<-worldDone
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func writeIndexMetrics(rw http.ResponseWriter, idx runtimeIndex) {
	if idx == nil {
		return
	}
	s := idx.Stats()

	fmt.Fprintf(rw, "# HELP emberwild_index_queue_depth Current index write-queue depth.\n")
	fmt.Fprintf(rw, "# TYPE emberwild_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "emberwild_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP emberwild_index_queue_capacity Index write-queue capacity.\n")
	fmt.Fprintf(rw, "# TYPE emberwild_index_queue_capacity gauge\n")
	fmt.Fprintf(rw, "emberwild_index_queue_capacity %d\n", s.QueueCapacity)

	fmt.Fprintf(rw, "# HELP emberwild_index_dropped_total Writes dropped because the index queue was full.\n")
	fmt.Fprintf(rw, "# TYPE emberwild_index_dropped_total counter\n")
	fmt.Fprintf(rw, "emberwild_index_dropped_total{kind=%q} %d\n", "event", s.DropEventTotal)
	fmt.Fprintf(rw, "emberwild_index_dropped_total{kind=%q} %d\n", "chunk_save", s.DropChunkSaveTotal)
	fmt.Fprintf(rw, "emberwild_index_dropped_total{kind=%q} %d\n", "world_save", s.DropWorldSaveTotal)
}
