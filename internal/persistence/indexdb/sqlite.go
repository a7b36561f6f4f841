package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"emberwild.gg/internal/persistence/chunkstore"
	"emberwild.gg/internal/sim/catalogs"
	"emberwild.gg/internal/sim/tuning"
	"emberwild.gg/internal/sim/world"
)

// SQLiteIndex is a queryable side-index over the chunk store and event log.
// It is never the source of truth: writes are queued and dropped when the
// queue is full, so losing the db file costs nothing but admin visibility.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEvent     atomic.Uint64
	dropChunkSave atomic.Uint64
	dropWorldSave atomic.Uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqChunkSave
	reqWorldSave
)

type req struct {
	kind reqKind

	event world.Event
	chunk chunkSaveRow
	save  worldSaveRow
}

type chunkSaveRow struct {
	CX        int
	CZ        int
	ChunkType string
	Clock     float64
	Deltas    int
	Dungeon   bool
	SavedAt   string
}

type worldSaveRow struct {
	Clock    float64
	Entities int
	Stations int
	Chests   int
	Dungeons int
	SavedAt  string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// High buffer: a harvest-heavy tick can emit many depletion events
		// at once without stalling the sim.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			clock REAL NOT NULL,
			kind TEXT NOT NULL,
			cx INTEGER NOT NULL,
			cz INTEGER NOT NULL,
			entity_id TEXT,
			detail TEXT,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind, id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_chunk ON events(cx, cz, id);`,
		`CREATE TABLE IF NOT EXISTS chunk_saves (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cx INTEGER NOT NULL,
			cz INTEGER NOT NULL,
			chunk_type TEXT NOT NULL,
			clock REAL NOT NULL,
			deltas INTEGER NOT NULL,
			dungeon INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunk_saves_pos ON chunk_saves(cx, cz, id);`,
		`CREATE TABLE IF NOT EXISTS world_saves (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			clock REAL NOT NULL,
			entities INTEGER NOT NULL,
			stations INTEGER NOT NULL,
			chests INTEGER NOT NULL,
			dungeons INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteEvent satisfies world.EventLogger.
func (s *SQLiteIndex) WriteEvent(e world.Event) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEvent, event: e}:
	default:
		// Drop if the indexer falls behind; the JSONL log remains the
		// source of truth.
		s.dropEvent.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordChunkSave(rec chunkstore.ChunkRecordV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := chunkSaveRow{
		CX:        rec.CX,
		CZ:        rec.CZ,
		ChunkType: rec.ChunkType,
		Clock:     rec.UnloadClock,
		Deltas:    len(rec.Resources),
		Dungeon:   rec.Dungeon != nil,
		SavedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqChunkSave, chunk: r}:
	default:
		s.dropChunkSave.Add(1)
	}
}

func (s *SQLiteIndex) RecordWorldSave(rec chunkstore.WorldRecordV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := worldSaveRow{
		Clock:    rec.Clock,
		Entities: len(rec.Entities),
		Stations: len(rec.Stations),
		Chests:   len(rec.Chests),
		Dungeons: len(rec.Dungeons),
		SavedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqWorldSave, save: r}:
	default:
		s.dropWorldSave.Add(1)
	}
}

// Stats reports queue pressure for the metrics endpoint.
type Stats struct {
	QueueDepth         int
	QueueCapacity      int
	DropEventTotal     uint64
	DropChunkSaveTotal uint64
	DropWorldSaveTotal uint64
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:         len(s.ch),
		QueueCapacity:      cap(s.ch),
		DropEventTotal:     s.dropEvent.Load(),
		DropChunkSaveTotal: s.dropChunkSave.Load(),
		DropWorldSaveTotal: s.dropWorldSave.Load(),
	}
}

func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	// Prefer the raw config files so the stored json matches what the
	// digests were computed over; fall back to canonical re-marshals when
	// running on the built-in defaults.
	raw := map[string][]byte{}
	read := func(name, path string) {
		b, err := os.ReadFile(path)
		if err != nil {
			return
		}
		raw[name] = b
	}
	if configDir != "" {
		read("resources", filepath.Join(configDir, "resources.json"))
		read("enemies", filepath.Join(configDir, "enemies.json"))
		read("items", filepath.Join(configDir, "items.json"))
		read("placeables", filepath.Join(configDir, "placeables.json"))
		read("stations", filepath.Join(configDir, "stations.json"))
	}

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	add := func(name, digest string, fallback any) {
		b := raw[name]
		if len(b) == 0 {
			b, _ = json.Marshal(fallback)
		}
		if len(b) == 0 {
			return
		}
		rows = append(rows, kv{name: name, digest: digest, json: b})
	}
	add("resources", cats.Resources.Digest, cats.Resources.Defs)
	add("enemies", cats.Enemies.Digest, cats.Enemies.Defs)
	add("items", cats.Items.Digest, cats.Items.Defs)
	add("placeables", cats.Placeables.Digest, cats.Placeables.Defs)
	add("stations", cats.Stations.Digest, cats.Stations.Defs)

	// Tuning: store the values we actually apply (canonical JSON).
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) SetMeta(key, value string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`, key, value)
	return err
}

type ChunkSaveInfo struct {
	CX        int     `json:"cx"`
	CZ        int     `json:"cz"`
	ChunkType string  `json:"chunk_type"`
	Clock     float64 `json:"clock"`
	Deltas    int     `json:"deltas"`
	Dungeon   bool    `json:"dungeon"`
	SavedAt   string  `json:"saved_at"`
}

type WorldSaveInfo struct {
	Clock    float64 `json:"clock"`
	Entities int     `json:"entities"`
	Stations int     `json:"stations"`
	Chests   int     `json:"chests"`
	Dungeons int     `json:"dungeons"`
	SavedAt  string  `json:"saved_at"`
}

func (s *SQLiteIndex) RecentChunkSaves(limit int) ([]ChunkSaveInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT cx,cz,chunk_type,clock,deltas,dungeon,saved_at FROM chunk_saves ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkSaves(rows)
}

func (s *SQLiteIndex) ChunkSaveHistory(cx, cz, limit int) ([]ChunkSaveInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT cx,cz,chunk_type,clock,deltas,dungeon,saved_at FROM chunk_saves WHERE cx=? AND cz=? ORDER BY id DESC LIMIT ?`,
		cx, cz, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkSaves(rows)
}

func scanChunkSaves(rows *sql.Rows) ([]ChunkSaveInfo, error) {
	var out []ChunkSaveInfo
	for rows.Next() {
		var info ChunkSaveInfo
		if err := rows.Scan(&info.CX, &info.CZ, &info.ChunkType, &info.Clock, &info.Deltas, &info.Dungeon, &info.SavedAt); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) LastWorldSave() (WorldSaveInfo, bool, error) {
	row := s.db.QueryRow(`SELECT clock,entities,stations,chests,dungeons,saved_at FROM world_saves ORDER BY id DESC LIMIT 1`)
	var info WorldSaveInfo
	err := row.Scan(&info.Clock, &info.Entities, &info.Stations, &info.Chests, &info.Dungeons, &info.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return WorldSaveInfo{}, false, nil
	}
	if err != nil {
		return WorldSaveInfo{}, false, err
	}
	return info, true, nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertEvent, _ := s.db.Prepare(`INSERT INTO events(clock,kind,cx,cz,entity_id,detail,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertChunkSave, _ := s.db.Prepare(`INSERT INTO chunk_saves(cx,cz,chunk_type,clock,deltas,dungeon,saved_at) VALUES(?,?,?,?,?,?,?)`)
	insertWorldSave, _ := s.db.Prepare(`INSERT INTO world_saves(clock,entities,stations,chests,dungeons,saved_at) VALUES(?,?,?,?,?,?)`)
	defer func() {
		if insertEvent != nil {
			_ = insertEvent.Close()
		}
		if insertChunkSave != nil {
			_ = insertChunkSave.Close()
		}
		if insertWorldSave != nil {
			_ = insertWorldSave.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	// Committing on a timer as well keeps the single connection free for
	// admin reads when the world goes quiet mid-batch.
	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			begin()
			if tx == nil {
				continue
			}
			switch r.kind {
			case reqEvent:
				raw, _ := json.Marshal(r.event)
				if insertEvent != nil {
					if _, err := tx.Stmt(insertEvent).Exec(
						r.event.Clock,
						r.event.Kind,
						r.event.CX,
						r.event.CZ,
						r.event.EntityID,
						r.event.Detail,
						string(raw),
					); err != nil {
						rollback()
						continue
					}
					opCount++
				}

			case reqChunkSave:
				c := r.chunk
				if insertChunkSave != nil {
					if _, err := tx.Stmt(insertChunkSave).Exec(
						c.CX, c.CZ,
						c.ChunkType,
						c.Clock,
						c.Deltas,
						c.Dungeon,
						c.SavedAt,
					); err != nil {
						rollback()
						continue
					}
					opCount++
				}

			case reqWorldSave:
				w := r.save
				if insertWorldSave != nil {
					if _, err := tx.Stmt(insertWorldSave).Exec(
						w.Clock,
						w.Entities,
						w.Stations,
						w.Chests,
						w.Dungeons,
						w.SavedAt,
					); err != nil {
						rollback()
						continue
					}
					opCount++
				}
			}
			flushIfNeeded()

		case <-ticker.C:
			commit()
		}
	}
}
