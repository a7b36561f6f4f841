package main

import (
	"path/filepath"

	"emberwild.gg/internal/persistence/chunkstore"
	"emberwild.gg/internal/persistence/indexdb"
	"emberwild.gg/internal/sim/catalogs"
	"emberwild.gg/internal/sim/tuning"
	"emberwild.gg/internal/sim/world"
)

// runtimeIndex is the slice of indexdb.SQLiteIndex the server wires in. A nil
// index (-disable_db) turns every call site into a no-op.
type runtimeIndex interface {
	world.EventLogger
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	SetMeta(key, value string) error
	RecordChunkSave(rec chunkstore.ChunkRecordV1)
	RecordWorldSave(rec chunkstore.WorldRecordV1)
	Stats() indexdb.Stats
	RecentChunkSaves(limit int) ([]indexdb.ChunkSaveInfo, error)
	ChunkSaveHistory(cx, cz, limit int) ([]indexdb.ChunkSaveInfo, error)
	LastWorldSave() (indexdb.WorldSaveInfo, bool, error)
}

func openRuntimeIndex(worldDir string, disable bool) (runtimeIndex, error) {
	if disable {
		return nil, nil
	}
	return indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
}

// indexedStore mirrors successful persistence writes into the side-index.
type indexedStore struct {
	s   world.Store
	idx runtimeIndex
}

func (s indexedStore) ReadChunk(cx, cz int) (chunkstore.ChunkRecordV1, error) {
	return s.s.ReadChunk(cx, cz)
}

func (s indexedStore) ReadWorld() (chunkstore.WorldRecordV1, error) {
	return s.s.ReadWorld()
}

func (s indexedStore) WriteChunk(rec chunkstore.ChunkRecordV1) error {
	if err := s.s.WriteChunk(rec); err != nil {
		return err
	}
	if s.idx != nil {
		s.idx.RecordChunkSave(rec)
	}
	return nil
}

func (s indexedStore) WriteWorld(rec chunkstore.WorldRecordV1) error {
	if err := s.s.WriteWorld(rec); err != nil {
		return err
	}
	if s.idx != nil {
		s.idx.RecordWorldSave(rec)
	}
	return nil
}

// multiEventLogger fans world events out to the JSONL log and the index.
type multiEventLogger struct {
	a world.EventLogger
	b world.EventLogger
}

func (m multiEventLogger) WriteEvent(e world.Event) error {
	if m.a != nil {
		_ = m.a.WriteEvent(e)
	}
	if m.b != nil {
		_ = m.b.WriteEvent(e)
	}
	return nil
}
