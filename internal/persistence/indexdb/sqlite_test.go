package indexdb

import (
	"path/filepath"
	"testing"
	"time"

	"emberwild.gg/internal/persistence/chunkstore"
	"emberwild.gg/internal/sim/catalogs"
	"emberwild.gg/internal/sim/tuning"
	"emberwild.gg/internal/sim/world"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqEvent, event: world.Event{Kind: world.EventChunkLoaded}}

	_ = s.WriteEvent(world.Event{Kind: world.EventChunkUnloaded})
	s.RecordChunkSave(chunkstore.ChunkRecordV1{CX: 1, CZ: 2})
	s.RecordWorldSave(chunkstore.WorldRecordV1{Clock: 3})

	st := s.Stats()
	if st.DropEventTotal != 1 {
		t.Fatalf("DropEventTotal=%d want=1", st.DropEventTotal)
	}
	if st.DropChunkSaveTotal != 1 {
		t.Fatalf("DropChunkSaveTotal=%d want=1", st.DropChunkSaveTotal)
	}
	if st.DropWorldSaveTotal != 1 {
		t.Fatalf("DropWorldSaveTotal=%d want=1", st.DropWorldSaveTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_RoundTrip(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.WriteEvent(world.Event{Clock: 5, Kind: world.EventChunkLoaded, CX: 2, CZ: -3}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	s.RecordChunkSave(chunkstore.ChunkRecordV1{
		CX: 2, CZ: -3,
		ChunkType:   "FOREST_PEACEFUL",
		UnloadClock: 6,
		Resources:   []chunkstore.ResourceDeltaV1{{DefID: "oak_tree", HP: 2, MaxHP: 5}},
	})
	s.RecordWorldSave(chunkstore.WorldRecordV1{
		Clock:    7,
		Entities: []chunkstore.PlacedEntityV1{{ID: "E000001"}},
	})

	// The writer commits on a timer; poll until the rows land.
	deadline := time.Now().Add(10 * time.Second)
	var saves []ChunkSaveInfo
	for time.Now().Before(deadline) {
		saves, err = s.ChunkSaveHistory(2, -3, 10)
		if err == nil && len(saves) == 1 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil || len(saves) != 1 {
		t.Fatalf("chunk save not indexed: n=%d err=%v", len(saves), err)
	}
	if saves[0].Deltas != 1 || saves[0].ChunkType != "FOREST_PEACEFUL" || saves[0].Dungeon {
		t.Fatalf("unexpected chunk save row: %+v", saves[0])
	}

	var last WorldSaveInfo
	var ok bool
	for time.Now().Before(deadline) {
		last, ok, err = s.LastWorldSave()
		if err == nil && ok {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil || !ok {
		t.Fatalf("world save not indexed: ok=%v err=%v", ok, err)
	}
	if last.Entities != 1 || last.Clock != 7 {
		t.Fatalf("unexpected world save row: %+v", last)
	}

	recent, err := s.RecentChunkSaves(10)
	if err != nil || len(recent) != 1 {
		t.Fatalf("RecentChunkSaves: n=%d err=%v", len(recent), err)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = s.Close() }()

	cats := catalogs.Default()
	if err := s.UpsertCatalogs("", cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	// Upserting twice must replace, not error.
	if err := s.UpsertCatalogs("", cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs again: %v", err)
	}
	if err := s.SetMeta("seed", "12345"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}

	var digest string
	row := s.db.QueryRow(`SELECT digest FROM catalogs WHERE name='resources'`)
	if err := row.Scan(&digest); err != nil {
		t.Fatalf("scan resources digest: %v", err)
	}
	if digest != cats.Resources.Digest {
		t.Fatalf("stored digest %q != catalog digest %q", digest, cats.Resources.Digest)
	}
}

func TestSQLiteIndex_NilSafe(t *testing.T) {
	var s *SQLiteIndex
	if err := s.WriteEvent(world.Event{}); err != nil {
		t.Fatalf("nil WriteEvent: %v", err)
	}
	s.RecordChunkSave(chunkstore.ChunkRecordV1{})
	s.RecordWorldSave(chunkstore.WorldRecordV1{})
	if st := s.Stats(); st.QueueCapacity != 0 {
		t.Fatalf("nil Stats: %+v", st)
	}
	if err := s.UpsertCatalogs("", catalogs.Default(), tuning.Defaults()); err != nil {
		t.Fatalf("nil UpsertCatalogs: %v", err)
	}
}
