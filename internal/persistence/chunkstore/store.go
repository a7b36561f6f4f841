package chunkstore

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	chunkRecordVersion = 1
	worldRecordVersion = 1
)

// ErrNotFound reports that no record exists for the requested key. Callers
// treat it as "generate from baseline", not as a failure.
var ErrNotFound = errors.New("chunkstore: record not found")

// Store keeps one file per modified chunk under <dir>/chunks/ plus a single
// world record at <dir>/world.rec.zst. Each file is a zstd stream holding a
// JSON header line (greppable with zstdcat) followed by a gob body.
type Store struct {
	dir string
}

func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "chunks"), 0o755); err != nil {
		return nil, fmt.Errorf("chunkstore: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) ChunkPath(cx, cz int) string {
	return filepath.Join(s.dir, "chunks", fmt.Sprintf("c.%d.%d.chunk.zst", cx, cz))
}

func (s *Store) WorldPath() string {
	return filepath.Join(s.dir, "world.rec.zst")
}

func (s *Store) WriteChunk(rec ChunkRecordV1) error {
	rec.Header = Header{
		Version:   chunkRecordVersion,
		Kind:      "chunk",
		CX:        rec.CX,
		CZ:        rec.CZ,
		SavedUnix: time.Now().Unix(),
	}
	if err := writeRecord(s.ChunkPath(rec.CX, rec.CZ), rec.Header, &rec); err != nil {
		return fmt.Errorf("chunkstore: write c(%d,%d): %w", rec.CX, rec.CZ, err)
	}
	return nil
}

func (s *Store) ReadChunk(cx, cz int) (ChunkRecordV1, error) {
	var rec ChunkRecordV1
	if err := readRecord(s.ChunkPath(cx, cz), &rec); err != nil {
		if os.IsNotExist(err) {
			return rec, ErrNotFound
		}
		return rec, fmt.Errorf("chunkstore: read c(%d,%d): %w", cx, cz, err)
	}
	if rec.Header.Version != chunkRecordVersion {
		return rec, fmt.Errorf("chunkstore: c(%d,%d): unsupported version %d", cx, cz, rec.Header.Version)
	}
	return rec, nil
}

func (s *Store) WriteWorld(rec WorldRecordV1) error {
	rec.Header = Header{
		Version:   worldRecordVersion,
		Kind:      "world",
		SavedUnix: time.Now().Unix(),
	}
	if err := writeRecord(s.WorldPath(), rec.Header, &rec); err != nil {
		return fmt.Errorf("chunkstore: write world record: %w", err)
	}
	return nil
}

func (s *Store) ReadWorld() (WorldRecordV1, error) {
	var rec WorldRecordV1
	if err := readRecord(s.WorldPath(), &rec); err != nil {
		if os.IsNotExist(err) {
			return rec, ErrNotFound
		}
		return rec, fmt.Errorf("chunkstore: read world record: %w", err)
	}
	if rec.Header.Version != worldRecordVersion {
		return rec, fmt.Errorf("chunkstore: world record: unsupported version %d", rec.Header.Version)
	}
	return rec, nil
}

// ChunkCount reports how many chunk record files exist, for ops endpoints.
func (s *Store) ChunkCount() (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, "chunks"))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".zst" {
			n++
		}
	}
	return n, nil
}

func writeRecord(path string, hdr Header, rec any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 64*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(hdr)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(rec); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func readRecord(path string, rec any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// Skip the header line; the gob body carries the header too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return fmt.Errorf("header line: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(rec); err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}
	return nil
}
