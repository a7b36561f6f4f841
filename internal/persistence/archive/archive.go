// Package archive produces point-in-time copies of a world's persistence
// directory for cold storage. A backup is the restore set only: the world
// record plus every chunk record. The event log and the sqlite index are
// derived data and are not copied.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"emberwild.gg/internal/persistence/chunkstore"
)

type Meta struct {
	Label     string  `json:"label"`
	Seed      int64   `json:"seed"`
	Clock     float64 `json:"clock"`
	Chunks    int     `json:"chunks"`
	Bytes     int64   `json:"bytes"`
	CreatedAt string  `json:"created_at"`
}

// WriteBackup copies <worldDir>/world.rec.zst and <worldDir>/chunks/ into
// <worldDir>/backups/<label>/ and writes a meta.json beside them. An empty
// label defaults to a UTC timestamp. The copy is file-by-file; request a
// server save first so the record set is current.
func WriteBackup(worldDir, label string) (Meta, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = time.Now().UTC().Format("20060102-150405")
	}
	if strings.ContainsAny(label, `/\`) || label == "." || label == ".." {
		return Meta{}, fmt.Errorf("archive: bad label %q", label)
	}

	st, err := chunkstore.Open(worldDir)
	if err != nil {
		return Meta{}, err
	}

	meta := Meta{
		Label:     label,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	rec, err := st.ReadWorld()
	switch {
	case err == nil:
		meta.Seed = rec.Seed
		meta.Clock = rec.Clock
	case errors.Is(err, chunkstore.ErrNotFound):
		// Fresh world that never saved; chunk records may still exist.
	default:
		return Meta{}, err
	}

	chunkNames, err := chunkFileNames(worldDir)
	if err != nil {
		return Meta{}, err
	}
	hasWorld := fileExists(st.WorldPath())
	if !hasWorld && len(chunkNames) == 0 {
		return Meta{}, fmt.Errorf("archive: nothing to back up in %s", worldDir)
	}

	dst := filepath.Join(worldDir, "backups", label)
	if _, err := os.Stat(dst); err == nil {
		return Meta{}, fmt.Errorf("archive: backup %q already exists", label)
	}
	if err := os.MkdirAll(filepath.Join(dst, "chunks"), 0o755); err != nil {
		return Meta{}, err
	}

	if hasWorld {
		n, err := copyFile(st.WorldPath(), filepath.Join(dst, "world.rec.zst"))
		if err != nil {
			return Meta{}, err
		}
		meta.Bytes += n
	}
	for _, name := range chunkNames {
		n, err := copyFile(
			filepath.Join(worldDir, "chunks", name),
			filepath.Join(dst, "chunks", name),
		)
		if err != nil {
			return Meta{}, err
		}
		meta.Bytes += n
		meta.Chunks++
	}

	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return Meta{}, err
	}
	if err := os.WriteFile(filepath.Join(dst, "meta.json"), b, 0o644); err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// List returns the metas of every backup under worldDir, oldest label first.
// Directories without a readable meta.json are skipped.
func List(worldDir string) ([]Meta, error) {
	dir := filepath.Join(worldDir, "backups")
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Meta
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name(), "meta.json"))
		if err != nil {
			continue
		}
		var m Meta
		if err := json.Unmarshal(b, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// Prune deletes the oldest backups until at most keep remain. It returns the
// removed labels in deletion order.
func Prune(worldDir string, keep int) ([]string, error) {
	if keep < 0 {
		keep = 0
	}
	metas, err := List(worldDir)
	if err != nil {
		return nil, err
	}
	var removed []string
	for i := 0; len(metas)-i > keep; i++ {
		label := metas[i].Label
		if err := os.RemoveAll(filepath.Join(worldDir, "backups", label)); err != nil {
			return removed, err
		}
		removed = append(removed, label)
	}
	return removed, nil
}

func chunkFileNames(worldDir string) ([]string, error) {
	ents, err := os.ReadDir(filepath.Join(worldDir, "chunks"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".chunk.zst") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer func() { _ = out.Close() }()

	n, err := io.Copy(out, in)
	if err != nil {
		return n, err
	}
	return n, out.Close()
}
