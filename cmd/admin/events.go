package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"emberwild.gg/internal/sim/world"
)

// eventsCmd scans the compressed JSONL event log directly. Unlike "db
// events" it sees every event ever written, including ones the index
// dropped under load.
func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	kind := fs.String("kind", "", "event kind filter (e.g. CHUNK_PERSISTED)")
	chunk := fs.String("chunk", "", "chunk filter: cx,cz")
	since := fs.Float64("since", 0, "minimum world clock (seconds)")
	summary := fs.Bool("summary", false, "print per-kind counts instead of events")
	_ = fs.Parse(args)

	dir := filepath.Join(*dataDir, "world", "events")
	ents, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "events-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	wantKind := strings.ToUpper(strings.TrimSpace(*kind))
	fcx, fcz, filterChunk := parseChunkFlag(*chunk)

	counts := map[string]int{}
	total := 0

	for _, name := range names {
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open:", err)
			os.Exit(1)
		}
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			fmt.Fprintln(os.Stderr, "zstd:", err)
			os.Exit(1)
		}
		sc := bufio.NewScanner(dec)
		sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
		for sc.Scan() {
			var e world.Event
			if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
				dec.Close()
				_ = f.Close()
				fmt.Fprintf(os.Stderr, "%s: unmarshal: %v\n", name, err)
				os.Exit(1)
			}
			if wantKind != "" && e.Kind != wantKind {
				continue
			}
			if filterChunk && (e.CX != fcx || e.CZ != fcz) {
				continue
			}
			if e.Clock < *since {
				continue
			}
			total++
			if *summary {
				counts[e.Kind]++
				continue
			}
			printJSON(e)
		}
		if err := sc.Err(); err != nil {
			dec.Close()
			_ = f.Close()
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		dec.Close()
		_ = f.Close()
	}

	if *summary {
		kinds := make([]string, 0, len(counts))
		for k := range counts {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Printf("%-22s %d\n", k, counts[k])
		}
		fmt.Printf("%-22s %d\n", "total", total)
	}
}
