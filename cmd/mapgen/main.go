package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"

	"emberwild.gg/internal/sim/biome"
)

// mapgen renders the biome layout for a seed straight from the generator,
// without materializing any chunks. Useful for eyeballing a seed before
// committing a server to it.
func main() {
	var (
		seed    = flag.Int64("seed", 1337, "world seed")
		radius  = flag.Int("radius", 16, "chunk radius to render (map spans -radius..+radius)")
		csvPath = flag.String("csv", "", "write one row per chunk to this csv file (optional)")
	)
	flag.Parse()

	if *radius <= 0 || *radius > 512 {
		fmt.Fprintln(os.Stderr, "radius out of range (1..512)")
		os.Exit(2)
	}

	g := biome.New(*seed, biome.Config{})

	counts := map[string]int{}
	dungeons := 0
	var rows [][]string

	for cz := -*radius; cz <= *radius; cz++ {
		line := make([]byte, 0, 2*(*radius)+1)
		for cx := -*radius; cx <= *radius; cx++ {
			t := g.TypeAt(cx, cz)
			counts[t.String()]++
			eligible := g.DungeonEligible(cx, cz)
			if eligible {
				dungeons++
			}
			line = append(line, glyph(cx, cz, t, eligible))
			if *csvPath != "" {
				rows = append(rows, []string{
					strconv.Itoa(cx),
					strconv.Itoa(cz),
					t.Family.String(),
					t.Danger.String(),
					t.Variant.String(),
					t.String(),
					strconv.FormatBool(eligible),
				})
			}
		}
		fmt.Println(string(line))
	}

	side := 2*(*radius) + 1
	total := side * side
	fmt.Printf("\nseed=%d radius=%d chunks=%d\n", *seed, *radius, total)

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		n := counts[name]
		fmt.Printf("  %-28s %7d  %5.1f%%\n", name, n, 100*float64(n)/float64(total))
	}
	fmt.Printf("  %-28s %7d  %5.1f%%\n", "dungeon_eligible", dungeons, 100*float64(dungeons)/float64(total))

	if *csvPath != "" {
		if err := writeCSV(*csvPath, rows); err != nil {
			fmt.Fprintln(os.Stderr, "write csv:", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s (%d rows)\n", *csvPath, len(rows))
	}
}

// glyph picks one ASCII character per chunk: '@' marks spawn, 'D' a chunk
// that may host a dungeon entrance, lowercase/uppercase encodes danger.
func glyph(cx, cz int, t biome.ChunkType, dungeonEligible bool) byte {
	if cx == 0 && cz == 0 {
		return '@'
	}
	if dungeonEligible {
		return 'D'
	}
	switch t.Variant {
	case biome.VariantLake:
		return '~'
	case biome.VariantRiver:
		return '-'
	case biome.VariantSwamp:
		return 's'
	case biome.VariantQuarry:
		return 'q'
	case biome.VariantCavern:
		return 'v'
	}
	switch t.Family {
	case biome.FamilyWater:
		return '~'
	case biome.FamilyCave:
		switch t.Danger {
		case biome.DangerDangerous:
			return 'c'
		case biome.DangerRare:
			return 'C'
		}
		return ','
	default: // forest
		switch t.Danger {
		case biome.DangerDangerous:
			return 'f'
		case biome.DangerRare:
			return 'F'
		}
		return '.'
	}
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"cx", "cz", "family", "danger", "variant", "chunk_type", "dungeon_eligible"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
