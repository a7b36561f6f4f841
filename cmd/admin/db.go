package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default <data>/world/index/world.sqlite)")
	limit := fs.Int("limit", 20, "result limit")
	kind := fs.String("kind", "", "event kind filter (events query)")
	chunk := fs.String("chunk", "", "chunk filter: cx,cz (events and chunk-saves queries)")
	_ = fs.Parse(args)

	q := "chunk-saves"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "world", "index", "world.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "index db:", err)
		os.Exit(2)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "chunk-saves":
		query := `SELECT cx,cz,chunk_type,clock,deltas,dungeon,saved_at FROM chunk_saves ORDER BY id DESC LIMIT ?`
		qargs := []any{*limit}
		if cx, cz, ok := parseChunkFlag(*chunk); ok {
			query = `SELECT cx,cz,chunk_type,clock,deltas,dungeon,saved_at FROM chunk_saves WHERE cx=? AND cz=? ORDER BY id DESC LIMIT ?`
			qargs = []any{cx, cz, *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				CX        int     `json:"cx"`
				CZ        int     `json:"cz"`
				ChunkType string  `json:"chunk_type"`
				Clock     float64 `json:"clock"`
				Deltas    int     `json:"deltas"`
				Dungeon   bool    `json:"dungeon"`
				SavedAt   string  `json:"saved_at"`
			}
			if err := rows.Scan(&r.CX, &r.CZ, &r.ChunkType, &r.Clock, &r.Deltas, &r.Dungeon, &r.SavedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		rowsErr(rows.Err())

	case "world-saves":
		rows, err := db.Query(`SELECT clock,entities,stations,chests,dungeons,saved_at FROM world_saves ORDER BY id DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Clock    float64 `json:"clock"`
				Entities int     `json:"entities"`
				Stations int     `json:"stations"`
				Chests   int     `json:"chests"`
				Dungeons int     `json:"dungeons"`
				SavedAt  string  `json:"saved_at"`
			}
			if err := rows.Scan(&r.Clock, &r.Entities, &r.Stations, &r.Chests, &r.Dungeons, &r.SavedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		rowsErr(rows.Err())

	case "events":
		query := `SELECT clock,kind,cx,cz,entity_id,detail FROM events`
		var where []string
		var qargs []any
		if k := strings.TrimSpace(*kind); k != "" {
			where = append(where, "kind=?")
			qargs = append(qargs, strings.ToUpper(k))
		}
		if cx, cz, ok := parseChunkFlag(*chunk); ok {
			where = append(where, "cx=? AND cz=?")
			qargs = append(qargs, cx, cz)
		}
		if len(where) > 0 {
			query += " WHERE " + strings.Join(where, " AND ")
		}
		query += ` ORDER BY id DESC LIMIT ?`
		qargs = append(qargs, *limit)

		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Clock    float64 `json:"clock"`
				Kind     string  `json:"kind"`
				CX       int     `json:"cx"`
				CZ       int     `json:"cz"`
				EntityID string  `json:"entity_id,omitempty"`
				Detail   string  `json:"detail,omitempty"`
			}
			var entityID, detail sql.NullString
			if err := rows.Scan(&r.Clock, &r.Kind, &r.CX, &r.CZ, &entityID, &detail); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			r.EntityID = entityID.String
			r.Detail = detail.String
			printJSON(r)
		}
		rowsErr(rows.Err())

	case "catalogs":
		rows, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		rowsErr(rows.Err())

	case "meta":
		rows, err := db.Query(`SELECT key,value FROM meta ORDER BY key`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Key   string `json:"key"`
				Value string `json:"value"`
			}
			if err := rows.Scan(&r.Key, &r.Value); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		rowsErr(rows.Err())

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data|-db PATH] [-limit N] [-kind K] [-chunk cx,cz] chunk-saves|world-saves|events|catalogs|meta")
		os.Exit(2)
	}
}

func rowsErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}

func parseChunkFlag(s string) (cx, cz int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		fmt.Fprintln(os.Stderr, "bad -chunk: expected cx,cz")
		os.Exit(2)
	}
	var err error
	cx, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -chunk:", err)
		os.Exit(2)
	}
	cz, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -chunk:", err)
		os.Exit(2)
	}
	return cx, cz, true
}
