// Command admin is the ops companion to the world server: it talks to the
// loopback admin endpoints of a running server, queries the sqlite
// side-index, scans the JSONL event log, and manages cold backups.
package main

import (
	"encoding/json"
	"fmt"
	"os"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "state":
			stateCmd(os.Args[2:])
			return
		case "save":
			saveCmd(os.Args[2:])
			return
		case "chunks":
			chunksCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "events":
			eventsCmd(os.Args[2:])
			return
		case "backup":
			backupCmd(os.Args[2:])
			return
		case "backups":
			backupsCmd(os.Args[2:])
			return
		case "help", "-h", "--help":
			usage(os.Stdout)
			return
		}
		fmt.Fprintln(os.Stderr, "unknown command:", os.Args[1])
	}
	usage(os.Stderr)
	os.Exit(2)
}

func usage(w *os.File) {
	fmt.Fprint(w, `usage: admin <command> [flags]

commands:
  state    print live server state (GET /admin/state)
  save     ask the server to save now (POST /admin/save)
  chunks   recent chunk saves seen by the server (GET /admin/chunks)
  db       query the sqlite side-index directly
  events   scan the JSONL world-event log
  backup   copy the world records into a named backup
  backups  list backups, optionally pruning old ones

run "admin <command> -h" for the flags of a command.
`)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
