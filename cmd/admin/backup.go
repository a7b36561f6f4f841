package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"emberwild.gg/internal/persistence/archive"
)

func backupCmd(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	label := fs.String("label", "", "backup label (default: UTC timestamp)")
	saveURL := fs.String("save_url", "", "ask a running server to save first (base url, optional)")
	_ = fs.Parse(args)

	if u := strings.TrimSpace(*saveURL); u != "" {
		httpPost(strings.TrimRight(u, "/") + "/admin/save")
	}

	meta, err := archive.WriteBackup(filepath.Join(*dataDir, "world"), *label)
	if err != nil {
		fmt.Fprintln(os.Stderr, "backup:", err)
		os.Exit(1)
	}
	printJSON(meta)
}

func backupsCmd(args []string) {
	fs := flag.NewFlagSet("backups", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	keep := fs.Int("keep", 0, "prune to the newest N backups (0 = list only)")
	_ = fs.Parse(args)

	worldDir := filepath.Join(*dataDir, "world")

	if *keep > 0 {
		removed, err := archive.Prune(worldDir, *keep)
		if err != nil {
			fmt.Fprintln(os.Stderr, "prune:", err)
			os.Exit(1)
		}
		for _, label := range removed {
			fmt.Println("removed", label)
		}
	}

	metas, err := archive.List(worldDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, m := range metas {
		printJSON(m)
	}
}
