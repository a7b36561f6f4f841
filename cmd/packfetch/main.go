// packfetch pulls a content pack (the five catalog json files, optionally a
// tuning.yaml) from a git/http/file source into a configs directory. The pack
// is fetched into a staging dir and validated before anything is installed,
// so a broken pack never clobbers a working one.
//
// Source syntax is go-getter's, e.g.
//
//	packfetch -src git::https://example.com/emberwild-packs.git//base
//	packfetch -src ./local-pack -o ./configs
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	get "github.com/hashicorp/go-getter"

	"emberwild.gg/internal/sim/catalogs"
	"emberwild.gg/internal/sim/tuning"
)

var packFiles = []string{
	"resources.json",
	"enemies.json",
	"items.json",
	"placeables.json",
	"stations.json",
}

func main() {
	var (
		src   = flag.String("src", "", "pack source (go-getter url: git::, http::, or a local path)")
		out   = flag.String("o", "./configs", "install directory")
		force = flag.Bool("force", false, "overwrite files already present in the install directory")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[packfetch] ", log.LstdFlags)

	if *src == "" {
		fmt.Fprintln(os.Stderr, "usage: packfetch -src <url> [-o dir] [-force]")
		os.Exit(2)
	}

	staging, err := os.MkdirTemp("", "packfetch-*")
	if err != nil {
		logger.Fatalf("staging dir: %v", err)
	}
	defer os.RemoveAll(staging)

	logger.Printf("fetching %s", *src)
	if err := get.Get(staging, *src); err != nil {
		logger.Fatalf("fetch: %v", err)
	}

	// Validate before installing. Load runs the full cross-reference checks
	// (drops against items, station tiers, tool names).
	cats, err := catalogs.Load(staging)
	if err != nil {
		logger.Fatalf("pack invalid: %v", err)
	}
	logger.Printf("resources  %3d  %s", len(cats.Resources.Palette), cats.Resources.Digest[:12])
	logger.Printf("enemies    %3d  %s", len(cats.Enemies.Palette), cats.Enemies.Digest[:12])
	logger.Printf("items      %3d  %s", len(cats.Items.Palette), cats.Items.Digest[:12])
	logger.Printf("placeables %3d  %s", len(cats.Placeables.Palette), cats.Placeables.Digest[:12])
	logger.Printf("stations   %3d  %s", len(cats.Stations.Palette), cats.Stations.Digest[:12])

	install := packFiles
	if _, err := os.Stat(filepath.Join(staging, "tuning.yaml")); err == nil {
		if _, err := tuning.Load(filepath.Join(staging, "tuning.yaml")); err != nil {
			logger.Fatalf("pack invalid: %v", err)
		}
		install = append(install, "tuning.yaml")
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		logger.Fatalf("install dir: %v", err)
	}
	if !*force {
		for _, name := range install {
			if _, err := os.Stat(filepath.Join(*out, name)); err == nil {
				logger.Fatalf("%s already exists in %s (use -force to overwrite)", name, *out)
			}
		}
	}
	for _, name := range install {
		if err := copyFile(filepath.Join(staging, name), filepath.Join(*out, name)); err != nil {
			logger.Fatalf("install %s: %v", name, err)
		}
	}
	logger.Printf("installed %d files into %s", len(install), *out)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
