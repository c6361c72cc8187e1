// Command import_snapshots loads a directory of pipeline-produced snapshot
// files and upserts them into the store (database when DATABASE_URL is set,
// file cache always).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"budget_explorer/pkg/core/loader"
	"budget_explorer/pkg/core/store"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	dir := flag.String("dir", "data/snapshots", "directory of snapshot files (.json/.hjson/.yaml)")
	cacheDir := flag.String("cache", "", "file cache directory (default .cache/budget/snapshots)")
	flag.Parse()

	godotenv.Load()
	ctx := context.Background()

	if os.Getenv("DATABASE_URL") != "" {
		if err := store.InitDB(ctx); err != nil {
			fmt.Printf("[IMPORT] Database unavailable, writing file cache only: %v\n", err)
		} else {
			defer store.Close()
		}
	}

	snapshots, err := loader.LoadDirectory(*dir)
	if err != nil {
		fmt.Printf("[IMPORT] Failed to read %s: %v\n", *dir, err)
		os.Exit(1)
	}
	if len(snapshots) == 0 {
		fmt.Printf("[IMPORT] No snapshot files found in %s\n", *dir)
		os.Exit(1)
	}

	// One import id tags every row written by this run.
	importID := uuid.New().String()
	cache := store.NewSnapshotCache(store.GetPool(), *cacheDir)

	imported := 0
	for _, snap := range snapshots {
		if err := cache.Put(ctx, snap, importID); err != nil {
			fmt.Printf("[IMPORT] Failed to store %s/%d: %v\n",
				snap.Metadata.Entity, snap.Metadata.FiscalYear, err)
			continue
		}
		fmt.Printf("[IMPORT] Stored %s fiscal year %d\n",
			snap.Metadata.Entity, snap.Metadata.FiscalYear)
		imported++
	}

	fmt.Printf("[IMPORT] Run %s: %d/%d snapshots imported\n", importID, imported, len(snapshots))
}
