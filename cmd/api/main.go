package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	comparisonapi "budget_explorer/pkg/api/comparison"
	simulationapi "budget_explorer/pkg/api/simulation"
	"budget_explorer/pkg/core/loader"
	"budget_explorer/pkg/core/store"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// AppConfig is the server configuration, read from config/app.yaml.
type AppConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	DataDir    string `yaml:"data_dir"`  // snapshot files preloaded at startup
	CacheDir   string `yaml:"cache_dir"` // file cache location ("" = default)

	Simulation struct {
		ChangeEpsilon    float64 `yaml:"change_epsilon"`
		BalanceTolerance float64 `yaml:"balance_tolerance"`
		RevenueMinPct    float64 `yaml:"revenue_min_pct"`
		RevenueMaxPct    float64 `yaml:"revenue_max_pct"`
	} `yaml:"simulation"`
}

func loadConfig() AppConfig {
	cfg := AppConfig{ListenAddr: ":8080", DataDir: "data/snapshots"}
	data, err := os.ReadFile("config/app.yaml")
	if err != nil {
		fmt.Printf("[API] No config/app.yaml, using defaults: %v\n", err)
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		fmt.Printf("[WARNING] Failed to parse config/app.yaml: %v\n", err)
	}
	return cfg
}

func simulationOptions(cfg AppConfig) simulationapi.Options {
	opts := simulationapi.DefaultOptions()
	if cfg.Simulation.ChangeEpsilon > 0 {
		opts.ChangeEpsilon = cfg.Simulation.ChangeEpsilon
	}
	if cfg.Simulation.BalanceTolerance > 0 {
		opts.BalanceTolerance = cfg.Simulation.BalanceTolerance
	}
	if cfg.Simulation.RevenueMinPct > 0 && cfg.Simulation.RevenueMaxPct > cfg.Simulation.RevenueMinPct {
		opts.RevenueMinPct = cfg.Simulation.RevenueMinPct
		opts.RevenueMaxPct = cfg.Simulation.RevenueMaxPct
	}
	return opts
}

func main() {
	godotenv.Load()
	ctx := context.Background()
	cfg := loadConfig()

	// Database is optional; the file cache carries local setups.
	if os.Getenv("DATABASE_URL") != "" {
		if err := store.InitDB(ctx); err != nil {
			fmt.Printf("[WARNING] Database unavailable, file cache only: %v\n", err)
		} else {
			defer store.Close()
			fmt.Println("[API] Connected to database")
		}
	}

	cache := store.NewSnapshotCache(store.GetPool(), cfg.CacheDir)

	// Preload any snapshot files shipped alongside the server.
	if cfg.DataDir != "" {
		snapshots, err := loader.LoadDirectory(cfg.DataDir)
		if err != nil {
			fmt.Printf("[API] No snapshot data dir: %v\n", err)
		} else {
			for _, snap := range snapshots {
				if err := cache.Put(ctx, snap, ""); err != nil {
					fmt.Printf("[WARNING] Failed to cache %s/%d: %v\n",
						snap.Metadata.Entity, snap.Metadata.FiscalYear, err)
				}
			}
			fmt.Printf("[API] Preloaded %d snapshots from %s\n", len(snapshots), cfg.DataDir)
		}
	}

	simHandler := simulationapi.NewHandler(cache, simulationOptions(cfg))
	http.HandleFunc("/api/simulation/init", simHandler.HandleInit)
	http.HandleFunc("/api/simulation/adjust", simHandler.HandleAdjust)
	http.HandleFunc("/api/simulation/summary", simHandler.HandleSummary)

	cmpHandler := comparisonapi.NewHandler(cache)
	http.HandleFunc("/api/comparison/report", cmpHandler.HandleReport)

	fmt.Printf("[API] Listening on %s\n", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, nil); err != nil {
		fmt.Printf("[API] Server stopped: %v\n", err)
		os.Exit(1)
	}
}
