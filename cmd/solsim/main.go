// Command solsim runs the solar-system economy simulation kernel.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/talgya/solsim/internal/api"
	"github.com/talgya/solsim/internal/config"
	"github.com/talgya/solsim/internal/engine"
	"github.com/talgya/solsim/internal/persistence"
	"github.com/talgya/solsim/internal/registry"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config overlay (defaults apply when empty)")
		dataDir    = flag.String("data", "data", "directory holding resources.json and recipes.json")
		port       = flag.Int("port", 8080, "HTTP API port")
		dbPath     = flag.String("db", "", "SQLite path (overrides config; empty uses config)")
		resume     = flag.Bool("resume", true, "resume from the latest snapshot when one exists")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Snapshot.Path = *dbPath
	}

	reg, err := registry.Load(*dataDir)
	if err != nil {
		slog.Error("failed to load registry", "error", err)
		os.Exit(1)
	}
	slog.Info("registry loaded",
		"resources", len(reg.ResourceIDs()),
		"recipes", len(reg.RecipeIDs()),
		"digest", reg.Digest()[:12])

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.Snapshot.Path); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.Snapshot.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Snapshot.Path)

	// ── Load or Build World ───────────────────────────────────────────
	var sim *engine.Simulation
	if *resume {
		snap, err := db.LatestSnapshot()
		switch {
		case err == nil:
			sim = engine.New(cfg, reg)
			if err := sim.Restore(snap); err != nil {
				slog.Error("failed to restore snapshot", "error", err)
				os.Exit(1)
			}
			slog.Info("world restored", "tick", sim.Tick,
				"entities", sim.World.EntityCount())
		case errors.Is(err, persistence.ErrNoSnapshot):
			slog.Info("no saved state found, generating new world")
		default:
			slog.Error("failed to read latest snapshot", "error", err)
			os.Exit(1)
		}
	}
	if sim == nil {
		sim = engine.BuildWorld(cfg, reg)
		if _, err := db.SaveSnapshot(sim.Snapshot()); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Streaming and Persistence Hooks ───────────────────────────────
	hub := api.NewHub()
	go hub.Run()
	hub.AttachBus(sim.Bus)

	var mu sync.Mutex
	clock := engine.NewClock(sim, time.Duration(cfg.TickMs)*time.Millisecond)
	clock.Mu = &mu
	clock.OnStep = func(tick uint64) {
		if err := db.AppendEvents(sim.Bus.LogSince(tick)); err != nil {
			slog.Error("event persist failed", "tick", tick, "error", err)
		}
		if cfg.Snapshot.EveryTicks > 0 && tick%cfg.Snapshot.EveryTicks == 0 {
			mu.Lock()
			snap := sim.Snapshot()
			mu.Unlock()
			if _, err := db.SaveSnapshot(snap); err != nil {
				slog.Error("periodic save failed", "tick", tick, "error", err)
			}
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("SOLSIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("SOLSIM_ADMIN_KEY not set, control endpoints disabled")
	}
	apiServer := &api.Server{
		Sim:      sim,
		Clock:    clock,
		DB:       db,
		Hub:      hub,
		Port:     *port,
		Mu:       &mu,
		AdminKey: adminKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		clock.Stop()
	}()

	fmt.Printf("solsim running: seed %d, %d stations, %d ships, %d factions.\n",
		sim.Seed, len(sim.StationIDs()), len(sim.ShipIDs()), len(sim.Factions.IDs()))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", *port)
	if sim.Tick > 0 {
		fmt.Printf("Resuming from tick %d\n", sim.Tick)
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	clock.Run()

	slog.Info("final save")
	if _, err := db.SaveSnapshot(sim.Snapshot()); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Simulation stopped. State saved.")
}
