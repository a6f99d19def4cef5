// Command tetherd runs the Tetherbound session server: the tether
// simulation core behind an HTTP control plane.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/tetherbound/internal/affinity"
	"github.com/talgya/tetherbound/internal/api"
	"github.com/talgya/tetherbound/internal/config"
	"github.com/talgya/tetherbound/internal/engine"
	"github.com/talgya/tetherbound/internal/entity"
	"github.com/talgya/tetherbound/internal/persistence"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Tetherbound — relationship-bound summoning engine")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Catalog & Ledger ──────────────────────────────────────────────
	catalog := entity.DefaultCatalog()
	slog.Info("entity catalog loaded", "entities", catalog.Len())

	ledger := affinity.NewLedger()
	records, err := db.LoadRecords()
	if err != nil {
		slog.Error("failed to load affinity records", "error", err)
		os.Exit(1)
	}
	ledger.Load(records)
	if len(records) > 0 {
		slog.Info("affinity records restored", "count", len(records))
	} else {
		slog.Info("no saved records, starting fresh")
	}

	// ── Session ───────────────────────────────────────────────────────
	session := engine.NewSession(catalog, ledger, cfg.EngineOptions())

	startClock, err := db.LoadClock()
	if err != nil {
		slog.Error("failed to restore session clock", "error", err)
		os.Exit(1)
	}
	session.Clock = startClock

	// ── Clock & HTTP API ──────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("TETHERD_ADMIN_KEY not set — control POST endpoints will be disabled")
	}

	clock := engine.NewClock()
	clock.Interval = cfg.TickInterval
	clock.Speed = cfg.Speed

	server := &api.Server{
		Session:  session,
		Clock:    clock,
		Port:     cfg.APIPort,
		AdminKey: cfg.AdminKey,
	}

	// The API and the tick loop share the session; the server mutex
	// serializes them.
	clock.OnTick = func(dt float64) {
		server.Mu.Lock()
		session.Tick(dt)
		server.Mu.Unlock()
	}
	clock.OnMinute = func() {
		server.Mu.Lock()
		defer server.Mu.Unlock()
		if err := db.SaveSession(session); err != nil {
			slog.Error("autosave failed", "error", err)
		}
	}

	server.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		clock.Stop()
	}()

	fmt.Printf("\nTetherbound is live: %s entities in the catalog, clock at %ss.\n",
		humanize.Comma(int64(catalog.Len())), humanize.Ftoa(session.Clock))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
	fmt.Println("Running... (Ctrl+C to stop)")

	clock.Run()

	// Final save on shutdown.
	slog.Info("final save...")
	server.Mu.Lock()
	if err := db.SaveSession(session); err != nil {
		slog.Error("final save failed", "error", err)
	}
	server.Mu.Unlock()

	fmt.Println("Session stopped. State saved.")
}
