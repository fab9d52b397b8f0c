package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/me/clustersim/internal/config"
	"github.com/me/clustersim/internal/logging"
	"github.com/me/clustersim/internal/scheduler"
	"github.com/me/clustersim/internal/server"
	"github.com/me/clustersim/internal/store"
)

func main() {
	flags := config.DefaultServerConfig()

	configFile := flag.String("config", "", "Path to YAML config file")
	flag.StringVar(&flags.Addr, "addr", flags.Addr, "Listen address")
	flag.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format (text, json)")
	flag.StringVar(&flags.DBPath, "db", flags.DBPath, "Database path (default ~/.clustersim/clustersim.db)")
	flag.DurationVar(&flags.TickInterval, "tick-interval", flags.TickInterval, "Automatic tick interval, 0 = tick only on request")
	flag.IntVar(&flags.AutosaveEvery, "autosave-every", flags.AutosaveEvery, "Save a snapshot every N ticks, 0 = off")
	restore := flag.String("restore", "", `Snapshot to restore at startup ("latest" or a snapshot id)`)
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")

	flag.Parse()

	cfg := flags
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		cfg = overrideSetFlags(loaded, flags)
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Resolve database path.
	dbPath := cfg.DBPath
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot determine home directory: %v\n", err)
			os.Exit(1)
		}
		dir := filepath.Join(home, ".clustersim")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "cannot create %s: %v\n", dir, err)
			os.Exit(1)
		}
		dbPath = filepath.Join(dir, "clustersim.db")
	}

	// Open store and run migrations.
	st, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate database: %v\n", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", dbPath)

	loop := scheduler.NewLoop(st, scheduler.Config{
		TickInterval:  cfg.TickInterval,
		AutosaveEvery: cfg.AutosaveEvery,
		Engine:        cfg.Engine,
	}, logger)

	if *restore != "" {
		if err := restoreAtStartup(loop, st, *restore); err != nil {
			fmt.Fprintf(os.Stderr, "restore %s: %v\n", *restore, err)
			os.Exit(1)
		}
	}

	srv := server.New(cfg, loop, logger, server.WithStore(st))

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv.StartScheduler(ctx)

	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Stop the tick loop before the HTTP server.
	if err := loop.Stop(); err != nil {
		logger.Error("scheduler stop error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// overrideSetFlags copies the flags given on the command line over the
// values loaded from the config file.
func overrideSetFlags(loaded, flags config.ServerConfig) config.ServerConfig {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			loaded.Addr = flags.Addr
		case "log-level":
			loaded.LogLevel = flags.LogLevel
		case "log-format":
			loaded.LogFormat = flags.LogFormat
		case "db":
			loaded.DBPath = flags.DBPath
		case "tick-interval":
			loaded.TickInterval = flags.TickInterval
		case "autosave-every":
			loaded.AutosaveEvery = flags.AutosaveEvery
		}
	})
	return loaded
}

func restoreAtStartup(loop *scheduler.Loop, st store.Store, which string) error {
	ctx := context.Background()
	id := which
	if which == "latest" {
		snap, err := st.LatestSnapshot(ctx)
		if err != nil {
			return err
		}
		if snap == nil {
			return nil
		}
		id = snap.ID
	}
	_, err := loop.Restore(ctx, id)
	return err
}
