package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/cavefish/config"
	"github.com/pthm-cable/cavefish/game"
	"github.com/pthm-cable/cavefish/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	generations := flag.Int("generations", 0, "Number of generations (0 = use config)")
	decades := flag.Int("decades", 0, "Run length in decades of 10 generations (0 = use config)")
	preset := flag.String("preset", "", "Environment preset name or \"random\" (empty = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	dbPath := flag.String("db", "", "SQLite database for run history (empty = disabled)")
	logEvery := flag.Int("log-every", -1, "Log stats every N generations (-1 = use config, 0 = off)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	async := flag.Bool("async", false, "Write metrics from a background goroutine")
	workers := flag.Int("workers", 0, "Worker goroutines (0 = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *generations > 0 {
		cfg.Simulation.NumGenerations = *generations
		cfg.Simulation.NumDecades = 0
	}
	if *decades > 0 {
		cfg.Simulation.NumDecades = *decades
	}
	if *preset != "" {
		cfg.Environment.Preset = *preset
	}
	if *logEvery >= 0 {
		cfg.Telemetry.LogEvery = *logEvery
	}
	if err := cfg.Refresh(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, runOptions{
		seed:        rngSeed,
		outputDir:   *outputDir,
		dbPath:      *dbPath,
		snapshotDir: *snapshotDir,
		async:       *async,
		workers:     *workers,
	}); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	seed        int64
	outputDir   string
	dbPath      string
	snapshotDir string
	async       bool
	workers     int
}

func run(ctx context.Context, cfg *config.Config, opts runOptions) error {
	outputManager, err := telemetry.NewOutputManager(opts.outputDir)
	if err != nil {
		return err
	}
	if err := outputManager.WriteConfig(cfg); err != nil {
		outputManager.Close()
		return err
	}

	var store *telemetry.SQLiteSink
	if opts.dbPath != "" {
		store = telemetry.NewSQLiteSink(opts.dbPath)
		if err := store.Init(ctx, cfg, opts.seed); err != nil {
			outputManager.Close()
			return err
		}
		slog.Info("recording run", "db", opts.dbPath, "run_id", store.RunID())
	}

	// Bookmarks are detected on the engine goroutine so snapshots see a
	// consistent population; record writing may go through the async sink.
	bookmarkWriters := []telemetry.BookmarkWriter{outputManager}
	var records telemetry.Sink = telemetry.Multi(outputManager, telemetry.NewLogSink(cfg.Telemetry.LogEvery))
	if store != nil {
		bookmarkWriters = append(bookmarkWriters, store)
		records = telemetry.Multi(records, store)
	}
	if opts.async {
		records = telemetry.NewAsyncSink(records, 64)
	}
	bookmarks := telemetry.NewBookmarkSink(
		telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistory, cfg.Simulation.CarryingCapacity),
		bookmarkWriters...,
	)
	sink := telemetry.Multi(bookmarks, records)

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	engine, err := game.New(cfg, game.Options{
		Seed:    opts.seed,
		Sink:    sink,
		Perf:    perf,
		Workers: opts.workers,
	})
	if err != nil {
		sink.Close()
		return err
	}

	runErr := loop(ctx, engine, bookmarks, perf, outputManager, cfg.Telemetry.LogEvery, opts.snapshotDir)

	res := engine.Result()
	res.LogResult()

	if opts.snapshotDir != "" {
		if path, err := engine.SaveSnapshot(opts.snapshotDir, nil); err != nil {
			slog.Error("failed to save snapshot", "error", err)
		} else {
			slog.Info("saved snapshot", "path", path)
		}
	}

	if store != nil {
		if err := store.Finish(context.Background(), res.Outcome.String(), res.Generation, res.Cause); err != nil {
			slog.Error("failed to record outcome", "error", err)
		}
	}
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// loop steps the engine, writing perf records and bookmark snapshots between generations.
func loop(
	ctx context.Context,
	engine *game.Engine,
	bookmarks *telemetry.BookmarkSink,
	perf *telemetry.PerfCollector,
	outputManager *telemetry.OutputManager,
	logEvery int,
	snapshotDir string,
) error {
	seen := 0
	for {
		outcome, err := engine.Step(ctx)
		if err != nil {
			return err
		}
		gen := engine.Generation()

		if logEvery > 0 && gen > 0 && gen%logEvery == 0 {
			engine.LogPerf()
			if err := outputManager.WritePerf(perf.Stats(), gen); err != nil {
				slog.Error("failed to write perf", "error", err)
			}
		}

		all := bookmarks.Bookmarks()
		for i := seen; i < len(all) && snapshotDir != ""; i++ {
			bm := all[i]
			if _, err := engine.SaveSnapshot(snapshotDir, &bm); err != nil {
				slog.Error("failed to save snapshot", "error", err)
			}
		}
		seen = len(all)

		if outcome != game.Running {
			return nil
		}
	}
}
