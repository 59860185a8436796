// Package main searches selection, reproduction and mutation parameters with
// CMA-ES for settings under which cave populations persist and regress.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/cavefish/config"
	"github.com/pthm-cable/cavefish/telemetry"
)

type searchOptions struct {
	generations int
	seeds       int
	maxEvals    int
	population  int
	outputDir   string
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	generations := flag.Int("generations", 200, "Generations per simulation run")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if *outputDir == "" {
		slog.Error("--output is required")
		os.Exit(2)
	}
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	err := search(config.Cfg(), searchOptions{
		generations: *generations,
		seeds:       *seeds,
		maxEvals:    *maxEvals,
		population:  *population,
		outputDir:   *outputDir,
	})
	if err != nil {
		slog.Error("optimization failed", "error", err)
		os.Exit(1)
	}
}

func search(baseCfg *config.Config, opts searchOptions) error {
	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	params := NewParamVector()
	evalSeeds := make([]int64, opts.seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	searchLog, err := newSearchLog(filepath.Join(opts.outputDir, "optimize_log.csv"), params, opts.maxEvals)
	if err != nil {
		return err
	}
	defer searchLog.Close()

	evaluator := NewFitnessEvaluator(params, opts.generations, evalSeeds, baseCfg)
	evaluator.searchLog = searchLog

	popSize := opts.population
	if popSize == 0 {
		popSize = 4 + 3*params.Dim()/2
	}

	slog.Info("search started",
		"params", params.Dim(),
		"population", popSize,
		"max_evals", opts.maxEvals,
		"seeds", opts.seeds,
		"generations", opts.generations,
	)

	// Candidates run one at a time; each fans out over its seeds.
	result, err := optimize.Minimize(
		optimize.Problem{Func: evaluator.Objective},
		params.Normalize(params.ExtractFromConfig(baseCfg)),
		&optimize.Settings{FuncEvaluations: opts.maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: popSize},
	)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}

	best, bestFitness := searchLog.Best()
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	if best == nil {
		return errors.New("no candidate evaluated")
	}

	attrs := []any{"fitness", bestFitness}
	for i, spec := range params.Specs {
		attrs = append(attrs, spec.Name, best[i])
	}
	slog.Info("best parameters", attrs...)

	return writeBest(baseCfg, params, best, evaluator.BestSnapshot(), opts.outputDir)
}

// writeBest saves the winning config and the final population of its best run.
func writeBest(baseCfg *config.Config, params *ParamVector, best []float64, snap *telemetry.Snapshot, dir string) error {
	bestCfg, err := baseCfg.Clone()
	if err != nil {
		return err
	}
	params.ApplyToConfig(bestCfg, best)
	if err := bestCfg.Refresh(); err != nil {
		return err
	}

	configPath := filepath.Join(dir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configPath); err != nil {
		return err
	}
	slog.Info("best config saved", "path", configPath)

	if snap == nil {
		return nil
	}
	path, err := telemetry.SaveSnapshot(snap, dir)
	if err != nil {
		return err
	}
	slog.Info("best population saved", "path", path)
	return nil
}
