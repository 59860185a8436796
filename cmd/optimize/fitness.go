package main

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/pthm-cable/cavefish/config"
	"github.com/pthm-cable/cavefish/game"
	"github.com/pthm-cable/cavefish/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	generations int
	seeds       []int64
	baseConfig  *config.Config

	// Best run tracking
	mu           sync.Mutex
	bestFitness  float64
	bestSnapshot *telemetry.Snapshot
	lastQuality  float64 // quality from most recent Evaluate call

	// searchLog, when set, receives every Objective call.
	searchLog *searchLog
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, generations int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		generations: generations,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// BestSnapshot returns the final population of the best evaluation.
func (fe *FitnessEvaluator) BestSnapshot() *telemetry.Snapshot {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestSnapshot
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Objective is the CMA-ES objective over normalized coordinates.
func (fe *FitnessEvaluator) Objective(x []float64) float64 {
	vals := fe.params.Clamp(fe.params.Denormalize(x))
	fitness := fe.Evaluate(vals)
	if fe.searchLog != nil {
		if err := fe.searchLog.record(vals, fitness, fe.LastQuality()); err != nil {
			slog.Warn("search log write failed", "error", err)
		}
	}
	return fitness
}

// runResult holds the results from a single simulation run.
type runResult struct {
	survived int // generations before extinction (or the full run)
	records  []telemetry.GenerationStats
	snapshot *telemetry.Snapshot
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness  float64
	quality  float64
	snapshot *telemetry.Snapshot
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg, err := fe.configFor(x)
	if err != nil {
		slog.Warn("skipping invalid parameters", "error", err)
		return 0
	}

	// Run all seeds in parallel; each engine owns its state and only reads cfg.
	results := make([]seedResult, len(fe.seeds))
	p := pool.New().WithMaxGoroutines(len(fe.seeds))
	for i, seed := range fe.seeds {
		p.Go(func() {
			result := fe.runSimulation(cfg, seed)
			results[i] = seedResult{
				fitness:  fe.computeFitness(result),
				quality:  computeQuality(result.records),
				snapshot: result.snapshot,
			}
		})
	}
	p.Wait()

	var totalFitness, totalQuality float64
	bestSeedFitness := math.Inf(1)
	var bestSeedSnapshot *telemetry.Snapshot
	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedSnapshot = r.snapshot
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestSnapshot = bestSeedSnapshot
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// configFor copies the base config and applies the parameter vector.
func (fe *FitnessEvaluator) configFor(x []float64) (*config.Config, error) {
	cfg, err := fe.baseConfig.Clone()
	if err != nil {
		return nil, err
	}
	fe.params.ApplyToConfig(cfg, x)
	cfg.Simulation.NumGenerations = fe.generations
	cfg.Simulation.NumDecades = 0
	if err := cfg.Refresh(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runSimulation executes a single headless run until extinction or the
// configured generation count.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) *runResult {
	sink := telemetry.NewMemorySink()
	engine, err := game.New(cfg, game.Options{Seed: seed, Sink: sink, Workers: 1})
	if err != nil {
		slog.Warn("engine setup failed", "seed", seed, "error", err)
		return &runResult{}
	}

	res, err := engine.Run(context.Background())
	if err != nil {
		slog.Warn("run aborted", "seed", seed, "error", err)
	}

	survived := res.Generation
	if res.Outcome == game.Extinct {
		survived = res.Generation - 1
	}
	return &runResult{
		survived: survived,
		records:  sink.Records(),
		snapshot: engine.Snapshot(nil),
	}
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalFraction × (1.0 + 0.5 × quality))
// Survival dominates; quality separates runs that all survive.
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	if fe.generations == 0 {
		return 0
	}
	survival := float64(r.survived) / float64(fe.generations)
	return -(survival * (1.0 + 0.5*computeQuality(r.records)))
}

// Quality component weights.
const (
	weightRegression = 0.6
	weightFitness    = 0.4
)

// computeQuality scores the final generation in [0,1]: how far pigmentation
// and eye size have regressed, and how fit the population is.
func computeQuality(records []telemetry.GenerationStats) float64 {
	if len(records) == 0 {
		return 0
	}
	last := records[len(records)-1]
	if last.PopulationSize == 0 {
		return 0
	}
	regression := 1 - (last.MeanPigmentation+last.MeanEyeSize)/2
	return weightRegression*regression + weightFitness*math.Min(1, last.MeanFitness)
}
