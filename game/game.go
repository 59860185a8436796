// Package game runs the generational cave-adaptation engine.
package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cavefish/components"
	"github.com/pthm-cable/cavefish/config"
	"github.com/pthm-cable/cavefish/genetics"
	"github.com/pthm-cable/cavefish/systems"
	"github.com/pthm-cable/cavefish/telemetry"
)

// Outcome is the engine state after a generation.
type Outcome uint8

const (
	Running Outcome = iota
	Completed
	Extinct
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Extinct:
		return "extinct"
	default:
		return fmt.Sprintf("outcome(%d)", o)
	}
}

// Extinction causes.
const (
	CauseZeroFitness = "zero_fitness"
	CauseNoViable    = "no_viable"
	CauseNoOffspring = "no_offspring"
)

// Result describes a finished (or interrupted) run.
type Result struct {
	Outcome         Outcome
	Generation      int    // last generation executed
	Cause           string // set when Outcome is Extinct
	FinalPopulation int
}

// PatchError reports a fitness evaluation against an invalid patch.
// The run cannot continue after it.
type PatchError struct {
	Generation int
	PatchID    int
	Err        error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("generation %d: patch %d: %v", e.Generation, e.PatchID, e.Err)
}

func (e *PatchError) Unwrap() error { return e.Err }

// Options holds per-run settings that are not part of the config file.
type Options struct {
	Seed    int64
	Sink    telemetry.Sink           // nil discards metrics
	Perf    *telemetry.PerfCollector // nil disables phase timing
	Workers int                      // > 0 overrides parallel.workers
}

// Engine owns the population and environment for one run.
type Engine struct {
	cfg  *config.Config
	seed int64
	rng  *rand.Rand

	world *ecs.World

	// Every organism carries all four components.
	organismMapper *ecs.Map4[
		components.Organism,
		components.Genome,
		components.Fitness,
		components.Residency,
	]
	organismFilter *ecs.Filter4[
		components.Organism,
		components.Genome,
		components.Fitness,
		components.Residency,
	]

	env      *systems.Environment
	fitness  systems.FitnessModel
	founders genetics.Founders
	mutator  genetics.Mutator

	sink      telemetry.Sink
	collector *telemetry.Collector
	perf      *telemetry.PerfCollector

	workers   int
	threshold int

	generation int
	outcome    Outcome
	cause      string
	nextID     uint32
	lastStats  telemetry.GenerationStats
}

// New validates the configuration and creates an engine with its founder
// population. Configuration errors are returned before any generation runs.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("game: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := opts.Seed
	env, err := systems.NewEnvironment(cfg, seed)
	if err != nil {
		return nil, err
	}

	world := ecs.NewWorld()

	e := &Engine{
		cfg:   cfg,
		seed:  seed,
		rng:   rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
		world: world,
		organismMapper: ecs.NewMap4[
			components.Organism,
			components.Genome,
			components.Fitness,
			components.Residency,
		](world),
		organismFilter: ecs.NewFilter4[
			components.Organism,
			components.Genome,
			components.Fitness,
			components.Residency,
		](world),
		env:       env,
		fitness:   systems.NewFitnessModel(cfg.Fitness.Weights),
		founders:  genetics.FoundersFromConfig(cfg.Genetics),
		mutator:   genetics.MutatorFromConfig(cfg.Mutation),
		sink:      opts.Sink,
		collector: telemetry.NewCollector(),
		perf:      opts.Perf,
		workers:   cfg.Parallel.Workers,
		threshold: cfg.Parallel.Threshold,
		outcome:   Running,
	}
	if e.sink == nil {
		e.sink = telemetry.Discard
	}
	if opts.Workers > 0 {
		e.workers = opts.Workers
	}
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}

	e.spawnFounders(cfg.Simulation.InitialPopulationSize)
	return e, nil
}

// Config returns the run configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Seed returns the run seed.
func (e *Engine) Seed() int64 {
	return e.seed
}

// Generation returns the number of generations executed.
func (e *Engine) Generation() int {
	return e.generation
}

// Outcome returns the current engine state.
func (e *Engine) Outcome() Outcome {
	return e.outcome
}

// Environment returns the patch set. It must not be modified while a step runs.
func (e *Engine) Environment() *systems.Environment {
	return e.env
}

// LastStats returns the metrics record of the most recent generation.
func (e *Engine) LastStats() telemetry.GenerationStats {
	return e.lastStats
}

// Result summarizes the run so far.
func (e *Engine) Result() Result {
	return Result{
		Outcome:         e.outcome,
		Generation:      e.generation,
		Cause:           e.cause,
		FinalPopulation: e.PopulationSize(),
	}
}
