package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/cavefish/telemetry"
	"github.com/pthm-cable/cavefish/traits"
)

// Step runs one generation. It returns the outcome after the generation.
// Once the engine has left Running, Step does nothing. The context is only
// checked before the generation starts.
func (e *Engine) Step(ctx context.Context) (Outcome, error) {
	if e.outcome != Running {
		return e.outcome, nil
	}
	if err := ctx.Err(); err != nil {
		return e.outcome, err
	}
	if e.generation >= e.cfg.Derived.NumGenerations {
		e.outcome = Completed
		return e.outcome, nil
	}

	gen := e.generation + 1
	e.startGeneration()

	// 1. Environment update
	e.startPhase(telemetry.PhaseEnvironment)
	e.env.Update(gen, e.rng)
	cond := e.env.MeanConditions()
	conditions := telemetry.PatchConditions{Light: cond.Light, Food: cond.Food, Temperature: cond.Temperature}

	// 2. Assignment
	e.startPhase(telemetry.PhaseAssignment)
	pop := e.population()
	for i, patch := range e.env.Assign(e.rng, len(pop)) {
		pop[i].patch = patch
	}

	// 3. Evaluation
	e.startPhase(telemetry.PhaseEvaluation)
	if err := e.evaluate(pop, gen); err != nil {
		return e.outcome, err
	}
	fitness := make([]float64, len(pop))
	for i := range pop {
		fitness[i] = pop[i].fitness
	}
	e.collector.RecordFitness(fitness)

	// 4. Viability
	e.startPhase(telemetry.PhaseSelection)
	var cause string
	var viable []int
	if allZero(fitness) {
		cause = CauseZeroFitness
	} else {
		viable = e.selectViable(pop)
		if len(viable) == 0 {
			cause = CauseNoViable
		}
	}
	e.applyEvaluation(pop)
	e.collector.RecordViable(len(viable))

	// 5. Offspring counts
	e.startPhase(telemetry.PhaseOffspring)
	capacity := e.cfg.Simulation.CarryingCapacity
	counts := apportion(e.expectedOffspring(pop, viable), capacity, e.rng)

	// 6. Reproduction and mutation
	e.startPhase(telemetry.PhaseReproduction)
	children := e.reproduce(pop, viable, counts)
	e.collector.RecordOffspring(len(children))
	if cause == "" && len(children) == 0 {
		cause = CauseNoOffspring
	}

	// 7. Capacity enforcement
	e.startPhase(telemetry.PhaseCapacity)
	children = enforceCapacity(children, capacity, e.rng)
	e.replaceGeneration(pop, children, gen)

	// 8. Resource update
	e.startPhase(telemetry.PhaseResources)
	usage := e.updateResources(children)

	e.generation = gen
	switch {
	case cause != "":
		e.outcome = Extinct
		e.cause = cause
	case gen >= e.cfg.Derived.NumGenerations:
		e.outcome = Completed
	}

	// 9. Metrics
	e.startPhase(telemetry.PhaseMetrics)
	population := make([]traits.Vector, len(children))
	for i, c := range children {
		population[i] = c.traits
	}
	e.lastStats = e.collector.Flush(gen, population, conditions, usage)
	err := e.sink.Emit(e.lastStats)
	e.endGeneration()
	if err != nil {
		return e.outcome, fmt.Errorf("generation %d: emitting metrics: %w", gen, err)
	}

	// 10. Termination is reported through the outcome.
	return e.outcome, nil
}

// Run steps until the run completes, goes extinct, fails or ctx is done.
// Extinction is a normal result, not an error.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	slog.Info("run started",
		"seed", e.seed,
		"generations", e.cfg.Derived.NumGenerations,
		"population", e.PopulationSize(),
		"patches", e.env.Len(),
		"preset", e.cfg.Environment.Preset,
	)

	for {
		outcome, err := e.Step(ctx)
		if err != nil {
			return e.Result(), err
		}
		if outcome != Running {
			break
		}
	}

	res := e.Result()
	res.LogResult()
	return res, nil
}

// updateResources applies consumption and regrowth using the residency
// counts and mean metabolic rate of the new population.
func (e *Engine) updateResources(children []child) float64 {
	n := e.env.Len()
	residents := make([]int, n)
	meanMetabolic := make([]float64, n)
	for _, c := range children {
		residents[c.patch]++
		meanMetabolic[c.patch] += c.traits[traits.MetabolicRate]
	}
	for i := range meanMetabolic {
		if residents[i] > 0 {
			meanMetabolic[i] /= float64(residents[i])
		}
	}
	return e.env.Replenish(residents, meanMetabolic, e.cfg.Simulation.CarryingCapacity)
}

func (e *Engine) startGeneration() {
	if e.perf != nil {
		e.perf.StartGeneration()
	}
}

func (e *Engine) startPhase(phase string) {
	if e.perf != nil {
		e.perf.StartPhase(phase)
	}
}

func (e *Engine) endGeneration() {
	if e.perf != nil {
		e.perf.EndGeneration()
	}
}
