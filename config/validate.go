package config

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError names the offending config key.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	s := c.Simulation
	if c.Derived.NumGenerations < 0 {
		return invalid("simulation.num_generations", "must be >= 0")
	}
	if s.InitialPopulationSize <= 0 {
		return invalid("simulation.initial_population_size", "must be > 0")
	}
	if s.CarryingCapacity <= 0 {
		return invalid("simulation.carrying_capacity", "must be > 0")
	}

	// Fitness has no fixed upper bound under custom weights, so any finite
	// threshold is accepted.
	if t := c.Selection.FitnessThreshold; math.IsNaN(t) || math.IsInf(t, 0) {
		return invalid("selection.fitness_threshold", "must be finite")
	}
	if j := c.Selection.ThresholdJitter; j < 0 || math.IsNaN(j) || math.IsInf(j, 0) {
		return invalid("selection.threshold_jitter", "must be finite and >= 0")
	}

	if c.Reproduction.EggCount <= 0 {
		return invalid("reproduction.egg_count", "must be > 0")
	}
	switch c.Reproduction.MateChoice {
	case MateChoiceUniform, MateChoiceFitness:
	default:
		return invalid("reproduction.mate_choice", fmt.Sprintf("unknown policy %q", c.Reproduction.MateChoice))
	}

	if r := c.Mutation.Rate; r < 0 || r > 1 {
		return invalid("mutation.rate", "must be in [0,1]")
	}
	if c.Mutation.Sigma < 0 {
		return invalid("mutation.sigma", "must be >= 0")
	}
	if c.Genetics.RegressiveSigma < 0 {
		return invalid("genetics.regressive_sigma", "must be >= 0")
	}

	env := c.Environment
	if env.NumPatches <= 0 {
		return invalid("environment.num_patches", "must be > 0")
	}
	if env.TemperatureMax < env.TemperatureMin {
		return invalid("environment.temperature_max", "must be >= temperature_min")
	}
	if env.Drift.LightStep < 0 || env.Drift.FoodStep < 0 || env.Drift.TemperatureStep < 0 {
		return invalid("environment.drift", "step sizes must be >= 0")
	}
	switch env.Replenish.Policy {
	case ReplenishFixedRate, ReplenishReset:
	default:
		return invalid("environment.replenish.policy", fmt.Sprintf("unknown policy %q", env.Replenish.Policy))
	}
	if env.Replenish.Rate < 0 {
		return invalid("environment.replenish.rate", "must be >= 0")
	}
	if env.Preset != RandomPreset {
		if _, err := c.LookupPreset(env.Preset); err != nil {
			return err
		}
	}
	for name, p := range c.Derived.Presets {
		if p.LightLevel < 0 || p.LightLevel > 1 || p.FoodAvailability < 0 || p.FoodAvailability > 1 {
			return invalid("presets."+name, "light_level and food_availability must be in [0,1]")
		}
		if !p.OptimalTraits.InRange() {
			return invalid("presets."+name+".optimal_traits", "values must be in [0,1]")
		}
	}
	for i, ch := range env.Schedule {
		field := fmt.Sprintf("environment.schedule[%d]", i)
		if ch.Generation < 1 {
			return invalid(field+".generation", "must be >= 1")
		}
		if ch.Patch != nil && (*ch.Patch < 0 || *ch.Patch >= env.NumPatches) {
			return invalid(field+".patch", fmt.Sprintf("patch %d out of range", *ch.Patch))
		}
	}

	w := c.Fitness.Weights
	for _, v := range []float64{w.Pigmentation, w.EyeSize, w.LateralLine, w.OlfactoryBulb, w.MetabolicMatch, w.MetabolicCost} {
		if v < 0 {
			return invalid("fitness.weights", "weights must be >= 0")
		}
	}

	if c.Parallel.Workers < 0 {
		return invalid("parallel.workers", "must be >= 0")
	}
	if c.Telemetry.LogEvery < 0 {
		return invalid("telemetry.log_every", "must be >= 0")
	}
	return nil
}
