package main

import (
	"github.com/pthm-cable/cavefish/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Selection
			{Name: "fitness_threshold", Path: "selection.fitness_threshold", Min: 0.0, Max: 0.6, Default: 0.2},
			{Name: "threshold_jitter", Path: "selection.threshold_jitter", Min: 0.0, Max: 0.1, Default: 0.0},
			// Reproduction
			{Name: "egg_count", Path: "reproduction.egg_count", Min: 5, Max: 120, Default: 50},
			// Mutation
			{Name: "mutation_rate", Path: "mutation.rate", Min: 0.0, Max: 0.1, Default: 0.0026},
			{Name: "mutation_sigma", Path: "mutation.sigma", Min: 0.01, Max: 0.3, Default: 0.1},
			// Fitness
			{Name: "metabolic_cost", Path: "fitness.weights.metabolic_cost", Min: 0.0, Max: 0.3, Default: 0.1},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Selection.FitnessThreshold = clamped[0]
	cfg.Selection.ThresholdJitter = clamped[1]
	cfg.Reproduction.EggCount = int(clamped[2] + 0.5)
	cfg.Mutation.Rate = clamped[3]
	cfg.Mutation.Sigma = clamped[4]
	cfg.Fitness.Weights.MetabolicCost = clamped[5]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Selection.FitnessThreshold,
		cfg.Selection.ThresholdJitter,
		float64(cfg.Reproduction.EggCount),
		cfg.Mutation.Rate,
		cfg.Mutation.Sigma,
		cfg.Fitness.Weights.MetabolicCost,
	}
}
