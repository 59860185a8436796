package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/cavefish/traits"
)

// GenerationStats is the metrics record emitted once per generation.
type GenerationStats struct {
	Generation     int `csv:"generation"`
	PopulationSize int `csv:"population_size"` // after capacity enforcement
	Evaluated      int `csv:"evaluated"`       // population entering selection
	Viable         int `csv:"viable"`
	OffspringRaw   int `csv:"offspring_raw"` // offspring produced before capacity enforcement

	// Fitness distribution of the evaluated population
	MeanFitness float64 `csv:"mean_fitness"`
	FitnessStd  float64 `csv:"fitness_std"`
	FitnessP10  float64 `csv:"fitness_p10"`
	FitnessP50  float64 `csv:"fitness_p50"`
	FitnessP90  float64 `csv:"fitness_p90"`

	// Trait means of the new population
	MeanPigmentation  float64 `csv:"mean_pigmentation"`
	MeanEyeSize       float64 `csv:"mean_eye_size"`
	MeanMetabolicRate float64 `csv:"mean_metabolic_rate"`
	MeanLateralLine   float64 `csv:"mean_lateral_line"`
	MeanOlfactoryBulb float64 `csv:"mean_olfactory_bulb"`

	// Patch conditions averaged over patches, before the resource update
	MeanLight       float64 `csv:"mean_light"`
	MeanFood        float64 `csv:"mean_food"`
	MeanTemperature float64 `csv:"mean_temperature"`

	ResourceUsage float64 `csv:"resource_usage"` // total food consumed this generation
}

// TraitMeans returns the per-trait means as a vector.
func (s GenerationStats) TraitMeans() traits.Vector {
	return traits.Vector{
		traits.Pigmentation:  s.MeanPigmentation,
		traits.EyeSize:       s.MeanEyeSize,
		traits.MetabolicRate: s.MeanMetabolicRate,
		traits.LateralLine:   s.MeanLateralLine,
		traits.OlfactoryBulb: s.MeanOlfactoryBulb,
	}
}

// SetTraitMeans stores per-trait means.
func (s *GenerationStats) SetTraitMeans(v traits.Vector) {
	s.MeanPigmentation = v[traits.Pigmentation]
	s.MeanEyeSize = v[traits.EyeSize]
	s.MeanMetabolicRate = v[traits.MetabolicRate]
	s.MeanLateralLine = v[traits.LateralLine]
	s.MeanOlfactoryBulb = v[traits.OlfactoryBulb]
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// ComputeDistribution calculates mean, standard deviation and percentiles.
// Returns the zero value for an empty sample.
func ComputeDistribution(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}

	var d Distribution
	if n == 1 {
		d.Mean = values[0]
	} else {
		d.Mean, d.Std = stat.MeanStdDev(values, nil)
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	d.P10 = Percentile(sorted, 0.10)
	d.P50 = Percentile(sorted, 0.50)
	d.P90 = Percentile(sorted, 0.90)
	return d
}

// Percentile calculates the p-th percentile of a sorted slice by linear
// interpolation between ranks. Returns 0 if the slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	if lo+1 >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

// MeanTraits averages trait vectors.
func MeanTraits(vs []traits.Vector) traits.Vector {
	var mean traits.Vector
	if len(vs) == 0 {
		return mean
	}
	for _, v := range vs {
		for k := range v {
			mean[k] += v[k]
		}
	}
	for k := range mean {
		mean[k] /= float64(len(vs))
	}
	return mean
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("population_size", s.PopulationSize),
		slog.Int("evaluated", s.Evaluated),
		slog.Int("viable", s.Viable),
		slog.Int("offspring_raw", s.OffspringRaw),
		slog.Float64("mean_fitness", s.MeanFitness),
		slog.Float64("fitness_std", s.FitnessStd),
		slog.Float64("fitness_p10", s.FitnessP10),
		slog.Float64("fitness_p50", s.FitnessP50),
		slog.Float64("fitness_p90", s.FitnessP90),
		slog.Float64("mean_pigmentation", s.MeanPigmentation),
		slog.Float64("mean_eye_size", s.MeanEyeSize),
		slog.Float64("mean_metabolic_rate", s.MeanMetabolicRate),
		slog.Float64("mean_lateral_line", s.MeanLateralLine),
		slog.Float64("mean_olfactory_bulb", s.MeanOlfactoryBulb),
		slog.Float64("mean_light", s.MeanLight),
		slog.Float64("mean_food", s.MeanFood),
		slog.Float64("mean_temperature", s.MeanTemperature),
		slog.Float64("resource_usage", s.ResourceUsage),
	)
}

// LogStats logs the generation stats using slog.
func (s GenerationStats) LogStats() {
	slog.Info("stats",
		"generation", s.Generation,
		"population_size", s.PopulationSize,
		"viable", s.Viable,
		"offspring_raw", s.OffspringRaw,
		"mean_fitness", s.MeanFitness,
		"fitness_p50", s.FitnessP50,
		"mean_pigmentation", s.MeanPigmentation,
		"mean_eye_size", s.MeanEyeSize,
		"mean_metabolic_rate", s.MeanMetabolicRate,
		"mean_lateral_line", s.MeanLateralLine,
		"mean_olfactory_bulb", s.MeanOlfactoryBulb,
		"mean_food", s.MeanFood,
	)
}
