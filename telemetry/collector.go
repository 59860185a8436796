package telemetry

import "github.com/pthm-cable/cavefish/traits"

// Collector accumulates per-generation observations and produces GenerationStats.
type Collector struct {
	fitness      []float64
	viable       int
	offspringRaw int
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordFitness records the fitness of every evaluated organism.
// The slice is copied.
func (c *Collector) RecordFitness(values []float64) {
	c.fitness = append(c.fitness[:0], values...)
}

// RecordViable records the size of the viable set.
func (c *Collector) RecordViable(n int) {
	c.viable = n
}

// RecordOffspring records the number of offspring produced before capacity enforcement.
func (c *Collector) RecordOffspring(n int) {
	c.offspringRaw = n
}

// PatchConditions holds patch-averaged physical fields.
type PatchConditions struct {
	Light       float64
	Food        float64
	Temperature float64
}

// Flush produces a GenerationStats and resets counters for the next generation.
// The caller must provide:
// - generation: the generation index (1-based)
// - population: trait vectors of the population that survives into the next generation
// - conditions: patch conditions the generation was evaluated under
// - resourceUsage: total food consumed by the new population
func (c *Collector) Flush(
	generation int,
	population []traits.Vector,
	conditions PatchConditions,
	resourceUsage float64,
) GenerationStats {
	d := ComputeDistribution(c.fitness)

	stats := GenerationStats{
		Generation:     generation,
		PopulationSize: len(population),
		Evaluated:      len(c.fitness),
		Viable:         c.viable,
		OffspringRaw:   c.offspringRaw,

		MeanFitness: d.Mean,
		FitnessStd:  d.Std,
		FitnessP10:  d.P10,
		FitnessP50:  d.P50,
		FitnessP90:  d.P90,

		MeanLight:       conditions.Light,
		MeanFood:        conditions.Food,
		MeanTemperature: conditions.Temperature,

		ResourceUsage: resourceUsage,
	}
	stats.SetTraitMeans(MeanTraits(population))

	// Reset for next generation
	c.fitness = c.fitness[:0]
	c.viable = 0
	c.offspringRaw = 0

	return stats
}
