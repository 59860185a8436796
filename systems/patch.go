package systems

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/cavefish/config"
	"github.com/pthm-cable/cavefish/traits"
)

// Patch is one environmental cell with physical conditions, a depletable
// food pool and the trait values its conditions currently reward.
type Patch struct {
	ID               int
	LightLevel       float64 // [0,1]
	FoodAvailability float64 // [0,1], the depletable food pool
	Temperature      float64 // [TempMin, TempMax]
	BaselineFood     float64 // restored by the reset replenish policy

	TempMin, TempMax float64

	// baseline holds the preset optima; adaptive traits keep these values.
	baseline   traits.Vector
	optimal    traits.Vector
	hasOptimal bool
}

// Overrides names explicit field values. Nil fields are left untouched.
type Overrides struct {
	LightLevel       *float64
	FoodAvailability *float64
	Temperature      *float64
}

// OverridesFromSchedule converts a scheduled config change.
func OverridesFromSchedule(ch config.ScheduledChange) Overrides {
	return Overrides{
		LightLevel:       ch.LightLevel,
		FoodAvailability: ch.FoodAvailability,
		Temperature:      ch.Temperature,
	}
}

// NewPatch builds a patch from a preset template.
// The preset is passed by value so the patch owns its own trait vectors.
func NewPatch(id int, p config.Preset, tempMin, tempMax float64) *Patch {
	patch := &Patch{
		ID:               id,
		LightLevel:       traits.Clamp01(p.LightLevel),
		FoodAvailability: traits.Clamp01(p.FoodAvailability),
		Temperature:      clamp(p.Temperature, tempMin, tempMax),
		TempMin:          tempMin,
		TempMax:          tempMax,
		baseline:         p.OptimalTraits,
		optimal:          p.OptimalTraits,
		hasOptimal:       true,
	}
	patch.BaselineFood = patch.FoodAvailability
	return patch
}

// OptimalTraits returns the current target vector and whether one is set.
func (p *Patch) OptimalTraits() (traits.Vector, bool) {
	return p.optimal, p.hasOptimal
}

// SetOptimalTraits replaces the target vector.
func (p *Patch) SetOptimalTraits(v traits.Vector) {
	v.Clamp()
	p.optimal = v
	p.hasOptimal = true
}

// ClearOptimalTraits removes the target vector. Fitness evaluation against
// the patch fails until the next recompute.
func (p *Patch) ClearOptimalTraits() {
	p.optimal = traits.Vector{}
	p.hasOptimal = false
}

// Drift moves every physical field by an independent uniform step, then clamps.
func (p *Patch) Drift(rng *rand.Rand, d config.DriftConfig) {
	p.LightLevel = traits.Clamp01(p.LightLevel + step(rng, d.LightStep))
	p.FoodAvailability = traits.Clamp01(p.FoodAvailability + step(rng, d.FoodStep))
	p.Temperature = clamp(p.Temperature+step(rng, d.TemperatureStep), p.TempMin, p.TempMax)
}

func step(rng *rand.Rand, width float64) float64 {
	if width <= 0 {
		return 0
	}
	return distuv.Uniform{Min: -width, Max: width, Src: rng}.Rand()
}

// ApplyOverrides replaces the named fields. Nothing drifts.
func (p *Patch) ApplyOverrides(o Overrides) {
	if o.LightLevel != nil {
		p.LightLevel = traits.Clamp01(*o.LightLevel)
	}
	if o.FoodAvailability != nil {
		p.FoodAvailability = traits.Clamp01(*o.FoodAvailability)
	}
	if o.Temperature != nil {
		p.Temperature = clamp(*o.Temperature, p.TempMin, p.TempMax)
	}
}

// ComputeOptimalTraits derives the rewarded trait values from the patch's
// current fields. It does not modify the patch.
func (p *Patch) ComputeOptimalTraits(o config.OptimaConfig) traits.Vector {
	v := p.baseline
	regressive := logistic(p.LightLevel, o.LogisticSteepness, o.LogisticMidpoint)
	for _, k := range traits.All {
		switch k.Class() {
		case traits.Regressive:
			v[k] = regressive
		case traits.Metabolic:
			v[k] = o.MetabolicBase + o.MetabolicSlope*p.FoodAvailability
		}
	}
	v.Clamp()
	return v
}

// RecomputeOptimalTraits stores the result of ComputeOptimalTraits.
func (p *Patch) RecomputeOptimalTraits(o config.OptimaConfig) {
	p.SetOptimalTraits(p.ComputeOptimalTraits(o))
}

// ConsumeAndReplenish depletes food by resident demand, then regrows it.
// Returns the amount consumed.
func (p *Patch) ConsumeAndReplenish(residents int, meanMetabolic float64, capacity int, r config.ReplenishConfig) float64 {
	var consumed float64
	if capacity > 0 && residents > 0 {
		consumed = float64(residents) * p.FoodAvailability * meanMetabolic / float64(capacity)
		consumed = math.Min(consumed, p.FoodAvailability)
		p.FoodAvailability = math.Max(0, p.FoodAvailability-consumed)
	}

	switch r.Policy {
	case config.ReplenishReset:
		p.FoodAvailability = p.BaselineFood
	default:
		p.FoodAvailability = math.Min(1, p.FoodAvailability+r.Rate)
	}
	return consumed
}
