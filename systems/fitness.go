package systems

import (
	"errors"
	"math"

	"github.com/pthm-cable/cavefish/config"
	"github.com/pthm-cable/cavefish/traits"
)

// ErrNoOptimalTraits is returned when a patch has no optimal trait vector.
var ErrNoOptimalTraits = errors.New("patch has no optimal traits")

// FitnessModel scores a trait vector against a patch's optimal traits as
// regression reward + adaptive match - metabolic cost, floored at 0.
type FitnessModel struct {
	weights [traits.NumKinds]float64
	cost    float64
}

// NewFitnessModel creates a model from configured weights.
func NewFitnessModel(w config.FitnessWeights) FitnessModel {
	var m FitnessModel
	m.weights[traits.Pigmentation] = w.Pigmentation
	m.weights[traits.EyeSize] = w.EyeSize
	m.weights[traits.MetabolicRate] = w.MetabolicMatch
	m.weights[traits.LateralLine] = w.LateralLine
	m.weights[traits.OlfactoryBulb] = w.OlfactoryBulb
	m.cost = w.MetabolicCost
	return m
}

// Evaluate scores v against the patch.
func (m FitnessModel) Evaluate(v traits.Vector, p *Patch) (float64, error) {
	optimal, ok := p.OptimalTraits()
	if !ok {
		return 0, ErrNoOptimalTraits
	}
	return m.Score(v, optimal), nil
}

// Score is the pure fitness function.
func (m FitnessModel) Score(v, optimal traits.Vector) float64 {
	var f float64
	for _, k := range traits.All {
		x, o := v[k], optimal[k]
		switch k.Class() {
		case traits.Regressive:
			// Rewards regression in darkness, matching in light.
			f += m.weights[k] * ((1-x)*(1-o) + o*(1-math.Abs(x-o)))
		default:
			f += m.weights[k] * (1 - math.Abs(x-o))
		}
	}
	f -= m.cost * v[traits.MetabolicRate]
	return math.Max(0, f)
}
