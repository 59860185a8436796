package game

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/cavefish/config"
)

// maxPartnerRedraws bounds rejection of self-draws under fitness-weighted choice.
const maxPartnerRedraws = 32

// selectViable marks members whose fitness reaches the (optionally jittered)
// threshold and returns their indices in population order.
func (e *Engine) selectViable(pop []member) []int {
	sel := e.cfg.Selection

	var jitter *distuv.Uniform
	if sel.ThresholdJitter > 0 {
		jitter = &distuv.Uniform{Min: -sel.ThresholdJitter, Max: sel.ThresholdJitter, Src: e.rng}
	}

	viable := make([]int, 0, len(pop))
	for i := range pop {
		threshold := sel.FitnessThreshold
		if jitter != nil {
			threshold += jitter.Rand()
		}
		pop[i].viable = pop[i].fitness >= threshold
		if pop[i].viable {
			viable = append(viable, i)
		}
	}
	return viable
}

// allZero reports whether every value is zero.
func allZero(values []float64) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}

// partnerPicker draws a second parent from the viable set.
// It is read-only after construction and safe for concurrent use with
// per-goroutine random streams.
type partnerPicker struct {
	n          int
	weighted   bool
	cumulative []float64 // cumulative fitness, weighted mode only
	total      float64
}

func newPartnerPicker(policy string, fitness []float64) *partnerPicker {
	p := &partnerPicker{n: len(fitness)}
	if policy != config.MateChoiceFitness || len(fitness) < 2 {
		return p
	}
	p.cumulative = floats.CumSum(make([]float64, len(fitness)), fitness)
	p.total = p.cumulative[len(p.cumulative)-1]
	p.weighted = p.total > 0
	return p
}

// pick returns the index of a partner for the parent at self.
// Self is returned only when it is the sole viable organism.
func (p *partnerPicker) pick(self int, rng *rand.Rand) int {
	if p.n == 1 {
		return self
	}
	if p.weighted {
		for i := 0; i < maxPartnerRedraws; i++ {
			j := sort.SearchFloat64s(p.cumulative, rng.Float64()*p.total)
			if j >= p.n {
				j = p.n - 1
			}
			if j != self {
				return j
			}
		}
	}
	j := rng.IntN(p.n - 1)
	if j >= self {
		j++
	}
	return j
}
