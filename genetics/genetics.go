// Package genetics implements founder sampling, mutation and recombination
// of trait vectors. Every operation draws from the caller's random source.
package genetics

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/cavefish/config"
	"github.com/pthm-cable/cavefish/traits"
)

// Founders describes the trait distribution of the initial population.
// Regressive traits start near an ancestral surface baseline; the rest
// are drawn broadly.
type Founders struct {
	RegressiveMean  float64
	RegressiveSigma float64
}

// FoundersFromConfig reads founder parameters from the genetics section.
func FoundersFromConfig(g config.GeneticsConfig) Founders {
	return Founders{RegressiveMean: g.RegressiveMean, RegressiveSigma: g.RegressiveSigma}
}

// Initialize samples a founder trait vector.
func (f Founders) Initialize(rng *rand.Rand) traits.Vector {
	regressive := distuv.Normal{Mu: f.RegressiveMean, Sigma: f.RegressiveSigma, Src: rng}
	broad := distuv.Uniform{Min: 0, Max: 1, Src: rng}

	var v traits.Vector
	for _, k := range traits.All {
		if k.Class() == traits.Regressive {
			v[k] = regressive.Rand()
		} else {
			v[k] = broad.Rand()
		}
	}
	v.Clamp()
	return v
}

// Mutator applies per-trait Bernoulli-gated Gaussian noise.
type Mutator struct {
	Rate  float64 // per-trait probability
	Sigma float64 // noise standard deviation
}

// MutatorFromConfig reads mutation parameters.
func MutatorFromConfig(m config.MutationConfig) Mutator {
	return Mutator{Rate: m.Rate, Sigma: m.Sigma}
}

// Mutate perturbs v in place and clamps it to [0,1].
// Returns the number of traits that mutated.
func (m Mutator) Mutate(v *traits.Vector, rng *rand.Rand) int {
	if m.Rate <= 0 {
		return 0
	}
	gate := distuv.Bernoulli{P: m.Rate, Src: rng}
	noise := distuv.Normal{Mu: 0, Sigma: m.Sigma, Src: rng}

	n := 0
	for i := range v {
		if gate.Rand() == 0 {
			continue
		}
		v[i] += noise.Rand()
		n++
	}
	v.Clamp()
	return n
}

// Reproduce performs uniform crossover: each trait comes whole from a or b
// with equal probability.
func Reproduce(a, b traits.Vector, rng *rand.Rand) traits.Vector {
	var child traits.Vector
	for i := range child {
		if rng.IntN(2) == 0 {
			child[i] = a[i]
		} else {
			child[i] = b[i]
		}
	}
	return child
}
