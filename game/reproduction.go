package game

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// expectedOffspring returns egg_count * fitness^2 * food for each viable
// member, using the food of the member's patch this generation.
func (e *Engine) expectedOffspring(pop []member, viable []int) []float64 {
	eggs := float64(e.cfg.Reproduction.EggCount)
	out := make([]float64, len(viable))
	for i, idx := range viable {
		m := pop[idx]
		food := e.env.Patch(m.patch).FoodAvailability
		out[i] = eggs * m.fitness * m.fitness * food
	}
	return out
}

// apportion turns expected offspring into integer counts.
// When the expected total exceeds capacity, every expectation is scaled by
// capacity/total and exactly capacity units are handed out by the largest
// remainder method, ties going to the earlier parent. Otherwise each
// expectation is rounded stochastically.
func apportion(expected []float64, capacity int, rng *rand.Rand) []int {
	counts := make([]int, len(expected))
	total := floats.Sum(expected)

	if total > float64(capacity) {
		scale := float64(capacity) / total
		remainders := make([]float64, len(expected))
		assigned := 0
		for i, x := range expected {
			s := x * scale
			c := math.Floor(s)
			counts[i] = int(c)
			remainders[i] = s - c
			assigned += counts[i]
		}

		order := make([]int, len(expected))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return remainders[order[a]] > remainders[order[b]]
		})
		for k := 0; k < capacity-assigned && k < len(order); k++ {
			counts[order[k]]++
		}
		return counts
	}

	for i, x := range expected {
		c := math.Floor(x)
		if rng.Float64() < x-c {
			c++
		}
		counts[i] = int(c)
	}
	return counts
}

// sumCounts returns the total of counts.
func sumCounts(counts []int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
