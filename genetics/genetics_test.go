package genetics

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pthm-cable/cavefish/config"
	"github.com/pthm-cable/cavefish/traits"
)

func TestInitializeInRange(t *testing.T) {
	f := FoundersFromConfig(config.Default().Genetics)
	rng := rand.New(rand.NewPCG(1, 2))

	var sumRegressive, sumAdaptive float64
	const n = 5000
	for i := 0; i < n; i++ {
		v := f.Initialize(rng)
		if !v.InRange() {
			t.Fatalf("founder out of range: %v", v)
		}
		sumRegressive += v[traits.EyeSize]
		sumAdaptive += v[traits.LateralLine]
	}

	if mean := sumRegressive / n; math.Abs(mean-0.8) > 0.02 {
		t.Errorf("mean founder eye size = %v, want about 0.8", mean)
	}
	if mean := sumAdaptive / n; math.Abs(mean-0.5) > 0.03 {
		t.Errorf("mean founder lateral line = %v, want about 0.5", mean)
	}
}

func TestMutateZeroRateIsIdentity(t *testing.T) {
	m := Mutator{Rate: 0, Sigma: 0.5}
	rng := rand.New(rand.NewPCG(3, 4))

	v := traits.Vector{0.1, 0.2, 0.3, 0.4, 0.5}
	orig := v
	for i := 0; i < 100; i++ {
		if n := m.Mutate(&v, rng); n != 0 {
			t.Fatalf("zero-rate mutator changed %d traits", n)
		}
	}
	if v != orig {
		t.Errorf("vector changed: %v -> %v", orig, v)
	}
}

func TestMutateIsPerTraitGated(t *testing.T) {
	m := Mutator{Rate: 0.2, Sigma: 0.1}
	rng := rand.New(rand.NewPCG(5, 6))

	total := 0
	const rounds = 4000
	for i := 0; i < rounds; i++ {
		v := traits.Vector{0.5, 0.5, 0.5, 0.5, 0.5}
		total += m.Mutate(&v, rng)
	}
	got := float64(total) / float64(rounds*traits.NumKinds)
	if math.Abs(got-0.2) > 0.02 {
		t.Errorf("observed per-trait mutation frequency %v, want about 0.2", got)
	}
}

func TestMutateClamps(t *testing.T) {
	m := Mutator{Rate: 1, Sigma: 5}
	rng := rand.New(rand.NewPCG(7, 8))

	for i := 0; i < 1000; i++ {
		v := traits.Vector{0, 1, 0.5, 0.01, 0.99}
		m.Mutate(&v, rng)
		if !v.InRange() {
			t.Fatalf("mutated vector out of range: %v", v)
		}
	}
}

func TestReproduceTakesWholeParentValues(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	a := traits.Vector{0.1, 0.2, 0.3, 0.4, 0.5}
	b := traits.Vector{0.9, 0.8, 0.7, 0.6, 0.55}

	fromA := make([]int, traits.NumKinds)
	for i := 0; i < 2000; i++ {
		child := Reproduce(a, b, rng)
		for k := range child {
			switch child[k] {
			case a[k]:
				fromA[k]++
			case b[k]:
			default:
				t.Fatalf("trait %d = %v is neither parent's value", k, child[k])
			}
		}
	}
	for k, n := range fromA {
		if n < 850 || n > 1150 {
			t.Errorf("trait %d inherited from a %d of 2000 times", k, n)
		}
	}
}

func TestReproduceLeavesParentsUntouched(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	a := traits.Vector{0.1, 0.2, 0.3, 0.4, 0.5}
	b := traits.Vector{0.9, 0.8, 0.7, 0.6, 0.55}
	child := Reproduce(a, b, rng)
	child[0] = 0.42

	if a[0] != 0.1 || b[0] != 0.9 {
		t.Error("child shares storage with a parent")
	}
}
