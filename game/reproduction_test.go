package game

import (
	"math/rand/v2"
	"testing"

	"github.com/pthm-cable/cavefish/config"
)

func TestApportion(t *testing.T) {
	tests := []struct {
		name     string
		expected []float64
		capacity int
		want     []int
	}{
		{"scaled largest remainder", []float64{3.5, 2.5, 4}, 5, []int{2, 1, 2}},
		{"ties go to earlier parents", []float64{1, 1, 1}, 2, []int{1, 1, 0}},
		{"integers below capacity", []float64{2, 0, 3}, 10, []int{2, 0, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := apportion(tt.expected, tt.capacity, rand.New(rand.NewPCG(1, 2)))
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("apportion(%v, %d) = %v, want %v", tt.expected, tt.capacity, got, tt.want)
				}
			}
		})
	}
}

func TestApportionScaledSumsToCapacity(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	expected := make([]float64, 37)
	for i := range expected {
		expected[i] = rng.Float64() * 10
	}
	counts := apportion(expected, 60, rng)
	if got := sumCounts(counts); got != 60 {
		t.Errorf("scaled counts sum to %d, want 60", got)
	}
}

func TestApportionStochasticRoundingMean(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	total := 0
	const trials = 10000
	for i := 0; i < trials; i++ {
		total += apportion([]float64{0.3}, 100, rng)[0]
	}
	mean := float64(total) / trials
	if mean < 0.27 || mean > 0.33 {
		t.Errorf("mean rounded count = %v, want about 0.3", mean)
	}
}

func TestPartnerPickerUniformAvoidsSelf(t *testing.T) {
	p := newPartnerPicker(config.MateChoiceUniform, []float64{0.5, 0.5, 0.5})
	rng := rand.New(rand.NewPCG(1, 1))
	seen := map[int]int{}
	for i := 0; i < 1000; i++ {
		j := p.pick(1, rng)
		if j == 1 {
			t.Fatal("picked self with other partners available")
		}
		seen[j]++
	}
	if seen[0] == 0 || seen[2] == 0 {
		t.Errorf("uniform choice should reach every partner, got %v", seen)
	}
}

func TestPartnerPickerAlone(t *testing.T) {
	p := newPartnerPicker(config.MateChoiceFitness, []float64{0.9})
	if got := p.pick(0, rand.New(rand.NewPCG(1, 1))); got != 0 {
		t.Errorf("sole parent should pair with itself, got %d", got)
	}
}

func TestPartnerPickerFitnessWeighted(t *testing.T) {
	p := newPartnerPicker(config.MateChoiceFitness, []float64{0, 0, 5, 0})
	rng := rand.New(rand.NewPCG(2, 2))
	for i := 0; i < 200; i++ {
		if got := p.pick(0, rng); got != 2 {
			t.Fatalf("pick = %d, want the only fit partner 2", got)
		}
	}

	// All weight on self falls back to a uniform draw over the others.
	p = newPartnerPicker(config.MateChoiceFitness, []float64{0, 1, 0})
	for i := 0; i < 200; i++ {
		if got := p.pick(1, rng); got == 1 {
			t.Fatal("picked self with other partners available")
		}
	}
}

func TestEnforceCapacity(t *testing.T) {
	children := make([]child, 10)
	for i := range children {
		children[i].parentA = uint32(i + 1)
	}
	out := enforceCapacity(children, 4, rand.New(rand.NewPCG(7, 7)))
	if len(out) != 4 {
		t.Fatalf("len = %d, want 4", len(out))
	}
	seen := map[uint32]bool{}
	for _, c := range out {
		if seen[c.parentA] {
			t.Fatalf("child %d sampled twice", c.parentA)
		}
		seen[c.parentA] = true
	}

	small := enforceCapacity(children[:3], 4, rand.New(rand.NewPCG(7, 7)))
	if len(small) != 3 {
		t.Errorf("under capacity should be unchanged, got %d", len(small))
	}
}

func TestChunks(t *testing.T) {
	tests := []struct {
		n, workers int
		want       int
	}{
		{0, 4, 0},
		{10, 4, 4},
		{3, 8, 3},
		{10, 1, 1},
	}
	for _, tt := range tests {
		got := chunks(tt.n, tt.workers)
		if len(got) != tt.want {
			t.Errorf("chunks(%d, %d) = %d chunks, want %d", tt.n, tt.workers, len(got), tt.want)
		}
		covered := 0
		for _, c := range got {
			covered += c.end - c.start
		}
		if covered != tt.n {
			t.Errorf("chunks(%d, %d) cover %d items", tt.n, tt.workers, covered)
		}
	}
}
