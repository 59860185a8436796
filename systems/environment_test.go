package systems

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/pthm-cable/cavefish/config"
	"github.com/pthm-cable/cavefish/traits"
)

func TestNewEnvironmentZeroPatches(t *testing.T) {
	cfg := config.Default()
	cfg.Environment.NumPatches = 0

	_, err := NewEnvironment(cfg, 1)
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewEnvironmentUnknownPreset(t *testing.T) {
	cfg := config.Default()
	cfg.Environment.Preset = "volcano"

	_, err := NewEnvironment(cfg, 1)
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewEnvironmentDeepCopiesPreset(t *testing.T) {
	cfg := config.Default()
	cfg.Environment.NumPatches = 3

	env, err := NewEnvironment(cfg, 1)
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	if env.Len() != 3 {
		t.Fatalf("Len = %d, want 3", env.Len())
	}

	env.Patch(0).SetOptimalTraits(traits.Vector{1, 1, 1, 1, 1})
	env.Patch(0).FoodAvailability = 0.9

	for i := 1; i < env.Len(); i++ {
		v, _ := env.Patch(i).OptimalTraits()
		if v[traits.OlfactoryBulb] != 0.8 {
			t.Errorf("patch %d shares optimal traits with patch 0", i)
		}
		if env.Patch(i).FoodAvailability != 0.3 {
			t.Errorf("patch %d food changed with patch 0", i)
		}
	}
	preset, _ := cfg.LookupPreset("default_cave")
	if preset.OptimalTraits[traits.Pigmentation] != 0 {
		t.Error("preset table was mutated through a patch")
	}
}

func TestEnvironmentScheduledOverrideReplacesDrift(t *testing.T) {
	cfg, err := config.Parse([]byte(`
environment:
  num_patches: 2
  schedule:
    - generation: 3
      patch: 1
      light_level: 0.9
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	env, err := NewEnvironment(cfg, 1)
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	rng := rand.New(rand.NewPCG(1, 1))

	food := env.Patch(1).FoodAvailability
	temp := env.Patch(1).Temperature
	env.Update(3, rng)

	p := env.Patch(1)
	if p.LightLevel != 0.9 {
		t.Errorf("LightLevel = %v, want 0.9", p.LightLevel)
	}
	if p.FoodAvailability != food || p.Temperature != temp {
		t.Error("overridden patch also drifted")
	}
	v, _ := p.OptimalTraits()
	if v[traits.EyeSize] < 0.95 {
		t.Errorf("optimal eye size after lighting = %v, want near 1", v[traits.EyeSize])
	}
}

func TestEnvironmentDriftDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Environment.Drift.Enabled = false
	env, err := NewEnvironment(cfg, 1)
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	rng := rand.New(rand.NewPCG(2, 2))
	before := *env.Patch(0)

	for g := 1; g <= 10; g++ {
		env.Update(g, rng)
	}
	after := env.Patch(0)
	if after.LightLevel != before.LightLevel || after.FoodAvailability != before.FoodAvailability {
		t.Error("fields changed with drift disabled")
	}
}

func TestAssignUsesEveryPatch(t *testing.T) {
	cfg := config.Default()
	cfg.Environment.NumPatches = 4
	env, err := NewEnvironment(cfg, 1)
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	rng := rand.New(rand.NewPCG(9, 9))

	counts := make([]int, env.Len())
	for _, p := range env.Assign(rng, 4000) {
		counts[p]++
	}
	for i, c := range counts {
		if c < 800 || c > 1200 {
			t.Errorf("patch %d got %d of 4000 organisms", i, c)
		}
	}
}

func TestRandomPresetEnvironment(t *testing.T) {
	cfg := config.Default()
	cfg.Environment.Preset = config.RandomPreset
	cfg.Environment.NumPatches = 8

	a, err := NewEnvironment(cfg, 42)
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	b, _ := NewEnvironment(cfg, 42)

	for i := 0; i < a.Len(); i++ {
		p := a.Patch(i)
		if p.LightLevel < 0 || p.LightLevel > 1 || p.FoodAvailability < 0 || p.FoodAvailability > 1 {
			t.Errorf("patch %d out of range: light=%v food=%v", i, p.LightLevel, p.FoodAvailability)
		}
		if p.LightLevel != b.Patch(i).LightLevel {
			t.Errorf("patch %d not reproducible from the same seed", i)
		}
		if _, ok := p.OptimalTraits(); !ok {
			t.Errorf("patch %d has no optimal traits", i)
		}
	}
	if last := a.Patch(a.Len() - 1); last.LightLevel != 0 {
		t.Errorf("deepest patch light = %v, want 0", last.LightLevel)
	}
}
