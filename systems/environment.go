package systems

import (
	"fmt"
	"math/rand/v2"

	"github.com/pthm-cable/cavefish/config"
)

// Environment owns the ordered, non-empty set of patches for a run.
type Environment struct {
	patches  []*Patch
	env      config.EnvironmentConfig
	schedule map[int][]config.ScheduledChange
}

// NewEnvironment builds num_patches patches from the configured preset.
// Each patch receives its own copy of the preset. The random preset samples
// a cave transect seeded with seed.
func NewEnvironment(cfg *config.Config, seed int64) (*Environment, error) {
	env := cfg.Environment
	if env.NumPatches <= 0 {
		return nil, &config.ValidationError{
			Field:  "environment.num_patches",
			Reason: fmt.Sprintf("need at least one patch, got %d", env.NumPatches),
		}
	}

	e := &Environment{
		patches:  make([]*Patch, env.NumPatches),
		env:      env,
		schedule: cfg.Derived.Schedule,
	}

	if env.Preset == config.RandomPreset {
		transect := NewCaveTransect(seed, env.Random.Scale)
		for i := range e.patches {
			e.patches[i] = NewPatch(i, transect.Preset(i, env.NumPatches, cfg), env.TemperatureMin, env.TemperatureMax)
			e.patches[i].RecomputeOptimalTraits(env.Optima)
		}
		return e, nil
	}

	preset, err := cfg.LookupPreset(env.Preset)
	if err != nil {
		return nil, err
	}
	for i := range e.patches {
		e.patches[i] = NewPatch(i, preset, env.TemperatureMin, env.TemperatureMax)
	}
	return e, nil
}

// Len returns the number of patches.
func (e *Environment) Len() int {
	return len(e.patches)
}

// Patch returns patch i.
func (e *Environment) Patch(i int) *Patch {
	return e.patches[i]
}

// Patches returns the patch slice. Callers must not reorder it.
func (e *Environment) Patches() []*Patch {
	return e.patches
}

// Update advances patch conditions for a generation and recomputes every
// patch's optimal traits. A patch named by a scheduled change for this
// generation takes the override instead of drifting.
func (e *Environment) Update(generation int, rng *rand.Rand) {
	overridden := make([]bool, len(e.patches))
	for _, ch := range e.schedule[generation] {
		o := OverridesFromSchedule(ch)
		if ch.Patch != nil {
			e.patches[*ch.Patch].ApplyOverrides(o)
			overridden[*ch.Patch] = true
			continue
		}
		for i, p := range e.patches {
			p.ApplyOverrides(o)
			overridden[i] = true
		}
	}

	for i, p := range e.patches {
		if e.env.Drift.Enabled && !overridden[i] {
			p.Drift(rng, e.env.Drift)
		}
		p.RecomputeOptimalTraits(e.env.Optima)
	}
}

// Assign draws a patch index for each of n organisms.
func (e *Environment) Assign(rng *rand.Rand, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = rng.IntN(len(e.patches))
	}
	return out
}

// Replenish applies consumption and regrowth to every patch.
// residents and meanMetabolic are indexed by patch. Returns total food consumed.
func (e *Environment) Replenish(residents []int, meanMetabolic []float64, capacity int) float64 {
	var total float64
	for i, p := range e.patches {
		total += p.ConsumeAndReplenish(residents[i], meanMetabolic[i], capacity, e.env.Replenish)
	}
	return total
}

// Conditions holds patch-averaged physical fields.
type Conditions struct {
	Light       float64
	Food        float64
	Temperature float64
}

// MeanConditions averages the physical fields over all patches.
func (e *Environment) MeanConditions() Conditions {
	var c Conditions
	for _, p := range e.patches {
		c.Light += p.LightLevel
		c.Food += p.FoodAvailability
		c.Temperature += p.Temperature
	}
	n := float64(len(e.patches))
	c.Light /= n
	c.Food /= n
	c.Temperature /= n
	return c
}
