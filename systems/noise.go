package systems

import (
	"fmt"

	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/cavefish/config"
)

// Noise channel offsets so each field samples an independent slice of the
// same noise function.
const (
	lightChannel = 0.0
	foodChannel  = 17.0
	tempChannel  = 43.0
)

// CaveTransect samples patch conditions along a line running from the cave
// mouth (patch 0) into the deep cave (last patch).
type CaveTransect struct {
	noise opensimplex.Noise
	scale float64
}

// NewCaveTransect creates a transect sampler with the given seed and noise frequency.
func NewCaveTransect(seed int64, scale float64) *CaveTransect {
	return &CaveTransect{
		noise: opensimplex.NewNormalized(seed),
		scale: scale,
	}
}

// Preset returns the conditions for patch i of n.
// Light is attenuated with depth; food and temperature follow the noise directly.
func (ct *CaveTransect) Preset(i, n int, cfg *config.Config) config.Preset {
	x := float64(i) * ct.scale
	depth := 0.0
	if n > 1 {
		depth = float64(i) / float64(n-1)
	}

	env := cfg.Environment
	return config.Preset{
		Name:             fmt.Sprintf("%s_%d", config.RandomPreset, i),
		LightLevel:       ct.noise.Eval2(x, lightChannel) * (1 - depth),
		FoodAvailability: ct.noise.Eval2(x, foodChannel),
		Temperature:      env.TemperatureMin + (env.TemperatureMax-env.TemperatureMin)*ct.noise.Eval2(x, tempChannel),
		OptimalTraits:    cfg.Derived.RandomOptimal,
	}
}
