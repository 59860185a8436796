// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/cavefish/traits"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// GenerationsPerDecade converts simulation.num_decades into generations.
const GenerationsPerDecade = 10

// RandomPreset names the noise-generated environment instead of a presets entry.
const RandomPreset = "random"

// Mate choice policies.
const (
	MateChoiceUniform = "uniform"
	MateChoiceFitness = "fitness"
)

// Food replenishment policies.
const (
	ReplenishFixedRate = "fixed_rate"
	ReplenishReset     = "reset"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation   SimulationConfig        `yaml:"simulation"`
	Selection    SelectionConfig         `yaml:"selection"`
	Reproduction ReproductionConfig      `yaml:"reproduction"`
	Mutation     MutationConfig          `yaml:"mutation"`
	Genetics     GeneticsConfig          `yaml:"genetics"`
	Environment  EnvironmentConfig       `yaml:"environment"`
	Fitness      FitnessConfig           `yaml:"fitness"`
	Parallel     ParallelConfig          `yaml:"parallel"`
	Telemetry    TelemetryConfig         `yaml:"telemetry"`
	Presets      map[string]PresetConfig `yaml:"presets"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds run length and population bounds.
type SimulationConfig struct {
	NumGenerations        int `yaml:"num_generations"`
	NumDecades            int `yaml:"num_decades"` // > 0 replaces num_generations
	InitialPopulationSize int `yaml:"initial_population_size"`
	CarryingCapacity      int `yaml:"carrying_capacity"`
}

// SelectionConfig holds viability filter parameters.
type SelectionConfig struct {
	FitnessThreshold float64 `yaml:"fitness_threshold"`
	ThresholdJitter  float64 `yaml:"threshold_jitter"` // uniform noise half-width on the threshold
}

// ReproductionConfig holds offspring parameters.
type ReproductionConfig struct {
	EggCount   int    `yaml:"egg_count"`   // offspring ceiling per reproduction event
	MateChoice string `yaml:"mate_choice"` // uniform | fitness
}

// MutationConfig holds mutation parameters.
type MutationConfig struct {
	Rate  float64 `yaml:"rate"`
	Sigma float64 `yaml:"sigma"`
}

// GeneticsConfig holds founder trait sampling parameters.
type GeneticsConfig struct {
	RegressiveMean  float64 `yaml:"regressive_mean"`
	RegressiveSigma float64 `yaml:"regressive_sigma"`
}

// EnvironmentConfig holds patch layout and dynamics.
type EnvironmentConfig struct {
	NumPatches     int               `yaml:"num_patches"`
	Preset         string            `yaml:"preset"`
	TemperatureMin float64           `yaml:"temperature_min"`
	TemperatureMax float64           `yaml:"temperature_max"`
	Drift          DriftConfig       `yaml:"drift"`
	Optima         OptimaConfig      `yaml:"optima"`
	Replenish      ReplenishConfig   `yaml:"replenish"`
	Random         RandomConfig      `yaml:"random"`
	Schedule       []ScheduledChange `yaml:"schedule"`
}

// DriftConfig holds random-walk step sizes for patch fields.
type DriftConfig struct {
	Enabled         bool    `yaml:"enabled"`
	LightStep       float64 `yaml:"light_step"`
	FoodStep        float64 `yaml:"food_step"`
	TemperatureStep float64 `yaml:"temperature_step"`
}

// OptimaConfig holds the mapping from patch conditions to optimal traits.
type OptimaConfig struct {
	LogisticSteepness float64 `yaml:"logistic_steepness"`
	LogisticMidpoint  float64 `yaml:"logistic_midpoint"`
	MetabolicBase     float64 `yaml:"metabolic_base"`
	MetabolicSlope    float64 `yaml:"metabolic_slope"`
}

// ReplenishConfig holds the food regrowth policy.
type ReplenishConfig struct {
	Policy string  `yaml:"policy"` // fixed_rate | reset
	Rate   float64 `yaml:"rate"`
}

// RandomConfig holds parameters for the noise-generated environment.
type RandomConfig struct {
	Scale         float64            `yaml:"scale"` // noise frequency along the cave transect
	OptimalTraits map[string]float64 `yaml:"optimal_traits"`
}

// ScheduledChange replaces drift with explicit values at one generation.
// Nil fields are left untouched. A nil Patch applies to every patch.
type ScheduledChange struct {
	Generation       int      `yaml:"generation"`
	Patch            *int     `yaml:"patch,omitempty"`
	LightLevel       *float64 `yaml:"light_level,omitempty"`
	FoodAvailability *float64 `yaml:"food_availability,omitempty"`
	Temperature      *float64 `yaml:"temperature,omitempty"`
}

// FitnessConfig holds fitness model weights.
type FitnessConfig struct {
	Weights FitnessWeights `yaml:"weights"`
}

// FitnessWeights weights the regression, adaptive-match and cost terms.
type FitnessWeights struct {
	Pigmentation   float64 `yaml:"pigmentation"`
	EyeSize        float64 `yaml:"eye_size"`
	LateralLine    float64 `yaml:"lateral_line"`
	OlfactoryBulb  float64 `yaml:"olfactory_bulb"`
	MetabolicMatch float64 `yaml:"metabolic_match"`
	MetabolicCost  float64 `yaml:"metabolic_cost"`
}

// ParallelConfig holds worker pool parameters.
type ParallelConfig struct {
	Workers   int `yaml:"workers"`   // 0 = GOMAXPROCS
	Threshold int `yaml:"threshold"` // below this population size work is sequential
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	LogEvery        int `yaml:"log_every"`
	BookmarkHistory int `yaml:"bookmark_history"`
	PerfWindow      int `yaml:"perf_window"`
}

// PresetConfig is one named environment template.
type PresetConfig struct {
	LightLevel       float64            `yaml:"light_level"`
	FoodAvailability float64            `yaml:"food_availability"`
	Temperature      float64            `yaml:"temperature"`
	OptimalTraits    map[string]float64 `yaml:"optimal_traits"`
}

// Preset is a resolved, immutable environment template.
// It is a value type; every copy owns its own trait vector.
type Preset struct {
	Name             string
	LightLevel       float64
	FoodAvailability float64
	Temperature      float64
	OptimalTraits    traits.Vector
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	NumGenerations int               // effective run length
	Presets        map[string]Preset // resolved presets table
	RandomOptimal  traits.Vector     // baseline optima for the random environment
	Schedule       map[int][]ScheduledChange
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults, validated.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return Parse(data)
}

// Parse merges YAML data over the embedded defaults, then validates.
func Parse(data []byte) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if len(data) > 0 {
		// Unmarshal into same struct - only overwrites fields present in data
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Refresh(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Refresh recomputes derived values and validates the config.
// Call after modifying fields programmatically.
func (c *Config) Refresh() error {
	if err := c.computeDerived(); err != nil {
		return err
	}
	return c.Validate()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	c.Derived.NumGenerations = c.Simulation.NumGenerations
	if c.Simulation.NumDecades > 0 {
		c.Derived.NumGenerations = c.Simulation.NumDecades * GenerationsPerDecade
	}

	c.Derived.Presets = make(map[string]Preset, len(c.Presets))
	for _, name := range c.PresetNames() {
		pc := c.Presets[name]
		optimal, err := traits.FromMap(pc.OptimalTraits)
		if err != nil {
			return invalid("presets."+name+".optimal_traits", err.Error())
		}
		c.Derived.Presets[name] = Preset{
			Name:             name,
			LightLevel:       pc.LightLevel,
			FoodAvailability: pc.FoodAvailability,
			Temperature:      pc.Temperature,
			OptimalTraits:    optimal,
		}
	}

	optimal, err := traits.FromMap(c.Environment.Random.OptimalTraits)
	if err != nil {
		return invalid("environment.random.optimal_traits", err.Error())
	}
	c.Derived.RandomOptimal = optimal

	c.Derived.Schedule = make(map[int][]ScheduledChange)
	for _, ch := range c.Environment.Schedule {
		c.Derived.Schedule[ch.Generation] = append(c.Derived.Schedule[ch.Generation], ch)
	}
	return nil
}

// PresetNames returns the preset names in sorted order.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupPreset returns a copy of the named preset.
// Unknown names are an error; there is no fallback preset.
func (c *Config) LookupPreset(name string) (Preset, error) {
	p, ok := c.Derived.Presets[name]
	if !ok {
		return Preset{}, invalid("environment.preset", fmt.Sprintf("unknown preset %q", name))
	}
	return p, nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() (*Config, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	out := &Config{}
	if err := yaml.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("parsing config copy: %w", err)
	}
	if err := out.Refresh(); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
