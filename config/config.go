// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Track      TrackConfig      `yaml:"track"`
	Agent      AgentConfig      `yaml:"agent"`
	Sensors    SensorsConfig    `yaml:"sensors"`
	Neural     NeuralConfig     `yaml:"neural"`
	Population PopulationConfig `yaml:"population"`
	Store      StoreConfig      `yaml:"store"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// TrackConfig holds procedural track generation parameters.
type TrackConfig struct {
	Width         float64 `yaml:"width"`          // world width in units
	Height        float64 `yaml:"height"`         // world height in units
	Points        int     `yaml:"points"`         // ring resolution (= checkpoint count)
	CorridorWidth float64 `yaml:"corridor_width"` // distance between inner and outer boundary
	NoiseScale    float64 `yaml:"noise_scale"`    // radius modulation frequency
	NoiseAmp      float64 `yaml:"noise_amp"`      // radius modulation amplitude in units
	Obstacles     int     `yaml:"obstacles"`      // drifting obstacle count
	ObstacleSpeed float64 `yaml:"obstacle_speed"` // drift parameter step per tick
}

// AgentConfig holds per-agent physics and lifecycle parameters.
type AgentConfig struct {
	MaxSpeed      float64 `yaml:"max_speed"`      // velocity magnitude cap per tick
	MaxForce      float64 `yaml:"max_force"`      // steering force magnitude cap
	CaptureRadius float64 `yaml:"capture_radius"` // checkpoint capture distance
	Lifespan      int     `yaml:"lifespan"`       // ticks without progress before death
}

// SensorsConfig holds ray fan parameters.
type SensorsConfig struct {
	NumRays           int     `yaml:"num_rays"`           // control fan ray count
	Spread            float64 `yaml:"spread"`             // total angular spread in radians
	Range             float64 `yaml:"range"`              // maximum ray length
	LethalProximity   float64 `yaml:"lethal_proximity"`   // kill distance for any ray
	ObstacleTolerance float64 `yaml:"obstacle_tolerance"` // obstacle-on-ray line tolerance
	RenderRays        int     `yaml:"render_rays"`        // high-resolution render fan ray count
}

// NeuralConfig holds network layer sizes. The input size is derived
// from the sensor ray count.
type NeuralConfig struct {
	NumHidden  int `yaml:"num_hidden"`
	NumOutputs int `yaml:"num_outputs"`
}

// PopulationConfig holds genetic algorithm parameters.
type PopulationConfig struct {
	Size             int     `yaml:"size"`
	Elites           int     `yaml:"elites"`
	MutationRate     float64 `yaml:"mutation_rate"`
	FitnessThreshold int     `yaml:"fitness_threshold"` // raw checkpoint count forcing advance (0 = disabled)
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Path string `yaml:"path"` // sqlite database path ("" = persistence disabled)
}

// TelemetryConfig holds telemetry output settings.
type TelemetryConfig struct {
	OutputDir   string `yaml:"output_dir"`   // CSV output directory ("" = disabled)
	LogInterval int    `yaml:"log_interval"` // ticks between progress log lines (0 = quiet)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	NumInputs int // one observation per sensor ray
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

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.NumInputs = c.Sensors.NumRays
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
