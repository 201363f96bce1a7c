package config

import (
	"fmt"
	"os"

	"github.com/jinzhu/copier"
	"gopkg.in/yaml.v2"
)

// Config represents the full simulation configuration
type Config struct {
	Physics     PhysicsConfig     `yaml:"physics"`
	Snap        SnapConfig        `yaml:"snap"`
	Grid        GridConfig        `yaml:"grid"`
	Performance PerformanceConfig `yaml:"performance"`
}

// PhysicsConfig contains integration and collision tuning
type PhysicsConfig struct {
	Gravity         [3]float64 `yaml:"gravity"`
	LinearDamping   float64    `yaml:"linear_damping"`
	AngularDamping  float64    `yaml:"angular_damping"`
	SleepThreshold  float64    `yaml:"sleep_threshold"`  // m/s below which a body may sleep
	SleepTime       float64    `yaml:"sleep_time"`       // seconds below threshold before sleeping
	MaxVelocity     float64    `yaml:"max_velocity"`     // hard speed cap, m/s
	CollisionMargin float64    `yaml:"collision_margin"` // extra contact skin, m
}

// SnapConfig contains surface-alignment tuning
type SnapConfig struct {
	Distance       float64 `yaml:"distance"`  // candidate search radius, m
	Duration       float64 `yaml:"duration"`  // interpolation time, s
	MaxSpeed       float64 `yaml:"max_speed"` // auto-snap only below this speed
	SpringStrength float64 `yaml:"spring_strength"`
}

// GridConfig contains spatial hash tuning
type GridConfig struct {
	CellSize float64 `yaml:"cell_size"` // world units per cell
}

// PerformanceConfig contains the frame budget and quality tier
type PerformanceConfig struct {
	FrameBudget        float64   `yaml:"frame_budget"` // seconds per step
	Quality            string    `yaml:"quality"`      // low, medium, high, ultra
	ShadowsEnabled     bool      `yaml:"shadows_enabled"`
	OcclusionEnabled   bool      `yaml:"occlusion_enabled"`
	PreciseCollision   bool      `yaml:"precise_collision"`
	LODDistances       []float64 `yaml:"lod_distances"` // ascending bucket thresholds, m
	LODHysteresis      float64   `yaml:"lod_hysteresis"`
	CullDistance       float64   `yaml:"cull_distance"`
	EscalationBreaches int       `yaml:"escalation_breaches"` // over-budget frames before emergency mode
}

// QualityTier identifies a discrete quality preset
type QualityTier string

const (
	QualityLow    QualityTier = "low"
	QualityMedium QualityTier = "medium"
	QualityHigh   QualityTier = "high"
	QualityUltra  QualityTier = "ultra"
)

// DefaultConfig creates the default configuration: earth gravity, a cell
// size suited to furniture-scale objects, and the high quality tier.
func DefaultConfig() *Config {
	return &Config{
		Physics: PhysicsConfig{
			Gravity:         [3]float64{0, -9.8, 0},
			LinearDamping:   0.98,
			AngularDamping:  0.95,
			SleepThreshold:  0.05,
			SleepTime:       1.0,
			MaxVelocity:     10.0,
			CollisionMargin: 0.001,
		},
		Snap: SnapConfig{
			Distance:       0.15,
			Duration:       0.3,
			MaxSpeed:       1.0,
			SpringStrength: 8.0,
		},
		Grid: GridConfig{
			CellSize: 1.0,
		},
		Performance: PerformanceConfig{
			FrameBudget:        1.0 / 60.0,
			Quality:            string(QualityHigh),
			ShadowsEnabled:     true,
			OcclusionEnabled:   true,
			PreciseCollision:   true,
			LODDistances:       []float64{2.0, 5.0, 10.0},
			LODHysteresis:      0.5,
			CullDistance:       20.0,
			EscalationBreaches: 10,
		},
	}
}

// tierPresets hold only the fields a tier overrides; they are overlaid onto
// a Config with copier's IgnoreEmpty so unrelated settings survive.
var tierPresets = map[QualityTier]PerformanceConfig{
	QualityLow: {
		Quality:      string(QualityLow),
		LODDistances: []float64{1.0, 2.5, 5.0},
		CullDistance: 10.0,
	},
	QualityMedium: {
		Quality:        string(QualityMedium),
		ShadowsEnabled: true,
		LODDistances:   []float64{1.5, 4.0, 8.0},
		CullDistance:   15.0,
	},
	QualityHigh: {
		Quality:          string(QualityHigh),
		ShadowsEnabled:   true,
		OcclusionEnabled: true,
		PreciseCollision: true,
		LODDistances:     []float64{2.0, 5.0, 10.0},
		CullDistance:     20.0,
	},
	QualityUltra: {
		Quality:          string(QualityUltra),
		ShadowsEnabled:   true,
		OcclusionEnabled: true,
		PreciseCollision: true,
		LODDistances:     []float64{4.0, 10.0, 20.0},
		CullDistance:     40.0,
	},
}

// ApplyTier overlays a quality preset onto the configuration. Fields the
// preset leaves zero keep their current values. Unknown tiers are no-ops.
func (c *Config) ApplyTier(tier QualityTier) error {
	preset, ok := tierPresets[tier]
	if !ok {
		return fmt.Errorf("config: unknown quality tier %q", tier)
	}

	// Boolean toggles are explicit per tier; copier's IgnoreEmpty would
	// keep stale true values when a tier turns a feature off.
	c.Performance.ShadowsEnabled = preset.ShadowsEnabled
	c.Performance.OcclusionEnabled = preset.OcclusionEnabled
	c.Performance.PreciseCollision = preset.PreciseCollision

	return copier.CopyWithOption(&c.Performance, &preset, copier.Option{IgnoreEmpty: true})
}

// Load reads a YAML configuration file, starting from defaults so a partial
// file is valid.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}

	return nil
}

// Validate checks ranges that the simulation depends on
func (c *Config) Validate() error {
	if c.Grid.CellSize <= 0 {
		return fmt.Errorf("config: grid cell_size must be positive, got %v", c.Grid.CellSize)
	}
	if c.Physics.MaxVelocity <= 0 {
		return fmt.Errorf("config: max_velocity must be positive, got %v", c.Physics.MaxVelocity)
	}
	if c.Physics.SleepThreshold < 0 {
		return fmt.Errorf("config: sleep_threshold must not be negative, got %v", c.Physics.SleepThreshold)
	}
	if c.Snap.Distance <= 0 {
		return fmt.Errorf("config: snap distance must be positive, got %v", c.Snap.Distance)
	}
	if c.Snap.Duration <= 0 {
		return fmt.Errorf("config: snap duration must be positive, got %v", c.Snap.Duration)
	}
	if c.Performance.FrameBudget <= 0 {
		return fmt.Errorf("config: frame_budget must be positive, got %v", c.Performance.FrameBudget)
	}
	return nil
}
