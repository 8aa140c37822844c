package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Versifine/locorig/internal/logger"
	"github.com/Versifine/locorig/internal/physics"
	"github.com/Versifine/locorig/internal/tuning"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. LOCORIG_RIG_DAMPING.
const EnvPrefix = "LOCORIG_"

const (
	TelemetryNone   = "none"
	TelemetryUDP    = "udp"
	TelemetryFile   = "file"
	TelemetryReplay = "replay"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envPrefix:"LOG_"`
	Rig       tuning.Tunables `yaml:"rig" envPrefix:"RIG_"`
	Body      BodyConfig      `yaml:"body" envPrefix:"BODY_"`
	View      ViewConfig      `yaml:"view" envPrefix:"VIEW_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
	Sim       SimConfig       `yaml:"sim" envPrefix:"SIM_"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	File   string `yaml:"file" env:"FILE"`
}

type BodyConfig struct {
	Width      float64 `yaml:"width" env:"WIDTH"`
	Depth      float64 `yaml:"depth" env:"DEPTH"`
	Height     float64 `yaml:"height" env:"HEIGHT"`
	StepOffset float64 `yaml:"step_offset" env:"STEP_OFFSET"`
	EyeHeight  float64 `yaml:"eye_height" env:"EYE_HEIGHT"`
}

type ViewConfig struct {
	FollowsBody   bool `yaml:"follows_body" env:"FOLLOWS_BODY"`
	HoldoverTicks int  `yaml:"holdover_ticks" env:"HOLDOVER_TICKS"`
	// PitchOffset tilts the captured orientation offset, in degrees.
	PitchOffset float64 `yaml:"pitch_offset" env:"PITCH_OFFSET"`
}

type TelemetryConfig struct {
	Mode   string        `yaml:"mode" env:"MODE"`
	Addr   string        `yaml:"addr" env:"ADDR"`
	Dir    string        `yaml:"dir" env:"DIR"`
	Replay string        `yaml:"replay" env:"REPLAY"`
	MaxAge time.Duration `yaml:"max_age" env:"MAX_AGE"`
}

type SimConfig struct {
	TickRate int    `yaml:"tick_rate" env:"TICK_RATE"`
	Level    string `yaml:"level" env:"LEVEL"`
	Console  bool   `yaml:"console" env:"CONSOLE"`
	// StatusEvery is how many ticks pass between headless status lines; 0
	// disables them.
	StatusEvery int `yaml:"status_every" env:"STATUS_EVERY"`
}

func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Rig:     tuning.Default(),
		Body: BodyConfig{
			Width:      physics.DefaultBodyWidth,
			Depth:      physics.DefaultBodyDepth,
			Height:     physics.DefaultBodyHeight,
			StepOffset: physics.DefaultStepOffset,
			EyeHeight:  1.62,
		},
		Telemetry: TelemetryConfig{
			Mode:   TelemetryNone,
			Addr:   "127.0.0.1:47800",
			Dir:    "rig",
			MaxAge: 500 * time.Millisecond,
		},
		Sim: SimConfig{TickRate: 60, StatusEvery: 60},
	}
}

// Load reads defaults, then the YAML file at path (skipped when path is
// empty), then LOCORIG_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Rig.Validate(); err != nil {
		return fmt.Errorf("rig: %w", err)
	}
	if !logger.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "console", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Logging.Format)
	}
	if c.Body.Width <= 0 || c.Body.Depth <= 0 || c.Body.Height <= 0 {
		return fmt.Errorf("%w: body size must be positive", ErrInvalid)
	}
	if c.Body.StepOffset < 0 || c.Body.StepOffset >= c.Body.Height {
		return fmt.Errorf("%w: step_offset must be in [0, height)", ErrInvalid)
	}
	if c.View.HoldoverTicks < 0 {
		return fmt.Errorf("%w: holdover_ticks must be >= 0", ErrInvalid)
	}
	if c.Sim.TickRate <= 0 {
		return fmt.Errorf("%w: tick_rate must be > 0", ErrInvalid)
	}

	c.Telemetry.Mode = strings.ToLower(strings.TrimSpace(c.Telemetry.Mode))
	switch c.Telemetry.Mode {
	case "", TelemetryNone:
		c.Telemetry.Mode = TelemetryNone
	case TelemetryUDP:
		if c.Telemetry.Addr == "" {
			return fmt.Errorf("%w: telemetry.addr is required for udp", ErrInvalid)
		}
	case TelemetryFile:
		if c.Telemetry.Dir == "" {
			return fmt.Errorf("%w: telemetry.dir is required for file", ErrInvalid)
		}
	case TelemetryReplay:
		if c.Telemetry.Replay == "" {
			return fmt.Errorf("%w: telemetry.replay is required for replay", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown telemetry mode %q", ErrInvalid, c.Telemetry.Mode)
	}
	if c.Telemetry.MaxAge < 0 {
		return fmt.Errorf("%w: telemetry.max_age must be >= 0", ErrInvalid)
	}
	return nil
}

// TickInterval is the wall-clock duration of one simulation tick.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Sim.TickRate)
}

func (c *Config) MoverOptions() physics.MoverOptions {
	return physics.MoverOptions{
		Size:       physics.Size{Width: c.Body.Width, Depth: c.Body.Depth, Height: c.Body.Height},
		StepOffset: c.Body.StepOffset,
	}
}
