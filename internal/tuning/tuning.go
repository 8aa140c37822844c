package tuning

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultAcceleration            = 0.1
	DefaultDamping                 = 0.15
	DefaultBackAndSideDampen       = 0.5
	DefaultJumpForce               = 0.3
	DefaultRotationAmount          = 1.5
	DefaultGravityModifier         = 0.379
	DefaultMoveScaleMultiplier     = 1.0
	DefaultRotationScaleMultiplier = 1.0

	DefaultSimulationRate         = 60.0
	DefaultGravity                = -9.81
	DefaultTelemetrySpeedScale    = 1.0
	DefaultTelemetryRotationScale = 1.0
)

var ErrInvalid = errors.New("invalid tunables")

// Tunables is the full set of rig knobs. The zero value is not usable; start
// from Default.
type Tunables struct {
	Acceleration            float64 `yaml:"acceleration" env:"ACCELERATION"`
	Damping                 float64 `yaml:"damping" env:"DAMPING"`
	BackAndSideDampen       float64 `yaml:"back_and_side_dampen" env:"BACK_AND_SIDE_DAMPEN"`
	JumpForce               float64 `yaml:"jump_force" env:"JUMP_FORCE"`
	RotationAmount          float64 `yaml:"rotation_amount" env:"ROTATION_AMOUNT"`
	GravityModifier         float64 `yaml:"gravity_modifier" env:"GRAVITY_MODIFIER"`
	MoveScaleMultiplier     float64 `yaml:"move_scale_multiplier" env:"MOVE_SCALE_MULTIPLIER"`
	RotationScaleMultiplier float64 `yaml:"rotation_scale_multiplier" env:"ROTATION_SCALE_MULTIPLIER"`
	MouseRotation           bool    `yaml:"mouse_rotation" env:"MOUSE_ROTATION"`
	HaltMovement            bool    `yaml:"halt_movement" env:"HALT_MOVEMENT"`

	// SimulationRate scales dt so that one tick at this rate is a unit step.
	SimulationRate float64 `yaml:"simulation_rate" env:"SIMULATION_RATE"`
	Gravity        float64 `yaml:"gravity" env:"GRAVITY"`
	// MouseSmoothing weights the previous filtered mouse delta, in [0,1).
	MouseSmoothing         float64 `yaml:"mouse_smoothing" env:"MOUSE_SMOOTHING"`
	TelemetrySpeedScale    float64 `yaml:"telemetry_speed_scale" env:"TELEMETRY_SPEED_SCALE"`
	TelemetryRotationScale float64 `yaml:"telemetry_rotation_scale" env:"TELEMETRY_ROTATION_SCALE"`
}

func Default() Tunables {
	return Tunables{
		Acceleration:            DefaultAcceleration,
		Damping:                 DefaultDamping,
		BackAndSideDampen:       DefaultBackAndSideDampen,
		JumpForce:               DefaultJumpForce,
		RotationAmount:          DefaultRotationAmount,
		GravityModifier:         DefaultGravityModifier,
		MoveScaleMultiplier:     DefaultMoveScaleMultiplier,
		RotationScaleMultiplier: DefaultRotationScaleMultiplier,
		MouseRotation:           true,
		HaltMovement:            false,
		SimulationRate:          DefaultSimulationRate,
		Gravity:                 DefaultGravity,
		MouseSmoothing:          0,
		TelemetrySpeedScale:     DefaultTelemetrySpeedScale,
		TelemetryRotationScale:  DefaultTelemetryRotationScale,
	}
}

// Step converts a frame delta in seconds into simulation steps. Negative and
// non-finite deltas collapse to zero.
func (t Tunables) Step(dt float64) float64 {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return 0
	}
	return t.SimulationRate * dt
}

func (t Tunables) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"acceleration", t.Acceleration},
		{"damping", t.Damping},
		{"back_and_side_dampen", t.BackAndSideDampen},
		{"jump_force", t.JumpForce},
		{"rotation_amount", t.RotationAmount},
		{"gravity_modifier", t.GravityModifier},
		{"move_scale_multiplier", t.MoveScaleMultiplier},
		{"rotation_scale_multiplier", t.RotationScaleMultiplier},
		{"simulation_rate", t.SimulationRate},
		{"telemetry_speed_scale", t.TelemetrySpeedScale},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalid, c.name)
		}
		if c.v < 0 {
			return fmt.Errorf("%w: %s must be >= 0, got %v", ErrInvalid, c.name, c.v)
		}
	}
	if t.SimulationRate == 0 {
		return fmt.Errorf("%w: simulation_rate must be > 0", ErrInvalid)
	}
	if t.BackAndSideDampen > 1 {
		return fmt.Errorf("%w: back_and_side_dampen must be <= 1, got %v", ErrInvalid, t.BackAndSideDampen)
	}
	if t.MouseSmoothing < 0 || t.MouseSmoothing >= 1 {
		return fmt.Errorf("%w: mouse_smoothing must be in [0,1), got %v", ErrInvalid, t.MouseSmoothing)
	}
	if math.IsNaN(t.Gravity) || math.IsInf(t.Gravity, 0) || t.Gravity > 0 {
		return fmt.Errorf("%w: gravity must be finite and <= 0, got %v", ErrInvalid, t.Gravity)
	}
	if math.IsNaN(t.TelemetryRotationScale) || math.IsInf(t.TelemetryRotationScale, 0) {
		return fmt.Errorf("%w: telemetry_rotation_scale is not finite", ErrInvalid)
	}
	return nil
}
