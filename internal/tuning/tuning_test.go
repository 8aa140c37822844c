package tuning

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultMatchesDocumentedValues(t *testing.T) {
	d := Default()
	want := map[string]float64{
		"acceleration":              0.1,
		"damping":                   0.15,
		"back_and_side_dampen":      0.5,
		"jump_force":                0.3,
		"rotation_amount":           1.5,
		"gravity_modifier":          0.379,
		"move_scale_multiplier":     1.0,
		"rotation_scale_multiplier": 1.0,
	}
	got := map[string]float64{
		"acceleration":              d.Acceleration,
		"damping":                   d.Damping,
		"back_and_side_dampen":      d.BackAndSideDampen,
		"jump_force":                d.JumpForce,
		"rotation_amount":           d.RotationAmount,
		"gravity_modifier":          d.GravityModifier,
		"move_scale_multiplier":     d.MoveScaleMultiplier,
		"rotation_scale_multiplier": d.RotationScaleMultiplier,
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("%s = %v, want %v", k, got[k], w)
		}
	}
	if !d.MouseRotation {
		t.Errorf("mouse_rotation = false, want true")
	}
	if d.HaltMovement {
		t.Errorf("halt_movement = true, want false")
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestStep(t *testing.T) {
	d := Default()
	tests := []struct {
		name string
		dt   float64
		want float64
	}{
		{"one tick at 60Hz", 1.0 / 60.0, 1.0},
		{"zero", 0, 0},
		{"negative", -0.5, 0},
		{"nan", math.NaN(), 0},
		{"inf", math.Inf(1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Step(tt.dt); math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("Step(%v) = %v, want %v", tt.dt, got, tt.want)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tunables)
	}{
		{"negative damping", func(t *Tunables) { t.Damping = -0.1 }},
		{"nan acceleration", func(t *Tunables) { t.Acceleration = math.NaN() }},
		{"zero simulation rate", func(t *Tunables) { t.SimulationRate = 0 }},
		{"dampen above one", func(t *Tunables) { t.BackAndSideDampen = 1.5 }},
		{"smoothing of one", func(t *Tunables) { t.MouseSmoothing = 1 }},
		{"upward gravity", func(t *Tunables) { t.Gravity = 9.81 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tun := Default()
			tt.mutate(&tun)
			err := tun.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestValidateAcceptsZeroDamping(t *testing.T) {
	tun := Default()
	tun.Damping = 0
	if err := tun.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}
