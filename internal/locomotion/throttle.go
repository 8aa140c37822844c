package locomotion

import (
	"github.com/Versifine/locorig/internal/tuning"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// accelerationScale converts the Acceleration tunable into per-step throttle.
	accelerationScale = 0.1
	// gravityScale converts Gravity*GravityModifier into per-step fall speed.
	gravityScale = 0.002

	runMultiplier = 2.0
)

// Throttle integrates movement intent into a damped velocity. It is not safe
// for concurrent use; ticks must be serialized by the caller.
type Throttle struct {
	tun   tuning.Tunables
	state ThrottleState
}

func NewThrottle(tun tuning.Tunables) *Throttle {
	return &Throttle{tun: tun}
}

func (t *Throttle) SetTunables(tun tuning.Tunables) {
	t.tun = tun
}

func (t *Throttle) Tunables() tuning.Tunables {
	return t.tun
}

func (t *Throttle) State() ThrottleState {
	return t.state
}

// Reset drops all carried velocity, e.g. after a teleport.
func (t *Throttle) Reset() {
	t.state = ThrottleState{}
}

// Jump adds the jump impulse when grounded. It reports whether the impulse
// was applied; an airborne request leaves the state untouched.
func (t *Throttle) Jump(grounded bool) bool {
	if !grounded {
		return false
	}
	t.state.Velocity[1] += t.tun.JumpForce
	return true
}

// Integrate advances the throttle by one tick and returns the predicted
// displacement before ground-snap correction.
func (t *Throttle) Integrate(intent MoveIntent, facing mgl64.Quat, grounded bool, dt float64) mgl64.Vec3 {
	step := t.tun.Step(dt)
	v := t.state.Velocity

	motorDamp := 1.0 + t.tun.Damping*step
	if motorDamp > 0 {
		v[0] /= motorDamp
		v[2] /= motorDamp
		// Vertical throttle eases out on the way up only.
		if v[1] > 0 {
			v[1] /= motorDamp
		}
	}

	v = v.Add(t.inputAcceleration(intent, facing, grounded, step))

	g := t.tun.Gravity * t.tun.GravityModifier * gravityScale
	if grounded && t.state.FallSpeed <= 0 {
		t.state.FallSpeed = g
	} else {
		t.state.FallSpeed += g * step
	}

	t.state.Velocity = v

	displacement := v.Mul(step)
	displacement[1] += t.state.FallSpeed * step
	return displacement
}

func (t *Throttle) inputAcceleration(intent MoveIntent, facing mgl64.Quat, grounded bool, step float64) mgl64.Vec3 {
	var acc mgl64.Vec3
	if !grounded || step == 0 {
		return acc
	}

	influence := t.tun.Acceleration * accelerationScale * t.tun.MoveScaleMultiplier * step
	if intent.Run {
		influence *= runMultiplier
	}
	digital := influence * intent.DiagonalScale()
	dampen := t.tun.BackAndSideDampen

	add := func(axis mgl64.Vec3, amount float64) {
		if amount == 0 {
			return
		}
		dir := lateral(facing.Rotate(axis))
		if l := dir.Len(); l > 0 {
			dir = dir.Mul(1 / l)
		}
		acc = acc.Add(dir.Mul(amount))
	}

	if intent.Forward {
		add(axisForward, digital)
	}
	if intent.Back {
		add(axisBack, digital*dampen)
	}
	if intent.Left {
		add(axisLeft, digital*dampen)
	}
	if intent.Right {
		add(axisRight, digital*dampen)
	}

	ax := clampUnit(intent.Analog.X())
	ay := clampUnit(intent.Analog.Y())
	switch {
	case ay > 0:
		add(axisForward, ay*influence)
	case ay < 0:
		add(axisBack, -ay*influence*dampen)
	}
	switch {
	case ax > 0:
		add(axisRight, ax*influence*dampen)
	case ax < 0:
		add(axisLeft, -ax*influence*dampen)
	}

	if intent.External != 0 {
		add(axisForward, intent.External*t.tun.TelemetrySpeedScale*influence)
	}
	return acc
}

// applyCorrection folds collision feedback into the lateral throttle.
func (t *Throttle) applyCorrection(c mgl64.Vec3) {
	t.state.Velocity[0] += c.X()
	t.state.Velocity[2] += c.Z()
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
