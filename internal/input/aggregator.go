package input

import (
	"math"

	"github.com/Versifine/locorig/internal/locomotion"
	"github.com/Versifine/locorig/internal/tuning"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	keyTurnScale   = 0.5
	mouseTurnScale = 3.25
)

// Frame is the per-tick output of the aggregator.
type Frame struct {
	Intent        locomotion.MoveIntent
	RotationDelta float64
	Jump          bool
}

// Aggregator turns a device snapshot into movement intent and a yaw delta.
// The mouse smoothing history is per instance.
type Aggregator struct {
	src          Source
	tun          tuning.Tunables
	mouseHistory float64
}

func NewAggregator(src Source, tun tuning.Tunables) *Aggregator {
	if src == nil {
		src = Idle{}
	}
	return &Aggregator{src: src, tun: tun}
}

func (a *Aggregator) SetTunables(tun tuning.Tunables) {
	a.tun = tun
}

func (a *Aggregator) Poll(dt float64) Frame {
	raw := a.src.Read()
	if a.tun.HaltMovement {
		return Frame{}
	}

	intent := locomotion.MoveIntent{
		Forward: raw.Forward,
		Back:    raw.Back,
		Left:    raw.Left,
		Right:   raw.Right,
		Run:     raw.Run,
		Analog:  clampStick(raw.LeftStick),
	}

	influence := a.tun.Step(dt) * a.tun.RotationAmount * a.tun.RotationScaleMultiplier
	delta := 0.0
	if raw.TurnLeft {
		delta -= keyTurnScale * influence
	}
	if raw.TurnRight {
		delta += keyTurnScale * influence
	}
	delta += clampUnit(raw.RightStick.X()) * influence

	if a.tun.MouseRotation && finite(raw.MouseDX) {
		rawMouse := raw.MouseDX * influence * mouseTurnScale
		s := a.tun.MouseSmoothing
		filtered := a.mouseHistory*s + rawMouse*(1-s)
		a.mouseHistory = filtered
		delta += filtered
	} else {
		a.mouseHistory = 0
	}

	return Frame{Intent: intent, RotationDelta: delta, Jump: raw.Jump}
}

// Stick builds an analog vector from separate strafe and forward axes.
func Stick(strafe, forward float64) mgl64.Vec2 {
	return clampStick(mgl64.Vec2{strafe, forward})
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
