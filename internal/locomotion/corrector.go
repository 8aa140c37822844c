package locomotion

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// risingThreshold is the vertical throttle above which the rig counts as
// jumping and the ground snap is skipped.
const risingThreshold = 0.001

var (
	ErrNoMover    = errors.New("locomotion: move primitive is nil")
	ErrNoThrottle = errors.New("locomotion: throttle is nil")
)

type Resolution struct {
	// Requested is the displacement handed to the mover after ground snap.
	Requested mgl64.Vec3
	// Achieved is the displacement the mover actually produced.
	Achieved mgl64.Vec3
	// Correction is the lateral velocity fed back into the throttle.
	Correction mgl64.Vec3
	Grounded   bool
	StepOffset float64
}

// Blocked reports whether the mover fell short of the lateral prediction.
func (r Resolution) Blocked() bool {
	return r.Correction.X() != 0 || r.Correction.Z() != 0
}

type Corrector struct {
	mover    Mover
	throttle *Throttle
}

func NewCorrector(mover Mover, throttle *Throttle) (*Corrector, error) {
	if mover == nil {
		return nil, ErrNoMover
	}
	if throttle == nil {
		return nil, ErrNoThrottle
	}
	return &Corrector{mover: mover, throttle: throttle}, nil
}

// Resolve snaps the predicted displacement to the ground, moves, and feeds
// the lateral shortfall back into the throttle for the next tick.
func (c *Corrector) Resolve(predicted mgl64.Vec3, ground GroundContext, dt float64) Resolution {
	d := predicted
	if ground.Grounded && c.throttle.state.Velocity.Y() <= risingThreshold {
		bump := math.Max(ground.StepOffset, lateral(d).Len())
		d[1] -= bump
	}

	start := c.mover.Position()
	predictedXZ := lateral(start.Add(d))

	res := c.mover.Move(d)
	actualXZ := lateral(res.Position)

	out := Resolution{
		Requested:  d,
		Achieved:   res.Position.Sub(start),
		Grounded:   res.Grounded,
		StepOffset: res.StepOffset,
	}

	step := c.throttle.tun.Step(dt)
	if step > 0 && actualXZ != predictedXZ {
		out.Correction = actualXZ.Sub(predictedXZ).Mul(1 / step)
		c.throttle.applyCorrection(out.Correction)
	}
	return out
}
