package locomotion

import (
	"github.com/go-gl/mathgl/mgl64"
)

// DiagonalScale is applied to digital input when a forward/back key and a
// strafe key are held together.
const DiagonalScale = 0.70710678

// MoveIntent is one tick of movement intent. Analog X is strafe (+right) and
// Analog Y is forward (+forward). External carries the telemetry speed delta.
type MoveIntent struct {
	Forward bool
	Back    bool
	Left    bool
	Right   bool
	Run     bool

	Analog   mgl64.Vec2
	External float64
}

func (i MoveIntent) DiagonalScale() float64 {
	if (i.Forward || i.Back) && (i.Left || i.Right) {
		return DiagonalScale
	}
	return 1.0
}

func (i MoveIntent) IsZero() bool {
	return !i.Forward && !i.Back && !i.Left && !i.Right &&
		i.Analog.X() == 0 && i.Analog.Y() == 0 && i.External == 0
}

type ThrottleState struct {
	Velocity  mgl64.Vec3
	FallSpeed float64
}

type GroundContext struct {
	Grounded   bool
	StepOffset float64
}

type MoveResult struct {
	Position   mgl64.Vec3
	Grounded   bool
	StepOffset float64
}

// Mover is a collision-aware sweep-and-resolve primitive.
type Mover interface {
	Position() mgl64.Vec3
	Ground() GroundContext
	Move(displacement mgl64.Vec3) MoveResult
}

var (
	axisForward = mgl64.Vec3{0, 0, 1}
	axisBack    = mgl64.Vec3{0, 0, -1}
	axisRight   = mgl64.Vec3{1, 0, 0}
	axisLeft    = mgl64.Vec3{-1, 0, 0}
)

func lateral(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), 0, v.Z()}
}
