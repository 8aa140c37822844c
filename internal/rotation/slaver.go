// Package rotation slaves the body and view orientation to a yaw value driven
// either by local input deltas or by an absolute external override.
package rotation

import (
	"github.com/go-gl/mathgl/mgl64"
)

type Drive int

const (
	DriveLocal Drive = iota
	DriveOverride
)

func (d Drive) String() string {
	switch d {
	case DriveLocal:
		return "local"
	case DriveOverride:
		return "override"
	default:
		return "unknown"
	}
}

// Override is an absolute yaw in degrees for one tick.
type Override struct {
	Yaw   float64
	Valid bool
}

type Options struct {
	// Scale multiplies the override yaw before it is applied.
	Scale float64
	// HoldoverTicks keeps the last override active for this many consecutive
	// invalid ticks before falling back to local drive. Zero disables it.
	HoldoverTicks int
	// ViewFollowsBody makes the view yaw equal the body yaw instead of the sum
	// of local and override yaw.
	ViewFollowsBody bool
}

type State struct {
	LocalYaw    float64
	OverrideYaw float64
	Offset      mgl64.Quat
	Drive       Drive
}

type Output struct {
	Drive   Drive
	Changed bool
	BodyYaw float64
	ViewYaw float64
	Body    mgl64.Quat
	View    mgl64.Quat
	Offset  mgl64.Quat
}

type Slaver struct {
	opts  Options
	state State

	lastOverride float64
	holdLeft     int
}

// New captures offset as the fixed orientation bias for the slaver's lifetime.
func New(offset mgl64.Quat, opts Options) *Slaver {
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	if opts.HoldoverTicks < 0 {
		opts.HoldoverTicks = 0
	}
	return &Slaver{
		opts:  opts,
		state: State{Offset: offset.Normalize(), Drive: DriveLocal},
	}
}

func (s *Slaver) State() State {
	return s.state
}

func (s *Slaver) SetOptions(opts Options) {
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	if opts.HoldoverTicks < 0 {
		opts.HoldoverTicks = 0
	}
	s.opts = opts
	if s.holdLeft > opts.HoldoverTicks {
		s.holdLeft = opts.HoldoverTicks
	}
}

// SetLocalYaw replaces the local accumulator, e.g. to face a spawn heading.
func (s *Slaver) SetLocalYaw(deg float64) {
	s.state.LocalYaw = deg
}

// Update runs one tick. A valid override replaces the yaw for this tick and
// leaves the local accumulator alone; otherwise delta is accumulated.
func (s *Slaver) Update(delta float64, override Override) Output {
	prev := s.state.Drive

	switch {
	case override.Valid:
		s.lastOverride = override.Yaw * s.opts.Scale
		s.holdLeft = s.opts.HoldoverTicks
		s.state.Drive = DriveOverride
		s.state.OverrideYaw = s.lastOverride
	case prev == DriveOverride && s.holdLeft > 0:
		s.holdLeft--
		s.state.OverrideYaw = s.lastOverride
	default:
		s.state.Drive = DriveLocal
		s.state.OverrideYaw = 0
		s.state.LocalYaw += delta
	}

	body := s.BodyYaw()
	view := s.state.LocalYaw + s.state.OverrideYaw
	if s.opts.ViewFollowsBody {
		view = body
	}

	return Output{
		Drive:   s.state.Drive,
		Changed: prev != s.state.Drive,
		BodyYaw: body,
		ViewYaw: view,
		Body:    YawQuat(body),
		View:    s.state.Offset.Mul(YawQuat(view)),
		Offset:  s.state.Offset,
	}
}

// BodyYaw is the absolute yaw currently driving the body.
func (s *Slaver) BodyYaw() float64 {
	if s.state.Drive == DriveOverride {
		return s.state.OverrideYaw
	}
	return s.state.LocalYaw
}

// Facing is the body rotation for the current yaw.
func (s *Slaver) Facing() mgl64.Quat {
	return YawQuat(s.BodyYaw())
}

// YawQuat is a rotation of deg degrees about +Y.
func YawQuat(deg float64) mgl64.Quat {
	return mgl64.QuatRotate(mgl64.DegToRad(deg), mgl64.Vec3{0, 1, 0})
}
