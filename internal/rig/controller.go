// Package rig wires input, telemetry, the throttle integrator, the ground
// corrector and the rotation slaver into one per-tick controller.
package rig

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/Versifine/locorig/internal/event"
	"github.com/Versifine/locorig/internal/input"
	"github.com/Versifine/locorig/internal/locomotion"
	"github.com/Versifine/locorig/internal/rotation"
	"github.com/Versifine/locorig/internal/telemetry"
	"github.com/Versifine/locorig/internal/tuning"
	"github.com/go-gl/mathgl/mgl64"
)

// maxExternalSpeed caps a telemetry speed sample, like a fully pushed stick.
const maxExternalSpeed = 1.0

var (
	ErrMissingMover        = errors.New("rig: move primitive is required")
	ErrMissingBody         = errors.New("rig: body transform is required")
	ErrNegativeStep        = errors.New("rig: negative time step")
	ErrTeleportUnsupported = errors.New("rig: mover cannot teleport")
)

// Body receives the facing rotation each tick.
type Body interface {
	SetRotation(q mgl64.Quat)
}

// Camera receives the orientation offset once and the view yaw each tick.
type Camera interface {
	SetOrientationOffset(q mgl64.Quat)
	SetYaw(deg float64)
}

type Teleporter interface {
	Teleport(pos mgl64.Vec3)
}

type Options struct {
	Mover     locomotion.Mover
	Body      Body
	Camera    Camera
	Input     input.Source
	Telemetry telemetry.Channel
	Bus       *event.Bus

	// Tunables defaults to tuning.Default when left zero.
	Tunables          tuning.Tunables
	OrientationOffset mgl64.Quat
	// InitialYaw seeds the local yaw accumulator, in degrees.
	InitialYaw float64
	// Rotation.Scale is taken from Tunables.TelemetryRotationScale.
	Rotation rotation.Options
}

type Snapshot struct {
	Tick       uint64
	Position   mgl64.Vec3
	Velocity   mgl64.Vec3
	FallSpeed  float64
	Grounded   bool
	BodyYaw    float64
	ViewYaw    float64
	Drive      rotation.Drive
	Correction mgl64.Vec3
	Telemetry  telemetry.Sample
	Jumped     bool
}

// Controller owns the throttle and rotation state for one rig. Tick, Jump,
// SetTunables and Teleport are serialized by an internal mutex so tooling
// goroutines can poke the rig between ticks.
type Controller struct {
	mu sync.Mutex

	mover  locomotion.Mover
	body   Body
	camera Camera
	bus    *event.Bus

	tun       tuning.Tunables
	rotOpts   rotation.Options
	input     *input.Aggregator
	poller    *telemetry.Poller
	throttle  *locomotion.Throttle
	corrector *locomotion.Corrector
	slaver    *rotation.Slaver

	grounded bool
	airTicks int
	tick     uint64
	last     Snapshot
}

func New(opts Options) (*Controller, error) {
	if opts.Mover == nil {
		return nil, ErrMissingMover
	}
	if opts.Body == nil {
		return nil, ErrMissingBody
	}

	tun := opts.Tunables
	if tun == (tuning.Tunables{}) {
		tun = tuning.Default()
	}
	if err := tun.Validate(); err != nil {
		return nil, fmt.Errorf("rig tunables: %w", err)
	}

	offset := opts.OrientationOffset
	if offset == (mgl64.Quat{}) {
		offset = mgl64.QuatIdent()
	}

	throttle := locomotion.NewThrottle(tun)
	corrector, err := locomotion.NewCorrector(opts.Mover, throttle)
	if err != nil {
		return nil, err
	}

	rotOpts := opts.Rotation
	rotOpts.Scale = tun.TelemetryRotationScale

	c := &Controller{
		mover:     opts.Mover,
		body:      opts.Body,
		camera:    opts.Camera,
		bus:       opts.Bus,
		tun:       tun,
		rotOpts:   rotOpts,
		input:     input.NewAggregator(opts.Input, tun),
		poller:    telemetry.NewPoller(opts.Telemetry),
		throttle:  throttle,
		corrector: corrector,
		slaver:    rotation.New(offset, rotOpts),
	}

	ground := opts.Mover.Ground()
	c.grounded = ground.Grounded
	c.slaver.SetLocalYaw(opts.InitialYaw)
	c.body.SetRotation(c.slaver.Facing())
	if c.camera != nil {
		c.camera.SetOrientationOffset(c.slaver.State().Offset)
		c.camera.SetYaw(opts.InitialYaw)
	}
	c.last = Snapshot{
		Position: opts.Mover.Position(),
		Grounded: ground.Grounded,
		BodyYaw:  opts.InitialYaw,
		ViewYaw:  opts.InitialYaw,
		Drive:    rotation.DriveLocal,
	}

	slog.Debug("Rig controller created", "pos", c.last.Position, "grounded", c.grounded)
	return c, nil
}

// Tick advances the rig by dt seconds.
func (c *Controller) Tick(dt float64) (Snapshot, error) {
	if dt < 0 || math.IsNaN(dt) {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrNegativeStep, dt)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	frame := c.input.Poll(dt)
	sample := c.poller.Poll()
	ground := c.mover.Ground()

	jumped := false
	if frame.Jump {
		jumped = c.jumpLocked(ground.Grounded)
	}

	intent := frame.Intent
	if sample.HasSpeed && !c.tun.HaltMovement {
		intent.External = clampExternal(sample.Speed)
	}

	// Facing comes from the previous tick's body yaw.
	predicted := c.throttle.Integrate(intent, c.slaver.Facing(), ground.Grounded, dt)
	res := c.corrector.Resolve(predicted, ground, dt)

	out := c.slaver.Update(frame.RotationDelta, rotation.Override{
		Yaw:   sample.Rotation,
		Valid: sample.HasRotation,
	})
	c.body.SetRotation(out.Body)
	if c.camera != nil {
		c.camera.SetOrientationOffset(out.Offset)
		c.camera.SetYaw(out.ViewYaw)
	}

	state := c.throttle.State()
	pos := c.mover.Position()
	c.publishTransitions(res, out, state, pos)

	c.last = Snapshot{
		Tick:       c.tick,
		Position:   pos,
		Velocity:   state.Velocity,
		FallSpeed:  state.FallSpeed,
		Grounded:   res.Grounded,
		BodyYaw:    out.BodyYaw,
		ViewYaw:    out.ViewYaw,
		Drive:      out.Drive,
		Correction: res.Correction,
		Telemetry:  sample,
		Jumped:     jumped,
	}
	return c.last, nil
}

func (c *Controller) publishTransitions(res locomotion.Resolution, out rotation.Output, state locomotion.ThrottleState, pos mgl64.Vec3) {
	switch {
	case res.Grounded && !c.grounded:
		c.publish(event.EventLanded, &event.LandedEvent{Position: pos, FallSpeed: state.FallSpeed, AirTicks: c.airTicks})
		c.airTicks = 0
	case !res.Grounded && c.grounded:
		c.publish(event.EventAirborne, &event.AirborneEvent{Position: pos, Velocity: state.Velocity})
		c.airTicks = 1
	case !res.Grounded:
		c.airTicks++
	}
	c.grounded = res.Grounded

	if res.Blocked() {
		c.publish(event.EventBlocked, &event.BlockedEvent{
			Position:   pos,
			Requested:  res.Requested,
			Achieved:   res.Achieved,
			Correction: res.Correction,
		})
	}
	if out.Changed {
		from := rotation.DriveLocal
		if out.Drive == rotation.DriveLocal {
			from = rotation.DriveOverride
		}
		c.publish(event.EventDriveChange, &event.DriveChangeEvent{From: from, To: out.Drive, Yaw: out.BodyYaw})
	}
}

// clampExternal bounds a telemetry speed sample to the analog axis range.
func clampExternal(v float64) float64 {
	return math.Max(-maxExternalSpeed, math.Min(maxExternalSpeed, v))
}

// Jump applies the jump impulse now if the rig is grounded. An airborne
// request returns false and changes nothing.
func (c *Controller) Jump() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jumpLocked(c.mover.Ground().Grounded)
}

func (c *Controller) jumpLocked(grounded bool) bool {
	if c.tun.HaltMovement {
		return false
	}
	applied := c.throttle.Jump(grounded)
	c.publish(event.EventJump, &event.JumpEvent{Position: c.mover.Position(), Applied: applied})
	return applied
}

// SetTunables validates and applies new tunables from the next tick on.
func (c *Controller) SetTunables(t tuning.Tunables) error {
	if err := t.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tun = t
	c.throttle.SetTunables(t)
	c.input.SetTunables(t)
	c.rotOpts.Scale = t.TelemetryRotationScale
	c.slaver.SetOptions(c.rotOpts)
	c.publish(event.EventTunables, &event.TunablesEvent{Tunables: t})
	return nil
}

func (c *Controller) SetRotationOptions(opts rotation.Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	opts.Scale = c.tun.TelemetryRotationScale
	c.rotOpts = opts
	c.slaver.SetOptions(opts)
}

func (c *Controller) Tunables() tuning.Tunables {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tun
}

// Teleport moves the body without sweeping and drops all carried velocity.
func (c *Controller) Teleport(pos mgl64.Vec3) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tp, ok := c.mover.(Teleporter)
	if !ok {
		return ErrTeleportUnsupported
	}
	from := c.mover.Position()
	tp.Teleport(pos)
	c.throttle.Reset()
	c.grounded = c.mover.Ground().Grounded
	c.airTicks = 0

	c.last.Position = c.mover.Position()
	c.last.Velocity = mgl64.Vec3{}
	c.last.FallSpeed = 0
	c.last.Grounded = c.grounded
	c.publish(event.EventTeleport, &event.TeleportEvent{From: from, To: c.last.Position})
	return nil
}

// Snapshot returns the state after the most recent tick.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Controller) RotationState() rotation.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slaver.State()
}

func (c *Controller) publish(name string, evt any) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(name, evt)
}
