package physics

import (
	"errors"
	"math"

	"github.com/Versifine/locorig/internal/locomotion"
	"github.com/go-gl/mathgl/mgl64"
)

var ErrNoBlockStore = errors.New("physics: block store is nil")

type MoverOptions struct {
	Size       Size
	StepOffset float64
	Props      []Prop
}

// VoxelMover is a character collider over a BlockStore. It sweeps the body
// box axis by axis, climbs ledges up to StepOffset while grounded, and pushes
// the body out of props.
type VoxelMover struct {
	store      BlockStore
	size       Size
	stepOffset float64
	props      []Prop

	pos      mgl64.Vec3
	grounded bool
}

var _ locomotion.Mover = (*VoxelMover)(nil)

func NewVoxelMover(store BlockStore, spawn mgl64.Vec3, opts MoverOptions) (*VoxelMover, error) {
	if store == nil {
		return nil, ErrNoBlockStore
	}
	if opts.Size == (Size{}) {
		opts.Size = DefaultSize()
	}
	if opts.Size.Width <= 0 || opts.Size.Depth <= 0 || opts.Size.Height <= 0 {
		return nil, errors.New("physics: body size must be positive")
	}
	if opts.StepOffset < 0 || opts.StepOffset >= opts.Size.Height {
		return nil, errors.New("physics: step offset must be in [0, body height)")
	}
	m := &VoxelMover{
		store:      store,
		size:       opts.Size,
		stepOffset: opts.StepOffset,
		props:      append([]Prop(nil), opts.Props...),
		pos:        spawn,
	}
	m.grounded = m.probeGround(spawn)
	return m, nil
}

func (m *VoxelMover) Position() mgl64.Vec3 {
	return m.pos
}

func (m *VoxelMover) Size() Size {
	return m.size
}

func (m *VoxelMover) Ground() locomotion.GroundContext {
	return locomotion.GroundContext{Grounded: m.grounded, StepOffset: m.stepOffset}
}

func (m *VoxelMover) SetProps(props []Prop) {
	m.props = append(m.props[:0], props...)
}

func (m *VoxelMover) Props() []Prop {
	return append([]Prop(nil), m.props...)
}

// Teleport places the body without sweeping.
func (m *VoxelMover) Teleport(pos mgl64.Vec3) {
	m.pos = pos
	m.grounded = m.probeGround(pos)
}

func (m *VoxelMover) Move(d mgl64.Vec3) locomotion.MoveResult {
	d = limitMove(d)
	start := m.pos

	pos, vel := ResolveMovement(start, d, m.size, m.store)
	blocked := vel.X() != d.X() || vel.Z() != d.Z()

	if m.grounded && blocked && m.stepOffset > 0 {
		if stepped, ok := m.stepUp(start, d); ok && lateralDist(start, stepped) > lateralDist(start, pos)+CollisionAxisTolerance {
			pos = stepped
		}
	}

	pos = m.pushOutOfProps(pos)

	m.pos = pos
	m.grounded = m.probeGround(pos)
	return locomotion.MoveResult{Position: pos, Grounded: m.grounded, StepOffset: m.stepOffset}
}

// stepUp retries the lateral move lifted by up to the step offset, then
// settles back down onto whatever is underneath.
func (m *VoxelMover) stepUp(start, d mgl64.Vec3) (mgl64.Vec3, bool) {
	lift := SweepAxis(BodyAABB(start, m.size), 1, m.stepOffset, m.store)
	if lift <= CollisionAxisTolerance {
		return start, false
	}
	pos := start
	pos[1] += lift
	for _, axis := range [2]int{0, 2} {
		pos[axis] += SweepAxis(BodyAABB(pos, m.size), axis, d[axis], m.store)
	}
	settle := math.Min(d.Y(), 0) - lift
	pos[1] += SweepAxis(BodyAABB(pos, m.size), 1, settle, m.store)
	if pos.Y()-start.Y() > m.stepOffset+CollisionAxisTolerance {
		return start, false
	}
	return pos, true
}

func (m *VoxelMover) probeGround(pos mgl64.Vec3) bool {
	probe := BodyAABB(pos, m.size).Offset(mgl64.Vec3{0, -GroundProbeDistance, 0})
	return CollidesWithBlock(probe, m.store)
}

// limitMove drops non-finite displacements and shortens ones longer than
// MaxMoveDistance so a sweep never walks an unbounded number of cells.
func limitMove(d mgl64.Vec3) mgl64.Vec3 {
	for _, v := range d {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return mgl64.Vec3{}
		}
	}
	if l := d.Len(); l > MaxMoveDistance {
		return d.Mul(MaxMoveDistance / l)
	}
	return d
}

func lateralDist(a, b mgl64.Vec3) float64 {
	dx, dz := b.X()-a.X(), b.Z()-a.Z()
	return math.Sqrt(dx*dx + dz*dz)
}
