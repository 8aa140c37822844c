package locomotion

import (
	"errors"
	"testing"

	"github.com/Versifine/locorig/internal/tuning"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freeMover honors every displacement.
type freeMover struct {
	pos        mgl64.Vec3
	grounded   bool
	stepOffset float64
	requests   []mgl64.Vec3
}

func (m *freeMover) Position() mgl64.Vec3 { return m.pos }

func (m *freeMover) Ground() GroundContext {
	return GroundContext{Grounded: m.grounded, StepOffset: m.stepOffset}
}

func (m *freeMover) Move(d mgl64.Vec3) MoveResult {
	m.requests = append(m.requests, d)
	m.pos = m.pos.Add(d)
	return MoveResult{Position: m.pos, Grounded: m.grounded, StepOffset: m.stepOffset}
}

// wallMover refuses all lateral motion.
type wallMover struct {
	freeMover
}

func (m *wallMover) Move(d mgl64.Vec3) MoveResult {
	m.requests = append(m.requests, d)
	m.pos[1] += d.Y()
	return MoveResult{Position: m.pos, Grounded: m.grounded, StepOffset: m.stepOffset}
}

func runTick(th *Throttle, c *Corrector, m Mover, intent MoveIntent) Resolution {
	g := m.Ground()
	d := th.Integrate(intent, mgl64.QuatIdent(), g.Grounded, tick)
	return c.Resolve(d, g, tick)
}

func TestNewCorrector_RequiresCollaborators(t *testing.T) {
	_, err := NewCorrector(nil, NewThrottle(tuning.Default()))
	assert.True(t, errors.Is(err, ErrNoMover))

	_, err = NewCorrector(&freeMover{}, nil)
	assert.True(t, errors.Is(err, ErrNoThrottle))
}

func TestCorrector_UnobstructedMoveHasNoCorrection(t *testing.T) {
	th := NewThrottle(tuning.Default())
	m := &freeMover{grounded: true, stepOffset: 0.3}
	c, err := NewCorrector(m, th)
	require.NoError(t, err)

	intents := []MoveIntent{
		{Forward: true},
		{Forward: true, Left: true, Run: true},
		{Analog: mgl64.Vec2{0.3, -0.8}},
		{},
	}
	for i := 0; i < 40; i++ {
		res := runTick(th, c, m, intents[i%len(intents)])
		require.False(t, res.Blocked(), "tick %d", i)
		require.Equal(t, mgl64.Vec3{}, res.Correction, "tick %d", i)
	}
}

func TestCorrector_FullBlockageCancelsVelocity(t *testing.T) {
	th := NewThrottle(tuning.Default())
	m := &wallMover{freeMover{grounded: true, stepOffset: 0.3}}
	c, err := NewCorrector(m, th)
	require.NoError(t, err)

	res := runTick(th, c, m, MoveIntent{Forward: true, Right: true})
	require.True(t, res.Blocked())

	v := th.State().Velocity
	assert.InDelta(t, 0, v.X(), 1e-15)
	assert.InDelta(t, 0, v.Z(), 1e-15)
}

func TestCorrector_PartialBlockageCancelsOnlyBlockedAxis(t *testing.T) {
	th := NewThrottle(tuning.Default())
	m := &axisBlockMover{freeMover: freeMover{grounded: true}}
	c, err := NewCorrector(m, th)
	require.NoError(t, err)

	runTick(th, c, m, MoveIntent{Forward: true, Right: true})

	v := th.State().Velocity
	assert.InDelta(t, 0, v.X(), 1e-15)
	assert.Greater(t, v.Z(), 0.0)
}

// axisBlockMover refuses motion along X only.
type axisBlockMover struct {
	freeMover
}

func (m *axisBlockMover) Move(d mgl64.Vec3) MoveResult {
	d[0] = 0
	return m.freeMover.Move(d)
}

func TestCorrector_GroundSnapUsesLargerOfStepAndLateral(t *testing.T) {
	tests := []struct {
		name       string
		predicted  mgl64.Vec3
		stepOffset float64
		wantY      float64
	}{
		{"step offset dominates", mgl64.Vec3{0.1, -0.01, 0}, 0.3, -0.31},
		{"lateral dominates", mgl64.Vec3{0.3, -0.01, 0.4}, 0.3, -0.51},
		{"no step offset", mgl64.Vec3{0, -0.01, 0}, 0, -0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := NewThrottle(tuning.Default())
			m := &freeMover{grounded: true, stepOffset: tt.stepOffset}
			c, err := NewCorrector(m, th)
			require.NoError(t, err)

			res := c.Resolve(tt.predicted, m.Ground(), tick)
			assert.InDelta(t, tt.wantY, res.Requested.Y(), 1e-12)
			assert.Equal(t, tt.predicted.X(), res.Requested.X())
			assert.Equal(t, tt.predicted.Z(), res.Requested.Z())
		})
	}
}

func TestCorrector_NoSnapWhileRisingOrAirborne(t *testing.T) {
	th := NewThrottle(tuning.Default())
	m := &freeMover{grounded: true, stepOffset: 0.3}
	c, err := NewCorrector(m, th)
	require.NoError(t, err)

	require.True(t, th.Jump(true))
	res := c.Resolve(mgl64.Vec3{0, 0.2, 0}, m.Ground(), tick)
	assert.Equal(t, 0.2, res.Requested.Y())

	th.Reset()
	res = c.Resolve(mgl64.Vec3{0, -0.1, 0}, GroundContext{Grounded: false, StepOffset: 0.3}, tick)
	assert.Equal(t, -0.1, res.Requested.Y())
}

func TestCorrector_ZeroDtSkipsFeedback(t *testing.T) {
	th := NewThrottle(tuning.Default())
	th.state.Velocity = mgl64.Vec3{1, 0, 1}
	m := &wallMover{freeMover{grounded: true}}
	c, err := NewCorrector(m, th)
	require.NoError(t, err)

	res := c.Resolve(mgl64.Vec3{0.5, 0, 0.5}, m.Ground(), 0)

	assert.Equal(t, mgl64.Vec3{}, res.Correction)
	assert.Equal(t, mgl64.Vec3{1, 0, 1}, th.State().Velocity)
}

func TestCorrector_VerticalShortfallIsNotFedBack(t *testing.T) {
	th := NewThrottle(tuning.Default())
	m := &floorMover{freeMover: freeMover{grounded: true, stepOffset: 0.3}}
	c, err := NewCorrector(m, th)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		runTick(th, c, m, MoveIntent{})
		require.Equal(t, 0.0, th.State().Velocity.Y())
	}
	assert.Equal(t, 0.0, m.pos.Y())
}

// floorMover clamps the body to y >= 0.
type floorMover struct {
	freeMover
}

func (m *floorMover) Move(d mgl64.Vec3) MoveResult {
	res := m.freeMover.Move(d)
	if m.pos[1] < 0 {
		m.pos[1] = 0
		res.Position = m.pos
	}
	return res
}
