package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Prop is an upright cylinder standing on Base. Props are soft: a body that
// overlaps one is eased out over a few ticks instead of being stopped.
type Prop struct {
	Base   mgl64.Vec3
	Radius float64
	Height float64
}

func (m *VoxelMover) pushOutOfProps(pos mgl64.Vec3) mgl64.Vec3 {
	if len(m.props) == 0 {
		return pos
	}

	var pushX, pushZ float64
	body := BodyAABB(pos, m.size)
	bodyRadius := math.Max(m.size.Width, m.size.Depth) / 2

	for _, p := range m.props {
		if p.Radius <= 0 || p.Height <= 0 {
			continue
		}
		if body.Max.Y() <= p.Base.Y() || body.Min.Y() >= p.Base.Y()+p.Height {
			continue
		}

		dx := pos.X() - p.Base.X()
		dz := pos.Z() - p.Base.Z()
		dist2 := dx*dx + dz*dz

		minDist := bodyRadius + p.Radius
		if dist2 >= minDist*minDist {
			continue
		}

		dist := math.Sqrt(dist2)
		if dist < CollisionAxisTolerance {
			dx = 1
			dz = 0
			dist = 1
		}

		overlap := minDist - dist
		if overlap <= 0 {
			continue
		}

		mag := math.Min(overlap*propPushStrength, propPushMaxPerProp)
		pushX += (dx / dist) * mag
		pushZ += (dz / dist) * mag
	}

	length := math.Sqrt(pushX*pushX + pushZ*pushZ)
	if length <= CollisionAxisTolerance {
		return pos
	}
	if length > propPushMaxPerTick {
		scale := propPushMaxPerTick / length
		pushX *= scale
		pushZ *= scale
	}

	newPos, _ := ResolveMovement(pos, mgl64.Vec3{pushX, 0, pushZ}, m.size, m.store)
	return newPos
}
