package view

import (
	"math"
	"sort"
	"sync"

	"github.com/Versifine/locorig/internal/rotation"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultFOV     = 70
	DefaultMaxDist = 32
	DefaultRays    = 24
)

// Solids is the block lookup the look ray marches through.
type Solids interface {
	IsSolid(x, y, z int) bool
}

type Hit struct {
	Cell     [3]int
	Point    mgl64.Vec3
	Distance float64
}

// Camera receives the orientation offset once and a yaw every tick, and
// composes them as offset * rotateY(yaw).
type Camera struct {
	FOV     float64
	MaxDist float64
	Rays    int

	mu     sync.RWMutex
	offset mgl64.Quat
	yaw    float64
}

func NewCamera() *Camera {
	return &Camera{
		FOV:     DefaultFOV,
		MaxDist: DefaultMaxDist,
		Rays:    DefaultRays,
		offset:  mgl64.QuatIdent(),
	}
}

func (c *Camera) SetOrientationOffset(q mgl64.Quat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = q.Normalize()
}

func (c *Camera) SetYaw(deg float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.yaw = deg
}

func (c *Camera) Yaw() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.yaw
}

func (c *Camera) Offset() mgl64.Quat {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

func (c *Camera) Orientation() mgl64.Quat {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset.Mul(rotation.YawQuat(c.yaw))
}

// Forward is the unit look direction; yaw 0 looks down +Z.
func (c *Camera) Forward() mgl64.Vec3 {
	return c.Orientation().Rotate(mgl64.Vec3{0, 0, 1}).Normalize()
}

// LookAt marches the forward ray from eye and returns the first solid cell.
func (c *Camera) LookAt(eye mgl64.Vec3, blocks Solids) (Hit, bool) {
	return FirstHit(eye, c.Forward(), c.maxDist(), blocks)
}

// Fan casts Rays rays spread horizontally across FOV around the forward
// direction and returns the distinct cells hit, nearest first.
func (c *Camera) Fan(eye mgl64.Vec3, blocks Solids) []Hit {
	if blocks == nil {
		return nil
	}
	fov := c.FOV
	if fov <= 0 {
		fov = DefaultFOV
	}
	rays := c.Rays
	if rays <= 0 {
		rays = DefaultRays
	}

	orient := c.Orientation()
	seen := make(map[[3]int]Hit)
	for i := 0; i < rays; i++ {
		spread := ((float64(i)+0.5)/float64(rays) - 0.5) * fov
		dir := orient.Mul(rotation.YawQuat(spread)).Rotate(mgl64.Vec3{0, 0, 1})
		hit, ok := FirstHit(eye, dir, c.maxDist(), blocks)
		if !ok {
			continue
		}
		if prev, dup := seen[hit.Cell]; !dup || hit.Distance < prev.Distance {
			seen[hit.Cell] = hit
		}
	}

	out := make([]Hit, 0, len(seen))
	for _, h := range seen {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		for axis := 0; axis < 3; axis++ {
			if out[i].Cell[axis] != out[j].Cell[axis] {
				return out[i].Cell[axis] < out[j].Cell[axis]
			}
		}
		return false
	})
	return out
}

func (c *Camera) maxDist() float64 {
	if c.MaxDist <= 0 {
		return DefaultMaxDist
	}
	return c.MaxDist
}

// FirstHit walks the voxel grid along dir (3D DDA) up to maxDist.
func FirstHit(origin, dir mgl64.Vec3, maxDist float64, blocks Solids) (Hit, bool) {
	if blocks == nil || dir.Len() < 1e-9 {
		return Hit{}, false
	}
	dir = dir.Normalize()

	x := int(math.Floor(origin.X()))
	y := int(math.Floor(origin.Y()))
	z := int(math.Floor(origin.Z()))

	stepX, tMaxX, tDeltaX := ddaAxis(origin.X(), dir.X(), x)
	stepY, tMaxY, tDeltaY := ddaAxis(origin.Y(), dir.Y(), y)
	stepZ, tMaxZ, tDeltaZ := ddaAxis(origin.Z(), dir.Z(), z)

	distance := 0.0
	for distance <= maxDist {
		if blocks.IsSolid(x, y, z) {
			return Hit{
				Cell:     [3]int{x, y, z},
				Point:    origin.Add(dir.Mul(distance)),
				Distance: distance,
			}, true
		}

		switch {
		case tMaxX <= tMaxY && tMaxX <= tMaxZ:
			x += stepX
			distance = tMaxX
			tMaxX += tDeltaX
		case tMaxY <= tMaxX && tMaxY <= tMaxZ:
			y += stepY
			distance = tMaxY
			tMaxY += tDeltaY
		default:
			z += stepZ
			distance = tMaxZ
			tMaxZ += tDeltaZ
		}
	}
	return Hit{}, false
}

func ddaAxis(origin, dir float64, cell int) (step int, tMax float64, tDelta float64) {
	if math.Abs(dir) < 1e-9 {
		return 0, math.Inf(1), math.Inf(1)
	}
	if dir > 0 {
		step = 1
		tMax = (float64(cell+1) - origin) / dir
		tDelta = 1.0 / dir
		return
	}
	step = -1
	inv := -dir
	tMax = (origin - float64(cell)) / inv
	tDelta = 1.0 / inv
	return
}
