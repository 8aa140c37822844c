package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BlockStore reports the solid height of a unit cell: 0 for empty, up to 1
// for a full block. Partial heights model slabs and steps.
type BlockStore interface {
	CellHeight(x, y, z int) float64
}

type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

type Size struct {
	Width  float64
	Depth  float64
	Height float64
}

func DefaultSize() Size {
	return Size{Width: DefaultBodyWidth, Depth: DefaultBodyDepth, Height: DefaultBodyHeight}
}

// BodyAABB is the box of a body standing on pos.
func BodyAABB(pos mgl64.Vec3, size Size) AABB {
	hw, hd := size.Width/2, size.Depth/2
	return AABB{
		Min: mgl64.Vec3{pos.X() - hw, pos.Y(), pos.Z() - hd},
		Max: mgl64.Vec3{pos.X() + hw, pos.Y() + size.Height, pos.Z() + hd},
	}
}

func (a AABB) Offset(d mgl64.Vec3) AABB {
	return AABB{Min: a.Min.Add(d), Max: a.Max.Add(d)}
}

func cellBox(x, y, z int, height float64) AABB {
	return AABB{
		Min: mgl64.Vec3{float64(x), float64(y), float64(z)},
		Max: mgl64.Vec3{float64(x + 1), float64(y) + height, float64(z + 1)},
	}
}

func solidHeight(store BlockStore, x, y, z int) float64 {
	h := store.CellHeight(x, y, z)
	if h <= 0 {
		return 0
	}
	return math.Min(h, 1)
}

func CollidesWithBlock(aabb AABB, store BlockStore) bool {
	if store == nil {
		return false
	}
	hit := false
	forEachCell(aabb, func(x, y, z int) bool {
		h := solidHeight(store, x, y, z)
		if h == 0 {
			return true
		}
		if intersects(aabb, cellBox(x, y, z, h)) {
			hit = true
			return false
		}
		return true
	})
	return hit
}

// SweepAxis returns how far box can travel along axis (0=X, 1=Y, 2=Z) up to
// delta before touching a solid cell. Cells the box already overlaps are
// ignored so a penetrating body can always move out.
func SweepAxis(box AABB, axis int, delta float64, store BlockStore) float64 {
	if store == nil || nearlyZero(delta) {
		return delta
	}

	region := box
	if delta > 0 {
		region.Max[axis] += delta
	} else {
		region.Min[axis] += delta
	}

	allowed := delta
	forEachCell(region, func(x, y, z int) bool {
		h := solidHeight(store, x, y, z)
		if h == 0 {
			return true
		}
		cell := cellBox(x, y, z, h)
		if !overlapsExcept(box, cell, axis) {
			return true
		}
		if delta > 0 && cell.Min[axis] >= box.Max[axis]-CollisionAxisTolerance {
			allowed = math.Min(allowed, cell.Min[axis]-box.Max[axis])
		}
		if delta < 0 && cell.Max[axis] <= box.Min[axis]+CollisionAxisTolerance {
			allowed = math.Max(allowed, cell.Max[axis]-box.Min[axis])
		}
		return true
	})

	if delta > 0 && allowed < 0 || delta < 0 && allowed > 0 {
		return 0
	}
	return allowed
}

// ResolveMovement sweeps Y, then X, then Z. The returned velocity has the
// blocked axes zeroed.
func ResolveMovement(pos, delta mgl64.Vec3, size Size, store BlockStore) (mgl64.Vec3, mgl64.Vec3) {
	newPos := pos
	newVel := delta
	for _, axis := range [3]int{1, 0, 2} {
		allowed := SweepAxis(BodyAABB(newPos, size), axis, delta[axis], store)
		newPos[axis] += allowed
		if !nearlyEqual(allowed, delta[axis]) {
			newVel[axis] = 0
		}
	}
	return newPos, newVel
}

func forEachCell(box AABB, fn func(x, y, z int) bool) {
	minX, maxX := floorForMin(box.Min.X()), floorForMax(box.Max.X())
	minY, maxY := floorForMin(box.Min.Y()), floorForMax(box.Max.Y())
	minZ, maxZ := floorForMin(box.Min.Z()), floorForMax(box.Max.Z())
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			for z := minZ; z <= maxZ; z++ {
				if !fn(x, y, z) {
					return
				}
			}
		}
	}
}

func floorForMin(v float64) int {
	return int(math.Floor(v + CollisionAxisTolerance))
}

func floorForMax(v float64) int {
	return int(math.Floor(v - CollisionAxisTolerance))
}

func intersects(a, b AABB) bool {
	return a.Min.X() < b.Max.X() &&
		a.Max.X() > b.Min.X() &&
		a.Min.Y() < b.Max.Y() &&
		a.Max.Y() > b.Min.Y() &&
		a.Min.Z() < b.Max.Z() &&
		a.Max.Z() > b.Min.Z()
}

// overlapsExcept checks overlap on the two axes other than skip, treating
// touching faces as separate.
func overlapsExcept(a, b AABB, skip int) bool {
	for axis := 0; axis < 3; axis++ {
		if axis == skip {
			continue
		}
		if a.Min[axis] >= b.Max[axis]-CollisionAxisTolerance || a.Max[axis] <= b.Min[axis]+CollisionAxisTolerance {
			return false
		}
	}
	return true
}

func nearlyZero(v float64) bool {
	return math.Abs(v) <= CollisionAxisTolerance
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= CollisionAxisTolerance
}
