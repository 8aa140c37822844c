package view

import (
	"math"
	"testing"

	"github.com/Versifine/locorig/internal/rotation"
	"github.com/go-gl/mathgl/mgl64"
)

type cameraTestBlocks map[[3]int]bool

func (b cameraTestBlocks) IsSolid(x, y, z int) bool {
	return b[[3]int{x, y, z}]
}

// vecNear compares per component with an absolute tolerance, which stays
// meaningful when a component is zero.
func vecNear(a, b mgl64.Vec3) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func TestCameraComposesOffsetAndYaw(t *testing.T) {
	cam := NewCamera()
	offset := mgl64.QuatRotate(mgl64.DegToRad(-10), mgl64.Vec3{1, 0, 0})
	cam.SetOrientationOffset(offset)
	cam.SetYaw(45)

	want := offset.Mul(rotation.YawQuat(45))
	if !cam.Orientation().ApproxEqualThreshold(want, 1e-12) {
		t.Fatalf("Orientation = %v, want %v", cam.Orientation(), want)
	}
	if cam.Yaw() != 45 {
		t.Fatalf("Yaw = %v, want 45", cam.Yaw())
	}
}

func TestCameraForwardFollowsYaw(t *testing.T) {
	cam := NewCamera()

	if got := cam.Forward(); !vecNear(got, mgl64.Vec3{0, 0, 1}) {
		t.Fatalf("Forward at yaw 0 = %v, want +Z", got)
	}

	cam.SetYaw(90)
	if got := cam.Forward(); !vecNear(got, mgl64.Vec3{1, 0, 0}) {
		t.Fatalf("Forward at yaw 90 = %v, want +X", got)
	}
}

func TestFirstHitOcclusion(t *testing.T) {
	blocks := cameraTestBlocks{
		{0, 1, 3}: true,
		{0, 1, 5}: true,
	}

	hit, ok := FirstHit(mgl64.Vec3{0.5, 1.62, 0.5}, mgl64.Vec3{0, 0, 1}, 32, blocks)
	if !ok {
		t.Fatalf("expected a hit")
	}
	if hit.Cell != [3]int{0, 1, 3} {
		t.Fatalf("hit cell = %v, want [0 1 3]", hit.Cell)
	}
	if math.Abs(hit.Distance-2.5) > 1e-9 {
		t.Fatalf("hit distance = %v, want 2.5", hit.Distance)
	}
}

func TestFirstHitRespectsMaxDist(t *testing.T) {
	blocks := cameraTestBlocks{{0, 1, 20}: true}

	if _, ok := FirstHit(mgl64.Vec3{0.5, 1.62, 0.5}, mgl64.Vec3{0, 0, 1}, 8, blocks); ok {
		t.Fatalf("hit beyond max distance")
	}
	if _, ok := FirstHit(mgl64.Vec3{0.5, 1.62, 0.5}, mgl64.Vec3{}, 8, blocks); ok {
		t.Fatalf("zero direction should not hit")
	}
}

func TestCameraLookAtAndFan(t *testing.T) {
	blocks := cameraTestBlocks{}
	for x := -6; x <= 6; x++ {
		blocks[[3]int{x, 1, 4}] = true
	}

	cam := NewCamera()
	cam.Rays = 9
	eye := mgl64.Vec3{0.5, 1.62, 0.5}

	hit, ok := cam.LookAt(eye, blocks)
	if !ok || hit.Cell != [3]int{0, 1, 4} {
		t.Fatalf("LookAt = (%v,%v), want cell [0 1 4]", hit.Cell, ok)
	}

	hits := cam.Fan(eye, blocks)
	if len(hits) < 3 {
		t.Fatalf("Fan hit %d cells, want at least 3", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Distance < hits[i-1].Distance {
			t.Fatalf("Fan not sorted by distance: %v", hits)
		}
	}
	for _, h := range hits {
		if h.Cell[1] != 1 || h.Cell[2] != 4 {
			t.Fatalf("Fan hit unexpected cell %v", h.Cell)
		}
	}
}
