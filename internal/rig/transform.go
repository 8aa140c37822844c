package rig

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a minimal Body that records the last facing rotation.
type Transform struct {
	mu  sync.RWMutex
	rot mgl64.Quat
}

func NewTransform() *Transform {
	return &Transform{rot: mgl64.QuatIdent()}
}

func (t *Transform) SetRotation(q mgl64.Quat) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rot = q
}

func (t *Transform) Rotation() mgl64.Quat {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rot
}

// Yaw recovers the heading in degrees in (-180, 180]; 0 faces +Z.
func (t *Transform) Yaw() float64 {
	fwd := t.Rotation().Rotate(mgl64.Vec3{0, 0, 1})
	return mgl64.RadToDeg(math.Atan2(fwd.X(), fwd.Z()))
}
