package event

import (
	"github.com/Versifine/locorig/internal/rotation"
	"github.com/Versifine/locorig/internal/tuning"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	EventJump        = "rig.jump"
	EventLanded      = "rig.landed"
	EventAirborne    = "rig.airborne"
	EventBlocked     = "rig.blocked"
	EventDriveChange = "rig.drive"
	EventTunables    = "rig.tunables"
	EventTeleport    = "rig.teleport"
)

// AllEvents lists every event name the rig publishes.
var AllEvents = []string{
	EventJump,
	EventLanded,
	EventAirborne,
	EventBlocked,
	EventDriveChange,
	EventTunables,
	EventTeleport,
}

type JumpEvent struct {
	Position mgl64.Vec3
	Applied  bool
}

type LandedEvent struct {
	Position  mgl64.Vec3
	FallSpeed float64
	AirTicks  int
}

type AirborneEvent struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
}

// BlockedEvent is published when the mover stopped short of the predicted
// lateral position.
type BlockedEvent struct {
	Position   mgl64.Vec3
	Requested  mgl64.Vec3
	Achieved   mgl64.Vec3
	Correction mgl64.Vec3
}

type DriveChangeEvent struct {
	From rotation.Drive
	To   rotation.Drive
	Yaw  float64
}

type TunablesEvent struct {
	Tunables tuning.Tunables
}

type TeleportEvent struct {
	From mgl64.Vec3
	To   mgl64.Vec3
}
