package event

import (
	"fmt"
	"log/slog"
)

// LogEvents subscribes one logger to every rig event so lines appear in
// publish order.
func LogEvents(bus *Bus) {
	if bus == nil {
		return
	}
	bus.SubscribeAll(AllEvents, func(raw any) {
		LogHandler(eventName(raw), raw)
	})
}

func LogHandler(name string, raw any) {
	switch evt := raw.(type) {
	case *JumpEvent:
		slog.Debug("Rig jump", "applied", evt.Applied, "pos", evt.Position)
	case *LandedEvent:
		slog.Debug("Rig landed", "pos", evt.Position, "fall_speed", evt.FallSpeed, "air_ticks", evt.AirTicks)
	case *AirborneEvent:
		slog.Debug("Rig left ground", "pos", evt.Position, "velocity", evt.Velocity)
	case *BlockedEvent:
		slog.Debug("Rig blocked", "pos", evt.Position, "requested", evt.Requested, "achieved", evt.Achieved, "correction", evt.Correction)
	case *DriveChangeEvent:
		slog.Info("Rotation drive changed", "from", evt.From.String(), "to", evt.To.String(), "yaw", evt.Yaw)
	case *TunablesEvent:
		slog.Info("Tunables applied", "acceleration", evt.Tunables.Acceleration, "damping", evt.Tunables.Damping, "halt", evt.Tunables.HaltMovement)
	case *TeleportEvent:
		slog.Info("Rig teleported", "from", evt.From, "to", evt.To)
	default:
		slog.Error("Invalid event type", "event", name)
	}
}

func eventName(raw any) string {
	switch raw.(type) {
	case *JumpEvent:
		return EventJump
	case *LandedEvent:
		return EventLanded
	case *AirborneEvent:
		return EventAirborne
	case *BlockedEvent:
		return EventBlocked
	case *DriveChangeEvent:
		return EventDriveChange
	case *TunablesEvent:
		return EventTunables
	case *TeleportEvent:
		return EventTeleport
	default:
		return fmt.Sprintf("%T", raw)
	}
}
