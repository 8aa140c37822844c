package physics

const (
	GroundProbeDistance    = 0.001
	CollisionAxisTolerance = 1e-9

	DefaultBodyWidth  = 0.6
	DefaultBodyDepth  = 0.6
	DefaultBodyHeight = 1.8
	DefaultStepOffset = 0.3

	// MaxMoveDistance caps one Move call.
	MaxMoveDistance = 8.0

	propPushMaxPerProp = 0.08
	propPushMaxPerTick = 0.12
	propPushStrength   = 0.7
)
