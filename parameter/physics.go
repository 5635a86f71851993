package parameter

// Tilt input filtering
const (
	// TiltDeadZone is the per-axis magnitude below which a sample counts as resting flat
	TiltDeadZone = 0.05
	// TiltGain scales a tilt sample into a per-step velocity change
	TiltGain = 0.05
	// RestFriction multiplies velocity on every resting sample
	RestFriction = 0.99
	// MaxVelocity caps each velocity component, world units per step
	MaxVelocity = 1.5
)

// Maze geometry in world units
// BallRadius must stay below CellSize/2 so the ball fits a one-cell corridor
const (
	CellSize   = 24.0
	BallRadius = 8.0
)
