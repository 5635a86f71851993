package physics

import (
	"math"

	"github.com/lixenwraith/tilt-alarm/maze"
	"github.com/lixenwraith/tilt-alarm/parameter"
)

// Ball is the continuous state of the rolling ball in world units
// Cell (i, j) spans [i*CellSize, (i+1)*CellSize) on each axis
type Ball struct {
	X, Y   float64
	VX, VY float64
}

// GoalCheck selects which position is tested against the goal cell
type GoalCheck uint8

const (
	// GoalCheckPrevious tests the last confirmed position before the move,
	// so arrival is reported one sample after the ball enters the goal
	GoalCheckPrevious GoalCheck = iota
	// GoalCheckNext tests the position produced by the current step
	GoalCheckNext
)

// String returns the config spelling
func (g GoalCheck) String() string {
	if g == GoalCheckNext {
		return "next"
	}
	return "previous"
}

// ParseGoalCheck accepts "previous" or "next"
func ParseGoalCheck(s string) (GoalCheck, bool) {
	switch s {
	case "", "previous":
		return GoalCheckPrevious, true
	case "next":
		return GoalCheckNext, true
	}
	return GoalCheckPrevious, false
}

// Params holds the simulator tuning
type Params struct {
	DeadZone    float64
	Gain        float64
	Friction    float64
	MaxVelocity float64
	CellSize    float64
	Radius      float64
	GoalCheck   GoalCheck
}

// DefaultParams returns the reference tuning
func DefaultParams() Params {
	return Params{
		DeadZone:    parameter.TiltDeadZone,
		Gain:        parameter.TiltGain,
		Friction:    parameter.RestFriction,
		MaxVelocity: parameter.MaxVelocity,
		CellSize:    parameter.CellSize,
		Radius:      parameter.BallRadius,
		GoalCheck:   GoalCheckPrevious,
	}
}

// Spawn places a resting ball at the center of the maze start cell
func Spawn(g *maze.Grid, p Params) Ball {
	s := g.Start()
	return Ball{
		X: (float64(s.X) + 0.5) * p.CellSize,
		Y: (float64(s.Y) + 0.5) * p.CellSize,
	}
}

// CellOf maps a world position to the grid cell containing it
func CellOf(x, y float64, p Params) (int, int) {
	return int(math.Floor(x / p.CellSize)), int(math.Floor(y / p.CellSize))
}

// accelerate applies either rest friction or tilt acceleration, then clamps each axis
// Screen y grows downward, so positive tiltY pushes the ball up
func accelerate(b *Ball, tiltX, tiltY float64, p Params) {
	if math.Abs(tiltX) < p.DeadZone && math.Abs(tiltY) < p.DeadZone {
		b.VX *= p.Friction
		b.VY *= p.Friction
	} else {
		b.VX += tiltX * p.Gain
		b.VY += -tiltY * p.Gain
	}
	b.VX = clampAxis(b.VX, p.MaxVelocity)
	b.VY = clampAxis(b.VY, p.MaxVelocity)
}

func clampAxis(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
