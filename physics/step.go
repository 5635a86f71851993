package physics

import "github.com/lixenwraith/tilt-alarm/maze"

// StepResult is the outcome of one input sample
type StepResult struct {
	Ball     Ball
	AtGoal   bool
	BlockedX bool
	BlockedY bool
}

// Step integrates one tilt sample against the maze
// Pure: the returned ball is the only output, the input is not retained
func Step(b Ball, tiltX, tiltY float64, g *maze.Grid, p Params) StepResult {
	prevX, prevY := b.X, b.Y

	accelerate(&b, tiltX, tiltY, p)
	bx, by := resolve(&b, b.X+b.VX, b.Y+b.VY, g, p)

	checkX, checkY := prevX, prevY
	if p.GoalCheck == GoalCheckNext {
		checkX, checkY = b.X, b.Y
	}
	cx, cy := CellOf(checkX, checkY, p)

	return StepResult{
		Ball:     b,
		AtGoal:   g.At(cx, cy) == maze.Goal,
		BlockedX: bx,
		BlockedY: by,
	}
}
