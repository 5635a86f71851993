package physics

import "github.com/lixenwraith/tilt-alarm/maze"

// Overlaps reports whether a ball centred at (x, y) touches a wall
// The bounding circle is reduced to its four cardinal extremal points
func Overlaps(x, y float64, g *maze.Grid, p Params) bool {
	probes := [4][2]float64{
		{x - p.Radius, y},
		{x + p.Radius, y},
		{x, y - p.Radius},
		{x, y + p.Radius},
	}
	for _, pr := range probes {
		cx, cy := CellOf(pr[0], pr[1], p)
		if g.IsWall(cx, cy) {
			return true
		}
	}
	return false
}

// resolve applies axis-separated collision: X alone, then Y alone, then the combined
// diagonal move; the order decides how the ball slides along walls at corners
func resolve(b *Ball, nextX, nextY float64, g *maze.Grid, p Params) (blockedX, blockedY bool) {
	if Overlaps(nextX, b.Y, g, p) {
		nextX = b.X
		b.VX = 0
		blockedX = true
	}
	if Overlaps(b.X, nextY, g, p) {
		nextY = b.Y
		b.VY = 0
		blockedY = true
	}
	if Overlaps(nextX, nextY, g, p) {
		nextX, nextY = b.X, b.Y
		b.VX, b.VY = 0, 0
		blockedX, blockedY = true, true
	}
	b.X, b.Y = nextX, nextY
	return blockedX, blockedY
}
