package maze

// Cell is the state of one grid square
// Values match the integer encoding handed to renderers
type Cell uint8

const (
	Open Cell = 0
	Wall Cell = 1
	Goal Cell = 2
)

// Point is a grid coordinate, X = column, Y = row
type Point struct {
	X, Y int
}

// Grid is a square maze stored row-major
type Grid struct {
	dim   int
	cells []Cell
	start Point
	goal  Point
}

// newFilled returns a dim x dim grid of walls
func newFilled(dim int) *Grid {
	g := &Grid{
		dim:   dim,
		cells: make([]Cell, dim*dim),
	}
	for i := range g.cells {
		g.cells[i] = Wall
	}
	return g
}

// Dim returns the side length
func (g *Grid) Dim() int {
	return g.dim
}

// Start returns the fixed start cell
func (g *Grid) Start() Point {
	return g.start
}

// Goal returns the goal cell
func (g *Grid) Goal() Point {
	return g.goal
}

// At returns the cell at (x, y); anything outside the grid reads as Wall
func (g *Grid) At(x, y int) Cell {
	if !g.InBounds(x, y) {
		return Wall
	}
	return g.cells[y*g.dim+x]
}

// InBounds reports whether (x, y) lies inside the grid
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.dim && y >= 0 && y < g.dim
}

// IsWall is shorthand for At(x, y) == Wall
func (g *Grid) IsWall(x, y int) bool {
	return g.At(x, y) == Wall
}

func (g *Grid) set(p Point, c Cell) {
	g.cells[p.Y*g.dim+p.X] = c
}

// interior reports whether p is inside the outer wall ring
func (g *Grid) interior(p Point) bool {
	return p.X > 0 && p.X < g.dim-1 && p.Y > 0 && p.Y < g.dim-1
}

// Ints returns the row-major renderer encoding {Open=0, Wall=1, Goal=2}
func (g *Grid) Ints() []int {
	out := make([]int, len(g.cells))
	for i, c := range g.cells {
		out[i] = int(c)
	}
	return out
}

// Rows returns the renderer encoding as one slice per row
func (g *Grid) Rows() [][]int {
	flat := g.Ints()
	rows := make([][]int, g.dim)
	for y := range rows {
		rows[y] = flat[y*g.dim : (y+1)*g.dim : (y+1)*g.dim]
	}
	return rows
}
