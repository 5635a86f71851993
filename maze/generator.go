package maze

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/lixenwraith/tilt-alarm/parameter"
)

var (
	ErrDimensionTooSmall   = errors.New("maze dimension too small")
	ErrGenerationInvariant = errors.New("maze generation invariant violated")
)

// steps are the 2-cell jumps between rooms: up, down, left, right
var steps = [4]Point{{0, -2}, {0, 2}, {-2, 0}, {2, 0}}

// NewRand returns a seeded source; seed 0 draws a fresh seed from the clock
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// DimensionFor maps a difficulty to the maze side length
// Non-positive difficulty clamps to MinDifficulty
func DimensionFor(difficulty int) int {
	if difficulty < parameter.MinDifficulty {
		difficulty = parameter.MinDifficulty
	}
	return parameter.MazeBaseDimension + 2*difficulty
}

// Generate carves a perfect maze with a randomized depth-first backtracker
// Rooms sit on odd coordinates, even coordinates are the walls between them
// Start is fixed at (1,1); goal is (dim-2, dim-2)
// Even dimensions are rounded down to stay within the requested size
func Generate(dim int, rng *rand.Rand) (*Grid, error) {
	if dim < parameter.MinMazeDimension {
		return nil, fmt.Errorf("%w: %d < %d", ErrDimensionTooSmall, dim, parameter.MinMazeDimension)
	}
	dim = ensureOdd(dim)
	if rng == nil {
		rng = NewRand(0)
	}

	g := newFilled(dim)
	g.start = Point{1, 1}
	g.goal = Point{dim - 2, dim - 2}

	if err := carve(g, g.start, rng); err != nil {
		return nil, err
	}

	g.set(g.start, Open)
	g.set(g.goal, Goal)
	return g, nil
}

// frame is one room on the explicit backtracking stack
// dirs is shuffled once on entry and walked in that order
type frame struct {
	at   Point
	dirs [4]Point
	next int
}

func newFrame(at Point, rng *rand.Rand) frame {
	f := frame{at: at, dirs: steps}
	rng.Shuffle(len(f.dirs), func(i, j int) {
		f.dirs[i], f.dirs[j] = f.dirs[j], f.dirs[i]
	})
	return f
}

// carve replaces recursion with a stack so deep grids cannot exhaust the call stack
// Every iteration either consumes one direction of the top frame or pops it,
// so 5 iterations per room bound the loop
func carve(g *Grid, start Point, rng *rand.Rand) error {
	side := (g.dim - 1) / 2
	rooms := side * side
	budget := 5*rooms + 1

	g.set(start, Open)
	stack := make([]frame, 0, rooms)
	stack = append(stack, newFrame(start, rng))

	for len(stack) > 0 {
		if budget == 0 {
			return fmt.Errorf("%w: carve exceeded %d iterations", ErrGenerationInvariant, 5*rooms+1)
		}
		budget--

		top := &stack[len(stack)-1]
		if top.next == len(top.dirs) {
			stack = stack[:len(stack)-1]
			continue
		}
		d := top.dirs[top.next]
		top.next++

		next := Point{top.at.X + d.X, top.at.Y + d.Y}
		if !g.interior(next) || g.At(next.X, next.Y) != Wall {
			continue
		}
		g.set(Point{top.at.X + d.X/2, top.at.Y + d.Y/2}, Open)
		g.set(next, Open)
		stack = append(stack, newFrame(next, rng))
	}
	return nil
}

// Minimal returns a valid single-corridor maze: along row 1, then down the last interior column
// Used when generation keeps failing verification
func Minimal(dim int) (*Grid, error) {
	if dim < parameter.MinMazeDimension {
		return nil, fmt.Errorf("%w: %d < %d", ErrDimensionTooSmall, dim, parameter.MinMazeDimension)
	}
	dim = ensureOdd(dim)
	g := newFilled(dim)
	g.start = Point{1, 1}
	g.goal = Point{dim - 2, dim - 2}

	for x := 1; x <= dim-2; x++ {
		g.set(Point{x, 1}, Open)
	}
	for y := 1; y <= dim-2; y++ {
		g.set(Point{dim - 2, y}, Open)
	}
	g.set(g.goal, Goal)
	return g, nil
}

// BuildReport describes how a verified maze was obtained
type BuildReport struct {
	Attempts int
	Fallback bool
	// LastErr holds the last verification failure, nil when no attempt failed
	LastErr error
}

// Build generates and verifies a maze, regenerating up to attempts times
// before falling back to Minimal; the returned grid always passes Verify
func Build(dim int, rng *rand.Rand, attempts int) (*Grid, BuildReport, error) {
	var report BuildReport
	if attempts < 1 {
		attempts = 1
	}
	if rng == nil {
		rng = NewRand(0)
	}

	for report.Attempts < attempts {
		report.Attempts++
		g, err := Generate(dim, rng)
		if errors.Is(err, ErrDimensionTooSmall) {
			return nil, report, err
		}
		if err == nil {
			err = Verify(g)
		}
		if err == nil {
			return g, report, nil
		}
		report.LastErr = err
	}

	g, err := Minimal(dim)
	if err != nil {
		return nil, report, err
	}
	report.Fallback = true
	return g, report, nil
}

func ensureOdd(n int) int {
	if n%2 == 0 {
		return n - 1
	}
	return n
}
