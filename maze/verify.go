package maze

import "fmt"

var neighbours = [4]Point{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}

// Verify checks the structural invariants of a generated maze:
// closed border, walkable start, a single goal, every open cell reachable
// from start, and no loops (open cells form a tree)
func Verify(g *Grid) error {
	if g == nil || g.dim < 3 {
		return fmt.Errorf("%w: empty grid", ErrGenerationInvariant)
	}
	last := g.dim - 1
	for i := 0; i < g.dim; i++ {
		if g.At(i, 0) != Wall || g.At(i, last) != Wall || g.At(0, i) != Wall || g.At(last, i) != Wall {
			return fmt.Errorf("%w: open border at index %d", ErrGenerationInvariant, i)
		}
	}
	if g.At(g.start.X, g.start.Y) != Open {
		return fmt.Errorf("%w: start %v is not open", ErrGenerationInvariant, g.start)
	}

	nodes, edges, goals := 0, 0, 0
	for y := 0; y < g.dim; y++ {
		for x := 0; x < g.dim; x++ {
			c := g.At(x, y)
			if c == Wall {
				continue
			}
			nodes++
			if c == Goal {
				goals++
			}
			if g.At(x+1, y) != Wall {
				edges++
			}
			if g.At(x, y+1) != Wall {
				edges++
			}
		}
	}
	if goals != 1 {
		return fmt.Errorf("%w: %d goal cells", ErrGenerationInvariant, goals)
	}

	visited := g.reach(g.start)
	if !visited[g.goal.Y*g.dim+g.goal.X] {
		return fmt.Errorf("%w: goal %v unreachable from %v", ErrGenerationInvariant, g.goal, g.start)
	}
	seen := 0
	for _, v := range visited {
		if v {
			seen++
		}
	}
	if seen != nodes {
		return fmt.Errorf("%w: %d of %d open cells reachable", ErrGenerationInvariant, seen, nodes)
	}
	if edges != nodes-1 {
		return fmt.Errorf("%w: %d passages for %d cells, maze has loops", ErrGenerationInvariant, edges, nodes)
	}
	return nil
}

// reach floods from p and returns the visited set indexed row-major
func (g *Grid) reach(p Point) []bool {
	visited := make([]bool, len(g.cells))
	if g.IsWall(p.X, p.Y) {
		return visited
	}
	queue := []Point{p}
	visited[p.Y*g.dim+p.X] = true
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, d := range neighbours {
			nx, ny := curr.X+d.X, curr.Y+d.Y
			if g.IsWall(nx, ny) || visited[ny*g.dim+nx] {
				continue
			}
			visited[ny*g.dim+nx] = true
			queue = append(queue, Point{nx, ny})
		}
	}
	return visited
}

// SolutionPath returns the start-to-goal path inclusive, nil when unreachable
func SolutionPath(g *Grid) []Point {
	if g.IsWall(g.start.X, g.start.Y) || g.IsWall(g.goal.X, g.goal.Y) {
		return nil
	}

	cameFrom := make([]int, len(g.cells))
	for i := range cameFrom {
		cameFrom[i] = -1
	}
	startIdx := g.start.Y*g.dim + g.start.X
	cameFrom[startIdx] = startIdx

	queue := []Point{g.start}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		if curr == g.goal {
			var path []Point
			for idx := curr.Y*g.dim + curr.X; idx != startIdx; idx = cameFrom[idx] {
				path = append(path, Point{idx % g.dim, idx / g.dim})
			}
			path = append(path, g.start)
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}

		for _, d := range neighbours {
			nx, ny := curr.X+d.X, curr.Y+d.Y
			if g.IsWall(nx, ny) || cameFrom[ny*g.dim+nx] != -1 {
				continue
			}
			cameFrom[ny*g.dim+nx] = curr.Y*g.dim + curr.X
			queue = append(queue, Point{nx, ny})
		}
	}
	return nil
}
