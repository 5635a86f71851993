package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lixenwraith/tilt-alarm/maze"
	"github.com/lixenwraith/tilt-alarm/parameter"
)

func main() {
	difficulty := flag.Int("difficulty", parameter.DefaultDifficulty, "alarm difficulty, dimension is 11+2*difficulty")
	dim := flag.Int("dim", 0, "explicit dimension, overrides -difficulty")
	seed := flag.Int64("seed", 0, "carving seed, 0 picks one")
	solution := flag.Bool("solution", false, "mark the start to goal path")
	flag.Parse()

	d := *dim
	if d == 0 {
		d = maze.DimensionFor(*difficulty)
	}
	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}

	start := time.Now()
	g, report, err := maze.Build(d, maze.NewRand(s), parameter.MazeMaxAttempts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Seed %d, %dx%d, built in %v", s, g.Dim(), g.Dim(), time.Since(start))
	if report.Fallback {
		fmt.Printf(" (fallback after %d attempts: %v)", report.Attempts, report.LastErr)
	}
	fmt.Println()

	var path []maze.Point
	if *solution {
		path = maze.SolutionPath(g)
		fmt.Printf("Solution Path Length: %d steps\n", len(path))
	}
	draw(os.Stdout, g, path)
}

func draw(w io.Writer, g *maze.Grid, path []maze.Point) {
	onPath := make(map[maze.Point]bool, len(path))
	for _, p := range path {
		onPath[p] = true
	}

	for y := 0; y < g.Dim(); y++ {
		for x := 0; x < g.Dim(); x++ {
			p := maze.Point{X: x, Y: y}
			switch {
			case p == g.Start():
				fmt.Fprint(w, "S")
			case p == g.Goal():
				fmt.Fprint(w, "G")
			case g.IsWall(x, y):
				fmt.Fprint(w, "█")
			case onPath[p]:
				fmt.Fprint(w, "•")
			default:
				fmt.Fprint(w, " ")
			}
		}
		fmt.Fprintln(w)
	}
}
