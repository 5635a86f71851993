// Package challenge owns the wake-up task gating an alarm: which variant is
// active, feeding it input, and emitting a single completion event.
package challenge

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/lixenwraith/tilt-alarm/maze"
	"github.com/lixenwraith/tilt-alarm/parameter"
	"github.com/lixenwraith/tilt-alarm/physics"
	"github.com/lixenwraith/tilt-alarm/quiz"
)

// Kind names a challenge variant
type Kind uint8

const (
	KindQuiz Kind = iota
	KindMaze
)

var ErrUnknownKind = errors.New("unknown challenge kind")

func (k Kind) String() string {
	switch k {
	case KindQuiz:
		return "quiz"
	case KindMaze:
		return "maze"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind accepts "quiz" or "maze", case-insensitive
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quiz":
		return KindQuiz, nil
	case "maze":
		return KindMaze, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Challenge is the closed set of variants; the unexported method seals it
type Challenge interface {
	Kind() Kind
	Done() bool
	sealed()
}

// Quiz wraps a streak session
type Quiz struct {
	Session *quiz.Session
}

func (*Quiz) Kind() Kind   { return KindQuiz }
func (q *Quiz) Done() bool { return q.Session.Done() }
func (*Quiz) sealed()      {}

// Maze is a ball-in-maze session; the ball is owned exclusively by this value
type Maze struct {
	Grid   *maze.Grid
	Ball   physics.Ball
	params physics.Params
	steps  int
	done   bool
}

func (*Maze) Kind() Kind   { return KindMaze }
func (m *Maze) Done() bool { return m.done }
func (*Maze) sealed()      {}

// Steps returns the number of samples applied
func (m *Maze) Steps() int {
	return m.steps
}

// tilt applies one sample; once done the ball no longer moves
func (m *Maze) tilt(x, y float64) physics.StepResult {
	if m.done {
		return physics.StepResult{Ball: m.Ball, AtGoal: true}
	}
	res := physics.Step(m.Ball, x, y, m.Grid, m.params)
	m.Ball = res.Ball
	m.steps++
	if res.AtGoal {
		m.done = true
	}
	return res
}

// Spec describes the challenge an alarm asks for
type Spec struct {
	AlarmID    string
	Kind       Kind
	Difficulty int
	// Seed drives maze carving and question shuffling; 0 draws a fresh seed
	Seed int64
}

// BuildInfo reports how the session was constructed
type BuildInfo struct {
	Dimension int
	Maze      maze.BuildReport
}

// Builder turns a Spec into a fresh session
type Builder struct {
	Questions    []quiz.Question
	Physics      physics.Params
	MazeAttempts int
}

// DefaultBuilder uses the bundled questions and reference physics
func DefaultBuilder() Builder {
	return Builder{
		Questions:    quiz.Builtin(),
		Physics:      physics.DefaultParams(),
		MazeAttempts: parameter.MazeMaxAttempts,
	}
}

// Build creates the session for spec; difficulty below the minimum is clamped
func (b Builder) Build(spec Spec) (Challenge, BuildInfo, error) {
	var info BuildInfo
	difficulty := spec.Difficulty
	if difficulty < parameter.MinDifficulty {
		difficulty = parameter.MinDifficulty
	}
	rng := maze.NewRand(spec.Seed)

	switch spec.Kind {
	case KindQuiz:
		s, err := quiz.NewSession(b.Questions, difficulty, rng)
		if err != nil {
			return nil, info, fmt.Errorf("build quiz for alarm %s: %w", spec.AlarmID, err)
		}
		return &Quiz{Session: s}, info, nil

	case KindMaze:
		info.Dimension = maze.DimensionFor(difficulty)
		g, report, err := maze.Build(info.Dimension, rng, b.MazeAttempts)
		info.Maze = report
		if err != nil {
			return nil, info, fmt.Errorf("build maze for alarm %s: %w", spec.AlarmID, err)
		}
		return &Maze{
			Grid:   g,
			Ball:   physics.Spawn(g, b.Physics),
			params: b.Physics,
		}, info, nil
	}
	return nil, info, fmt.Errorf("%w: %d", ErrUnknownKind, spec.Kind)
}

// newQuizChallenge is used by tests that need a specific pool and streak
func newQuizChallenge(pool []quiz.Question, required int, seed int64) (*Quiz, error) {
	s, err := quiz.NewSession(pool, required, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	return &Quiz{Session: s}, nil
}
