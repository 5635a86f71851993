package challenge

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/tilt-alarm/maze"
	"github.com/lixenwraith/tilt-alarm/metrics"
	"github.com/lixenwraith/tilt-alarm/physics"
	"github.com/lixenwraith/tilt-alarm/quiz"
)

var ErrBusy = errors.New("challenge already in progress")

// State of the machine: Idle -> Active -> Completed -> Idle
type State uint8

const (
	StateIdle State = iota
	StateActive
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// Completion is emitted once per genuinely passed session
type Completion struct {
	AlarmID string
	Kind    Kind
	Elapsed time.Duration
}

// CompletionHandler receives the completion event outside the machine lock
type CompletionHandler func(Completion)

// Option configures a Machine
type Option func(*Machine)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

func WithMetrics(mm *metrics.Manager) Option {
	return func(m *Machine) { m.metrics = mm }
}

func WithCompletionHandler(h CompletionHandler) Option {
	return func(m *Machine) { m.onComplete = h }
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// Machine owns at most one session and serializes every mutation of it
// Each activation bumps gen; a completion captured under an older gen is dropped,
// which is how cancel suppresses an in-flight completion
type Machine struct {
	mu        sync.Mutex
	state     State
	spec      Spec
	current   Challenge
	gen       uint64
	emitted   bool
	startedAt time.Time

	builder    Builder
	onComplete CompletionHandler
	logger     zerolog.Logger
	metrics    *metrics.Manager
	now        func() time.Time
}

// NewMachine creates an idle machine building sessions with b
func NewMachine(b Builder, opts ...Option) *Machine {
	m := &Machine{
		builder: b,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// pending is a completion captured under the lock, delivered after release
type pending struct {
	gen uint64
	c   Completion
}

// Start activates a session for spec; ErrBusy unless idle
// Generation runs here, before any input is accepted
func (m *Machine) Start(spec Spec) (BuildInfo, error) {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return BuildInfo{}, ErrBusy
	}

	c, info, err := m.builder.Build(spec)
	if err != nil {
		m.mu.Unlock()
		return info, err
	}
	if spec.Kind == KindMaze {
		m.metrics.MazeBuilt(info.Maze.Attempts, info.Maze.Fallback)
		if info.Maze.Fallback {
			m.logger.Warn().Err(info.Maze.LastErr).Str("alarm_id", spec.AlarmID).
				Int("dimension", info.Dimension).Msg("maze generation failed, using minimal maze")
		}
	}

	p := m.activate(spec, c)
	m.mu.Unlock()

	m.logger.Info().Str("alarm_id", spec.AlarmID).Stringer("kind", spec.Kind).
		Int("difficulty", spec.Difficulty).Int("dimension", info.Dimension).Msg("challenge started")
	m.deliver(p)
	return info, nil
}

// activate installs c as the current session; caller holds mu
func (m *Machine) activate(spec Spec, c Challenge) *pending {
	m.gen++
	m.state = StateActive
	m.spec = spec
	m.current = c
	m.emitted = false
	m.startedAt = m.now()
	m.metrics.ChallengeStarted(c.Kind().String())

	// A session that is satisfied from the outset never blocks dismissal
	if c.Done() {
		return m.complete()
	}
	return nil
}

// complete moves Active to Completed; caller holds mu
func (m *Machine) complete() *pending {
	if m.state != StateActive {
		return nil
	}
	m.state = StateCompleted
	return &pending{
		gen: m.gen,
		c: Completion{
			AlarmID: m.spec.AlarmID,
			Kind:    m.current.Kind(),
			Elapsed: m.now().Sub(m.startedAt),
		},
	}
}

// deliver emits p unless the session was torn down or already emitted
func (m *Machine) deliver(p *pending) {
	if p == nil {
		return
	}
	m.mu.Lock()
	if m.gen != p.gen || m.state != StateCompleted || m.emitted {
		m.mu.Unlock()
		m.logger.Debug().Str("alarm_id", p.c.AlarmID).Msg("completion suppressed")
		return
	}
	m.emitted = true
	h := m.onComplete
	m.mu.Unlock()

	m.metrics.ChallengeCompleted(p.c.Kind.String(), p.c.Elapsed)
	m.logger.Info().Str("alarm_id", p.c.AlarmID).Stringer("kind", p.c.Kind).
		Dur("elapsed", p.c.Elapsed).Msg("challenge completed")
	if h != nil {
		h(p.c)
	}
}

// Tilt feeds one sample to an active maze session
// Returns false when ignored: idle, completed, or a quiz session
func (m *Machine) Tilt(x, y float64) (physics.StepResult, bool) {
	m.mu.Lock()
	mz, ok := m.current.(*Maze)
	if m.state != StateActive || !ok {
		m.mu.Unlock()
		m.metrics.InputIgnored("tilt")
		return physics.StepResult{}, false
	}
	res := mz.tilt(x, y)
	var p *pending
	if mz.Done() {
		p = m.complete()
	}
	m.mu.Unlock()

	m.metrics.TiltProcessed()
	m.deliver(p)
	return res, true
}

// Answer grades choice on an active quiz session
func (m *Machine) Answer(choice string) (quiz.Outcome, bool) {
	return m.answer(func(s *quiz.Session) quiz.Outcome { return s.Answer(choice) })
}

// AnswerIndex answers with the i-th choice of the pending question
func (m *Machine) AnswerIndex(i int) (quiz.Outcome, bool) {
	return m.answer(func(s *quiz.Session) quiz.Outcome { return s.AnswerIndex(i) })
}

func (m *Machine) answer(grade func(*quiz.Session) quiz.Outcome) (quiz.Outcome, bool) {
	m.mu.Lock()
	qz, ok := m.current.(*Quiz)
	if m.state != StateActive || !ok {
		m.mu.Unlock()
		m.metrics.InputIgnored("answer")
		return quiz.OutcomeIgnored, false
	}
	out := grade(qz.Session)
	var p *pending
	if out == quiz.OutcomeCompleted {
		p = m.complete()
	}
	m.mu.Unlock()

	m.metrics.QuizAnswered(out.String())
	m.deliver(p)
	return out, true
}

// Cancel tears down the session for alarmID from any non-idle state
// A completion not yet delivered is suppressed
func (m *Machine) Cancel(alarmID string) bool {
	m.mu.Lock()
	if m.state == StateIdle || m.spec.AlarmID != alarmID {
		m.mu.Unlock()
		return false
	}
	was := m.state
	kind := m.current.Kind()
	m.reset()
	m.mu.Unlock()

	if was == StateActive {
		m.metrics.ChallengeCancelled(kind.String())
	}
	m.logger.Info().Str("alarm_id", alarmID).Stringer("from", was).Msg("challenge cancelled")
	return true
}

// Acknowledge returns a completed machine to idle and discards the session
func (m *Machine) Acknowledge() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateCompleted {
		return false
	}
	m.reset()
	return true
}

// reset discards session state; caller holds mu
func (m *Machine) reset() {
	m.gen++
	m.state = StateIdle
	m.spec = Spec{}
	m.current = nil
	m.emitted = false
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ActiveAlarm returns the alarm id owning the machine, empty when idle
func (m *Machine) ActiveAlarm() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spec.AlarmID
}

// View is an immutable copy of the session for renderers
type View struct {
	State   State
	AlarmID string
	Kind    Kind

	// Maze
	Maze     [][]int
	Ball     physics.Ball
	BallCell maze.Point
	Goal     maze.Point
	Radius   float64
	CellSize float64
	Steps    int

	// Quiz
	Prompt   string
	Choices  []string
	Streak   int
	Required int
}

// Snapshot copies the current session state
func (m *Machine) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{State: m.state, AlarmID: m.spec.AlarmID}
	switch c := m.current.(type) {
	case *Maze:
		v.Kind = KindMaze
		v.Maze = c.Grid.Rows()
		v.Ball = c.Ball
		x, y := physics.CellOf(c.Ball.X, c.Ball.Y, c.params)
		v.BallCell = maze.Point{X: x, Y: y}
		v.Goal = c.Grid.Goal()
		v.Radius = c.params.Radius
		v.CellSize = c.params.CellSize
		v.Steps = c.steps
	case *Quiz:
		v.Kind = KindQuiz
		if q, ok := c.Session.Current(); ok {
			v.Prompt = q.Prompt
			v.Choices = append([]string(nil), q.Choices...)
		}
		v.Streak = c.Session.Streak()
		v.Required = c.Session.Required()
	}
	return v
}
