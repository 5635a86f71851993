package challenge

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/tilt-alarm/maze"
	"github.com/lixenwraith/tilt-alarm/metrics"
	"github.com/lixenwraith/tilt-alarm/physics"
	"github.com/lixenwraith/tilt-alarm/quiz"
)

type recorder struct {
	mu  sync.Mutex
	got []Completion
}

func (r *recorder) handle(c Completion) {
	r.mu.Lock()
	r.got = append(r.got, c)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func newTestMachine(r *recorder) *Machine {
	return NewMachine(DefaultBuilder(),
		WithCompletionHandler(r.handle),
		WithMetrics(metrics.NewManager()),
	)
}

// startWith installs a prepared session the way Start does
func startWith(m *Machine, spec Spec, c Challenge) {
	m.mu.Lock()
	p := m.activate(spec, c)
	m.mu.Unlock()
	m.deliver(p)
}

// goalMaze places the ball one cell above the goal of a 5x5 minimal maze
func goalMaze(t *testing.T) *Maze {
	t.Helper()
	g, err := maze.Minimal(5)
	require.NoError(t, err)
	p := physics.DefaultParams()
	return &Maze{
		Grid:   g,
		Ball:   physics.Ball{X: 3.5 * p.CellSize, Y: 2.5 * p.CellSize},
		params: p,
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Maze ")
	require.NoError(t, err)
	assert.Equal(t, KindMaze, k)

	k, err = ParseKind("quiz")
	require.NoError(t, err)
	assert.Equal(t, KindQuiz, k)

	_, err = ParseKind("riddle")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestBuilderClampsDifficulty(t *testing.T) {
	c, info, err := DefaultBuilder().Build(Spec{AlarmID: "a", Kind: KindMaze, Difficulty: -4, Seed: 9})
	require.NoError(t, err)
	assert.Equal(t, 13, info.Dimension)
	mz := c.(*Maze)
	assert.Equal(t, 13, mz.Grid.Dim())
	assert.NoError(t, maze.Verify(mz.Grid))

	c, _, err = DefaultBuilder().Build(Spec{AlarmID: "a", Kind: KindQuiz, Difficulty: 0, Seed: 9})
	require.NoError(t, err)
	assert.Equal(t, 1, c.(*Quiz).Session.Required())
}

func TestBuilderRejectsUnknownKind(t *testing.T) {
	_, _, err := DefaultBuilder().Build(Spec{AlarmID: "a", Kind: Kind(7)})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestQuizLifecycle(t *testing.T) {
	r := &recorder{}
	m := newTestMachine(r)
	assert.Equal(t, StateIdle, m.State())

	_, err := m.Start(Spec{AlarmID: "wake", Kind: KindQuiz, Difficulty: 2, Seed: 3})
	require.NoError(t, err)
	assert.Equal(t, StateActive, m.State())
	assert.Equal(t, "wake", m.ActiveAlarm())

	_, err = m.Start(Spec{AlarmID: "other", Kind: KindQuiz, Difficulty: 1})
	assert.ErrorIs(t, err, ErrBusy)

	for i := 0; i < 2; i++ {
		v := m.Snapshot()
		require.Equal(t, KindQuiz, v.Kind)
		require.NotEmpty(t, v.Prompt)
		qz := m.current.(*Quiz)
		q, _ := qz.Session.Current()
		_, ok := m.Answer(q.Answer)
		require.True(t, ok)
	}

	assert.Equal(t, StateCompleted, m.State())
	require.Equal(t, 1, r.count())
	assert.Equal(t, "wake", r.got[0].AlarmID)
	assert.Equal(t, KindQuiz, r.got[0].Kind)

	out, ok := m.Answer("anything")
	assert.False(t, ok)
	assert.Equal(t, quiz.OutcomeIgnored, out)
	assert.Equal(t, 1, r.count())

	assert.True(t, m.Acknowledge())
	assert.Equal(t, StateIdle, m.State())
	assert.False(t, m.Acknowledge())
	assert.Empty(t, m.ActiveAlarm())
}

func TestSatisfiedSessionCompletesOnStart(t *testing.T) {
	r := &recorder{}
	m := newTestMachine(r)

	c, err := newQuizChallenge(quiz.Builtin(), 0, 1)
	require.NoError(t, err)
	startWith(m, Spec{AlarmID: "zero", Kind: KindQuiz}, c)

	assert.Equal(t, StateCompleted, m.State())
	assert.Equal(t, 1, r.count())
}

func TestMazeCompletesOnceAndIgnoresLaterTilts(t *testing.T) {
	r := &recorder{}
	m := newTestMachine(r)
	startWith(m, Spec{AlarmID: "maze", Kind: KindMaze}, goalMaze(t))

	for i := 0; i < 300 && m.State() == StateActive; i++ {
		_, ok := m.Tilt(0, -1)
		require.True(t, ok)
	}
	require.Equal(t, StateCompleted, m.State())
	assert.Equal(t, 1, r.count())

	for i := 0; i < 10; i++ {
		_, ok := m.Tilt(0, -1)
		assert.False(t, ok)
	}
	assert.Equal(t, 1, r.count())

	v := m.Snapshot()
	assert.Equal(t, v.Goal, v.BallCell)
}

func TestStrayInputsAreIgnored(t *testing.T) {
	r := &recorder{}
	m := newTestMachine(r)

	_, ok := m.Tilt(1, 1)
	assert.False(t, ok, "tilt while idle")
	_, ok = m.Answer("x")
	assert.False(t, ok, "answer while idle")

	startWith(m, Spec{AlarmID: "maze", Kind: KindMaze}, goalMaze(t))
	_, ok = m.Answer("x")
	assert.False(t, ok, "answer on a maze session")
	_, ok = m.AnswerIndex(0)
	assert.False(t, ok)
	assert.Equal(t, StateActive, m.State())
}

// A cancel delivered when the next sample would complete suppresses the completion
func TestCancelSuppressesPendingCompletion(t *testing.T) {
	r := &recorder{}
	m := newTestMachine(r)
	startWith(m, Spec{AlarmID: "doomed", Kind: KindMaze}, goalMaze(t))

	p := physics.DefaultParams()
	entered := false
	for i := 0; i < 300; i++ {
		res, ok := m.Tilt(0, -1)
		require.True(t, ok)
		require.False(t, res.AtGoal)
		cx, cy := physics.CellOf(res.Ball.X, res.Ball.Y, p)
		if cx == 3 && cy == 3 {
			entered = true
			break
		}
	}
	require.True(t, entered, "ball never entered the goal cell")

	assert.False(t, m.Cancel("someone-else"))
	assert.True(t, m.Cancel("doomed"))
	assert.Equal(t, StateIdle, m.State())

	_, ok := m.Tilt(0, -1)
	assert.False(t, ok)
	assert.Zero(t, r.count())
	assert.False(t, m.Cancel("doomed"))
}

func TestCancelBetweenCompletionAndDelivery(t *testing.T) {
	r := &recorder{}
	m := newTestMachine(r)

	c, err := newQuizChallenge([]quiz.Question{{Prompt: "p", Choices: []string{"a", "b"}, Answer: "a"}}, 1, 1)
	require.NoError(t, err)
	startWith(m, Spec{AlarmID: "race", Kind: KindQuiz}, c)

	// Complete under the lock, cancel, then attempt delivery
	m.mu.Lock()
	m.current.(*Quiz).Session.Answer("a")
	p := m.complete()
	m.mu.Unlock()
	require.NotNil(t, p)

	require.True(t, m.Cancel("race"))
	m.deliver(p)
	assert.Zero(t, r.count())
}

func TestConcurrentAnswersEmitExactlyOnce(t *testing.T) {
	var completions atomic.Int32
	m := NewMachine(DefaultBuilder(), WithCompletionHandler(func(Completion) { completions.Add(1) }))

	c, err := newQuizChallenge([]quiz.Question{{Prompt: "p", Choices: []string{"a", "b"}, Answer: "a"}}, 3, 1)
	require.NoError(t, err)
	startWith(m, Spec{AlarmID: "many", Kind: KindQuiz}, c)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Answer("a")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), completions.Load())
	assert.Equal(t, StateCompleted, m.State())
}

func TestConcurrentTiltsEmitExactlyOnce(t *testing.T) {
	var completions atomic.Int32
	m := NewMachine(DefaultBuilder(), WithCompletionHandler(func(Completion) { completions.Add(1) }))
	startWith(m, Spec{AlarmID: "tilt", Kind: KindMaze}, goalMaze(t))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				m.Tilt(0, -1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), completions.Load())
}

func TestHandlerMayAcknowledge(t *testing.T) {
	var m *Machine
	acked := false
	m = NewMachine(DefaultBuilder(), WithCompletionHandler(func(Completion) {
		acked = m.Acknowledge()
	}))

	c, err := newQuizChallenge(quiz.Builtin(), 0, 1)
	require.NoError(t, err)
	startWith(m, Spec{AlarmID: "ack", Kind: KindQuiz}, c)

	assert.True(t, acked)
	assert.Equal(t, StateIdle, m.State())

	_, err = m.Start(Spec{AlarmID: "next", Kind: KindMaze, Difficulty: 1, Seed: 2})
	assert.NoError(t, err)
}
