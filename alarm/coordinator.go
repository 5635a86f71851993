package alarm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/tilt-alarm/challenge"
	"github.com/lixenwraith/tilt-alarm/physics"
	"github.com/lixenwraith/tilt-alarm/quiz"
)

// CoordinatorOption configures a Coordinator
type CoordinatorOption func(*Coordinator)

// WithOnCompleted observes every emitted completion after effects are released
func WithOnCompleted(fn func(challenge.Completion)) CoordinatorOption {
	return func(c *Coordinator) { c.onCompleted = fn }
}

// WithSeed supplies per-session seeds; returning 0 draws a fresh one
func WithSeed(fn func() int64) CoordinatorOption {
	return func(c *Coordinator) {
		if fn != nil {
			c.seed = fn
		}
	}
}

// Coordinator turns fired alarms into challenge sessions and releases the
// sound and notifications exactly once when a session ends
type Coordinator struct {
	rt      *Runtime
	machine *challenge.Machine
	logger  zerolog.Logger

	// fireMu serializes fire and cancel; never taken by the completion path
	fireMu sync.Mutex

	mu     sync.Mutex
	active map[string]Descriptor

	onCompleted func(challenge.Completion)
	seed        func() int64
}

// NewCoordinator creates a coordinator driving a fresh machine built with b
func NewCoordinator(rt *Runtime, b challenge.Builder, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		rt:     rt,
		logger: rt.Logger.With().Str("component", "coordinator").Logger(),
		active: make(map[string]Descriptor),
		seed:   func() int64 { return 0 },
	}
	for _, opt := range opts {
		opt(c)
	}
	c.machine = challenge.NewMachine(b,
		challenge.WithLogger(rt.Logger.With().Str("component", "challenge").Logger()),
		challenge.WithMetrics(rt.Metrics),
		challenge.WithCompletionHandler(c.handleCompletion),
	)
	return c
}

// seenAndRecord reports whether id already owns a session, recording it if not
func (c *Coordinator) seenAndRecord(d Descriptor) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.active[d.ID]; ok {
		return true
	}
	c.active[d.ID] = d
	return false
}

func (c *Coordinator) unrecord(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.active[id]; !ok {
		return false
	}
	delete(c.active, id)
	return true
}

// OnAlarmFired starts a session for d and reports whether one was started
// A duplicate fire for the active id, or any fire while another session
// runs, is a no-op rather than an error
func (c *Coordinator) OnAlarmFired(d Descriptor) (bool, error) {
	if err := d.Validate(); err != nil {
		return false, err
	}

	c.fireMu.Lock()
	defer c.fireMu.Unlock()

	if c.seenAndRecord(d) {
		c.rt.Metrics.FireIgnored("duplicate")
		c.logger.Debug().Str("alarm_id", d.ID).Msg("duplicate fire ignored")
		return false, nil
	}
	if st := c.machine.State(); st != challenge.StateIdle {
		c.unrecord(d.ID)
		c.rt.Metrics.FireIgnored("busy")
		c.logger.Info().Str("alarm_id", d.ID).Str("active", c.machine.ActiveAlarm()).
			Stringer("state", st).Msg("fire ignored while another challenge is in progress")
		return false, nil
	}

	c.rt.startSound()
	c.rt.Notifier.Notify(d)

	if _, err := c.machine.Start(d.ChallengeSpec(c.seed())); err != nil {
		c.unrecord(d.ID)
		c.release()
		if errors.Is(err, challenge.ErrBusy) {
			c.rt.Metrics.FireIgnored("busy")
			return false, nil
		}
		return false, fmt.Errorf("start challenge for alarm %s: %w", d.ID, err)
	}
	return true, nil
}

// Cancel tears down the session for id: the alarm was dismissed, deleted or unscheduled
// No completion is emitted for a cancelled session
func (c *Coordinator) Cancel(id string) bool {
	c.fireMu.Lock()
	defer c.fireMu.Unlock()

	cancelled := c.machine.Cancel(id)
	recorded := c.unrecord(id)
	if !cancelled && !recorded {
		return false
	}
	c.release()
	c.logger.Info().Str("alarm_id", id).Msg("alarm cancelled")
	return true
}

// handleCompletion is the acknowledgement path for a passed session
func (c *Coordinator) handleCompletion(done challenge.Completion) {
	c.release()
	c.unrecord(done.AlarmID)
	if c.onCompleted != nil {
		c.onCompleted(done)
	}
	c.machine.Acknowledge()
}

// release stops the sound and clears notifications; both are safe to repeat
func (c *Coordinator) release() {
	c.rt.stopSound()
	c.rt.Notifier.DismissAll()
}

// Tilt forwards a sample; ignored unless a maze session is active
func (c *Coordinator) Tilt(x, y float64) (physics.StepResult, bool) {
	return c.machine.Tilt(x, y)
}

// Answer forwards a quiz answer; ignored unless a quiz session is active
func (c *Coordinator) Answer(choice string) (quiz.Outcome, bool) {
	return c.machine.Answer(choice)
}

func (c *Coordinator) AnswerIndex(i int) (quiz.Outcome, bool) {
	return c.machine.AnswerIndex(i)
}

func (c *Coordinator) Snapshot() challenge.View {
	return c.machine.Snapshot()
}

// Active returns the descriptor owning the current session
func (c *Coordinator) Active() (Descriptor, bool) {
	id := c.machine.ActiveAlarm()
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.active[id]
	return d, ok
}
