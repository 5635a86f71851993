// Package engine serializes every input into the challenge coordinator from a single owner goroutine.
package engine

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/tilt-alarm/alarm"
	"github.com/lixenwraith/tilt-alarm/event"
	"github.com/lixenwraith/tilt-alarm/metrics"
	"github.com/lixenwraith/tilt-alarm/parameter"
	"github.com/lixenwraith/tilt-alarm/physics"
	"github.com/lixenwraith/tilt-alarm/quiz"
)

var ErrNotRunning = errors.New("dispatcher is not running")

// Target receives serialized inputs; alarm.Coordinator implements it
type Target interface {
	OnAlarmFired(d alarm.Descriptor) (bool, error)
	Cancel(id string) bool
	Tilt(x, y float64) (physics.StepResult, bool)
	Answer(choice string) (quiz.Outcome, bool)
	AnswerIndex(i int) (quiz.Outcome, bool)
}

// Dispatcher is the single consumer of all inputs
// Thread-Safety:
//   - Fire/Answer/Cancel: any goroutine, block until queued or ctx done, never dropped
//   - Tilt: any goroutine, never blocks, stale samples dropped under backpressure
//   - Run: exactly one goroutine
//
// Each wake drains queued controls before tilt samples, except that an
// alarm fire first applies the samples queued ahead of it
type Dispatcher struct {
	target   Target
	controls chan event.Control
	tilts    *event.TiltQueue
	running  atomic.Bool
	stopped  chan struct{}

	logger  zerolog.Logger
	metrics *metrics.Manager
}

// NewDispatcher creates a dispatcher feeding target
func NewDispatcher(target Target, logger zerolog.Logger, mm *metrics.Manager) *Dispatcher {
	return &Dispatcher{
		target:   target,
		controls: make(chan event.Control, parameter.ControlQueueSize),
		tilts:    event.NewTiltQueue(),
		stopped:  make(chan struct{}),
		logger:   logger,
		metrics:  mm,
	}
}

// Run consumes inputs until ctx is done
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("dispatcher already running")
	}
	defer close(d.stopped)
	d.logger.Debug().Msg("dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug().Msg("dispatcher stopped")
			return nil
		case c := <-d.controls:
			d.handle(c)
			d.drainControls()
			d.drainTilts()
		case <-d.tilts.Ready():
			d.drainControls()
			d.drainTilts()
		}
	}
}

func (d *Dispatcher) drainControls() {
	for {
		select {
		case c := <-d.controls:
			d.handle(c)
		default:
			return
		}
	}
}

// drainTilts applies queued samples strictly in arrival order
func (d *Dispatcher) drainTilts() {
	samples := d.tilts.Consume()
	if dropped := d.tilts.Dropped(); dropped > 0 {
		d.metrics.TiltDropped(dropped)
		d.logger.Debug().Uint64("dropped", dropped).Msg("stale tilt samples dropped")
	}
	for _, s := range samples {
		d.target.Tilt(s.X, s.Y)
	}
}

func (d *Dispatcher) handle(c event.Control) {
	switch c.Type {
	case event.TypeAlarmFired:
		// Samples queued before the fire belong to whatever ran before it
		d.drainTilts()
		if _, err := d.target.OnAlarmFired(c.Alarm); err != nil {
			d.logger.Error().Err(err).Str("alarm_id", c.Alarm.ID).Msg("alarm fire failed")
		}
	case event.TypeQuizAnswer:
		d.target.Answer(c.Choice)
	case event.TypeQuizAnswerIndex:
		d.target.AnswerIndex(c.Index)
	case event.TypeCancel:
		d.target.Cancel(c.AlarmID)
	case event.TypeFlush:
		d.drainTilts()
		close(c.Done)
	default:
		d.logger.Warn().Stringer("type", c.Type).Msg("unknown control event")
	}
}

func (d *Dispatcher) send(ctx context.Context, c event.Control) error {
	// A stopped loop must win over free buffer space
	select {
	case <-d.stopped:
		return ErrNotRunning
	default:
	}
	select {
	case d.controls <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		return ErrNotRunning
	}
}

// Fire queues an alarm trigger
func (d *Dispatcher) Fire(ctx context.Context, desc alarm.Descriptor) error {
	return d.send(ctx, event.Fired(desc))
}

// Answer queues a quiz answer by choice text
func (d *Dispatcher) Answer(ctx context.Context, choice string) error {
	return d.send(ctx, event.Answer(choice))
}

// AnswerIndex queues a quiz answer by choice position
func (d *Dispatcher) AnswerIndex(ctx context.Context, i int) error {
	return d.send(ctx, event.AnswerIndex(i))
}

// Cancel queues an external dismissal of the alarm's session
func (d *Dispatcher) Cancel(ctx context.Context, id string) error {
	return d.send(ctx, event.Cancel(id))
}

// Tilt queues a sample without blocking
func (d *Dispatcher) Tilt(x, y float64) {
	d.tilts.Push(event.TiltSample{X: x, Y: y})
}

// Flush waits until every input queued before it has been handled
func (d *Dispatcher) Flush(ctx context.Context) error {
	c := event.Flush()
	if err := d.send(ctx, c); err != nil {
		return err
	}
	select {
	case <-c.Done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		return ErrNotRunning
	}
}
