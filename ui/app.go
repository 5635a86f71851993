// Package ui is the terminal front-end: it renders the active challenge and
// turns key presses into tilt samples and quiz answers.
package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/tilt-alarm/alarm"
	"github.com/lixenwraith/tilt-alarm/challenge"
	"github.com/lixenwraith/tilt-alarm/parameter"
)

// Input accepts user input; engine.Dispatcher implements it
type Input interface {
	Tilt(x, y float64)
	AnswerIndex(ctx context.Context, i int) error
}

// Source provides the state to render; alarm.Coordinator implements it
type Source interface {
	Snapshot() challenge.View
}

const quitRefused = "solve the challenge to stop the alarm"

// App owns the screen
// Key handling and drawing run on the Run goroutine; Notify, DismissAll and
// Completed may be called from any goroutine
type App struct {
	screen  tcell.Screen
	input   Input
	source  Source
	keyTilt float64
	logger  zerolog.Logger

	// Emulated sensor: the held direction is fed once per frame for hold frames
	tiltX, tiltY float64
	hold         int

	mu      sync.Mutex
	ringing string
	status  string
}

// New creates an App over an initialized screen
// The App is the runtime's Notifier, so input and source are attached later with Connect
func New(screen tcell.Screen, keyTilt float64, logger zerolog.Logger) *App {
	if keyTilt <= 0 {
		keyTilt = parameter.KeyTiltMagnitude
	}
	return &App{
		screen:  screen,
		keyTilt: keyTilt,
		logger:  logger,
	}
}

// Connect attaches the input sink and the render source; call before Run
func (a *App) Connect(input Input, source Source) {
	a.input = input
	a.source = source
}

// Notify implements alarm.Notifier
func (a *App) Notify(d alarm.Descriptor) {
	a.mu.Lock()
	a.ringing = fmt.Sprintf("ALARM %s %s", d.Clock(), d.Label)
	a.status = ""
	a.mu.Unlock()
	a.wake()
}

// DismissAll implements alarm.Notifier
func (a *App) DismissAll() {
	a.mu.Lock()
	if a.ringing != "" && (a.status == "" || a.status == quitRefused) {
		a.status = "alarm dismissed"
	}
	a.ringing = ""
	a.mu.Unlock()
	a.wake()
}

// Completed records a passed challenge for the status line
func (a *App) Completed(c challenge.Completion) {
	a.mu.Lock()
	a.ringing = ""
	a.status = fmt.Sprintf("alarm silenced: %s solved in %s", c.Kind, c.Elapsed.Round(time.Second))
	a.mu.Unlock()
	a.wake()
}

func (a *App) lines() (ringing, status string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ringing, a.status
}

// wake asks Run to redraw without waiting for the next frame
func (a *App) wake() {
	_ = a.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

// Run handles events and draws until ctx is done or the user quits
func (a *App) Run(ctx context.Context) error {
	if a.input == nil || a.source == nil {
		return errors.New("ui: Run before Connect")
	}
	ticker := time.NewTicker(parameter.FrameInterval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	defer close(quit)
	go a.screen.ChannelEvents(events, quit)

	a.Draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !a.HandleEvent(ctx, ev) {
				a.logger.Info().Msg("quit requested")
				return nil
			}
			a.Draw()
		case <-ticker.C:
			a.Tick()
			a.Draw()
		}
	}
}

// HandleEvent applies one terminal event and reports whether to keep running
func (a *App) HandleEvent(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return a.handleKey(ctx, ev)
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *App) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return !a.canQuit()
	case tcell.KeyUp:
		a.press(0, a.keyTilt)
	case tcell.KeyDown:
		a.press(0, -a.keyTilt)
	case tcell.KeyLeft:
		a.press(-a.keyTilt, 0)
	case tcell.KeyRight:
		a.press(a.keyTilt, 0)
	case tcell.KeyRune:
		r := ev.Rune()
		switch {
		case r == 'q':
			return !a.canQuit()
		case r == ' ':
			a.hold = 0
			a.input.Tilt(0, 0)
		case r >= '1' && r <= '9':
			if err := a.input.AnswerIndex(ctx, int(r-'1')); err != nil {
				a.logger.Warn().Err(err).Msg("answer not delivered")
			}
		}
	}
	return true
}

// canQuit refuses to end the session while an alarm rings or its challenge
// is still in progress; only solving the challenge silences it
func (a *App) canQuit() bool {
	a.mu.Lock()
	ringing := a.ringing != ""
	a.mu.Unlock()
	if st := a.source.Snapshot().State; ringing || st != challenge.StateIdle {
		a.mu.Lock()
		a.status = quitRefused
		a.mu.Unlock()
		return false
	}
	return true
}

// press tilts the board toward a direction; up tilts away from the user
func (a *App) press(x, y float64) {
	a.tiltX, a.tiltY = x, y
	a.hold = parameter.KeyRepeatSamples
	a.input.Tilt(x, y)
	a.hold--
}

// Tick feeds one emulated sensor sample while a maze is being played
func (a *App) Tick() {
	v := a.source.Snapshot()
	if v.State != challenge.StateActive || v.Kind != challenge.KindMaze {
		a.hold = 0
		return
	}
	if a.hold > 0 {
		a.input.Tilt(a.tiltX, a.tiltY)
		a.hold--
		return
	}
	a.input.Tilt(0, 0)
}
