package alarm

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/tilt-alarm/metrics"
)

// Sound is the alarm tone; StopSound must be a no-op when nothing plays
type Sound interface {
	StartSound() error
	StopSound()
}

// Notifier surfaces ringing alarms to the user
type Notifier interface {
	Notify(d Descriptor)
	DismissAll()
}

// Runtime owns the side effects a session drives, so nothing reaches for
// process globals. Close releases them and is safe to repeat.
type Runtime struct {
	Sound    Sound
	Notifier Notifier
	Logger   zerolog.Logger
	Metrics  *metrics.Manager

	closeOnce sync.Once
}

// NewRuntime fills nil effects with no-op implementations
func NewRuntime(sound Sound, notifier Notifier, logger zerolog.Logger, mm *metrics.Manager) *Runtime {
	if sound == nil {
		sound = NopSound{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Runtime{Sound: sound, Notifier: notifier, Logger: logger, Metrics: mm}
}

func (rt *Runtime) startSound() {
	if err := rt.Sound.StartSound(); err != nil {
		rt.Logger.Error().Err(err).Msg("alarm sound failed to start")
		return
	}
	rt.Metrics.SoundActive(true)
}

func (rt *Runtime) stopSound() {
	rt.Sound.StopSound()
	rt.Metrics.SoundActive(false)
}

// Close silences the alarm and clears notifications
func (rt *Runtime) Close() {
	rt.closeOnce.Do(func() {
		rt.stopSound()
		rt.Notifier.DismissAll()
	})
}

type NopSound struct{}

func (NopSound) StartSound() error { return nil }
func (NopSound) StopSound()        {}

type NopNotifier struct{}

func (NopNotifier) Notify(Descriptor) {}
func (NopNotifier) DismissAll()       {}

// LogNotifier reports notifications through the logger
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(d Descriptor) {
	n.Logger.Info().Str("alarm_id", d.ID).Str("time", d.Clock()).Str("label", d.Label).Msg("alarm ringing")
}

func (n LogNotifier) DismissAll() {
	n.Logger.Info().Msg("alarm notifications dismissed")
}
