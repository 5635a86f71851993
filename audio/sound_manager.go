package audio

import (
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/tilt-alarm/parameter"
)

const sampleRate = beep.SampleRate(parameter.AlarmSampleRate)

// Player plays the alarm tone through the speaker
// Start and stop are idempotent; without an initialized speaker the mixer
// still tracks state so callers behave the same on silent machines
type Player struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	alarm       *beep.Ctrl
	initialized bool
}

// NewPlayer creates a player; Initialize attaches it to the audio device
func NewPlayer() *Player {
	return &Player{mixer: &beep.Mixer{}}
}

// Initialize sets up the speaker, safe to repeat
func (p *Player) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(parameter.AlarmBufferLength)); err != nil {
		return err
	}
	speaker.Play(p.mixer)
	p.initialized = true
	return nil
}

// Cleanup stops all sound and detaches from the speaker
func (p *Player) Cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.withSpeaker(func() {
		p.silence()
		p.mixer.Clear()
	})
	if p.initialized {
		speaker.Clear()
		p.initialized = false
	}
}

// StartSound begins the looping alarm tone; no-op while already playing
func (p *Player) StartSound() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.alarm != nil {
		return nil
	}
	ctrl := &beep.Ctrl{Streamer: NewAlarmTone(sampleRate)}
	p.withSpeaker(func() {
		p.alarm = ctrl
		p.mixer.Add(ctrl)
	})
	return nil
}

// StopSound silences the alarm tone; no-op when nothing plays
func (p *Player) StopSound() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.withSpeaker(p.silence)
}

// silence detaches the alarm ctrl; the mixer drops it on the next stream
func (p *Player) silence() {
	if p.alarm == nil {
		return
	}
	p.alarm.Paused = true
	p.alarm.Streamer = nil
	p.alarm = nil
}

// Playing reports whether the alarm tone is active
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alarm != nil
}

// withSpeaker runs fn under the speaker lock when the device streams the mixer
func (p *Player) withSpeaker(fn func()) {
	if p.initialized {
		speaker.Lock()
		defer speaker.Unlock()
	}
	fn()
}
