package audio

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/tilt-alarm/service"
)

// AudioService wraps Player as a Service
// Handles graceful degradation when no audio device is available
type AudioService struct {
	player   *Player
	disabled atomic.Bool
	logger   zerolog.Logger
}

// NewService creates a new audio service
func NewService(logger zerolog.Logger) *AudioService {
	return &AudioService{
		player: NewPlayer(),
		logger: logger,
	}
}

// Name implements Service
func (s *AudioService) Name() string {
	return "audio"
}

// Dependencies implements Service
func (s *AudioService) Dependencies() []string {
	return nil
}

// Init implements Service
// A muted env keeps the device closed and every sound silent
func (s *AudioService) Init(env service.Env) error {
	if env.Muted {
		s.disabled.Store(true)
	}
	return nil
}

// Start implements Service
// Opens the device; sets disabled on failure (no error returned)
func (s *AudioService) Start() error {
	if s.disabled.Load() {
		return nil
	}
	if err := s.player.Initialize(); err != nil {
		s.logger.Warn().Err(err).Msg("audio device unavailable, alarm will be silent")
		s.disabled.Store(true)
	}
	return nil
}

// Stop implements Service
func (s *AudioService) Stop() error {
	s.player.Cleanup()
	return nil
}

// IsDisabled returns true if audio is unavailable or muted
func (s *AudioService) IsDisabled() bool {
	return s.disabled.Load()
}

// StartSound starts the alarm tone
// A disabled service still tracks the ringing state so stop stays balanced
func (s *AudioService) StartSound() error {
	return s.player.StartSound()
}

// StopSound is safe to call when nothing plays
func (s *AudioService) StopSound() {
	s.player.StopSound()
}

func (s *AudioService) Playing() bool {
	return s.player.Playing()
}
