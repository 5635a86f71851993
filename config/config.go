// Package config defines process configuration and how it is layered from
// defaults, an optional YAML file and TILTALARM_ environment variables.
package config

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lixenwraith/tilt-alarm/challenge"
	"github.com/lixenwraith/tilt-alarm/parameter"
	"github.com/lixenwraith/tilt-alarm/physics"
	"github.com/lixenwraith/tilt-alarm/quiz"
)

// Config contains process configuration
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error
	LogLevel string `koanf:"log_level"`
	// LogFile receives logs while the terminal UI owns the screen; empty means stderr
	LogFile string `koanf:"log_file"`
	Env     string `koanf:"env"`

	// DBPath is the SQLite file holding alarm records
	DBPath string `koanf:"db_path"`
	// MetricsAddr serves /metrics when non-empty, e.g. "127.0.0.1:9464"
	MetricsAddr string `koanf:"metrics_addr"`
	// StoreSync is how often a running session rereads the alarm store
	StoreSync time.Duration `koanf:"store_sync"`

	DefaultDifficulty int `koanf:"default_difficulty"`
	// QuestionsFile is a YAML question bank; empty uses the bundled questions
	QuestionsFile string `koanf:"questions_file"`

	CellSize     float64 `koanf:"cell_size"`
	BallRadius   float64 `koanf:"ball_radius"`
	TiltDeadZone float64 `koanf:"tilt_dead_zone"`
	TiltGain     float64 `koanf:"tilt_gain"`
	RestFriction float64 `koanf:"rest_friction"`
	MaxVelocity  float64 `koanf:"max_velocity"`
	// KeyTilt is the sample magnitude one arrow key press emits
	KeyTilt float64 `koanf:"key_tilt"`
	// GoalCheck is "previous" or "next"
	GoalCheck       string `koanf:"goal_check"`
	MazeMaxAttempts int    `koanf:"maze_max_attempts"`
}

// New returns a Config populated with defaults
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Env:               "development",
		DBPath:            "tilt-alarm.db",
		StoreSync:         parameter.StoreSyncInterval,
		DefaultDifficulty: parameter.DefaultDifficulty,
		CellSize:          parameter.CellSize,
		BallRadius:        parameter.BallRadius,
		TiltDeadZone:      parameter.TiltDeadZone,
		TiltGain:          parameter.TiltGain,
		RestFriction:      parameter.RestFriction,
		MaxVelocity:       parameter.MaxVelocity,
		KeyTilt:           parameter.KeyTiltMagnitude,
		GoalCheck:         physics.GoalCheckPrevious.String(),
		MazeMaxAttempts:   parameter.MazeMaxAttempts,
	}
}

// Validate reports the first unusable setting
func (c *Config) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"cell_size", c.CellSize},
		{"ball_radius", c.BallRadius},
		{"tilt_gain", c.TiltGain},
		{"max_velocity", c.MaxVelocity},
		{"key_tilt", c.KeyTilt},
	}
	for _, p := range positive {
		if !(p.v > 0) || math.IsInf(p.v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidConfig, p.name, p.v)
		}
	}
	if c.BallRadius >= c.CellSize/2 {
		return fmt.Errorf("%w: ball_radius %v must be below half of cell_size %v", ErrInvalidConfig, c.BallRadius, c.CellSize)
	}
	// Collision probes only sample the end of a step, so one step must not clear a one-cell wall
	if gap := c.CellSize - 2*c.BallRadius; c.MaxVelocity >= gap {
		return fmt.Errorf("%w: max_velocity %v must be below cell_size - 2*ball_radius (%v)", ErrInvalidConfig, c.MaxVelocity, gap)
	}
	if c.TiltDeadZone < 0 {
		return fmt.Errorf("%w: tilt_dead_zone must not be negative", ErrInvalidConfig)
	}
	if c.RestFriction < 0 || c.RestFriction > 1 {
		return fmt.Errorf("%w: rest_friction must be within [0,1], got %v", ErrInvalidConfig, c.RestFriction)
	}
	if _, ok := physics.ParseGoalCheck(c.GoalCheck); !ok {
		return fmt.Errorf("%w: goal_check %q", ErrInvalidConfig, c.GoalCheck)
	}
	if c.MazeMaxAttempts < 1 {
		return fmt.Errorf("%w: maze_max_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.DefaultDifficulty < parameter.MinDifficulty {
		return fmt.Errorf("%w: default_difficulty must be at least %d", ErrInvalidConfig, parameter.MinDifficulty)
	}
	if c.StoreSync <= 0 {
		return fmt.Errorf("%w: store_sync must be positive", ErrInvalidConfig)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	return nil
}

// Physics returns the simulator tuning; call after Validate
func (c *Config) Physics() physics.Params {
	gc, _ := physics.ParseGoalCheck(c.GoalCheck)
	return physics.Params{
		DeadZone:    c.TiltDeadZone,
		Gain:        c.TiltGain,
		Friction:    c.RestFriction,
		MaxVelocity: c.MaxVelocity,
		CellSize:    c.CellSize,
		Radius:      c.BallRadius,
		GoalCheck:   gc,
	}
}

// Builder assembles the challenge builder, loading the question bank if configured
func (c *Config) Builder(_ context.Context) (challenge.Builder, error) {
	b := challenge.Builder{
		Questions:    quiz.Builtin(),
		Physics:      c.Physics(),
		MazeAttempts: c.MazeMaxAttempts,
	}
	if c.QuestionsFile != "" {
		qs, err := quiz.LoadBank(c.QuestionsFile)
		if err != nil {
			return b, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
		b.Questions = qs
	}
	return b, nil
}
