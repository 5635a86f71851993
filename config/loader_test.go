package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/lixenwraith/tilt-alarm/config"
	"github.com/lixenwraith/tilt-alarm/physics"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(config.EnvFile, "")
	convey.Convey("Given no file and no environment", t, func() {
		cfg, err := config.Load(context.Background(), "")

		convey.Convey("Then defaults are returned", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.DBPath, convey.ShouldEqual, "tilt-alarm.db")
			convey.So(cfg.DefaultDifficulty, convey.ShouldEqual, 3)
			convey.So(cfg.CellSize, convey.ShouldEqual, 24.0)
			convey.So(cfg.BallRadius, convey.ShouldEqual, 8.0)
			convey.So(cfg.GoalCheck, convey.ShouldEqual, "previous")
			convey.So(cfg.MazeMaxAttempts, convey.ShouldEqual, 3)
			convey.So(cfg.StoreSync, convey.ShouldEqual, 2*time.Second)
		})

		convey.Convey("Then the physics tuning matches the reference", func() {
			convey.So(cfg.Physics(), convey.ShouldResemble, physics.DefaultParams())
		})
	})
}

func TestLoadLayers(t *testing.T) {
	path := writeFile(t, "tilt.yaml", `
db_path: "/tmp/alarms.db"
default_difficulty: 5
cell_size: 30
ball_radius: 10
goal_check: "next"
`)
	t.Setenv(config.EnvFile, "")
	t.Setenv("TILTALARM_DEFAULT_DIFFICULTY", "7")
	t.Setenv("TILTALARM_METRICS_ADDR", "127.0.0.1:9464")
	t.Setenv("TILTALARM_STORE_SYNC", "500ms")

	convey.Convey("Given a YAML file and environment overrides", t, func() {
		cfg, err := config.Load(context.Background(), path)

		convey.Convey("Then the file overrides defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/alarms.db")
			convey.So(cfg.CellSize, convey.ShouldEqual, 30.0)
			convey.So(cfg.BallRadius, convey.ShouldEqual, 10.0)
			convey.So(cfg.Physics().GoalCheck, convey.ShouldEqual, physics.GoalCheckNext)
		})

		convey.Convey("Then the environment overrides the file", func() {
			convey.So(cfg.DefaultDifficulty, convey.ShouldEqual, 7)
			convey.So(cfg.MetricsAddr, convey.ShouldEqual, "127.0.0.1:9464")
			convey.So(cfg.StoreSync, convey.ShouldEqual, 500*time.Millisecond)
		})

		convey.Convey("Then untouched settings keep their defaults", func() {
			convey.So(cfg.TiltGain, convey.ShouldEqual, 0.05)
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
		})
	})
}

func TestLoadFileFromEnvironment(t *testing.T) {
	path := writeFile(t, "tilt.yaml", "log_level: debug\n")
	t.Setenv(config.EnvFile, path)

	convey.Convey("Given TILTALARM_CONFIG names a file", t, func() {
		cfg, err := config.Load(context.Background(), "")
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
	})
}

func TestLoadRejects(t *testing.T) {
	t.Setenv(config.EnvFile, "")

	convey.Convey("Given unusable settings", t, func() {
		cases := []struct{ name, body string }{
			{"radius too large", "ball_radius: 12\n"},
			{"unknown goal", "goal_check: sideways\n"},
			{"zero cell", "cell_size: 0\n"},
			{"friction above 1", "rest_friction: 1.5\n"},
			{"no attempts", "maze_max_attempts: 0\n"},
			{"difficulty zero", "default_difficulty: 0\n"},
			{"negative deadzone", "tilt_dead_zone: -0.1\n"},
			{"velocity clears a wall", "max_velocity: 8\n"},
			{"velocity clears a narrow wall", "cell_size: 20\nmax_velocity: 4.5\n"},
			{"zero store sync", "store_sync: 0s\n"},
		}
		for _, tc := range cases {
			convey.Convey("Then loading fails: "+tc.name, func() {
				path := writeFile(t, "bad.yaml", tc.body)
				_, err := config.Load(context.Background(), path)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})

	convey.Convey("Given a missing file", t, func() {
		_, err := config.Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
		convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
	})
}

func TestBuilder(t *testing.T) {
	convey.Convey("Given a config", t, func() {
		cfg := config.New()

		convey.Convey("Without a question file the bundled questions are used", func() {
			b, err := cfg.Builder(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(b.Questions), convey.ShouldBeGreaterThan, 0)
			convey.So(b.MazeAttempts, convey.ShouldEqual, 3)
		})

		convey.Convey("With a question file its questions are used", func() {
			cfg.QuestionsFile = writeFile(t, "q.yaml", `
questions:
  - prompt: "2+2?"
    choices: ["3", "4"]
    answer: "4"
`)
			b, err := cfg.Builder(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(b.Questions), convey.ShouldEqual, 1)
			convey.So(b.Questions[0].Answer, convey.ShouldEqual, "4")
		})

		convey.Convey("With a broken question file loading fails", func() {
			cfg.QuestionsFile = writeFile(t, "q.yaml", "questions: []\n")
			_, err := cfg.Builder(context.Background())
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})
	})
}
