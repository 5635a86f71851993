package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/tilt-alarm/alarm"
	"github.com/lixenwraith/tilt-alarm/audio"
	"github.com/lixenwraith/tilt-alarm/challenge"
	"github.com/lixenwraith/tilt-alarm/config"
	"github.com/lixenwraith/tilt-alarm/engine"
	"github.com/lixenwraith/tilt-alarm/logging"
	"github.com/lixenwraith/tilt-alarm/metrics"
	"github.com/lixenwraith/tilt-alarm/schedule"
	"github.com/lixenwraith/tilt-alarm/service"
	"github.com/lixenwraith/tilt-alarm/store"
	"github.com/lixenwraith/tilt-alarm/ui"
)

// The terminal belongs to the UI, so the interactive commands log to a file
const defaultLogFile = "tilt-alarm.log"

func cmdRing(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("ring", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	kindName, difficulty := challengeFlags(fs, cfg)
	mute := fs.Bool("mute", false, "no alarm sound")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	kind, err := challenge.ParseKind(*kindName)
	if err != nil {
		return err
	}
	now := time.Now()
	d, err := alarm.New(now.Hour(), now.Minute(), kind, *difficulty, "ring now")
	if err != nil {
		return err
	}
	return runApp(ctx, cfg, *mute, &d)
}

func cmdRun(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	mute := fs.Bool("mute", false, "no alarm sound")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	return runApp(ctx, cfg, *mute, nil)
}

func openLog(cfg *config.Config) (zerolog.Logger, func(), error) {
	path := cfg.LogFile
	if path == "" {
		path = defaultLogFile
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
	}
	logger := logging.New("tilt-alarm", cfg.Env, f).Level(logging.ParseLevel(cfg.LogLevel))
	return logger, func() { f.Close() }, nil
}

// runApp runs the session on the controlling terminal
func runApp(ctx context.Context, cfg *config.Config, mute bool, ring *alarm.Descriptor) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	return runSession(ctx, cfg, screen, mute, ring)
}

// runSession wires the terminal session: scheduler and UI feed the dispatcher,
// which owns the coordinator; ring, if set, fires immediately
func runSession(ctx context.Context, cfg *config.Config, screen tcell.Screen, mute bool, ring *alarm.Descriptor) error {
	logger, closeLog, err := openLog(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	ctx = logging.IntoContext(ctx, logger)

	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	builder, err := cfg.Builder(ctx)
	if err != nil {
		return err
	}
	mm := metrics.NewManager()

	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer func() {
		// Restore the terminal before the panic prints
		if r := recover(); r != nil {
			screen.Fini()
			panic(r)
		}
		screen.Fini()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sound := audio.NewService(logging.Component(logger, "audio"))
	app := ui.New(screen, cfg.KeyTilt, logging.Component(logger, "ui"))
	rt := alarm.NewRuntime(sound, app, logging.Component(logger, "runtime"), mm)
	defer rt.Close()

	coord := alarm.NewCoordinator(rt, builder, alarm.WithOnCompleted(func(c challenge.Completion) {
		app.Completed(c)
		w := store.Wake{AlarmID: c.AlarmID, Kind: c.Kind, CompletedAt: time.Now(), Elapsed: c.Elapsed}
		if err := db.RecordWake(ctx, w); err != nil {
			logger.Error().Err(err).Str("alarm_id", c.AlarmID).Msg("wake not recorded")
		}
	}))
	disp := engine.NewDispatcher(coord, logging.Component(logger, "dispatcher"), mm)
	app.Connect(disp, coord)

	// Deleting or disabling a ringing alarm in the store cancels its session
	sched := schedule.New(
		func(d alarm.Descriptor) {
			if err := disp.Fire(ctx, d); err != nil {
				logger.Warn().Err(err).Str("alarm_id", d.ID).Msg("alarm fire not delivered")
			}
		},
		func(id string) {
			if err := disp.Cancel(ctx, id); err != nil {
				logger.Warn().Err(err).Str("alarm_id", id).Msg("alarm cancel not delivered")
			}
		},
		logging.Component(logger, "scheduler"),
		schedule.WithMetrics(mm),
	)
	alarms, err := db.List(ctx)
	if err != nil {
		return err
	}
	sched.Reconcile(alarms)

	hub := service.NewHub(logging.Component(logger, "services"))
	services := []service.Service{sound, sched}
	if cfg.MetricsAddr != "" {
		services = append(services, metrics.NewServer(mm, cfg.MetricsAddr, logging.Component(logger, "metrics")))
	}
	for _, svc := range services {
		if err := hub.Register(svc); err != nil {
			return err
		}
	}
	if err := hub.InitAll(service.Env{Location: time.Local, Muted: mute}); err != nil {
		return err
	}
	if err := hub.StartAll(); err != nil {
		return err
	}
	defer hub.StopAll()
	logger.Info().Int("alarms", len(sched.Alarms())).Strs("services", hub.Names()).Msg("tilt-alarm running")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return disp.Run(gctx)
	})
	g.Go(func() error {
		return sched.Sync(gctx, db, cfg.StoreSync)
	})
	g.Go(func() error {
		// Quitting the UI ends the session
		defer cancel()
		return app.Run(gctx)
	})
	if ring != nil {
		g.Go(func() error {
			if err := disp.Fire(gctx, *ring); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
