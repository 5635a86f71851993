// Package schedule fires alarms at their wall-clock time on their repeat days.
package schedule

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/tilt-alarm/alarm"
	"github.com/lixenwraith/tilt-alarm/metrics"
	"github.com/lixenwraith/tilt-alarm/parameter"
	"github.com/lixenwraith/tilt-alarm/service"
)

// FireFunc receives a due alarm by value
type FireFunc func(alarm.Descriptor)

// CancelFunc is told an alarm was removed so an active session can be torn down
type CancelFunc func(id string)

type entry struct {
	id       cron.EntryID
	desc     alarm.Descriptor
	schedule cron.Schedule
}

// Scheduler owns one cron entry per enabled alarm
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]entry
	loc     *time.Location
	now     func() time.Time
	running bool

	fire    FireFunc
	cancel  CancelFunc
	logger  zerolog.Logger
	metrics *metrics.Manager
}

// Option configures a Scheduler
type Option func(*Scheduler)

func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a stopped scheduler
func New(fire FireFunc, cancel CancelFunc, logger zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		entries: make(map[string]entry),
		loc:     time.Local,
		now:     time.Now,
		fire:    fire,
		cancel:  cancel,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = s.newCron()
	return s
}

func (s *Scheduler) newCron() *cron.Cron {
	cl := cronLogger{logger: s.logger}
	return cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
}

// Name implements Service
func (s *Scheduler) Name() string {
	return "scheduler"
}

// Dependencies implements Service
func (s *Scheduler) Dependencies() []string {
	return nil
}

// Init implements Service; a non-nil env.Location replaces the evaluation location
func (s *Scheduler) Init(env service.Env) error {
	if env.Location == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler: location change while running")
	}
	s.loc = env.Location
	// Rebuild so existing entries use the new location
	old := s.entries
	s.entries = make(map[string]entry)
	s.cron = s.newCron()
	for _, e := range old {
		if err := s.add(e.desc); err != nil {
			return err
		}
	}
	return nil
}

// Start implements Service
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.cron.Start()
	s.running = true
	s.logger.Info().Int("alarms", len(s.entries)).Msg("scheduler started")
	return nil
}

// Stop implements Service; waits for running fire jobs to return
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	c := s.cron
	s.mu.Unlock()

	<-c.Stop().Done()
	return nil
}

// Schedule registers d for firing on its days, replacing any entry for d.ID
// A disabled alarm is unscheduled instead
func (s *Scheduler) Schedule(d alarm.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if !d.Enabled {
		s.Unschedule(d.ID)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[d.ID]; ok {
		s.cron.Remove(old.id)
		delete(s.entries, d.ID)
	}
	return s.add(d)
}

// add registers d; caller holds mu
func (s *Scheduler) add(d alarm.Descriptor) error {
	sched, err := cron.ParseStandard(d.CronSpec())
	if err != nil {
		return fmt.Errorf("schedule alarm %s: %w", d.ID, err)
	}
	fire := s.fire
	desc := d
	id := s.cron.Schedule(sched, cron.FuncJob(func() {
		s.logger.Info().Str("alarm_id", desc.ID).Str("time", desc.Clock()).Msg("alarm due")
		fire(desc)
	}))
	s.entries[d.ID] = entry{id: id, desc: d, schedule: sched}
	s.metrics.ScheduledAlarms(len(s.entries))
	s.logger.Debug().Str("alarm_id", d.ID).Str("spec", d.CronSpec()).Msg("alarm scheduled")
	return nil
}

// Unschedule removes the entry for id and tells the cancel callback, which
// tears down a session the alarm may have running; reports whether an entry existed
func (s *Scheduler) Unschedule(id string) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		s.cron.Remove(e.id)
		delete(s.entries, id)
		s.metrics.ScheduledAlarms(len(s.entries))
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel(id)
	}
	return ok
}

// Reconcile makes the scheduled set match alarms: new or edited records are
// (re)scheduled, while records that vanished or were disabled are unscheduled,
// which cancels a session they may have ringing
func (s *Scheduler) Reconcile(alarms []alarm.Descriptor) (changed, removed int) {
	want := make(map[string]alarm.Descriptor, len(alarms))
	for _, d := range alarms {
		want[d.ID] = d
	}

	s.mu.Lock()
	var stale []string
	for id, e := range s.entries {
		if d, ok := want[id]; !ok || !d.Enabled {
			stale = append(stale, id)
		} else if d == e.desc {
			delete(want, id)
		}
	}
	s.mu.Unlock()

	slices.Sort(stale)
	for _, id := range stale {
		s.logger.Info().Str("alarm_id", id).Msg("alarm removed from store")
		s.Unschedule(id)
		removed++
	}
	for _, d := range alarms {
		if _, ok := want[d.ID]; !ok || !d.Enabled {
			continue
		}
		if err := s.Schedule(d); err != nil {
			s.logger.Warn().Err(err).Str("alarm_id", d.ID).Msg("stored alarm skipped")
			continue
		}
		changed++
	}
	return changed, removed
}

// Lister is the alarm source Sync polls; store.SQLite implements it
type Lister interface {
	List(ctx context.Context) ([]alarm.Descriptor, error)
}

// Sync reconciles against src now and then every interval until ctx is done,
// so edits made by other processes reach the running schedule
func (s *Scheduler) Sync(ctx context.Context, src Lister, interval time.Duration) error {
	if interval <= 0 {
		interval = parameter.StoreSyncInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		alarms, err := src.List(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			s.logger.Warn().Err(err).Msg("alarm store poll failed")
		default:
			if changed, removed := s.Reconcile(alarms); changed+removed > 0 {
				s.logger.Debug().Int("changed", changed).Int("removed", removed).Msg("schedule reconciled")
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Next returns the next fire time for id after the scheduler clock
func (s *Scheduler) Next(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return time.Time{}, false
	}
	return e.schedule.Next(s.now().In(s.loc)), true
}

// Alarms returns the scheduled descriptors ordered by next fire time
func (s *Scheduler) Alarms() []alarm.Descriptor {
	s.mu.Lock()
	now := s.now().In(s.loc)
	type pair struct {
		d    alarm.Descriptor
		next time.Time
	}
	pairs := make([]pair, 0, len(s.entries))
	for _, e := range s.entries {
		pairs = append(pairs, pair{d: e.desc, next: e.schedule.Next(now)})
	}
	s.mu.Unlock()

	slices.SortFunc(pairs, func(a, b pair) int {
		if c := a.next.Compare(b.next); c != 0 {
			return c
		}
		return strings.Compare(a.d.ID, b.d.ID)
	})
	out := make([]alarm.Descriptor, len(pairs))
	for i, p := range pairs {
		out[i] = p.d
	}
	return out
}

// cronLogger adapts zerolog to cron's logging interface
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
