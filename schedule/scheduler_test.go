package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/tilt-alarm/alarm"
	"github.com/lixenwraith/tilt-alarm/challenge"
	"github.com/lixenwraith/tilt-alarm/metrics"
	"github.com/lixenwraith/tilt-alarm/service"
)

type calls struct {
	mu        sync.Mutex
	fired     []alarm.Descriptor
	cancelled []string
}

func (c *calls) fire(d alarm.Descriptor) {
	c.mu.Lock()
	c.fired = append(c.fired, d)
	c.mu.Unlock()
}

func (c *calls) cancel(id string) {
	c.mu.Lock()
	c.cancelled = append(c.cancelled, id)
	c.mu.Unlock()
}

// runJob invokes the cron job for id as cron would at the due time
func runJob(s *Scheduler, id string) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	c := s.cron
	s.mu.Unlock()
	if !ok {
		return false
	}
	c.Entry(e.id).WrappedJob.Run()
	return true
}

var fixedNow = time.Date(2026, 5, 4, 6, 0, 0, 0, time.UTC)

func newTestScheduler(c *calls) *Scheduler {
	return New(c.fire, c.cancel, zerolog.Nop(),
		WithLocation(time.UTC),
		WithClock(func() time.Time { return fixedNow }),
		WithMetrics(metrics.NewManager()),
	)
}

func mustAlarm(t *testing.T, hour, minute int) alarm.Descriptor {
	t.Helper()
	d, err := alarm.New(hour, minute, challenge.KindQuiz, 2, "")
	require.NoError(t, err)
	return d
}

func TestScheduleComputesNextDailyTime(t *testing.T) {
	c := &calls{}
	s := newTestScheduler(c)

	later := mustAlarm(t, 7, 30)
	earlier := mustAlarm(t, 5, 0)
	require.NoError(t, s.Schedule(later))
	require.NoError(t, s.Schedule(earlier))

	next, ok := s.Next(later.ID)
	require.True(t, ok)
	assert.True(t, time.Date(2026, 5, 4, 7, 30, 0, 0, time.UTC).Equal(next), "got %s", next)

	next, ok = s.Next(earlier.ID)
	require.True(t, ok)
	assert.True(t, time.Date(2026, 5, 5, 5, 0, 0, 0, time.UTC).Equal(next), "passed today, fires tomorrow: %s", next)

	all := s.Alarms()
	require.Len(t, all, 2)
	assert.Equal(t, later.ID, all[0].ID)
	assert.Equal(t, earlier.ID, all[1].ID)
}

func TestJobFiresDescriptorByValue(t *testing.T) {
	c := &calls{}
	s := newTestScheduler(c)
	d := mustAlarm(t, 7, 0)
	require.NoError(t, s.Schedule(d))

	require.True(t, runJob(s, d.ID))
	require.Len(t, c.fired, 1)
	assert.Equal(t, d, c.fired[0])
}

func TestRescheduleReplacesEntry(t *testing.T) {
	c := &calls{}
	s := newTestScheduler(c)
	d := mustAlarm(t, 7, 0)
	require.NoError(t, s.Schedule(d))

	d.Hour = 9
	require.NoError(t, s.Schedule(d))
	assert.Len(t, s.Alarms(), 1)
	next, _ := s.Next(d.ID)
	assert.Equal(t, 9, next.Hour())

	require.True(t, runJob(s, d.ID))
	assert.Equal(t, 9, c.fired[0].Hour)
	assert.Empty(t, c.cancelled, "replacement is not a cancellation")
}

func TestUnscheduleCancels(t *testing.T) {
	c := &calls{}
	s := newTestScheduler(c)
	d := mustAlarm(t, 7, 0)
	require.NoError(t, s.Schedule(d))

	assert.True(t, s.Unschedule(d.ID))
	assert.Equal(t, []string{d.ID}, c.cancelled)
	_, ok := s.Next(d.ID)
	assert.False(t, ok)
	assert.False(t, runJob(s, d.ID))

	assert.False(t, s.Unschedule(d.ID))
	assert.Len(t, c.cancelled, 2, "cancel still reaches a session started by hand")
}

func TestDisabledAlarmIsUnscheduled(t *testing.T) {
	c := &calls{}
	s := newTestScheduler(c)
	d := mustAlarm(t, 7, 0)
	require.NoError(t, s.Schedule(d))

	d.Enabled = false
	require.NoError(t, s.Schedule(d))
	assert.Empty(t, s.Alarms())
	assert.Equal(t, []string{d.ID}, c.cancelled)
}

func TestScheduleRejectsInvalid(t *testing.T) {
	s := newTestScheduler(&calls{})
	assert.ErrorIs(t, s.Schedule(alarm.Descriptor{ID: "x", Minute: 99}), alarm.ErrInvalidDescriptor)
}

func TestServiceLifecycle(t *testing.T) {
	c := &calls{}
	s := newTestScheduler(c)
	d := mustAlarm(t, 7, 0)
	require.NoError(t, s.Schedule(d))

	loc := time.FixedZone("UTC+2", 2*3600)
	require.NoError(t, s.Init(service.Env{Location: loc}))
	next, ok := s.Next(d.ID)
	require.True(t, ok)
	assert.Equal(t, loc, next.Location())

	assert.Equal(t, "scheduler", s.Name())
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.Error(t, s.Init(service.Env{Location: time.UTC}), "location is fixed while running")
	require.NoError(t, s.Init(service.Env{}), "no location is not a change")
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}

func TestRepeatDaysSkipOtherWeekdays(t *testing.T) {
	s := newTestScheduler(&calls{})

	// fixedNow is Monday 06:00
	early := mustAlarm(t, 5, 0)
	early.Days = alarm.Weekdays
	weekend := mustAlarm(t, 7, 30)
	weekend.Days = alarm.Weekends
	require.NoError(t, s.Schedule(early))
	require.NoError(t, s.Schedule(weekend))

	next, ok := s.Next(early.ID)
	require.True(t, ok)
	assert.True(t, time.Date(2026, 5, 5, 5, 0, 0, 0, time.UTC).Equal(next), "got %s", next)

	next, ok = s.Next(weekend.ID)
	require.True(t, ok)
	assert.True(t, time.Date(2026, 5, 9, 7, 30, 0, 0, time.UTC).Equal(next), "got %s", next)
	assert.Equal(t, time.Saturday, next.Weekday())
}

func TestReconcileFollowsRecords(t *testing.T) {
	c := &calls{}
	s := newTestScheduler(c)
	kept := mustAlarm(t, 7, 0)
	edited := mustAlarm(t, 8, 0)
	gone := mustAlarm(t, 9, 0)
	disabled := mustAlarm(t, 10, 0)

	changed, removed := s.Reconcile([]alarm.Descriptor{kept, edited, gone, disabled})
	assert.Equal(t, 4, changed)
	assert.Zero(t, removed)

	changed, removed = s.Reconcile([]alarm.Descriptor{kept, edited, gone, disabled})
	assert.Zero(t, changed+removed, "unchanged records are left alone")

	edited.Hour = 11
	disabled.Enabled = false
	changed, removed = s.Reconcile([]alarm.Descriptor{kept, edited, disabled})
	assert.Equal(t, 1, changed)
	assert.Equal(t, 2, removed)

	next, ok := s.Next(edited.ID)
	require.True(t, ok)
	assert.Equal(t, 11, next.Hour())
	_, ok = s.Next(gone.ID)
	assert.False(t, ok)
	_, ok = s.Next(disabled.ID)
	assert.False(t, ok)
	assert.ElementsMatch(t, []string{gone.ID, disabled.ID}, c.cancelled)

	// Disabled records that were never scheduled do not cancel again
	c.cancelled = nil
	s.Reconcile([]alarm.Descriptor{kept, edited, disabled})
	assert.Empty(t, c.cancelled)
}

type fakeLister struct {
	mu     sync.Mutex
	alarms []alarm.Descriptor
	err    error
	polls  int
}

func (f *fakeLister) List(context.Context) ([]alarm.Descriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return append([]alarm.Descriptor(nil), f.alarms...), f.err
}

func (f *fakeLister) set(alarms []alarm.Descriptor, err error) {
	f.mu.Lock()
	f.alarms, f.err = alarms, err
	f.mu.Unlock()
}

func (f *fakeLister) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func (c *calls) cancelledIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.cancelled...)
}

func TestSyncPollsUntilDone(t *testing.T) {
	c := &calls{}
	s := newTestScheduler(c)
	d := mustAlarm(t, 7, 0)
	src := &fakeLister{alarms: []alarm.Descriptor{d}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Sync(ctx, src, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return len(s.Alarms()) == 1 }, 5*time.Second, 5*time.Millisecond)

	// A failed poll keeps the current schedule
	src.set(nil, errors.New("locked"))
	polls := src.pollCount()
	require.Eventually(t, func() bool { return src.pollCount() > polls+1 }, 5*time.Second, 5*time.Millisecond)
	assert.Len(t, s.Alarms(), 1)

	src.set(nil, nil)
	require.Eventually(t, func() bool { return len(c.cancelledIDs()) == 1 }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{d.ID}, c.cancelledIDs())
	assert.Empty(t, s.Alarms())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Sync did not stop")
	}
}
