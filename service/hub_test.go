package service

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	name      string
	deps      []string
	log       *[]string
	failInit  bool
	failStart bool
	env       Env
}

func (f *fakeService) Name() string           { return f.name }
func (f *fakeService) Dependencies() []string { return f.deps }

func (f *fakeService) Init(env Env) error {
	f.env = env
	*f.log = append(*f.log, "init:"+f.name)
	if f.failInit {
		return errors.New("init boom")
	}
	return nil
}

func (f *fakeService) Start() error {
	*f.log = append(*f.log, "start:"+f.name)
	if f.failStart {
		return errors.New("start boom")
	}
	return nil
}

func (f *fakeService) Stop() error {
	*f.log = append(*f.log, "stop:"+f.name)
	return nil
}

func TestHubLifecycleOrder(t *testing.T) {
	var log []string
	h := NewHub(zerolog.Nop())
	require.NoError(t, h.Register(&fakeService{name: "scheduler", deps: []string{"store", "audio"}, log: &log}))
	require.NoError(t, h.Register(&fakeService{name: "audio", log: &log}))
	require.NoError(t, h.Register(&fakeService{name: "store", log: &log}))

	loc := time.FixedZone("UTC+1", 3600)
	require.NoError(t, h.InitAll(Env{Location: loc, Muted: true}))
	require.NoError(t, h.StartAll())
	h.StopAll()
	h.StopAll()

	assert.Equal(t, []string{
		"init:audio", "init:store", "init:scheduler",
		"start:audio", "start:store", "start:scheduler",
		"stop:scheduler", "stop:store", "stop:audio",
	}, log)

	svc, ok := h.Get("audio")
	require.True(t, ok)
	assert.Equal(t, Env{Location: loc, Muted: true}, svc.(*fakeService).env)
	assert.Equal(t, []string{"audio", "scheduler", "store"}, h.Names())

	_, ok = h.Get("missing")
	assert.False(t, ok)
}

func TestHubRejectsDuplicates(t *testing.T) {
	var log []string
	h := NewHub(zerolog.Nop())
	require.NoError(t, h.Register(&fakeService{name: "a", log: &log}))
	assert.ErrorIs(t, h.Register(&fakeService{name: "a", log: &log}), ErrDuplicate)
}

func TestHubDetectsCycleAndMissingDependency(t *testing.T) {
	var log []string
	h := NewHub(zerolog.Nop())
	require.NoError(t, h.Register(&fakeService{name: "a", deps: []string{"b"}, log: &log}))
	require.NoError(t, h.Register(&fakeService{name: "b", deps: []string{"a"}, log: &log}))
	err := h.InitAll(Env{})
	assert.ErrorIs(t, err, ErrCycle)
	assert.Contains(t, err.Error(), "a -> b -> a")

	h2 := NewHub(zerolog.Nop())
	require.NoError(t, h2.Register(&fakeService{name: "a", deps: []string{"ghost"}, log: &log}))
	assert.ErrorIs(t, h2.InitAll(Env{}), ErrUnresolved)
	assert.Empty(t, log)
}

func TestHubRollsBackFailedStart(t *testing.T) {
	var log []string
	h := NewHub(zerolog.Nop())
	require.NoError(t, h.Register(&fakeService{name: "a", log: &log}))
	require.NoError(t, h.Register(&fakeService{name: "b", deps: []string{"a"}, log: &log, failStart: true}))

	require.NoError(t, h.InitAll(Env{}))
	require.Error(t, h.StartAll())
	assert.Equal(t, []string{"init:a", "init:b", "start:a", "start:b", "stop:a"}, log)

	h.StopAll()
	assert.Len(t, log, 5)
}

func TestHubRollsBackFailedInit(t *testing.T) {
	var log []string
	h := NewHub(zerolog.Nop())
	require.NoError(t, h.Register(&fakeService{name: "a", log: &log}))
	require.NoError(t, h.Register(&fakeService{name: "b", deps: []string{"a"}, log: &log, failInit: true}))

	require.Error(t, h.InitAll(Env{}))
	assert.Equal(t, []string{"init:a", "init:b", "stop:a"}, log)
}

func TestHubStartRequiresInit(t *testing.T) {
	var log []string
	h := NewHub(zerolog.Nop())
	require.NoError(t, h.Register(&fakeService{name: "a", log: &log}))
	assert.Error(t, h.StartAll())
	assert.Empty(t, log)
}
