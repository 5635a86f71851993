package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Challenge durations range from seconds (easy quiz) to many minutes (large maze)
var defaultBuckets = []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200}

// Manager owns every collector; a nil *Manager is a valid no-op recorder
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Challenge lifecycle
	challengesStarted   *prometheus.CounterVec
	challengesCompleted *prometheus.CounterVec
	challengesCancelled *prometheus.CounterVec
	challengeDuration   *prometheus.HistogramVec
	challengeActive     prometheus.Gauge

	// Coordinator
	firesIgnored *prometheus.CounterVec
	soundActive  prometheus.Gauge

	// Inputs
	quizAnswers    *prometheus.CounterVec
	tiltProcessed  prometheus.Counter
	tiltDropped    prometheus.Counter
	inputsIgnored  *prometheus.CounterVec
	mazeFallbacks  prometheus.Counter
	mazeAttempts   prometheus.Counter
	scheduledAlarm prometheus.Gauge
}

// NewManager creates a manager on a private registry unless one is supplied
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tiltalarm",
		subsystem:        "challenge",
		histogramBuckets: defaultBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.challengesStarted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "started_total",
		Help:      "Challenges activated by an alarm fire",
	}, []string{"kind"})

	m.challengesCompleted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "completed_total",
		Help:      "Challenges passed, one per emitted completion event",
	}, []string{"kind"})

	m.challengesCancelled = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cancelled_total",
		Help:      "Active challenges torn down by an external cancel",
	}, []string{"kind"})

	m.challengeDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duration_seconds",
		Help:      "Time from activation to completion",
		Buckets:   m.histogramBuckets,
	}, []string{"kind"})

	m.challengeActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active",
		Help:      "1 while a challenge session is active",
	})

	m.firesIgnored = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "coordinator",
		Name:      "fires_ignored_total",
		Help:      "Alarm fire signals that did not start a session",
	}, []string{"reason"})

	m.soundActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "coordinator",
		Name:      "sound_active",
		Help:      "1 while the alarm sound is playing",
	})

	m.quizAnswers = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "input",
		Name:      "quiz_answers_total",
		Help:      "Quiz answers graded by outcome",
	}, []string{"outcome"})

	m.tiltProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "input",
		Name:      "tilt_samples_processed_total",
		Help:      "Tilt samples applied to a maze session",
	})

	m.tiltDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "input",
		Name:      "tilt_samples_dropped_total",
		Help:      "Stale tilt samples overwritten under backpressure",
	})

	m.inputsIgnored = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "input",
		Name:      "ignored_total",
		Help:      "Stray inputs received while idle or for the wrong session kind",
	}, []string{"input"})

	m.mazeFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "maze",
		Name:      "fallbacks_total",
		Help:      "Sessions that fell back to the minimal maze",
	})

	m.mazeAttempts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "maze",
		Name:      "generation_attempts_total",
		Help:      "Maze generation attempts including retries",
	})

	m.scheduledAlarm = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "schedule",
		Name:      "alarms",
		Help:      "Alarms currently registered with the scheduler",
	})
}

// Registry exposes the underlying registry for gathering
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the manager's registry in the exposition format
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) ChallengeStarted(kind string) {
	if m == nil {
		return
	}
	m.challengesStarted.WithLabelValues(kind).Inc()
	m.challengeActive.Set(1)
}

func (m *Manager) ChallengeCompleted(kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.challengesCompleted.WithLabelValues(kind).Inc()
	m.challengeDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	m.challengeActive.Set(0)
}

func (m *Manager) ChallengeCancelled(kind string) {
	if m == nil {
		return
	}
	m.challengesCancelled.WithLabelValues(kind).Inc()
	m.challengeActive.Set(0)
}

func (m *Manager) FireIgnored(reason string) {
	if m == nil {
		return
	}
	m.firesIgnored.WithLabelValues(reason).Inc()
}

func (m *Manager) SoundActive(on bool) {
	if m == nil {
		return
	}
	if on {
		m.soundActive.Set(1)
		return
	}
	m.soundActive.Set(0)
}

func (m *Manager) QuizAnswered(outcome string) {
	if m == nil {
		return
	}
	m.quizAnswers.WithLabelValues(outcome).Inc()
}

func (m *Manager) TiltProcessed() {
	if m == nil {
		return
	}
	m.tiltProcessed.Inc()
}

func (m *Manager) TiltDropped(n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.tiltDropped.Add(float64(n))
}

func (m *Manager) InputIgnored(input string) {
	if m == nil {
		return
	}
	m.inputsIgnored.WithLabelValues(input).Inc()
}

// MazeBuilt records generation attempts and whether the fallback was used
func (m *Manager) MazeBuilt(attempts int, fallback bool) {
	if m == nil {
		return
	}
	m.mazeAttempts.Add(float64(attempts))
	if fallback {
		m.mazeFallbacks.Inc()
	}
}

func (m *Manager) ScheduledAlarms(n int) {
	if m == nil {
		return
	}
	m.scheduledAlarm.Set(float64(n))
}
