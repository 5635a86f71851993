package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerRecording(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithRegistry(registry), WithNamespace("test"))

		Convey("When a challenge starts and completes", func() {
			m.ChallengeStarted("maze")
			So(testutil.ToFloat64(m.challengeActive), ShouldEqual, 1)
			m.ChallengeCompleted("maze", 3*time.Second)

			Convey("Then counters and the active gauge reflect it", func() {
				So(testutil.ToFloat64(m.challengesStarted.WithLabelValues("maze")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.challengesCompleted.WithLabelValues("maze")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.challengeActive), ShouldEqual, 0)
			})
		})

		Convey("When inputs are recorded", func() {
			m.QuizAnswered("correct")
			m.QuizAnswered("correct")
			m.TiltProcessed()
			m.TiltDropped(5)
			m.TiltDropped(0)
			m.InputIgnored("tilt")
			m.MazeBuilt(2, true)

			Convey("Then each collector counts them", func() {
				So(testutil.ToFloat64(m.quizAnswers.WithLabelValues("correct")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.tiltProcessed), ShouldEqual, 1)
				So(testutil.ToFloat64(m.tiltDropped), ShouldEqual, 5)
				So(testutil.ToFloat64(m.inputsIgnored.WithLabelValues("tilt")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.mazeAttempts), ShouldEqual, 2)
				So(testutil.ToFloat64(m.mazeFallbacks), ShouldEqual, 1)
			})
		})

		Convey("When the handler is scraped", func() {
			m.FireIgnored("busy")
			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Convey("Then the exposition contains the namespaced series", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "test_coordinator_fires_ignored_total")
			})
		})
	})
}

func TestNilManagerIsNoop(t *testing.T) {
	Convey("Given a nil manager", t, func() {
		var m *Manager

		Convey("Then every recorder is safe to call", func() {
			So(func() {
				m.ChallengeStarted("quiz")
				m.ChallengeCompleted("quiz", time.Second)
				m.ChallengeCancelled("quiz")
				m.FireIgnored("duplicate")
				m.SoundActive(true)
				m.QuizAnswered("incorrect")
				m.TiltProcessed()
				m.TiltDropped(3)
				m.InputIgnored("answer")
				m.MazeBuilt(1, false)
				m.ScheduledAlarms(2)
			}, ShouldNotPanic)
			So(m.Registry(), ShouldBeNil)
			So(m.Handler(), ShouldNotBeNil)
		})
	})
}
