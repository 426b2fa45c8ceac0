package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered on that registry", func() {
				So(m, ShouldNotBeNil)
				m.matchesStarted.WithLabelValues("ranked").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_matches_started_total"], ShouldBeTrue)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording match outcomes", func() {
			before := value(globalManager.matchesFinished.WithLabelValues("ranked", "win"))
			RecordMatchFinished("ranked", "win")
			after := value(globalManager.matchesFinished.WithLabelValues("ranked", "win"))

			Convey("Then the counter increases by one", func() {
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When setting gauges", func() {
			UpdateActiveMatches(3)
			UpdateReportQueueSize(7)
			UpdateLadderPlayers(11)

			Convey("Then the gauges hold the last value", func() {
				So(value(globalManager.activeMatches), ShouldEqual, 3)
				So(value(globalManager.reportQueueSize), ShouldEqual, 7)
				So(value(globalManager.ladderPlayers), ShouldEqual, 11)
			})
		})

		Convey("When recording everything else", func() {
			So(func() {
				RecordMatchStarted("casual")
				RecordPickAccepted()
				RecordPickRejected("not_your_turn")
				RecordBotDecisionLatency("search", 2)
				RecordRatingUpdate()
				RecordRatingError("config")
				UpdateReportQueueCapacity(10)
				RecordReportEnqueueError("full")
				RecordReportPersisted()
				RecordReportPersistError()
				RecordReportPersistLatency(1)
				UpdateWorkerCount(2)
				RecordNotificationDropped()
				RecordHTTPRequest("matches", "POST", "201")
				RecordHTTPRequestDuration("matches", "POST", "201", 3)
				RecordErrorByComponent("http", "bad_request")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(5)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}

func value(c prometheus.Metric) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return -1
	}
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	}
	return 0
}
