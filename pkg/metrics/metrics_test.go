package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "streamscout")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithRefreshBuckets([]float64{1, 2}),
				WithConstLabels(map[string]string{"instance": "a"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test-namespace")
				So(manager.subsystem, ShouldEqual, "test-subsystem")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 10, 100})
				So(manager.refreshBuckets, ShouldResemble, []float64{1, 2})
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "streamscout")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestObserveRefresh(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When a published cycle is observed", func() {
			err := manager.ObserveRefresh(OutcomePublished, 3*time.Second, 17)

			Convey("Then counters and gauges should move", func() {
				So(err, ShouldBeNil)
				So(testutil.ToFloat64(manager.refreshCycles.WithLabelValues(OutcomePublished)), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.snapshotSize), ShouldEqual, 17)
				So(testutil.ToFloat64(manager.lastSuccessUnix), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When a failed cycle is observed", func() {
			err := manager.ObserveRefresh(OutcomeFailed, time.Second, 0)

			Convey("Then the snapshot gauge should stay untouched", func() {
				So(err, ShouldBeNil)
				So(testutil.ToFloat64(manager.refreshCycles.WithLabelValues(OutcomeFailed)), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.snapshotSize), ShouldEqual, 0)
			})
		})

		Convey("When an unknown outcome is observed", func() {
			err := manager.ObserveRefresh("exploded", time.Second, 0)

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, ErrUnknownOutcome), ShouldBeTrue)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global recorders", t, func() {
		Convey("When recording across every concern", func() {
			So(func() {
				RecordRefresh(OutcomePublished, time.Second, 3)
				RecordRefresh("bogus", time.Second, 0)
				SetRefreshing(true)
				SetRefreshing(false)
				SetLeader(true)
				RecordForceRefresh(true)
				RecordForceRefresh(false)
				RecordSnapshotReadError()
				RecordUpstreamCall("validate", "ok", 40*time.Millisecond)
				UpdateRateLimitRemaining(799)
				RecordCollected("validated", 10)
				RecordCollected("dropped", 0)
				RecordDisqualified("market_too_large")
				RecordHTTPRequest("analyze", "GET", "200")
				RecordHTTPRequestDuration("analyze", "GET", "200", 1.5)
				RecordErrorByComponent("collector", "chunk_failed")
			}, ShouldNotPanic)

			Convey("Then the registry should expose them", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["streamscout_engine_refresh_cycles_total"], ShouldBeTrue)
				So(names["streamscout_engine_leader"], ShouldBeTrue)
				So(names["streamscout_engine_upstream_calls_total"], ShouldBeTrue)
				So(names["streamscout_engine_errors_total"], ShouldBeTrue)
			})
		})
	})
}
