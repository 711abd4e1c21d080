package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("bans"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithMetricsEnabled(true),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "bans")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 10, 100})
				So(manager.customLabels, ShouldResemble, map[string]string{"env": "test"})
			})

			Convey("And metrics should be registered under the namespace", func() {
				manager.stateWrites.Inc()
				count, err := testutil.GatherAndCount(registry, "test_bans_state_writes_total")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})

		Convey("When passing empty values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithCustomLabels(nil),
				WithPrometheusRegistry(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "herobans")
				So(manager.subsystem, ShouldEqual, "bridge")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
				So(manager.customLabels, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording state writes", func() {
			before := testutil.ToFloat64(globalManager.stateWrites)
			RecordStateWrite()
			RecordStateWrite()

			Convey("Then the counter should advance", func() {
				So(testutil.ToFloat64(globalManager.stateWrites), ShouldEqual, before+2)
			})
		})

		Convey("When recording rejected writes and cache errors", func() {
			rejected := testutil.ToFloat64(globalManager.stateRejected)
			saveErrs := testutil.ToFloat64(globalManager.stateCacheErrors.WithLabelValues("save"))
			RecordStateRejected()
			RecordStateCacheError("save")

			Convey("Then both counters should advance", func() {
				So(testutil.ToFloat64(globalManager.stateRejected), ShouldEqual, rejected+1)
				So(testutil.ToFloat64(globalManager.stateCacheErrors.WithLabelValues("save")), ShouldEqual, saveErrs+1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateLiveSubscribers(3)
			UpdateHeroesTotal(42)
			UpdateFontsTotal(5)

			Convey("Then they should hold the last value", func() {
				So(testutil.ToFloat64(globalManager.liveSubscribers), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.heroesTotal), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.fontsTotal), ShouldEqual, 5)
			})
		})

		Convey("When recording HTTP and error metrics", func() {
			So(func() {
				RecordHTTPRequest("state", "GET", "200")
				RecordHTTPRequestDuration("state", "GET", "200", 1.5)
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("state", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 2)
				RecordLiveMessage()
				RecordLiveDropped()
				RecordAssetReload("heroes", "ok")
				RecordSuggestQuery()
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)

			Convey("Then the registry should expose them", func() {
				count, err := testutil.GatherAndCount(GetRegistry(), "herobans_bridge_http_requests_total")
				So(err, ShouldBeNil)
				So(count, ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given a disabled global manager", t, func() {
		saved := globalManager
		globalManager = NewManager(WithMetricsEnabled(false), WithPrometheusRegistry(prometheus.NewRegistry()))
		Reset(func() { globalManager = saved })

		Convey("When recording", func() {
			RecordStateWrite()
			UpdateHeroesTotal(9)

			Convey("Then nothing should change", func() {
				So(testutil.ToFloat64(globalManager.stateWrites), ShouldEqual, 0)
				So(testutil.ToFloat64(globalManager.heroesTotal), ShouldEqual, 0)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent writers", t, func() {
		before := testutil.ToFloat64(globalManager.liveMessages)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordLiveMessage()
					RecordHTTPRequest("fonts", "GET", "200")
				}
			}()
		}
		wg.Wait()

		Convey("Then every increment should be counted", func() {
			So(testutil.ToFloat64(globalManager.liveMessages), ShouldEqual, before+1000)
		})
	})
}
