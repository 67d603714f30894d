package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Pipeline counters
var (
	RowsMerged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forecast_rows_merged_total",
		Help: "Rows written to the merged table across all preprocessing runs",
	})

	ForecastRowsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forecast_rows_emitted_total",
		Help: "Rows written to the forecast table across all forecasting runs",
	})

	StoresForecasted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forecast_stores_succeeded_total",
		Help: "Stores whose model fit and predict cycle completed",
	})

	StoreFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forecast_stores_failed_total",
		Help: "Stores whose model fit or predict cycle failed",
	})
)

// API metrics
var (
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forecast_http_request_duration_seconds",
		Help:    "Query endpoint request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "code"})

	RequestsThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forecast_http_requests_throttled_total",
		Help: "Requests rejected by the rate limiter",
	})
)

// PushBatch delivers the pipeline counters to a Pushgateway under the
// given job name. The batch binaries exit before any scrape could reach
// them, so pushing is their only metrics delivery path; the serving
// binary exposes /metrics directly and never pushes.
func PushBatch(gatewayURL, job string) error {
	return push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer).Push()
}
