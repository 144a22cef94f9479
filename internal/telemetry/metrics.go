package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Flush reasons reported on BlocksTotal.
const (
	ReasonSize     = "size"
	ReasonExplicit = "explicit"
	ReasonTeardown = "teardown"
)

var (
	CommandsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bulkd_commands_total",
		Help: "Commands accepted by batch processors.",
	})
	BlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkd_blocks_total",
		Help: "Blocks emitted, by what closed them.",
	}, []string{"reason"})
	SinkWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkd_sink_writes_total",
		Help: "Blocks written by a sink.",
	}, []string{"sink"})
	SinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkd_sink_errors_total",
		Help: "Failed sink writes. Failed blocks are not retried.",
	}, []string{"sink"})
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bulkd_queue_depth",
		Help: "Blocks waiting in a sink queue.",
	}, []string{"sink"})
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bulkd_sessions_active",
		Help: "Open input sessions.",
	})
)

// Expose serves /metrics on port in the background. The returned server can
// be shut down by the caller.
func Expose(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
