package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WorkersRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "domosharp",
		Subsystem: "workers",
		Name:      "running",
		Help:      "Hardware workers currently inside their run loop.",
	})
	MessagesEnqueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "domosharp",
		Subsystem: "queue",
		Name:      "messages_enqueued_total",
	}, []string{"hardware", "kind"})
	MessagesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "domosharp",
		Subsystem: "queue",
		Name:      "messages_processed_total",
	}, []string{"hardware", "kind"})
	DiscoveryActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "domosharp",
		Subsystem: "tasmota",
		Name:      "discovery_actions_total",
	}, []string{"hardware", "action"})
	TelemetryMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "domosharp",
		Subsystem: "tasmota",
		Name:      "telemetry_messages_total",
	}, []string{"hardware", "kind"})
)

// NewRegistry returns a registry holding the hub collectors plus the go runtime ones.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewBuildInfoCollector())
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(WorkersRunning, MessagesEnqueued, MessagesProcessed, DiscoveryActions, TelemetryMessages)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
