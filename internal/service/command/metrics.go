package command

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocpp_commands_total",
			Help: "Total number of CS-to-CP commands sent, partitioned by action.",
		},
		[]string{"action"},
	)

	commandLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocpp_command_latency_seconds",
			Help:    "Round-trip latency of CS-to-CP commands in seconds, partitioned by action.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)
)

func init() {
	prometheus.MustRegister(commandsTotal)
	prometheus.MustRegister(commandLatency)
}
