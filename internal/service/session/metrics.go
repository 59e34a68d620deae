package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

var connectedStations = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "ocpp_connected_stations",
		Help: "Number of charge points with an active WebSocket session.",
	},
)

func init() {
	prometheus.MustRegister(connectedStations)
}
