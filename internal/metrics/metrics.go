package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comms_messages_sent_total",
		Help: "Messages persisted through the send flow.",
	})
	BroadcastsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comms_broadcasts_sent_total",
		Help: "Messages originated through the privileged broadcast path.",
	})
	OpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "comms_ws_connections",
		Help: "Currently open websocket connections.",
	})
	FanoutDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comms_fanout_dropped_total",
		Help: "Fan-out frames dropped because a subscriber buffer was full.",
	})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
