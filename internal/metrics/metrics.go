package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "degiro"
	subsystem = "gateway"
)

var (
	// GatewayRequests counts gateway requests by route and status class.
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "requests_total",
		Help:      "Gateway requests partitioned by route and status code class",
	}, []string{"route", "code"})

	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Gateway request processing time partitioned by route",
	}, []string{"route"})

	QuotePolls = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "quote_polls_total",
		Help:      "Quotecast polls issued by the gateway, REST and websocket",
	})

	QuoteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "quote_errors_total",
		Help:      "Quotecast polls that failed",
	})

	QuoteStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "quote_streams_active",
		Help:      "Open websocket quote streams",
	})
)
