// Package metrics collects and exposes Prometheus metrics for the chat
// server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records the operational counters of the hub and the stores.
type Collector struct {
	connectedClients prometheus.Gauge
	broadcasts       prometheus.Counter
	storeErrors      prometheus.Counter
	historyReplays   prometheus.Counter
	authFailures     prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lobbychat_connected_clients",
			Help: "Number of currently registered live connections.",
		}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lobbychat_broadcasts_total",
			Help: "Total number of messages fanned out by the hub.",
		}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lobbychat_store_errors_total",
			Help: "Total number of swallowed message store failures.",
		}),
		historyReplays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lobbychat_history_replays_total",
			Help: "Total number of history replays streamed to clients.",
		}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lobbychat_auth_failures_total",
			Help: "Total number of rejected register and login attempts.",
		}),
	}

	reg.MustRegister(
		c.connectedClients,
		c.broadcasts,
		c.storeErrors,
		c.historyReplays,
		c.authFailures,
	)

	return c
}

func (c *Collector) ClientConnected() { c.connectedClients.Inc() }

func (c *Collector) ClientDisconnected() { c.connectedClients.Dec() }

func (c *Collector) RecordBroadcast() { c.broadcasts.Inc() }

func (c *Collector) RecordStoreError() { c.storeErrors.Inc() }

func (c *Collector) RecordHistoryReplay() { c.historyReplays.Inc() }

func (c *Collector) RecordAuthFailure() { c.authFailures.Inc() }

// Handler returns the scrape endpoint for the given registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
