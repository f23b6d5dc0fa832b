// Package metrics exposes server counters and pool gauges over
// Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PoolStatsFunc reports the current pool partition sizes. It is
// called on every scrape.
type PoolStatsFunc func() (available, allocated int)

type Metrics struct {
	registry *prometheus.Registry

	ReceivedTotal      *prometheus.CounterVec
	ResponsesTotal     *prometheus.CounterVec
	DispatchErrors     prometheus.Counter
	ParseErrors        prometheus.Counter
	ExpiredLeasesTotal prometheus.Counter
}

func New(poolStats PoolStatsFunc) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ReceivedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "osdhcpd_messages_received_total",
			Help: "Client messages received, by DHCP message type.",
		}, []string{"type"}),
		ResponsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "osdhcpd_responses_sent_total",
			Help: "Responses sent, by DHCP message type.",
		}, []string{"type"}),
		DispatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "osdhcpd_dispatch_errors_total",
			Help: "Client messages that could not be served.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "osdhcpd_parse_errors_total",
			Help: "Inbound packets that failed to parse.",
		}),
		ExpiredLeasesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "osdhcpd_expired_leases_total",
			Help: "Leases reclaimed by the expiry sweep.",
		}),
	}

	m.registry.MustRegister(
		m.ReceivedTotal,
		m.ResponsesTotal,
		m.DispatchErrors,
		m.ParseErrors,
		m.ExpiredLeasesTotal,
	)

	if poolStats != nil {
		m.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "osdhcpd_pool_available_addresses",
				Help: "Managed addresses currently free.",
			}, func() float64 {
				available, _ := poolStats()
				return float64(available)
			}),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "osdhcpd_pool_allocated_addresses",
				Help: "Managed addresses currently held by clients.",
			}, func() float64 {
				_, allocated := poolStats()
				return float64(allocated)
			}),
		)
	}

	return m
}

// Handler serves the metrics registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
