// Package metrics exposes Prometheus collectors for the donation pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service's collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	Submissions  *prometheus.CounterVec
	FetchLatency prometheus.Histogram
	SignIns      *prometheus.CounterVec
	HTTPRequests *prometheus.CounterVec
}

// New registers all collectors plus Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glimpse",
			Name:      "donation_submissions_total",
			Help:      "Donation recording attempts by outcome.",
		}, []string{"outcome"}),
		FetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "glimpse",
			Name:      "chain_fetch_seconds",
			Help:      "Latency of transaction fetches from the RPC endpoint.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		SignIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glimpse",
			Name:      "sign_ins_total",
			Help:      "Wallet sign-in attempts by outcome.",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glimpse",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
	reg.MustRegister(
		m.Submissions, m.FetchLatency, m.SignIns, m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
