package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// registerer creates metrics in the narwhal namespace and registers them.
// Registration panics on a name clash, like prometheus.MustRegister.
type registerer struct {
	prometheus.Registerer
}

func register[C prometheus.Collector](r registerer, collector C) C {
	r.MustRegister(collector)
	return collector
}

func (r registerer) gauge(subsystem string, opts prometheus.GaugeOpts) prometheus.Gauge {
	opts.Namespace, opts.Subsystem = namespaceNarwhal, subsystem
	return register(r, prometheus.NewGauge(opts))
}

func (r registerer) gaugeVec(subsystem string, opts prometheus.GaugeOpts, labels ...string) *prometheus.GaugeVec {
	opts.Namespace, opts.Subsystem = namespaceNarwhal, subsystem
	return register(r, prometheus.NewGaugeVec(opts, labels))
}

func (r registerer) counter(subsystem string, opts prometheus.CounterOpts) prometheus.Counter {
	opts.Namespace, opts.Subsystem = namespaceNarwhal, subsystem
	return register(r, prometheus.NewCounter(opts))
}

func (r registerer) counterVec(subsystem string, opts prometheus.CounterOpts, labels ...string) *prometheus.CounterVec {
	opts.Namespace, opts.Subsystem = namespaceNarwhal, subsystem
	return register(r, prometheus.NewCounterVec(opts, labels))
}

func (r registerer) histogram(subsystem string, opts prometheus.HistogramOpts) prometheus.Histogram {
	opts.Namespace, opts.Subsystem = namespaceNarwhal, subsystem
	return register(r, prometheus.NewHistogram(opts))
}

func (r registerer) histogramVec(subsystem string, opts prometheus.HistogramOpts, labels ...string) *prometheus.HistogramVec {
	opts.Namespace, opts.Subsystem = namespaceNarwhal, subsystem
	return register(r, prometheus.NewHistogramVec(opts, labels))
}
