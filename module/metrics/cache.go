package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type CacheCollector struct {
	entries   *prometheus.GaugeVec
	hits      *prometheus.CounterVec
	notfounds *prometheus.CounterVec
	misses    *prometheus.CounterVec
}

func NewCacheCollector(reg prometheus.Registerer) *CacheCollector {
	r := registerer{reg}
	cm := &CacheCollector{
		entries: r.gaugeVec(subsystemStorage, prometheus.GaugeOpts{
			Name: "entries_total",
			Help: "the number of entries in the cache",
		}, LabelResource),
		hits: r.counterVec(subsystemStorage, prometheus.CounterOpts{
			Name: "hits_total",
			Help: "the number of hits for the cache",
		}, LabelResource),
		notfounds: r.counterVec(subsystemStorage, prometheus.CounterOpts{
			Name: "notfound_total",
			Help: "the number of times the queried item was not found in either cache or database",
		}, LabelResource),
		misses: r.counterVec(subsystemStorage, prometheus.CounterOpts{
			Name: "misses_total",
			Help: "the number of times the queried item was found in the database but not the cache",
		}, LabelResource),
	}
	return cm
}

// CacheEntries records the size of the cache for the given resource.
func (cc *CacheCollector) CacheEntries(resource string, entries uint) {
	cc.entries.With(prometheus.Labels{LabelResource: resource}).Set(float64(entries))
}

func (cc *CacheCollector) CacheHit(resource string) {
	cc.hits.With(prometheus.Labels{LabelResource: resource}).Inc()
}

func (cc *CacheCollector) CacheNotFound(resource string) {
	cc.notfounds.With(prometheus.Labels{LabelResource: resource}).Inc()
}

func (cc *CacheCollector) CacheMiss(resource string) {
	cc.misses.With(prometheus.Labels{LabelResource: resource}).Inc()
}
