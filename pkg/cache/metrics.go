package cache

import (
	"sync"

	"github.com/jzelinskie/stringz"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	prometheus.MustRegister(defaultCollector)
}

const (
	promNamespace = "graphtraversal"
	promSubsystem = "cache"
)

var (
	descCacheHitsTotal = prometheus.NewDesc(
		stringz.Join("_", promNamespace, promSubsystem, "hits_total"),
		"Number of cache hits",
		[]string{"cache"},
		nil,
	)

	descCacheMissesTotal = prometheus.NewDesc(
		stringz.Join("_", promNamespace, promSubsystem, "misses_total"),
		"Number of cache misses",
		[]string{"cache"},
		nil,
	)

	descCostAddedTotal = prometheus.NewDesc(
		stringz.Join("_", promNamespace, promSubsystem, "cost_added_total"),
		"Total cost of entries added to the cache",
		[]string{"cache"},
		nil,
	)

	descCostEvictedTotal = prometheus.NewDesc(
		stringz.Join("_", promNamespace, promSubsystem, "cost_evicted_total"),
		"Total cost of entries evicted from the cache",
		[]string{"cache"},
		nil,
	)
)

// caches holds every named cache exported by the collector, keyed by name.
var caches sync.Map

func mustRegisterCache(name string, c withMetrics) {
	if _, loaded := caches.LoadOrStore(name, c); loaded {
		panic("cache " + name + " is already registered")
	}
}

func unregisterCache(name string) {
	caches.Delete(name)
}

var (
	defaultCollector collector

	_ prometheus.Collector = (*collector)(nil)
)

type collector struct{}

func (c collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

func (c collector) Collect(ch chan<- prometheus.Metric) {
	caches.Range(func(name, cache any) bool {
		cacheName := name.(string)
		metrics := cache.(withMetrics).GetMetrics()
		ch <- prometheus.MustNewConstMetric(descCacheHitsTotal, prometheus.CounterValue, float64(metrics.Hits()), cacheName)
		ch <- prometheus.MustNewConstMetric(descCacheMissesTotal, prometheus.CounterValue, float64(metrics.Misses()), cacheName)
		ch <- prometheus.MustNewConstMetric(descCostAddedTotal, prometheus.CounterValue, float64(metrics.CostAdded()), cacheName)
		ch <- prometheus.MustNewConstMetric(descCostEvictedTotal, prometheus.CounterValue, float64(metrics.CostEvicted()), cacheName)
		return true
	})
}

type withMetrics interface {
	GetMetrics() Metrics
}
