package cache

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/Yiling-J/theine-go"
	"github.com/ccoveille/go-safecast/v2"
	"github.com/rs/zerolog"
)

// NewTheineCache creates a theine-backed cache that is not exported to prometheus.
func NewTheineCache[K KeyString, V any](config *Config) (Cache[K, V], error) {
	return newTheineCache[K, V]("", config)
}

// NewTheineCacheWithMetrics creates a theine-backed cache whose metrics are
// exported under the given name. Names must be unique until the cache is closed.
func NewTheineCacheWithMetrics[K KeyString, V any](name string, config *Config) (Cache[K, V], error) {
	cc, err := newTheineCache[K, V](name, config)
	if err != nil {
		return nil, err
	}
	mustRegisterCache(name, cc)
	return cc, nil
}

func newTheineCache[K KeyString, V any](name string, config *Config) (*theineCache[K, V], error) {
	built, err := theine.NewBuilder[K, V](config.MaxCost).Build()
	if err != nil {
		return nil, err
	}
	return &theineCache[K, V]{
		name:    name,
		cache:   built,
		metrics: theineMetrics[K, V]{cache: built},
	}, nil
}

type theineCache[K KeyString, V any] struct {
	name    string
	cache   *theine.Cache[K, V]
	closed  sync.Once
	metrics theineMetrics[K, V]
}

func (wtc *theineCache[K, V]) Get(key K) (V, bool) {
	return wtc.cache.Get(key)
}

func (wtc *theineCache[K, V]) Set(key K, value V, cost int64) bool {
	uintCost, err := safecast.Convert[uint64](cost)
	if err != nil {
		uintCost = math.MaxUint32
	}
	wtc.metrics.costAdded.Add(uintCost)
	return wtc.cache.Set(key, value, cost)
}

// Wait is a no-op because theine applies writes synchronously for lookups.
func (wtc *theineCache[K, V]) Wait() {}

func (wtc *theineCache[K, V]) Close() {
	wtc.closed.Do(func() {
		wtc.cache.Close()
	})
	if wtc.name != "" {
		unregisterCache(wtc.name)
	}
}

func (wtc *theineCache[K, V]) GetMetrics() Metrics { return &wtc.metrics }

func (wtc *theineCache[K, V]) MarshalZerologObject(e *zerolog.Event) {
	e.Bool("theine", true).Str("name", wtc.name)
}

type theineMetrics[K KeyString, V any] struct {
	costAdded atomic.Uint64
	cache     *theine.Cache[K, V]
}

func (tm *theineMetrics[K, V]) CostAdded() uint64   { return tm.costAdded.Load() }
func (tm *theineMetrics[K, V]) CostEvicted() uint64 { return 0 }
func (tm *theineMetrics[K, V]) Hits() uint64        { return tm.cache.Stats().Hits() }
func (tm *theineMetrics[K, V]) Misses() uint64      { return tm.cache.Stats().Misses() }
