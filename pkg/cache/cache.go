package cache

import (
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// KeyString is an interface for keys that can be converted to strings.
type KeyString interface {
	comparable
	KeyString() string
}

// StringKey is a simple string key.
type StringKey string

func (sk StringKey) KeyString() string {
	return string(sk)
}

// Config for caching.
type Config struct {
	// MaxCost can be considered as the cache capacity, in whatever units you
	// choose to use. Strategy orderings are stored with a cost equal to the
	// number of strategies they order.
	MaxCost int64
}

func (c *Config) MarshalZerologObject(e *zerolog.Event) {
	e.Str("maxCost", humanize.Comma(c.MaxCost))
}

// Cache defines an interface for a generic cache. Costs are counted in
// entries, such as the number of strategies in an ordering.
type Cache[K KeyString, V any] interface {
	// Get returns the value for the given key in the cache, if it exists.
	Get(key K) (V, bool)

	// Set sets a value for the key in the cache, with the given cost.
	Set(key K, entry V, cost int64) bool

	// Wait waits for the cache to process and apply updates.
	Wait()

	// Close closes the cache's background workers (if any).
	Close()

	// GetMetrics returns the metrics block for the cache.
	GetMetrics() Metrics

	zerolog.LogObjectMarshaler
}

// Metrics defines metrics exported by the cache.
type Metrics interface {
	// Hits is the number of cache hits.
	Hits() uint64

	// Misses is the number of cache misses.
	Misses() uint64

	// CostAdded returns the total cost of added entries.
	CostAdded() uint64

	// CostEvicted returns the total cost of evicted entries.
	CostEvicted() uint64
}

// NoopCache returns a cache that does nothing.
func NoopCache[K KeyString, V any]() Cache[K, V] { return &noopCache[K, V]{} }

type noopCache[K KeyString, V any] struct{}

var _ Cache[StringKey, any] = (*noopCache[StringKey, any])(nil)

func (no *noopCache[K, V]) Get(_ K) (V, bool)          { return *new(V), false }
func (no *noopCache[K, V]) Set(_ K, _ V, _ int64) bool { return false }
func (no *noopCache[K, V]) Wait()                      {}
func (no *noopCache[K, V]) Close()                     {}
func (no *noopCache[K, V]) GetMetrics() Metrics        { return &noopMetrics{} }
func (no *noopCache[K, V]) MarshalZerologObject(e *zerolog.Event) {
	e.Bool("enabled", false)
}

type noopMetrics struct{}

var _ Metrics = (*noopMetrics)(nil)

func (no *noopMetrics) Hits() uint64        { return 0 }
func (no *noopMetrics) Misses() uint64      { return 0 }
func (no *noopMetrics) CostAdded() uint64   { return 0 }
func (no *noopMetrics) CostEvicted() uint64 { return 0 }
