package cache

// NewStandardCache creates a new cache with the given configuration.
func NewStandardCache[K KeyString, V any](config *Config) (Cache[K, V], error) {
	return NewTheineCache[K, V](config)
}

// NewStandardCacheWithMetrics creates a new cache exported to prometheus under the given name.
func NewStandardCacheWithMetrics[K KeyString, V any](name string, config *Config) (Cache[K, V], error) {
	return NewTheineCacheWithMetrics[K, V](name, config)
}
