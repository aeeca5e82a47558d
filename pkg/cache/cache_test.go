package cache

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestTheineCache(t *testing.T) {
	t.Parallel()

	c, err := NewStandardCache[StringKey, []string](&Config{MaxCost: 100})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	_, ok := c.Get("missing")
	require.False(t, ok)

	require.True(t, c.Set("order", []string{"a", "b"}, 2))
	c.Wait()

	found, ok := c.Get("order")
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, found)
	require.Equal(t, uint64(2), c.GetMetrics().CostAdded())
}

func TestCacheMetricsRegistration(t *testing.T) {
	t.Parallel()

	c, err := NewStandardCacheWithMetrics[StringKey, int]("metrics_test", &Config{MaxCost: 10})
	require.NoError(t, err)

	c.Set("k", 1, 1)
	require.Positive(t, testutil.CollectAndCount(defaultCollector))

	c.Close()
	require.NotPanics(t, func() {
		other, err := NewStandardCacheWithMetrics[StringKey, int]("metrics_test", &Config{MaxCost: 10})
		require.NoError(t, err)
		other.Close()
	})
}

func TestNoopCache(t *testing.T) {
	t.Parallel()

	c := NoopCache[StringKey, int]()
	require.False(t, c.Set("k", 1, 1))
	_, ok := c.Get("k")
	require.False(t, ok)
	require.Zero(t, c.GetMetrics().Hits())
}

func TestConfigMarshal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	logger.Info().EmbedObject(&Config{MaxCost: 2048}).Msg("cache")
	require.Contains(t, buf.String(), `"maxCost":"2,048"`)
}
