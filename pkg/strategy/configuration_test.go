package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigurationRoundTrip(t *testing.T) {
	t.Parallel()

	configs := []Configuration{
		ConfigurationFor(IdentityRemovalID),
		ConfigurationFor(ProductiveByID).With("productiveKeys", []string{"name", "age"}),
		ConfigurationFor(EdgeLabelVerificationID).With("throwException", true).With("logWarning", false),
	}

	encoded, err := MarshalConfigurations(configs)
	require.NoError(t, err)

	decoded, err := UnmarshalConfigurations(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 3)

	require.Equal(t, IdentityRemovalID, decoded[0].Strategy)
	require.Empty(t, decoded[0].Values)

	keys, err := decoded[1].Strings("productiveKeys")
	require.NoError(t, err)
	require.Equal(t, []string{"name", "age"}, keys)

	throw, err := decoded[2].Bool("throwException", false)
	require.NoError(t, err)
	require.True(t, throw)

	warn, err := decoded[2].Bool("logWarning", true)
	require.NoError(t, err)
	require.False(t, warn)

	fallback, err := decoded[2].Bool("missing", true)
	require.NoError(t, err)
	require.True(t, fallback)
}

func TestConfigurationInt(t *testing.T) {
	t.Parallel()

	decoded, err := UnmarshalConfigurations([]byte("- strategy: LazyBarrierStrategy\n  barrierSize: 100\n"))
	require.NoError(t, err)
	require.Len(t, decoded, 1)

	size, err := decoded[0].Int("barrierSize", 2500)
	require.NoError(t, err)
	require.Equal(t, 100, size)

	size, err = ConfigurationFor(LazyBarrierID).Int("barrierSize", 2500)
	require.NoError(t, err)
	require.Equal(t, 2500, size)

	size, err = ConfigurationFor(LazyBarrierID).With("barrierSize", int64(7)).Int("barrierSize", 0)
	require.NoError(t, err)
	require.Equal(t, 7, size)

	_, err = ConfigurationFor(LazyBarrierID).With("barrierSize", "big").Int("barrierSize", 0)
	require.Error(t, err)
}

func TestConfigurationErrors(t *testing.T) {
	t.Parallel()

	_, err := UnmarshalConfigurations([]byte("- productiveKeys: [a]\n"))
	require.ErrorContains(t, err, "missing the strategy key")

	_, err = UnmarshalConfigurations([]byte("not: [a list"))
	require.Error(t, err)

	config := ConfigurationFor(ProductiveByID).With("productiveKeys", "name")
	_, err = config.Strings("productiveKeys")
	require.Error(t, err)

	_, err = ConfigurationFor(EdgeLabelVerificationID).With("logWarning", "yes").Bool("logWarning", false)
	require.Error(t, err)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.RegisterInstance(&testStrategy{id: "plain", category: Optimization})
	registry.Register("configured", func(config Configuration) (Strategy, error) {
		prior, err := config.Strings("prior")
		if err != nil {
			return nil, err
		}
		ids := make([]ID, 0, len(prior))
		for _, p := range prior {
			ids = append(ids, ID(p))
		}
		return &testStrategy{id: "configured", category: Optimization, prior: ids}, nil
	})

	strs, err := registry.StrategiesFromYAML([]byte(`
- strategy: configured
  prior: [plain]
- strategy: plain
`))
	require.NoError(t, err)
	require.Equal(t, []ID{"plain", "configured"}, strs.IDs())

	_, err = registry.FromConfiguration(ConfigurationFor("unknown"))
	require.ErrorContains(t, err, "unknown strategy")

	_, err = registry.FromConfiguration(ConfigurationFor("configured").With("prior", 3))
	require.ErrorContains(t, err, "failed to build strategy configured")
}
