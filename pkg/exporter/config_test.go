package exporter

import (
	"os"
	"testing"

	"github.com/kubesee/kubesee/pkg/sinks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnvSubstitutesNamedAndBracedVars(t *testing.T) {
	t.Setenv("KUBESEE_TEST_TOKEN", "s3cr3t")

	out := ExpandEnv("token: ${KUBESEE_TEST_TOKEN}, also $KUBESEE_TEST_TOKEN")
	assert.Equal(t, "token: s3cr3t, also s3cr3t", out)
}

func TestExpandEnvDoubleDollarIsLiteral(t *testing.T) {
	out := ExpandEnv("price: $$5")
	assert.Equal(t, "price: $5", out)
}

func TestExpandEnvUnsetVarBecomesEmpty(t *testing.T) {
	os.Unsetenv("KUBESEE_DEFINITELY_UNSET")
	out := ExpandEnv("value=${KUBESEE_DEFINITELY_UNSET}")
	assert.Equal(t, "value=", out)
}

func TestConfigSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	assert.Equal(t, DefaultCacheSize, cfg.CacheSize)
	assert.Equal(t, DefaultMetricsNamePrefix, cfg.MetricsNamePrefix)
	assert.NotZero(t, cfg.KubeQPS)
	assert.NotZero(t, cfg.KubeBurst)
}

func TestConfigValidateRejectsDuplicateReceiverNames(t *testing.T) {
	cfg := &Config{
		Receivers: []sinks.ReceiverConfig{
			{Name: "dup", InMemory: &sinks.InMemoryConfig{}},
			{Name: "dup", InMemory: &sinks.InMemoryConfig{}},
		},
	}
	cfg.SetDefaults()
	require.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsReceiverWithoutSinkKey(t *testing.T) {
	cfg := &Config{
		Receivers: []sinks.ReceiverConfig{{Name: "no-sink"}},
	}
	cfg.SetDefaults()
	require.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsBothThrottleAndMaxEventAge(t *testing.T) {
	cfg := &Config{ThrottlePeriod: 5, MaxEventAgeSeconds: 5}
	require.Error(t, cfg.Validate())
}

func TestConfigValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := &Config{
		Route: Route{Match: []Rule{{Receiver: "in-mem"}}},
		Receivers: []sinks.ReceiverConfig{
			{Name: "in-mem", InMemory: &sinks.InMemoryConfig{}},
		},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
}
