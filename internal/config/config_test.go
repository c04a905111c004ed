package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":6379", cfg.ListenAddr)
	assert.Equal(t, 100*time.Millisecond, cfg.SweepInterval)
	assert.Equal(t, "", cfg.ReplicaOf)
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	cfg, err := Load([]string{"-addr", ":7000", "-replicaof", "10.0.0.1:6379"})
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, "10.0.0.1:6379", cfg.ReplicaOf)
}

func TestLoadEnvFallback(t *testing.T) {
	t.Setenv("VREDIS_ADDR", ":9999")
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
}

func TestLoadFlagOverridesEnv(t *testing.T) {
	t.Setenv("VREDIS_ADDR", ":9999")
	cfg, err := Load([]string{"-addr", ":8888"})
	require.NoError(t, err)
	assert.Equal(t, ":8888", cfg.ListenAddr)
}
