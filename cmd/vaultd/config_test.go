package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vaultd.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8402", cfg.ListenAddr)
	assert.Equal(t, 15*time.Minute, cfg.SettlementTTL)
	assert.Equal(t, 7*time.Second, cfg.PulseInterval)
	assert.Equal(t, 7, cfg.Manifold.Fanout)
}

func TestLoadConfig_OverlaysDefinedKeysOnly(t *testing.T) {
	path := writeConfig(t, `
listen_addr = "127.0.0.1:9000"
pulse_interval = "30s"
manifold_fanout = 3
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.PulseInterval)
	assert.Equal(t, 3, cfg.Manifold.Fanout)

	// Undefined keys keep their defaults.
	assert.Equal(t, 15*time.Minute, cfg.SettlementTTL)
	assert.Equal(t, 7, cfg.Manifold.MaxDepth)
}

func TestLoadConfig_BadDuration(t *testing.T) {
	path := writeConfig(t, `settlement_ttl = "soon"`)

	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
