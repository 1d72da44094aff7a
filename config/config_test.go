package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 500, cfg.Storage.WarmStartRows)
	assert.Equal(t, 50, cfg.Thermal.WindowSize)
	assert.Equal(t, 0.1, cfg.Thermal.Contamination)
	assert.Equal(t, time.Second, cfg.Factory.Period)
	assert.Equal(t, 12.0, cfg.Factory.EnergyLimit)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  addr: ":9090"
storage:
  backend: sqlite
  dir: /var/lib/twin
thermal:
  period: 250ms
  window_size: 80
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))
	t.Setenv("TWIN_THERMAL_WINDOW_SIZE", "120")
	t.Setenv("TWIN_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/twin", cfg.Storage.Dir)
	assert.Equal(t, 250*time.Millisecond, cfg.Thermal.Period)
	assert.Equal(t, 120, cfg.Thermal.WindowSize, "environment overrides the file")
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("TWIN_STORAGE_BACKEND", "cassandra")
	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "cassandra")
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unterminated"), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}
