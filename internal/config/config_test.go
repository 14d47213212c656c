package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "howcatalog.yaml")
	data := `
server:
  grpc_addr: ":6000"
  shutdown_timeout: 3s
storage:
  path: /var/lib/howcatalog
  fetch_concurrency: 4
signals:
  redis:
    enabled: true
    channel: catalog
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Server.GRPCAddr)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr, "unset fields keep defaults")
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/var/lib/howcatalog", cfg.Storage.Path)
	assert.Equal(t, 4, cfg.Storage.FetchConcurrency)
	assert.True(t, cfg.Signals.Redis.Enabled)
	assert.Equal(t, "catalog", cfg.Signals.Redis.Channel)
	assert.Equal(t, "localhost:6379", cfg.Signals.Redis.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("HOWCATALOG_GRPC_ADDR", ":7000")
	t.Setenv("HOWCATALOG_DB_PATH", "/tmp/catalog")
	t.Setenv("HOWCATALOG_IN_MEMORY", "true")
	t.Setenv("HOWCATALOG_LOG_LEVEL", "warn")
	t.Setenv("HOWCATALOG_SHUTDOWN_TIMEOUT", "1m")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, ":7000", cfg.Server.GRPCAddr)
	assert.Equal(t, "/tmp/catalog", cfg.Storage.Path)
	assert.True(t, cfg.Storage.InMemory)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, time.Minute, cfg.Server.ShutdownTimeout)
}

func TestApplyEnvRejectsBadBool(t *testing.T) {
	t.Setenv("HOWCATALOG_REDIS_ENABLED", "perhaps")
	err := Default().ApplyEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOWCATALOG_REDIS_ENABLED")
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Server.GRPCAddr = ""
	cfg.Storage.Path = ""
	cfg.Storage.FetchConcurrency = 0
	cfg.Signals.Redis.Enabled = true
	cfg.Signals.Redis.Channel = ""
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"grpc_addr", "storage.path", "fetch_concurrency", "redis.channel", "log.level"} {
		assert.Contains(t, err.Error(), want)
	}

	cfg = Default()
	cfg.Storage.Path = ""
	cfg.Storage.InMemory = true
	assert.NoError(t, cfg.Validate())
}
