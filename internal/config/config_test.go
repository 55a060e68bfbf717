package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"REDIS_HOST", "LOG_FILE", "LOG_LEVEL", "DOCKER_BIN", "HEALTH_ADDR", "MONITOR_URL",
	"AGENT_ID", "SIGNATURE_SECRET", "BROKER_RETRY_DELAY", "POP_TIMEOUT", "EXEC_TIMEOUT",
	"HEARTBEAT_INTERVAL", "BROKER_POLL_INTERVAL",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.RedisHost)
	assert.Equal(t, "mcp-worker.log", cfg.LogFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "docker", cfg.DockerBin)
	assert.Equal(t, 5*time.Second, cfg.RetryDelay)
	assert.Equal(t, time.Duration(0), cfg.PopTimeout)
	assert.Equal(t, time.Duration(0), cfg.ExecTimeout)
	assert.Equal(t, 5*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Empty(t, cfg.HealthAddr)
	assert.Empty(t, cfg.MonitorURL)
	assert.NotEmpty(t, cfg.AgentID)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("BROKER_RETRY_DELAY", "250ms")
	t.Setenv("EXEC_TIMEOUT", "2m")
	t.Setenv("AGENT_ID", "worker-7")
	t.Setenv("SIGNATURE_SECRET", "  s3cret\n")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "redis.internal", cfg.RedisHost)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 2*time.Minute, cfg.ExecTimeout)
	assert.Equal(t, "worker-7", cfg.AgentID)
	assert.Equal(t, "s3cret", cfg.SignatureSecret)
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REDIS_HOST=from-file\nDOCKER_BIN=podman\n"), 0o644))
	t.Setenv("REDIS_HOST", "from-env")
	// godotenv only fills variables that are unset, so drop the blank one
	require.NoError(t, os.Unsetenv("DOCKER_BIN"))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.RedisHost)
	assert.Equal(t, "podman", cfg.DockerBin)
}

func TestLoadInvalidDurations(t *testing.T) {
	for _, key := range []string{"BROKER_RETRY_DELAY", "BROKER_POLL_INTERVAL", "POP_TIMEOUT", "EXEC_TIMEOUT", "HEARTBEAT_INTERVAL"} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "soon")

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoadPollIntervalBelowOneSecond(t *testing.T) {
	clearEnv(t)
	t.Setenv("BROKER_POLL_INTERVAL", "500ms")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BROKER_POLL_INTERVAL")

	t.Setenv("BROKER_POLL_INTERVAL", "3s")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
}

func TestLoadNegativeDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("POP_TIMEOUT", "-1s")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadMonitorNeedsSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONITOR_URL", "ws://monitor.local/agent/connect")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SIGNATURE_SECRET")

	t.Setenv("SIGNATURE_SECRET", "  k  ")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "k", cfg.SignatureSecret)
}
