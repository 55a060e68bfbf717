package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	RedisHost string
	LogFile   string
	LogLevel  string

	RetryDelay   time.Duration
	PollInterval time.Duration
	PopTimeout  time.Duration
	ExecTimeout time.Duration
	DockerBin   string

	HealthAddr        string
	MonitorURL        string
	AgentID           string
	SignatureSecret   string
	HeartbeatInterval time.Duration
}

// Load reads .env files (if present) and the process environment. envFiles
// defaults to ".env".
func Load(envFiles ...string) (*Config, error) {
	// a missing .env is normal; the environment is authoritative
	_ = godotenv.Load(envFiles...)

	cfg := &Config{
		RedisHost:       getEnv("REDIS_HOST", "127.0.0.1"),
		LogFile:         getEnv("LOG_FILE", "mcp-worker.log"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DockerBin:       getEnv("DOCKER_BIN", "docker"),
		HealthAddr:      getEnv("HEALTH_ADDR", ""),
		MonitorURL:      getEnv("MONITOR_URL", ""),
		AgentID:         getEnv("AGENT_ID", ""),
		SignatureSecret: strings.TrimSpace(getEnv("SIGNATURE_SECRET", "")),
	}
	if cfg.AgentID == "" {
		cfg.AgentID = uuid.NewString()
	}

	var err error
	if cfg.RetryDelay, err = getDuration("BROKER_RETRY_DELAY", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getDuration("BROKER_POLL_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.PollInterval < time.Second {
		return nil, fmt.Errorf("BROKER_POLL_INTERVAL must be at least 1s")
	}
	if cfg.PopTimeout, err = getDuration("POP_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.ExecTimeout, err = getDuration("EXEC_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.HeartbeatInterval, err = getDuration("HEARTBEAT_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.HeartbeatInterval <= 0 {
		return nil, fmt.Errorf("HEARTBEAT_INTERVAL must be positive")
	}
	if cfg.MonitorURL != "" && cfg.SignatureSecret == "" {
		return nil, fmt.Errorf("MONITOR_URL requires SIGNATURE_SECRET")
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
