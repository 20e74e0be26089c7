package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hasentry/sentry/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Scan configuration
	Scan ScanConfig `yaml:"scan"`

	// Supervisor API configuration
	Supervisor SupervisorConfig `yaml:"supervisor"`

	// AI analysis configuration
	AI AIConfig `yaml:"ai"`

	// Notification configuration
	Notifications NotificationConfig `yaml:"notifications"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for probes)
	HealthPort string `yaml:"health_port"`
}

// ScanConfig holds dependency scan configuration
type ScanConfig struct {
	// Roots are the directories (or glob patterns) searched for component
	// descriptors. Empty means the scanner falls back to well-known locations.
	Roots []string `yaml:"roots"`

	// Schedule is a cron expression for periodic rescans.
	Schedule string `yaml:"schedule"`

	// UpdateCheckSchedule is a cron expression for update checks.
	UpdateCheckSchedule string `yaml:"update_check_schedule"`

	// Watch enables filesystem watching of descriptor directories.
	Watch bool `yaml:"watch"`

	// WatchDebounce coalesces bursts of filesystem events into one rescan.
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// HighRiskPackages overrides the built-in high-risk package set.
	HighRiskPackages []string `yaml:"high_risk_packages"`

	// MaxSnapshotAge marks the readiness probe degraded when the published
	// snapshot is older than this. Zero disables the check.
	MaxSnapshotAge time.Duration `yaml:"max_snapshot_age"`
}

// SupervisorConfig holds the supervisor API client configuration
type SupervisorConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	CoreURL string        `yaml:"core_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AIConfig holds AI-assisted analysis configuration
type AIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	CacheSize int    `yaml:"cache_size"`
}

// NotificationConfig holds update notification configuration
type NotificationConfig struct {
	Enabled bool `yaml:"enabled"`

	// NotifyOnSafe sends notifications for safe verdicts too, not just risky
	// ones.
	NotifyOnSafe bool `yaml:"notify_on_safe"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel     observability.LogLevel `yaml:"-"`
	LogLevelName string                 `yaml:"log_level"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// LoadConfig loads configuration from environment variables, overlaid on an
// optional YAML file named by SENTRY_CONFIG_FILE. Environment variables win.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := getEnv("SENTRY_CONFIG_FILE", ""); path != "" {
		if err := loadConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	cfg.Observability.LogLevel = parseLogLevel(cfg.Observability.LogLevelName)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8099",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Scan: ScanConfig{
			Schedule:            "0 */6 * * *",
			UpdateCheckSchedule: "30 */6 * * *",
			Watch:               true,
			WatchDebounce:       5 * time.Second,
			MaxSnapshotAge:      24 * time.Hour,
		},
		Supervisor: SupervisorConfig{
			BaseURL: "http://supervisor",
			CoreURL: "http://supervisor/core/api",
			Timeout: 30 * time.Second,
		},
		AI: AIConfig{
			Model:     "gpt-4o-mini",
			CacheSize: 128,
		},
		Notifications: NotificationConfig{
			Enabled: true,
		},
		Observability: ObservabilityConfig{
			LogLevelName:       "info",
			MetricsEnabled:     true,
			OTelEnabled:        false,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "sentry",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnv overlays SENTRY_* environment variables onto cfg.
func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("SENTRY_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("SENTRY_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("SENTRY_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("SENTRY_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("SENTRY_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("SENTRY_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.HealthPort = getEnv("SENTRY_HEALTH_PORT", cfg.Server.HealthPort)

	if roots := getEnv("SENTRY_SCAN_ROOTS", ""); roots != "" {
		cfg.Scan.Roots = splitList(roots)
	}
	cfg.Scan.Schedule = getEnv("SENTRY_SCAN_SCHEDULE", cfg.Scan.Schedule)
	cfg.Scan.UpdateCheckSchedule = getEnv("SENTRY_UPDATE_CHECK_SCHEDULE", cfg.Scan.UpdateCheckSchedule)
	cfg.Scan.Watch = getEnvBool("SENTRY_SCAN_WATCH", cfg.Scan.Watch)
	cfg.Scan.WatchDebounce = getEnvDuration("SENTRY_SCAN_WATCH_DEBOUNCE", cfg.Scan.WatchDebounce)
	if pkgs := getEnv("SENTRY_HIGH_RISK_PACKAGES", ""); pkgs != "" {
		cfg.Scan.HighRiskPackages = splitList(pkgs)
	}
	cfg.Scan.MaxSnapshotAge = getEnvDuration("SENTRY_MAX_SNAPSHOT_AGE", cfg.Scan.MaxSnapshotAge)

	cfg.Supervisor.BaseURL = getEnv("SENTRY_SUPERVISOR_URL", cfg.Supervisor.BaseURL)
	cfg.Supervisor.CoreURL = getEnv("SENTRY_CORE_URL", cfg.Supervisor.CoreURL)
	cfg.Supervisor.Timeout = getEnvDuration("SENTRY_SUPERVISOR_TIMEOUT", cfg.Supervisor.Timeout)
	// SUPERVISOR_TOKEN is injected by the addon runtime without a prefix.
	cfg.Supervisor.Token = getEnv("SUPERVISOR_TOKEN", getEnv("SENTRY_SUPERVISOR_TOKEN", cfg.Supervisor.Token))
	cfg.Supervisor.Enabled = getEnvBool("SENTRY_SUPERVISOR_ENABLED", cfg.Supervisor.Token != "")

	cfg.AI.APIKey = getEnv("SENTRY_AI_API_KEY", cfg.AI.APIKey)
	cfg.AI.BaseURL = getEnv("SENTRY_AI_BASE_URL", cfg.AI.BaseURL)
	cfg.AI.Model = getEnv("SENTRY_AI_MODEL", cfg.AI.Model)
	cfg.AI.CacheSize = getEnvInt("SENTRY_AI_CACHE_SIZE", cfg.AI.CacheSize)
	cfg.AI.Enabled = getEnvBool("SENTRY_AI_ENABLED", cfg.AI.APIKey != "")

	cfg.Notifications.Enabled = getEnvBool("SENTRY_NOTIFICATIONS_ENABLED", cfg.Notifications.Enabled)
	cfg.Notifications.NotifyOnSafe = getEnvBool("SENTRY_NOTIFY_ON_SAFE", cfg.Notifications.NotifyOnSafe)

	cfg.Observability.LogLevelName = getEnv("SENTRY_LOG_LEVEL", cfg.Observability.LogLevelName)
	cfg.Observability.MetricsEnabled = getEnvBool("SENTRY_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
	cfg.Observability.OTelEnabled = getEnvBool("SENTRY_OTEL_ENABLED", cfg.Observability.OTelEnabled)
	cfg.Observability.OTelEndpoint = getEnv("SENTRY_OTEL_ENDPOINT", cfg.Observability.OTelEndpoint)
	cfg.Observability.OTelServiceName = getEnv("SENTRY_OTEL_SERVICE_NAME", cfg.Observability.OTelServiceName)
	cfg.Observability.OTelServiceVersion = getEnv("SENTRY_OTEL_SERVICE_VERSION", cfg.Observability.OTelServiceVersion)
	cfg.Observability.OTelInsecure = getEnvBool("SENTRY_OTEL_INSECURE", cfg.Observability.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Scan.Schedule == "" {
		return fmt.Errorf("scan schedule is required")
	}
	if c.Scan.WatchDebounce < 0 {
		return fmt.Errorf("watch debounce must not be negative")
	}

	if c.Supervisor.Enabled {
		if c.Supervisor.BaseURL == "" {
			return fmt.Errorf("supervisor base URL is required when supervisor integration is enabled")
		}
		if c.Supervisor.Token == "" {
			return fmt.Errorf("supervisor token is required when supervisor integration is enabled")
		}
	}

	if c.AI.Enabled {
		if c.AI.APIKey == "" {
			return fmt.Errorf("AI API key is required when AI analysis is enabled")
		}
		if c.AI.Model == "" {
			return fmt.Errorf("AI model is required when AI analysis is enabled")
		}
		if c.AI.CacheSize <= 0 {
			return fmt.Errorf("AI cache size must be positive")
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// splitList splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
