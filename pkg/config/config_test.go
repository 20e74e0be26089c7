package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hasentry/sentry/pkg/observability"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue bool
		envValue     string
		want         bool
	}{
		{
			name:         "returns true for 'true'",
			key:          "TEST_BOOL",
			defaultValue: false,
			envValue:     "true",
			want:         true,
		},
		{
			name:         "returns true for '1'",
			key:          "TEST_BOOL",
			defaultValue: false,
			envValue:     "1",
			want:         true,
		},
		{
			name:         "returns false for 'false'",
			key:          "TEST_BOOL",
			defaultValue: true,
			envValue:     "false",
			want:         false,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_BOOL_NOT_SET",
			defaultValue: true,
			envValue:     "",
			want:         true,
		},
		{
			name:         "returns true for 'TRUE' (case insensitive)",
			key:          "TEST_BOOL",
			defaultValue: false,
			envValue:     "TRUE",
			want:         true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			} else {
				os.Unsetenv(tt.key)
			}

			got := getEnvBool(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvDuration tests the getEnvDuration helper function
func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		want         time.Duration
	}{
		{
			name:         "returns parsed duration",
			key:          "TEST_DURATION",
			defaultValue: 10 * time.Second,
			envValue:     "30s",
			want:         30 * time.Second,
		},
		{
			name:         "returns default for invalid duration",
			key:          "TEST_DURATION",
			defaultValue: 10 * time.Second,
			envValue:     "invalid",
			want:         10 * time.Second,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_DURATION_NOT_SET",
			defaultValue: 10 * time.Second,
			envValue:     "",
			want:         10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			} else {
				os.Unsetenv(tt.key)
			}

			got := getEnvDuration(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestParseLogLevel tests the parseLogLevel function
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  observability.LogLevel
	}{
		{
			name:  "debug",
			level: "debug",
			want:  observability.DebugLevel,
		},
		{
			name:  "DEBUG uppercase",
			level: "DEBUG",
			want:  observability.DebugLevel,
		},
		{
			name:  "info",
			level: "info",
			want:  observability.InfoLevel,
		},
		{
			name:  "warn",
			level: "warn",
			want:  observability.WarnLevel,
		},
		{
			name:  "warning",
			level: "warning",
			want:  observability.WarnLevel,
		},
		{
			name:  "error",
			level: "error",
			want:  observability.ErrorLevel,
		},
		{
			name:  "invalid defaults to info",
			level: "invalid",
			want:  observability.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseLogLevel(tt.level)
			if got != tt.want {
				t.Errorf("parseLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestSplitList tests the splitList helper function
func TestSplitList(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{
			name:  "simple list",
			value: "a,b,c",
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "trims whitespace",
			value: " /config/custom_components , /addons/* ",
			want:  []string{"/config/custom_components", "/addons/*"},
		},
		{
			name:  "drops empty entries",
			value: "a,,b,",
			want:  []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitList(tt.value)
			if len(got) != len(tt.want) {
				t.Fatalf("splitList() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitList()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// sentryEnvVars lists every environment variable LoadConfig reads, so tests
// can clear and restore them.
var sentryEnvVars = []string{
	"SENTRY_CONFIG_FILE",
	"SENTRY_HOST",
	"SENTRY_PORT",
	"SENTRY_READ_TIMEOUT",
	"SENTRY_WRITE_TIMEOUT",
	"SENTRY_IDLE_TIMEOUT",
	"SENTRY_SHUTDOWN_TIMEOUT",
	"SENTRY_HEALTH_PORT",
	"SENTRY_SCAN_ROOTS",
	"SENTRY_SCAN_SCHEDULE",
	"SENTRY_UPDATE_CHECK_SCHEDULE",
	"SENTRY_SCAN_WATCH",
	"SENTRY_SCAN_WATCH_DEBOUNCE",
	"SENTRY_HIGH_RISK_PACKAGES",
	"SENTRY_MAX_SNAPSHOT_AGE",
	"SENTRY_SUPERVISOR_URL",
	"SENTRY_CORE_URL",
	"SENTRY_SUPERVISOR_TIMEOUT",
	"SENTRY_SUPERVISOR_TOKEN",
	"SENTRY_SUPERVISOR_ENABLED",
	"SUPERVISOR_TOKEN",
	"SENTRY_AI_API_KEY",
	"SENTRY_AI_BASE_URL",
	"SENTRY_AI_MODEL",
	"SENTRY_AI_CACHE_SIZE",
	"SENTRY_AI_ENABLED",
	"SENTRY_NOTIFICATIONS_ENABLED",
	"SENTRY_NOTIFY_ON_SAFE",
	"SENTRY_LOG_LEVEL",
	"SENTRY_METRICS_ENABLED",
	"SENTRY_OTEL_ENABLED",
	"SENTRY_OTEL_ENDPOINT",
	"SENTRY_OTEL_SERVICE_NAME",
	"SENTRY_OTEL_SERVICE_VERSION",
	"SENTRY_OTEL_INSECURE",
}

func clearSentryEnv(t *testing.T) {
	t.Helper()
	original := make(map[string]string, len(sentryEnvVars))
	for _, k := range sentryEnvVars {
		original[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range original {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
}

// TestLoadConfigDefaults tests defaults with a clean environment
func TestLoadConfigDefaults(t *testing.T) {
	clearSentryEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error = %v", err)
	}

	if cfg.Server.Port != "8099" {
		t.Errorf("Port = %v, want 8099", cfg.Server.Port)
	}
	if cfg.Server.HealthPort != "9090" {
		t.Errorf("HealthPort = %v, want 9090", cfg.Server.HealthPort)
	}
	if cfg.Scan.Schedule != "0 */6 * * *" {
		t.Errorf("Schedule = %v, want 0 */6 * * *", cfg.Scan.Schedule)
	}
	if !cfg.Scan.Watch {
		t.Error("Watch = false, want true")
	}
	if cfg.Scan.WatchDebounce != 5*time.Second {
		t.Errorf("WatchDebounce = %v, want 5s", cfg.Scan.WatchDebounce)
	}
	if cfg.Supervisor.Enabled {
		t.Error("Supervisor.Enabled = true, want false without token")
	}
	if cfg.AI.Enabled {
		t.Error("AI.Enabled = true, want false without API key")
	}
	if cfg.Observability.LogLevel != observability.InfoLevel {
		t.Errorf("LogLevel = %v, want info", cfg.Observability.LogLevel)
	}
}

// TestLoadConfigEnvOverrides tests environment variable overrides
func TestLoadConfigEnvOverrides(t *testing.T) {
	clearSentryEnv(t)

	os.Setenv("SENTRY_PORT", "3000")
	os.Setenv("SENTRY_SCAN_ROOTS", "/config/custom_components,/addons/*")
	os.Setenv("SENTRY_SCAN_WATCH", "false")
	os.Setenv("SENTRY_HIGH_RISK_PACKAGES", "aiohttp, cryptography")
	os.Setenv("SUPERVISOR_TOKEN", "abc123")
	os.Setenv("SENTRY_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error = %v", err)
	}

	if cfg.Server.Port != "3000" {
		t.Errorf("Port = %v, want 3000", cfg.Server.Port)
	}
	if len(cfg.Scan.Roots) != 2 || cfg.Scan.Roots[0] != "/config/custom_components" {
		t.Errorf("Roots = %v, want two entries", cfg.Scan.Roots)
	}
	if cfg.Scan.Watch {
		t.Error("Watch = true, want false")
	}
	if len(cfg.Scan.HighRiskPackages) != 2 || cfg.Scan.HighRiskPackages[1] != "cryptography" {
		t.Errorf("HighRiskPackages = %v, want [aiohttp cryptography]", cfg.Scan.HighRiskPackages)
	}
	if !cfg.Supervisor.Enabled {
		t.Error("Supervisor.Enabled = false, want true when token present")
	}
	if cfg.Supervisor.Token != "abc123" {
		t.Errorf("Token = %v, want abc123", cfg.Supervisor.Token)
	}
	if cfg.Observability.LogLevel != observability.DebugLevel {
		t.Errorf("LogLevel = %v, want debug", cfg.Observability.LogLevel)
	}
}

// TestLoadConfigFile tests the YAML file overlay and env precedence
func TestLoadConfigFile(t *testing.T) {
	clearSentryEnv(t)

	path := filepath.Join(t.TempDir(), "sentry.yaml")
	content := `
server:
  port: "4000"
scan:
  roots:
    - /data/components
  schedule: "*/30 * * * *"
observability:
  log_level: warn
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	os.Setenv("SENTRY_CONFIG_FILE", path)
	os.Setenv("SENTRY_PORT", "5000")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error = %v", err)
	}

	// Env var beats file.
	if cfg.Server.Port != "5000" {
		t.Errorf("Port = %v, want 5000 (env wins over file)", cfg.Server.Port)
	}
	if len(cfg.Scan.Roots) != 1 || cfg.Scan.Roots[0] != "/data/components" {
		t.Errorf("Roots = %v, want [/data/components]", cfg.Scan.Roots)
	}
	if cfg.Scan.Schedule != "*/30 * * * *" {
		t.Errorf("Schedule = %v, want */30 * * * *", cfg.Scan.Schedule)
	}
	if cfg.Observability.LogLevel != observability.WarnLevel {
		t.Errorf("LogLevel = %v, want warn", cfg.Observability.LogLevel)
	}
}

// TestConfigValidate tests the Config.Validate method
func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Observability.LogLevel = observability.InfoLevel
		return cfg
	}

	t.Run("missing server port", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error, got nil")
		}
	})

	t.Run("same server and health port", func(t *testing.T) {
		cfg := valid()
		cfg.Server.HealthPort = cfg.Server.Port
		err := cfg.Validate()
		if err == nil {
			t.Fatal("Validate() expected error, got nil")
		}
		if err.Error() != "server port and health port must be different" {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("missing scan schedule", func(t *testing.T) {
		cfg := valid()
		cfg.Scan.Schedule = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error, got nil")
		}
	})

	t.Run("supervisor enabled without token", func(t *testing.T) {
		cfg := valid()
		cfg.Supervisor.Enabled = true
		cfg.Supervisor.Token = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error, got nil")
		}
	})

	t.Run("ai enabled without api key", func(t *testing.T) {
		cfg := valid()
		cfg.AI.Enabled = true
		cfg.AI.APIKey = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error, got nil")
		}
	})

	t.Run("ai enabled with zero cache size", func(t *testing.T) {
		cfg := valid()
		cfg.AI.Enabled = true
		cfg.AI.APIKey = "sk-test"
		cfg.AI.CacheSize = 0
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error, got nil")
		}
	})

	t.Run("otel enabled without endpoint", func(t *testing.T) {
		cfg := valid()
		cfg.Observability.OTelEnabled = true
		cfg.Observability.OTelEndpoint = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error, got nil")
		}
	})

	t.Run("valid defaults", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Validate() unexpected error = %v", err)
		}
	})
}
