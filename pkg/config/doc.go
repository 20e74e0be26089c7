// Package config provides application configuration management from
// environment variables, with an optional YAML file overlay.
//
// # Overview
//
// Configuration starts from built-in defaults, is overlaid by the YAML file
// named in SENTRY_CONFIG_FILE (if set), and finally by SENTRY_* environment
// variables. Environment variables always win.
//
// # Configuration Structure
//
// Server settings:
//
//	SENTRY_HOST="0.0.0.0"
//	SENTRY_PORT="8099"
//	SENTRY_HEALTH_PORT="9090"
//	SENTRY_READ_TIMEOUT="15s"
//	SENTRY_WRITE_TIMEOUT="15s"
//
// Scan settings:
//
//	SENTRY_SCAN_ROOTS="/config/custom_components,/addons/*"
//	SENTRY_SCAN_SCHEDULE="0 */6 * * *"
//	SENTRY_SCAN_WATCH="true"
//	SENTRY_SCAN_WATCH_DEBOUNCE="5s"
//	SENTRY_HIGH_RISK_PACKAGES="aiohttp,cryptography"
//
// Supervisor settings:
//
//	SUPERVISOR_TOKEN  # injected by the addon runtime
//	SENTRY_SUPERVISOR_URL="http://supervisor"
//	SENTRY_CORE_URL="http://supervisor/core/api"
//
// AI analysis settings:
//
//	SENTRY_AI_API_KEY="sk-..."
//	SENTRY_AI_MODEL="gpt-4o-mini"
//	SENTRY_AI_CACHE_SIZE="128"
//
// Observability settings:
//
//	SENTRY_LOG_LEVEL="info"  # debug, info, warn, error
//	SENTRY_METRICS_ENABLED="true"
//	SENTRY_OTEL_ENABLED="false"
//	SENTRY_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Scan roots: %v\n", cfg.Scan.Roots)
//
// # Related Packages
//
//   - pkg/service: Uses scan and supervisor configuration
//   - pkg/observability: Uses observability configuration
package config
