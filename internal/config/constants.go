package config

import "time"

// Application constants
const (
	AppName = "BizPulse"

	// EnvPrefix namespaces every environment variable, e.g. BIZPULSE_SERVER_PORT
	EnvPrefix = "BIZPULSE"

	// ConfigFileEnv names an optional YAML file layered under the environment
	ConfigFileEnv = "BIZPULSE_CONFIG_FILE"

	// Default processing sizes per industry
	DefaultBankingChunkSize    = 500
	DefaultCatalogChunkSize    = 1000
	DefaultHealthcareChunkSize = 200
	DefaultStreamBatchSize     = 100
	DefaultStreamDelay         = 50 * time.Millisecond

	// Synthetic data bounds
	DefaultRecordCount = 10000
	MaxRecordCount     = 1_000_000

	// HTTP endpoints
	APIBasePath       = "/api"
	HealthEndpoint    = "/healthz"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)

// configFileLocations are searched when ConfigFileEnv is unset
var configFileLocations = []string{
	"bizpulse.yaml",
	"configs/bizpulse.yaml",
}
