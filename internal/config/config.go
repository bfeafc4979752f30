package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Processing ProcessingConfig `yaml:"processing" envconfig:"PROCESSING"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"2m"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	MaxBodyBytes    int64           `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES" default:"33554432"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`

	// AllowedOrigins restricts CORS; empty allows any origin
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/bizpulse.log"`
}

// ProcessingConfig tunes the batch processing core
type ProcessingConfig struct {
	BankingChunkSize    int           `yaml:"banking_chunk_size" envconfig:"BANKING_CHUNK_SIZE" default:"500"`
	CatalogChunkSize    int           `yaml:"catalog_chunk_size" envconfig:"CATALOG_CHUNK_SIZE" default:"1000"`
	HealthcareChunkSize int           `yaml:"healthcare_chunk_size" envconfig:"HEALTHCARE_CHUNK_SIZE" default:"200"`
	StreamBatchSize     int           `yaml:"stream_batch_size" envconfig:"STREAM_BATCH_SIZE" default:"100"`
	StreamDelay         time.Duration `yaml:"stream_delay" envconfig:"STREAM_DELAY" default:"50ms"`
	Workers             int           `yaml:"workers" envconfig:"WORKERS" default:"1"`
	DefaultRecordCount  int           `yaml:"default_record_count" envconfig:"DEFAULT_RECORD_COUNT" default:"10000"`
	MaxRecordCount      int           `yaml:"max_record_count" envconfig:"MAX_RECORD_COUNT" default:"1000000"`
	RunTimeout          time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" default:"10m"`
	QueueWorkers        int           `yaml:"queue_workers" envconfig:"QUEUE_WORKERS" default:"4"`
	QueueSize           int           `yaml:"queue_size" envconfig:"QUEUE_SIZE" default:"64"`
	JobRetention        time.Duration `yaml:"job_retention" envconfig:"JOB_RETENTION" default:"24h"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME" default:"bizpulse"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	EnableTracing  bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING" default:"false"`
	EnableMetrics  bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS" default:"true"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	WriteWait       time.Duration `yaml:"write_wait" envconfig:"WRITE_WAIT" default:"10s"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Load loads configuration from environment variables and the optional config file
func Load() (*Config, error) {
	return LoadFile(os.Getenv(ConfigFileEnv))
}

// LoadFile is Load with an explicit config file. An empty path searches the
// default locations; a named file that does not exist is an error.
func LoadFile(path string) (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if path != "" {
		fileConfig, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file. Keys missing from the file
// keep their default values.
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeConfigs overlays file values on envConfig wherever the environment
// still holds the default.
func mergeConfigs(fileConfig, envConfig Config) Config {
	merge(reflect.ValueOf(&envConfig).Elem(), reflect.ValueOf(fileConfig), reflect.ValueOf(*Default()))
	return envConfig
}

func merge(dst, file, def reflect.Value) {
	for i := 0; i < dst.NumField(); i++ {
		field := dst.Field(i)
		if field.Kind() == reflect.Struct {
			merge(field, file.Field(i), def.Field(i))
			continue
		}
		if reflect.DeepEqual(field.Interface(), def.Field(i).Interface()) {
			field.Set(file.Field(i))
		}
	}
}

func findConfigFile() string {
	for _, location := range configFileLocations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// validate validates the configuration
func (c *Config) validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server timeouts must be positive"))
	}

	p := c.Processing
	for name, size := range map[string]int{
		"banking_chunk_size":    p.BankingChunkSize,
		"catalog_chunk_size":    p.CatalogChunkSize,
		"healthcare_chunk_size": p.HealthcareChunkSize,
		"stream_batch_size":     p.StreamBatchSize,
		"workers":               p.Workers,
		"queue_workers":         p.QueueWorkers,
		"queue_size":            p.QueueSize,
	} {
		if size <= 0 {
			errs = append(errs, fmt.Errorf("processing %s must be positive, got %d", name, size))
		}
	}
	if p.StreamDelay < 0 {
		errs = append(errs, fmt.Errorf("processing stream_delay must not be negative"))
	}
	if p.MaxRecordCount <= 0 || p.DefaultRecordCount < 0 || p.DefaultRecordCount > p.MaxRecordCount {
		errs = append(errs, fmt.Errorf("processing default_record_count must be within 0..max_record_count"))
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		errs = append(errs, fmt.Errorf("invalid logging output: %q", c.Logging.Output))
	}
	// Logs are always JSON
	c.Logging.Format = "json"

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry sample_ratio must be within 0..1"))
	}

	return errors.Join(errs...)
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    32 << 20,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/bizpulse.log",
		},
		Processing: ProcessingConfig{
			BankingChunkSize:    DefaultBankingChunkSize,
			CatalogChunkSize:    DefaultCatalogChunkSize,
			HealthcareChunkSize: DefaultHealthcareChunkSize,
			StreamBatchSize:     DefaultStreamBatchSize,
			StreamDelay:         DefaultStreamDelay,
			Workers:             1,
			DefaultRecordCount:  DefaultRecordCount,
			MaxRecordCount:      MaxRecordCount,
			RunTimeout:          10 * time.Minute,
			QueueWorkers:        4,
			QueueSize:           64,
			JobRetention:        24 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "bizpulse",
			Environment:    "development",
			EnableTracing:  false,
			EnableMetrics:  true,
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			WriteWait:       10 * time.Second,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
