package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. HUS_SERVER_PORT
const EnvPrefix = "HUS"

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Security   SecurityConfig   `yaml:"security" envconfig:"SECURITY"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
	Workflow   WorkflowConfig   `yaml:"workflow" envconfig:"WORKFLOW"`
	Connectors ConnectorsConfig `yaml:"connectors" envconfig:"CONNECTORS"`
	Otel       OtelConfig       `yaml:"otel" envconfig:"OTEL"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	DiagramDir string `yaml:"diagram_dir" envconfig:"DIAGRAM_DIR"`
	ExportDir  string `yaml:"export_dir" envconfig:"EXPORT_DIR"`
	WebDir     string `yaml:"web_dir" envconfig:"WEB_DIR"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// WorkflowConfig controls how workflow processes run
type WorkflowConfig struct {
	MaxConcurrency   int           `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY"`
	OperationTimeout time.Duration `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT"`
	RunTimeout       time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT"`
	EnableDiagrams   bool          `yaml:"enable_diagrams" envconfig:"ENABLE_DIAGRAMS"`
	FailFast         bool          `yaml:"fail_fast" envconfig:"FAIL_FAST"`
	ResultTTL        time.Duration `yaml:"result_ttl" envconfig:"RESULT_TTL"`
}

// ConnectorsConfig configures the upstream sites
type ConnectorsConfig struct {
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND"`
	Burst             int           `yaml:"burst" envconfig:"BURST"`
	UserAgent         string        `yaml:"user_agent" envconfig:"USER_AGENT"`
	Browser           bool          `yaml:"browser" envconfig:"BROWSER"`
	SifoURL           string        `yaml:"sifo_url" envconfig:"SIFO_URL"`
	FinnAdvertURL     string        `yaml:"finn_advert_url" envconfig:"FINN_ADVERT_URL"`
	FinnCommunityURL  string        `yaml:"finn_community_url" envconfig:"FINN_COMMUNITY_URL"`
	PostenURL         string        `yaml:"posten_url" envconfig:"POSTEN_URL"`
	PostenClientURL   string        `yaml:"posten_client_url" envconfig:"POSTEN_CLIENT_URL"`
	SSBRateURL        string        `yaml:"ssb_rate_url" envconfig:"SSB_RATE_URL"`
	SkatteetatenURL   string        `yaml:"skatteetaten_url" envconfig:"SKATTEETATEN_URL"`
}

// OtelConfig controls tracing and metrics export
type OtelConfig struct {
	TracingEnabled bool    `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	MetricsEnabled bool    `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
	SampleRate     float64 `yaml:"sample_rate" envconfig:"SAMPLE_RATE"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
}

// Load builds the configuration from defaults, the YAML file at path (or
// the first file found in the usual locations when path is empty) and
// finally HUS_* environment variables, which take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate checks ranges and normalizes the logging settings
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	if c.Workflow.MaxConcurrency < 1 {
		return fmt.Errorf("workflow max concurrency must be at least 1, got %d", c.Workflow.MaxConcurrency)
	}
	if c.Workflow.ResultTTL <= 0 {
		return fmt.Errorf("workflow result ttl must be positive")
	}
	if c.Connectors.RequestsPerSecond <= 0 {
		return fmt.Errorf("connector requests per second must be positive")
	}
	if c.Otel.SampleRate < 0 || c.Otel.SampleRate > 1 {
		return fmt.Errorf("otel sample rate must be between 0 and 1, got %v", c.Otel.SampleRate)
	}

	c.Logging.Format = "json"
	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
		c.Logging.Output = strings.ToLower(c.Logging.Output)
	default:
		c.Logging.Output = "both"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}
	return nil
}

// findConfigFile returns the first config file found, or ""
func findConfigFile() string {
	locations := []string{
		"husholdning.yaml",
		"configs/husholdning.yaml",
		"../configs/husholdning.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: DefaultLogFile,
		},
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			LogsDir:    DefaultLogsDir,
			DiagramDir: DefaultDiagramDir,
			ExportDir:  DefaultExportDir,
			WebDir:     DefaultWebDir,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
		Workflow: WorkflowConfig{
			MaxConcurrency:   4,
			OperationTimeout: DefaultOperationTimeout,
			RunTimeout:       DefaultRunTimeout,
			ResultTTL:        ResultCacheDuration,
		},
		Connectors: ConnectorsConfig{
			Timeout:           DefaultHTTPTimeout,
			RequestsPerSecond: 2,
			Burst:             4,
			SifoURL:           "https://kalkulator.referansebudsjett.no/php/resultat_as_xml.php",
			FinnAdvertURL:     "https://www.finn.no/realestate/homes/ad.html",
			FinnCommunityURL:  "https://www.finn.no/realestate/homes/neighborhood",
			PostenURL:         "https://api.bring.com/shippingguide/api/postalCode.json",
			PostenClientURL:   "husholdning",
			SSBRateURL:        "https://data.ssb.no/api/v0/no/table/10748",
			SkatteetatenURL:   "https://skatteberegning.app.skatteetaten.no/api/v1/beregn",
		},
		Otel: OtelConfig{
			TracingEnabled: false,
			MetricsEnabled: true,
			SampleRate:     1,
			Environment:    "development",
		},
	}
}
