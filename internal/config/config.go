package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	License   LicenseConfig   `yaml:"license" envconfig:"LICENSE"`
	Guard     GuardConfig     `yaml:"guard" envconfig:"GUARD"`
	Network   NetworkConfig   `yaml:"network" envconfig:"NETWORK"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gt=0"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"omitempty,oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration. Empty values
// resolve under the per-user configuration directory.
type PathsConfig struct {
	BaseDir     string `yaml:"base_dir" envconfig:"BASE_DIR"`
	LicenseFile string `yaml:"license_file" envconfig:"LICENSE_FILE"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" validate:"gt=0"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" validate:"gt=0"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" validate:"gt=0"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" validate:"gtfield=PingPeriod"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// LicenseConfig identifies the product this installation enforces and the
// issuer key its licenses must be signed with.
type LicenseConfig struct {
	ProductID string `yaml:"product_id" envconfig:"PRODUCT_ID" validate:"required"`
	PublicKey string `yaml:"public_key" envconfig:"PUBLIC_KEY" validate:"omitempty,base64"`
}

// GuardConfig carries the trusted clock policy values.
type GuardConfig struct {
	RequireNetwork      bool          `yaml:"require_network" envconfig:"REQUIRE_NETWORK"`
	BackwardTolerance   time.Duration `yaml:"backward_tolerance" envconfig:"BACKWARD_TOLERANCE" validate:"gt=0"`
	BootstrapDivergence time.Duration `yaml:"bootstrap_divergence" envconfig:"BOOTSTRAP_DIVERGENCE" validate:"gt=0"`
	PersistInterval     time.Duration `yaml:"persist_interval" envconfig:"PERSIST_INTERVAL" validate:"gt=0"`
	ResyncInterval      time.Duration `yaml:"resync_interval" envconfig:"RESYNC_INTERVAL" validate:"gt=0"`
	GraceMargin         time.Duration `yaml:"grace_margin" envconfig:"GRACE_MARGIN" validate:"gte=0"`
	ForwardMargin       time.Duration `yaml:"forward_margin" envconfig:"FORWARD_MARGIN" validate:"gte=0"`
	ResyncAdoptMargin   time.Duration `yaml:"resync_adopt_margin" envconfig:"RESYNC_ADOPT_MARGIN" validate:"gte=0"`
	TickInterval        time.Duration `yaml:"tick_interval" envconfig:"TICK_INTERVAL" validate:"gt=0"`
	DetectObserver      bool          `yaml:"detect_observer" envconfig:"DETECT_OBSERVER"`
}

// NetworkConfig configures the network time source.
type NetworkConfig struct {
	Servers []string      `yaml:"servers" envconfig:"SERVERS" validate:"required,min=1,dive,hostname|ip"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	Port    int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
}

// StorageConfig selects the persistent slot backend.
type StorageConfig struct {
	Backend    string   `yaml:"backend" envconfig:"BACKEND" validate:"oneof=keyring file memory"`
	Namespaces []string `yaml:"namespaces" envconfig:"NAMESPACES" validate:"len=3,dive,required"`
	Dir        string   `yaml:"dir" envconfig:"DIR"`
}

// TelemetryConfig toggles OpenTelemetry exporters.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	Environment    string `yaml:"environment" envconfig:"ENVIRONMENT"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// Load loads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	// Load from config file if exists
	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Environment variables override everything set so far
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file at filePath onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var validate = validator.New()

// validate validates the configuration
func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	// Always JSON
	c.Logging.Format = "json"
	if c.Logging.Output == "" {
		c.Logging.Output = "console"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Guard.PersistInterval > c.Guard.ResyncInterval {
		return fmt.Errorf("guard persist interval %s exceeds resync interval %s",
			c.Guard.PersistInterval, c.Guard.ResyncInterval)
	}
	if c.Storage.Backend == "file" && c.Storage.Dir == "" {
		paths, err := c.ResolvePaths()
		if err != nil {
			return fmt.Errorf("failed to resolve slot directory: %w", err)
		}
		c.Storage.Dir = paths.SlotsDir
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		return explicit
	}

	locations := []string{
		"licensegate.yaml",
		"configs/licensegate.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// GetLicenseFile returns the resolved license file path
func (c *Config) GetLicenseFile() string {
	paths, err := c.ResolvePaths()
	if err != nil {
		return LicenseFileName
	}
	return paths.LicenseFile
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultServerPort,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "console",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
		License: LicenseConfig{
			ProductID: DefaultProductID,
		},
		Guard: GuardConfig{
			BackwardTolerance:   BackwardTolerance,
			BootstrapDivergence: BootstrapDivergence,
			PersistInterval:     PersistInterval,
			ResyncInterval:      ResyncInterval,
			GraceMargin:         GraceMargin,
			ForwardMargin:       ForwardMargin,
			ResyncAdoptMargin:   ResyncAdoptMargin,
			TickInterval:        TickInterval,
			DetectObserver:      true,
		},
		Network: NetworkConfig{
			Servers: append([]string(nil), DefaultTimeServers...),
			Timeout: NetworkTimeout,
			Port:    TimeProtocolPort,
		},
		Storage: StorageConfig{
			Backend:    "keyring",
			Namespaces: append([]string(nil), DefaultSlotNamespaces...),
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			Environment:    "production",
			TracingEnabled: false,
			MetricsEnabled: true,
		},
	}
}
