package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// EnvPrefix prefixes every environment override, e.g. NAMEREG_SERVER_PORT.
const EnvPrefix = "NAMEREG"

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "namereg"

// Config represents the complete namereg configuration
type Config struct {
	Version  int            `json:"version" yaml:"version" toml:"version" mapstructure:"version"`
	Server   ServerConfig   `json:"server" yaml:"server" toml:"server" mapstructure:"server"`
	Database DatabaseConfig `json:"database" yaml:"database" toml:"database" mapstructure:"database"`
	Handler  HandlerConfig  `json:"handler" yaml:"handler" toml:"handler" mapstructure:"handler"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging" toml:"logging" mapstructure:"logging"`
	Tracing  TracingConfig  `json:"tracing" yaml:"tracing" toml:"tracing" mapstructure:"tracing"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Host              string            `json:"host" yaml:"host" toml:"host" mapstructure:"host"`
	Port              int               `json:"port" yaml:"port" toml:"port" mapstructure:"port"`
	ReadTimeoutMs     int               `json:"read_timeout_ms" yaml:"read_timeout_ms" toml:"read_timeout_ms" mapstructure:"read_timeout_ms"`
	WriteTimeoutMs    int               `json:"write_timeout_ms" yaml:"write_timeout_ms" toml:"write_timeout_ms" mapstructure:"write_timeout_ms"`
	IdleTimeoutMs     int               `json:"idle_timeout_ms" yaml:"idle_timeout_ms" toml:"idle_timeout_ms" mapstructure:"idle_timeout_ms"`
	ShutdownTimeoutMs int               `json:"shutdown_timeout_ms" yaml:"shutdown_timeout_ms" toml:"shutdown_timeout_ms" mapstructure:"shutdown_timeout_ms"`
	RateLimit         RateLimitConfig   `json:"rate_limit" yaml:"rate_limit" toml:"rate_limit" mapstructure:"rate_limit"`
	Compression       CompressionConfig `json:"compression" yaml:"compression" toml:"compression" mapstructure:"compression"`
}

// RateLimitConfig configures the token bucket in front of the handlers
type RateLimitConfig struct {
	Enabled           bool    `json:"enabled" yaml:"enabled" toml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" toml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst" toml:"burst" mapstructure:"burst"`
}

// CompressionConfig configures gzip response compression
type CompressionConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" toml:"enabled" mapstructure:"enabled"`
	MinSize int  `json:"min_size" yaml:"min_size" toml:"min_size" mapstructure:"min_size"`
}

// DatabaseConfig contains the SQLite file and connection pool settings
type DatabaseConfig struct {
	Driver            string `json:"driver" yaml:"driver" toml:"driver" mapstructure:"driver"`
	Path              string `json:"path" yaml:"path" toml:"path" mapstructure:"path"`
	MaxOpenConns      int    `json:"max_open_conns" yaml:"max_open_conns" toml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns      int    `json:"max_idle_conns" yaml:"max_idle_conns" toml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMs int    `json:"conn_max_lifetime_ms" yaml:"conn_max_lifetime_ms" toml:"conn_max_lifetime_ms" mapstructure:"conn_max_lifetime_ms"`
	AcquireTimeoutMs  int    `json:"acquire_timeout_ms" yaml:"acquire_timeout_ms" toml:"acquire_timeout_ms" mapstructure:"acquire_timeout_ms"`
	BusyTimeoutMs     int    `json:"busy_timeout_ms" yaml:"busy_timeout_ms" toml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// HandlerConfig selects the execution strategy bound to GET /{name}
type HandlerConfig struct {
	Strategy  string `json:"strategy" yaml:"strategy" toml:"strategy" mapstructure:"strategy"`
	Workers   int    `json:"workers" yaml:"workers" toml:"workers" mapstructure:"workers"`
	QueueSize int    `json:"queue_size" yaml:"queue_size" toml:"queue_size" mapstructure:"queue_size"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" yaml:"format" toml:"format" mapstructure:"format"`
	Level      string `json:"level" yaml:"level" toml:"level" mapstructure:"level"`
	File       string `json:"file" yaml:"file" toml:"file" mapstructure:"file"`
	MaxSize    string `json:"max_size" yaml:"max_size" toml:"max_size" mapstructure:"max_size"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups" mapstructure:"max_backups"`
}

// TracingConfig contains OpenTelemetry settings
type TracingConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled" mapstructure:"enabled"`
	Output  string `json:"output" yaml:"output" toml:"output" mapstructure:"output"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8080,
			ReadTimeoutMs:     15000,
			WriteTimeoutMs:    15000,
			IdleTimeoutMs:     60000,
			ShutdownTimeoutMs: 10000,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerSecond: 1000,
				Burst:             200,
			},
			Compression: CompressionConfig{
				Enabled: false,
				MinSize: 1024,
			},
		},
		Database: DatabaseConfig{
			Driver:            "sqlite",
			Path:              "test.db",
			MaxOpenConns:      10,
			MaxIdleConns:      10,
			ConnMaxLifetimeMs: 0,
			AcquireTimeoutMs:  30000,
			BusyTimeoutMs:     5000,
		},
		Handler: HandlerConfig{
			Strategy:  "inline",
			Workers:   4,
			QueueSize: 64,
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
		Tracing: TracingConfig{
			Enabled: false,
		},
	}
}

// setDefaults registers every key with viper so that environment
// overrides are honoured during Unmarshal even without a config file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout_ms", d.Server.ReadTimeoutMs)
	v.SetDefault("server.write_timeout_ms", d.Server.WriteTimeoutMs)
	v.SetDefault("server.idle_timeout_ms", d.Server.IdleTimeoutMs)
	v.SetDefault("server.shutdown_timeout_ms", d.Server.ShutdownTimeoutMs)
	v.SetDefault("server.rate_limit.enabled", d.Server.RateLimit.Enabled)
	v.SetDefault("server.rate_limit.requests_per_second", d.Server.RateLimit.RequestsPerSecond)
	v.SetDefault("server.rate_limit.burst", d.Server.RateLimit.Burst)
	v.SetDefault("server.compression.enabled", d.Server.Compression.Enabled)
	v.SetDefault("server.compression.min_size", d.Server.Compression.MinSize)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime_ms", d.Database.ConnMaxLifetimeMs)
	v.SetDefault("database.acquire_timeout_ms", d.Database.AcquireTimeoutMs)
	v.SetDefault("database.busy_timeout_ms", d.Database.BusyTimeoutMs)

	v.SetDefault("handler.strategy", d.Handler.Strategy)
	v.SetDefault("handler.workers", d.Handler.Workers)
	v.SetDefault("handler.queue_size", d.Handler.QueueSize)

	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size", d.Logging.MaxSize)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.output", d.Tracing.Output)
}

// LoadConfig loads configuration with precedence env > file > defaults.
//
// When path is empty, namereg.{yaml,json,toml} is looked up in the working
// directory and its absence is not an error. An explicit path must exist.
// A .env file in the working directory is loaded into the environment first.
func LoadConfig(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultFileName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from file into the process environment
// without overriding variables that are already set. A missing file is fine.
func LoadDotEnv(file string) error {
	if err := godotenv.Load(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", file, err)
	}
	return nil
}

// Save writes the configuration to path in the format implied by its extension.
func (c *Config) Save(path string) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	data, err := Encode(c, format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Encode renders the configuration as json, yaml or toml.
func Encode(c *Config, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		return yaml.Marshal(c)
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, &ConfigError{Field: "format", Message: fmt.Sprintf("unsupported format %q", format)}
	}
}

// Validate checks if the configuration is valid. The handler strategy is
// normalized first: case and surrounding spaces are ignored and an empty
// value selects the default.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be between 0 and 65535"}
	}
	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.RequestsPerSecond <= 0 || c.Server.RateLimit.Burst < 1) {
		return &ConfigError{Field: "server.rate_limit", Message: "requests_per_second and burst must be positive"}
	}
	if c.Server.Compression.MinSize < 0 {
		return &ConfigError{Field: "server.compression.min_size", Message: "cannot be negative"}
	}
	if c.Database.Path == "" {
		return &ConfigError{Field: "database.path", Message: "cannot be empty"}
	}
	switch c.Database.Driver {
	case "sqlite", "sqlite3":
	default:
		return &ConfigError{Field: "database.driver", Message: fmt.Sprintf("unknown driver %q", c.Database.Driver)}
	}
	if c.Database.MaxOpenConns < 1 {
		return &ConfigError{Field: "database.max_open_conns", Message: "pool capacity must be at least 1"}
	}
	if c.Database.AcquireTimeoutMs < 0 {
		return &ConfigError{Field: "database.acquire_timeout_ms", Message: "cannot be negative"}
	}
	c.Handler.Strategy = strings.ToLower(strings.TrimSpace(c.Handler.Strategy))
	switch c.Handler.Strategy {
	case "":
		c.Handler.Strategy = DefaultConfig().Handler.Strategy
	case "inline", "offload":
	default:
		return &ConfigError{Field: "handler.strategy", Message: fmt.Sprintf("unknown strategy %q", c.Handler.Strategy)}
	}
	if c.Handler.Workers < 1 {
		return &ConfigError{Field: "handler.workers", Message: "must be at least 1"}
	}
	if c.Handler.QueueSize < 0 {
		return &ConfigError{Field: "handler.queue_size", Message: "cannot be negative"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	return nil
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (s ServerConfig) ReadTimeout() time.Duration  { return ms(s.ReadTimeoutMs) }
func (s ServerConfig) WriteTimeout() time.Duration { return ms(s.WriteTimeoutMs) }
func (s ServerConfig) IdleTimeout() time.Duration  { return ms(s.IdleTimeoutMs) }

func (s ServerConfig) ShutdownTimeout() time.Duration { return ms(s.ShutdownTimeoutMs) }

// AcquireTimeout bounds how long a caller waits for a pooled connection.
// Zero means wait until the caller's context ends.
func (d DatabaseConfig) AcquireTimeout() time.Duration { return ms(d.AcquireTimeoutMs) }

func (d DatabaseConfig) ConnMaxLifetime() time.Duration { return ms(d.ConnMaxLifetimeMs) }

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
