package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/fileshare/internal/bytesize"
	"github.com/marmos91/fileshare/pkg/api"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the fileshare configuration.
//
// It covers both sides of the file port:
//   - Logging, tracing and profiling
//   - The file port itself (buffers, limits, timeouts)
//   - The three storage areas and the single credential
//   - The optional metrics and health servers
//   - Defaults for the native client commands
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (FILESHARE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Server configures the file port
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Storage names the upload, trash and static directories
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Auth holds the single accepted credential
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API contains health API server configuration
	API api.APIConfig `mapstructure:"api" yaml:"api"`

	// Client holds defaults for the "fileshare client" commands
	Client ClientConfig `mapstructure:"client" yaml:"client"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, one trace per connection is exported to an OTLP collector.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use a non-TLS connection
	// Default: true
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	// Default: ["cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"]
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// ServerConfig configures the file port.
type ServerConfig struct {
	// BindAddress is the IP address to listen on; empty means all interfaces
	BindAddress string `mapstructure:"bind_address" validate:"omitempty,ip" yaml:"bind_address"`

	// Port is the TCP port shared by both protocols
	// Default: 8080
	Port int `mapstructure:"port" validate:"min=1,max=65535" yaml:"port"`

	// SniffBufferSize bounds the first read used to detect the protocol
	// Default: 8KiB
	SniffBufferSize bytesize.ByteSize `mapstructure:"sniff_buffer_size" validate:"min=16" yaml:"sniff_buffer_size"`

	// MaxHeaderBytes caps the accumulated HTTP request head
	// Default: 64KiB
	MaxHeaderBytes bytesize.ByteSize `mapstructure:"max_header_bytes" validate:"min=1" yaml:"max_header_bytes"`

	// MaxFormBytes caps the body read for /auth
	// Default: 64KiB
	MaxFormBytes bytesize.ByteSize `mapstructure:"max_form_bytes" validate:"min=1" yaml:"max_form_bytes"`

	// ChunkSize is the unit of every streaming read and write
	// Default: 4KiB
	ChunkSize bytesize.ByteSize `mapstructure:"chunk_size" validate:"min=1" yaml:"chunk_size"`

	// EndUploadOnShortRead also ends a command upload at the first read
	// shorter than ChunkSize
	// Default: false
	EndUploadOnShortRead bool `mapstructure:"end_upload_on_short_read" yaml:"end_upload_on_short_read"`

	// Timeouts bounds every wait on a peer
	Timeouts ServerTimeouts `mapstructure:"timeouts" yaml:"timeouts"`
}

// ServerTimeouts mirrors the file port waits.
type ServerTimeouts struct {
	// Initial bounds the wait for the first bytes of a connection
	Initial time.Duration `mapstructure:"initial" validate:"gt=0" yaml:"initial"`

	// HeaderIdle ends HTTP header accumulation after this much silence
	HeaderIdle time.Duration `mapstructure:"header_idle" validate:"gt=0" yaml:"header_idle"`

	// Command bounds the wait for the command line after AUTH OK
	Command time.Duration `mapstructure:"command" validate:"gt=0" yaml:"command"`

	// UploadIdle ends a command-protocol upload after this much silence
	UploadIdle time.Duration `mapstructure:"upload_idle" validate:"gt=0" yaml:"upload_idle"`

	// BodyIdle ends an HTTP body after this much silence
	BodyIdle time.Duration `mapstructure:"body_idle" validate:"gt=0" yaml:"body_idle"`

	// Write bounds each write to the peer
	Write time.Duration `mapstructure:"write" validate:"gt=0" yaml:"write"`
}

// StorageConfig names the three storage areas.
type StorageConfig struct {
	// UploadDir holds live files
	// Default: "uploads"
	UploadDir string `mapstructure:"upload_dir" validate:"required" yaml:"upload_dir"`

	// TrashDir holds soft-deleted files
	// Default: "trash"
	TrashDir string `mapstructure:"trash_dir" validate:"required" yaml:"trash_dir"`

	// StaticDir is served for any other GET path
	// Default: "www"
	StaticDir string `mapstructure:"static_dir" validate:"required" yaml:"static_dir"`
}

// AuthConfig holds the single accepted credential.
type AuthConfig struct {
	// Username is the accepted user name
	// Default: "admin"
	Username string `mapstructure:"username" validate:"required" yaml:"username"`

	// Password is compared in constant time when PasswordHash is empty
	// Default: "password123"
	Password string `mapstructure:"password" validate:"required_without=PasswordHash" yaml:"password,omitempty"`

	// PasswordHash is a bcrypt hash that takes precedence over Password
	// Generate with: fileshare hash-password
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash,omitempty"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ClientConfig holds defaults for the native client commands.
type ClientConfig struct {
	// Address is the server host:port
	// Default: "localhost:8080"
	Address string `mapstructure:"address" validate:"required,hostname_port" yaml:"address"`

	// Username and Password fall back to the auth section when empty
	Username string `mapstructure:"username" yaml:"username,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	// DownloadDir receives downloaded files
	// Default: "downloads"
	DownloadDir string `mapstructure:"download_dir" validate:"required" yaml:"download_dir"`

	// ChunkSize is the size of each upload write
	// Default: 4KiB
	ChunkSize bytesize.ByteSize `mapstructure:"chunk_size" validate:"min=1" yaml:"chunk_size"`

	// DialTimeout bounds the TCP connect
	// Default: 5s
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"gt=0" yaml:"dial_timeout"`

	// AckTimeout bounds the wait for AUTH OK, READY and upload acks
	// Default: 5s
	AckTimeout time.Duration `mapstructure:"ack_timeout" validate:"gt=0" yaml:"ack_timeout"`

	// DownloadIdle ends a download after this much silence
	// Default: 2s
	DownloadIdle time.Duration `mapstructure:"download_idle" validate:"gt=0" yaml:"download_idle"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FILESHARE_*)
//  2. Configuration file
//  3. Default values
//
// A missing config file is not an error: defaults plus environment apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := registerDefaults(v); err != nil {
		return nil, err
	}

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// Unlike Load, it requires the config file to exist.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  fileshare config init\n\n"+
				"Or specify a custom config file:\n"+
				"  fileshare <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  fileshare config init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file carries the credential.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: FILESHARE_SERVER_PORT=9000
	v.SetEnvPrefix("FILESHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// registerDefaults feeds every key of the default config to viper so that
// AutomaticEnv overrides apply even to keys absent from the file.
func registerDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to unmarshal defaults: %w", err)
	}
	setDefaults(v, "", tree)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok {
			setDefaults(v, full, sub)
			continue
		}
		v.SetDefault(full, value)
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// byteSizeDecodeHook converts strings like "8KiB" or "64Ki" and plain
// numbers to bytesize.ByteSize.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			if v < 0 {
				return nil, fmt.Errorf("negative byte size %d", v)
			}
			return bytesize.ByteSize(v), nil
		case int64:
			if v < 0 {
				return nil, fmt.Errorf("negative byte size %d", v)
			}
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			if v < 0 {
				return nil, fmt.Errorf("negative byte size %v", v)
			}
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s" or "5m" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/fileshare, ~/.config/fileshare, or
// "." when the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "fileshare")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "fileshare")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
