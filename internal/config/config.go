package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full agent configuration
type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServiceConfig describes how the agent presents itself to the service
// control manager
type ServiceConfig struct {
	// Name is the SCM service name; also used in telemetry subjects
	Name string `mapstructure:"name"`

	// StartTimeout and StopTimeout become the wait hints reported during
	// the StartPending and StopPending transitions
	StartTimeout time.Duration `mapstructure:"start_timeout"`
	StopTimeout  time.Duration `mapstructure:"stop_timeout"`
}

// NATSConfig holds NATS connection settings
type NATSConfig struct {
	URLs          []string      `mapstructure:"urls"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	DrainTimeout  time.Duration `mapstructure:"drain_timeout"`
	Auth          AuthConfig    `mapstructure:"auth"`
	TLS           TLSConfig     `mapstructure:"tls"`
}

// AuthConfig holds NATS authentication settings
type AuthConfig struct {
	Type      string `mapstructure:"type"` // none, token, userpass, creds
	Token     string `mapstructure:"token"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	CredsFile string `mapstructure:"creds_file"`
}

// TLSConfig holds TLS settings for the NATS connection
type TLSConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	CAFile             string `mapstructure:"ca_file"`
	CertFile           string `mapstructure:"cert_file"`
	KeyFile            string `mapstructure:"key_file"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	Console    bool   `mapstructure:"console"`
}

// TelemetryConfig holds heartbeat and metrics settings
type TelemetryConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	Metrics           MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig selects the system metrics source
type MetricsConfig struct {
	Source      string        `mapstructure:"source"` // builtin or exporter
	ExporterURL string        `mapstructure:"exporter_url"`
	Interval    time.Duration `mapstructure:"interval"`
}

// serviceNamePattern matches the names the SCM accepts without quoting
// headaches; slashes and backslashes are forbidden by the SCM itself
var serviceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Load reads the configuration from the given path, falling back to the
// platform default path when empty. A missing file is not an error: the
// defaults describe a working local setup and everything can be overridden
// through WINAGENT_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = GetDefaultConfigPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("WINAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		// No config file: run on defaults and environment
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers defaults for every key so a bare config file still
// yields a runnable agent
func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "winagent")
	v.SetDefault("service.start_timeout", 30*time.Second)
	v.SetDefault("service.stop_timeout", 30*time.Second)

	v.SetDefault("nats.urls", []string{"nats://localhost:4222"})
	v.SetDefault("nats.subject_prefix", "agent")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.drain_timeout", 10*time.Second)
	v.SetDefault("nats.auth.type", "none")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.console", true)

	v.SetDefault("telemetry.heartbeat_interval", 30*time.Second)
	v.SetDefault("telemetry.metrics.source", "builtin")
	v.SetDefault("telemetry.metrics.interval", time.Minute)

	UpdateConfigDefaults(v)
}

// Validate checks the settings that would otherwise fail deep inside the
// service handshake or the first telemetry publish
func (c *Config) Validate() error {
	if err := ValidateServiceName(c.Service.Name); err != nil {
		return err
	}
	if c.Service.StartTimeout <= 0 || c.Service.StopTimeout <= 0 {
		return fmt.Errorf("service timeouts must be positive")
	}

	if len(c.NATS.URLs) == 0 {
		return fmt.Errorf("nats.urls is required")
	}
	switch c.NATS.Auth.Type {
	case "none", "token", "userpass", "creds":
	default:
		return fmt.Errorf("invalid nats.auth.type: %s (must be none, token, userpass, or creds)", c.NATS.Auth.Type)
	}
	if c.NATS.Auth.Type == "creds" && c.NATS.Auth.CredsFile == "" {
		return fmt.Errorf("nats.auth.creds_file is required for creds auth")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	if c.Telemetry.HeartbeatInterval < time.Second {
		return fmt.Errorf("telemetry.heartbeat_interval must be at least 1s")
	}
	switch c.Telemetry.Metrics.Source {
	case "builtin":
	case "exporter":
		if c.Telemetry.Metrics.ExporterURL == "" {
			return fmt.Errorf("telemetry.metrics.exporter_url is required for exporter source")
		}
	default:
		return fmt.Errorf("unknown telemetry.metrics.source: %s", c.Telemetry.Metrics.Source)
	}
	if c.Telemetry.Metrics.Interval < time.Second {
		return fmt.Errorf("telemetry.metrics.interval must be at least 1s")
	}

	return nil
}

// ValidateServiceName checks a service name against the SCM's constraints
func ValidateServiceName(name string) error {
	if name == "" {
		return fmt.Errorf("service.name is required")
	}
	if len(name) > 256 {
		return fmt.Errorf("service.name exceeds 256 characters")
	}
	if !serviceNamePattern.MatchString(name) {
		return fmt.Errorf("service.name must contain only alphanumeric characters, dashes, and underscores")
	}
	return nil
}
