// Package config loads indiread settings from a TOML or YAML file.
package config

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Zereker/indisocket"
)

// Config holds the settings of one indiread run.
type Config struct {
	Host     string `toml:"host" yaml:"host"`
	Port     int    `toml:"port" yaml:"port"`
	Device   string `toml:"device" yaml:"device"`
	Property string `toml:"property" yaml:"property"`
	Version  string `toml:"version" yaml:"version"`
	Match    string `toml:"match" yaml:"match"` // glob over records; empty prints all

	PollInterval   Duration          `toml:"poll_interval" yaml:"poll_interval"`
	ConnectTimeout Duration          `toml:"connect_timeout" yaml:"connect_timeout"`
	MaxRecordSize  datasize.ByteSize `toml:"max_record_size" yaml:"max_record_size"`

	MetricsAddr string `toml:"metrics_addr" yaml:"metrics_addr"`
	LogLevel    string `toml:"log_level" yaml:"log_level"`
}

// Duration wraps time.Duration for text decoding ("500ms", "10s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load reads the file at path, choosing the format by extension
// (.toml, .yaml or .yml), and applies defaults to unset fields.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	default:
		return nil, errors.Errorf("unsupported config format %q", ext)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return &cfg, nil
}

// applyDefaults sets default values for missing configuration.
func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = indisocket.DefaultHost
	}
	if c.Port == 0 {
		c.Port = indisocket.DefaultPort
	}
	if c.Version == "" {
		c.Version = indisocket.DefaultProtocolVersion
	}
	if c.PollInterval.Duration == 0 {
		c.PollInterval.Duration = indisocket.DefaultPollInterval
	}
	if c.ConnectTimeout.Duration == 0 {
		c.ConnectTimeout.Duration = indisocket.DefaultConnectTimeout
	}
	if c.MaxRecordSize == 0 {
		c.MaxRecordSize = datasize.ByteSize(indisocket.DefaultMaxRecordSize)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port %d out of range", c.Port)
	}
	if c.PollInterval.Duration < 0 {
		return errors.Errorf("negative poll_interval %s", c.PollInterval)
	}
	if c.ConnectTimeout.Duration < 0 {
		return errors.Errorf("negative connect_timeout %s", c.ConnectTimeout)
	}
	if c.MaxRecordSize.Bytes() > math.MaxInt {
		return errors.Errorf("max_record_size %d out of range", c.MaxRecordSize.Bytes())
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// ClientOptions translates the configuration into client options.
func (c *Config) ClientOptions() []indisocket.ClientOption {
	return []indisocket.ClientOption{
		indisocket.PollIntervalOption(c.PollInterval.Duration),
		indisocket.ConnectTimeoutOption(c.ConnectTimeout.Duration),
		indisocket.MaxRecordSizeOption(int(c.MaxRecordSize.Bytes())),
	}
}

// Request returns the discovery request the configuration asks for.
func (c *Config) Request() string {
	return indisocket.GetProperties(c.Version, c.Device, c.Property)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Errorf("unknown log level %q", name)
	}
}
