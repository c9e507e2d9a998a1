// Package config loads replyweaver settings. Precedence is environment over
// file over defaults; the file is parsed strictly so unknown keys fail fast.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/drblury/replyweaver/router"
	"github.com/drblury/replyweaver/tracing"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REPLYWEAVER_"

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Server  ServerConfig  `yaml:"server"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Namespace string    `yaml:"namespace"`
	Buckets   []float64 `yaml:"buckets"`
}

type TracingConfig struct {
	Vendor string `yaml:"vendor"`
}

// ServerConfig holds the listen address plus the router settings, which
// share the server block in the file.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	router.Config `yaml:",inline"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Namespace: "replyweaver"},
		Tracing: TracingConfig{Vendor: tracing.DefaultVendor},
		Server: ServerConfig{
			Addr:   ":8080",
			Config: router.Config{Timeout: 30 * time.Second},
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		// #nosec G304 -- the path is chosen by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read file: %w", err)
		}
		if err := decodeStrict(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeStrict(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("config file contains multiple documents or trailing content")
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("METRICS_NAMESPACE", &cfg.Metrics.Namespace)
	str("TRACING_VENDOR", &cfg.Tracing.Vendor)
	str("SERVER_ADDR", &cfg.Server.Addr)

	if v, ok := lookup(EnvPrefix + "SERVER_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sSERVER_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.Server.Timeout = d
	}
	if v, ok := lookup(EnvPrefix + "METRICS_BUCKETS"); ok {
		buckets, err := parseBuckets(v)
		if err != nil {
			return fmt.Errorf("%sMETRICS_BUCKETS: %w", EnvPrefix, err)
		}
		cfg.Metrics.Buckets = buckets
	}
	return nil
}

func parseBuckets(v string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unsupported format %q", c.Log.Format)
	}
	for i := 1; i < len(c.Metrics.Buckets); i++ {
		if c.Metrics.Buckets[i] <= c.Metrics.Buckets[i-1] {
			return fmt.Errorf("metrics.buckets: must be strictly increasing, got %v", c.Metrics.Buckets)
		}
	}
	if err := tracing.ValidateVendor(c.Tracing.Vendor); err != nil {
		return fmt.Errorf("tracing.vendor: %w", err)
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout: must not be negative, got %s", c.Server.Timeout)
	}
	return nil
}

// SlogLevel parses Level, accepting the names slog prints.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Logger builds a slog logger writing to w in the configured format.
func (l LogConfig) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
