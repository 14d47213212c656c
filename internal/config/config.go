// Package config loads howcatalog configuration.
//
// Values come from three layers, later ones winning: built-in defaults,
// an optional YAML file, and HOWCATALOG_* environment variables.
// Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration of a howcatalog process.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Signals SignalsConfig `yaml:"signals"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the listeners.
type ServerConfig struct {
	// GRPCAddr is the listen address of the catalog gRPC service.
	GRPCAddr string `yaml:"grpc_addr"`

	// HTTPAddr is the listen address of the REST API. Empty disables it.
	HTTPAddr string `yaml:"http_addr"`

	// MetricsAddr serves /metrics, /health, /ready and pprof. Empty
	// disables it.
	MetricsAddr string `yaml:"metrics_addr"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig configures the badger-backed substrate.
type StorageConfig struct {
	Path              string `yaml:"path"`
	InMemory          bool   `yaml:"in_memory"`
	SyncWrites        bool   `yaml:"sync_writes"`
	CompressThreshold int    `yaml:"compress_threshold"`
	FetchConcurrency  int    `yaml:"fetch_concurrency"`
}

// SignalsConfig configures where new-entry signals go.
type SignalsConfig struct {
	// BusBuffer is the per-subscriber buffer of the in-process bus.
	BusBuffer int `yaml:"bus_buffer"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis pub/sub publisher.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCAddr:        ":50051",
			HTTPAddr:        ":8080",
			MetricsAddr:     ":9090",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Path:              "./data/howcatalog",
			SyncWrites:        true,
			CompressThreshold: 1024,
			FetchConcurrency:  8,
		},
		Signals: SignalsConfig{
			BusBuffer: 64,
			Redis: RedisConfig{
				Addr:    "localhost:6379",
				Channel: "howcatalog.signals",
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path or
// a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from HOWCATALOG_* environment variables.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"HOWCATALOG_GRPC_ADDR":     &c.Server.GRPCAddr,
		"HOWCATALOG_HTTP_ADDR":     &c.Server.HTTPAddr,
		"HOWCATALOG_METRICS_ADDR":  &c.Server.MetricsAddr,
		"HOWCATALOG_DB_PATH":       &c.Storage.Path,
		"HOWCATALOG_REDIS_ADDR":    &c.Signals.Redis.Addr,
		"HOWCATALOG_REDIS_CHANNEL": &c.Signals.Redis.Channel,
		"HOWCATALOG_LOG_LEVEL":     &c.Log.Level,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("HOWCATALOG_REDIS_PASSWORD"); ok {
		c.Signals.Redis.Password = v
	}

	bools := map[string]*bool{
		"HOWCATALOG_IN_MEMORY":     &c.Storage.InMemory,
		"HOWCATALOG_SYNC_WRITES":   &c.Storage.SyncWrites,
		"HOWCATALOG_REDIS_ENABLED": &c.Signals.Redis.Enabled,
		"HOWCATALOG_LOG_PRETTY":    &c.Log.Pretty,
	}
	for key, dst := range bools {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}

	if v, ok := os.LookupEnv("HOWCATALOG_SHUTDOWN_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HOWCATALOG_SHUTDOWN_TIMEOUT: %w", err)
		}
		c.Server.ShutdownTimeout = d
	}
	return nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.GRPCAddr == "" {
		errs = append(errs, errors.New("server.grpc_addr is required"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required unless storage.in_memory is set"))
	}
	if c.Storage.CompressThreshold < 0 {
		errs = append(errs, errors.New("storage.compress_threshold must not be negative"))
	}
	if c.Storage.FetchConcurrency < 1 {
		errs = append(errs, errors.New("storage.fetch_concurrency must be at least 1"))
	}
	if c.Signals.BusBuffer < 0 {
		errs = append(errs, errors.New("signals.bus_buffer must not be negative"))
	}
	if c.Signals.Redis.Enabled {
		if c.Signals.Redis.Addr == "" {
			errs = append(errs, errors.New("signals.redis.addr is required when redis is enabled"))
		}
		if c.Signals.Redis.Channel == "" {
			errs = append(errs, errors.New("signals.redis.channel is required when redis is enabled"))
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	return errors.Join(errs...)
}
