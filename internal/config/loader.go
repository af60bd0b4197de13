package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks configuration problems that must abort startup.
var ErrInvalid = errors.New("invalid configuration")

const (
	envConfig   = "S3_CONFIG"
	envPath     = "S3_PATH"
	envHost     = "S3_HOST"
	envPort     = "S3_PORT"
	envLogLevel = "LOG_LEVEL"

	defaultFile = "s3.json"
)

// Default returns the configuration used when no file is present:
// one bucket whose every event is logged at info level.
func Default() *Config {
	cfg := &Config{
		Directory: "./s3-tmp",
		Hostname:  "0.0.0.0",
		Port:      5000,
		LogLevel:  "info",
		Buckets: []Bucket{{
			Name: "bucket1",
			Filters: []Filter{{
				Name:         "log",
				Notification: Notification{Type: "log", Level: "info"},
			}},
		}},
	}
	applyDispatcherDefaults(&cfg.Dispatcher)
	return cfg
}

// ResolvePath picks the config file: the explicit path if given,
// then $S3_CONFIG, then ./s3.json.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := strings.TrimSpace(os.Getenv(envConfig)); p != "" {
		return p
	}
	wd, err := os.Getwd()
	if err != nil {
		return defaultFile
	}
	return filepath.Join(wd, defaultFile)
}

// Load reads the file at path and merges it over the defaults.
// A missing file yields the defaults; a file that cannot be parsed is an
// ErrInvalid error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
	}

	// Top-level keys absent from the file fall back to the defaults.
	def := Default()
	if cfg.Directory == "" {
		cfg.Directory = def.Directory
	}
	if cfg.Hostname == "" {
		cfg.Hostname = def.Hostname
	}
	if cfg.Port == 0 {
		cfg.Port = def.Port
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.Buckets == nil {
		cfg.Buckets = def.Buckets
	}
	applyDispatcherDefaults(&cfg.Dispatcher)
	return &cfg, nil
}

func applyDispatcherDefaults(d *DispatcherConf) {
	if d.Workers == 0 {
		d.Workers = 16
	}
	if d.QueueDepth == 0 {
		d.QueueDepth = 10000
	}
	if d.EventBuffer == 0 {
		d.EventBuffer = 1024
	}
	if d.DeliveryTimeoutMs == 0 {
		d.DeliveryTimeoutMs = 10000
	}
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(envPath)); v != "" {
		cfg.Directory = v
	}
	if v := strings.TrimSpace(os.Getenv(envHost)); v != "" {
		cfg.Hostname = v
	}
	if v := strings.TrimSpace(os.Getenv(envPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a port", ErrInvalid, envPort, v)
		}
		cfg.Port = port
	}
	if v := strings.TrimSpace(os.Getenv(envLogLevel)); v != "" {
		cfg.LogLevel = v
	}
	return nil
}
