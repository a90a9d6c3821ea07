// Package config holds the tunables of index construction, query caching and snapshots.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"honnef.co/go/tracestore/counterindex"
	"honnef.co/go/tracestore/eventset"
	"honnef.co/go/tracestore/stateindex"

	"gopkg.in/yaml.v3"
)

type Config struct {
	CounterIndex CounterIndexConfig `yaml:"counter_index"`
	StateIndex   StateIndexConfig   `yaml:"state_index"`
	Cache        CacheConfig        `yaml:"cache"`
	Build        BuildConfig        `yaml:"build"`
	Snapshot     SnapshotConfig     `yaml:"snapshot"`
	Serve        ServeConfig        `yaml:"serve"`
}

type CounterIndexConfig struct {
	FanOut int `yaml:"fan_out"`
}

type StateIndexConfig struct {
	Factor int `yaml:"factor"`
}

type CacheConfig struct {
	// Maximum number of cached query results. 0 disables caching.
	Size int `yaml:"size"`
	// Number of accesses after which usage frequencies are halved.
	Samples int `yaml:"samples"`
}

type BuildConfig struct {
	Workers int `yaml:"workers"` // 0 = GOMAXPROCS
}

type SnapshotConfig struct {
	Compression string `yaml:"compression"` // snappy | zstd | none
}

type ServeConfig struct {
	Addr string `yaml:"addr"`
}

func Default() *Config {
	return &Config{
		CounterIndex: CounterIndexConfig{FanOut: counterindex.DefaultFanOut},
		StateIndex:   StateIndexConfig{Factor: stateindex.DefaultFactor},
		Cache: CacheConfig{
			Size:    4096,
			Samples: 40960,
		},
		Snapshot: SnapshotConfig{Compression: "snappy"},
		Serve:    ServeConfig{Addr: "localhost:9090"},
	}
}

// Parse overlays the YAML document in data on the default configuration and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration from the file at path. An empty path yields the default configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	var errs []error
	if cfg.CounterIndex.FanOut < 2 {
		errs = append(errs, fmt.Errorf("counter_index.fan_out must be at least 2, got %d", cfg.CounterIndex.FanOut))
	}
	if cfg.StateIndex.Factor < 1 {
		errs = append(errs, fmt.Errorf("state_index.factor must be at least 1, got %d", cfg.StateIndex.Factor))
	}
	if cfg.Cache.Size < 0 {
		errs = append(errs, fmt.Errorf("cache.size must not be negative, got %d", cfg.Cache.Size))
	}
	if cfg.Cache.Size > 0 && cfg.Cache.Samples < 1 {
		errs = append(errs, fmt.Errorf("cache.samples must be positive, got %d", cfg.Cache.Samples))
	}
	if cfg.Build.Workers < 0 {
		errs = append(errs, fmt.Errorf("build.workers must not be negative, got %d", cfg.Build.Workers))
	}
	if _, err := cfg.Compression(); err != nil {
		errs = append(errs, fmt.Errorf("snapshot.compression: %w", err))
	}
	return errors.Join(errs...)
}

func (cfg *Config) Compression() (eventset.Compression, error) {
	return eventset.ParseCompression(cfg.Snapshot.Compression)
}

// Marshal returns the configuration as YAML.
func (cfg *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(cfg)
}
