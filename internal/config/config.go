package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all job settings, populated from defaults, an optional YAML
// file, and SKOLETL_-prefixed environment variables.
type Config struct {
	// Source API.
	APIBaseURL     string        `koanf:"api_base_url"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	MaxAttempts    int           `koanf:"max_attempts"`
	RetryDelay     time.Duration `koanf:"retry_delay"`
	RateLimitDelay time.Duration `koanf:"rate_limit_delay"`

	// Catalog pagination and batching.
	PageSize         int           `koanf:"page_size"`
	PageDelay        time.Duration `koanf:"page_delay"`
	BatchSize        int           `koanf:"batch_size"`
	BatchDelay       time.Duration `koanf:"batch_delay"`
	ProgressInterval int           `koanf:"progress_interval"`

	// Output.
	DataDir string `koanf:"data_dir"`

	// Optional Kafka publishing of processed records.
	KafkaEnabled bool     `koanf:"kafka_enabled"`
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`

	// Operational surface.
	HTTPAddr  string `koanf:"http_addr"`
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
}

// defaults returns the built-in configuration. Delay values follow the
// pacing the source API tolerates without returning 429s in practice.
func defaults() Config {
	return Config{
		APIBaseURL:     "https://api.skolverket.se/planned-educations/v3",
		RequestTimeout: 30 * time.Second,
		MaxAttempts:    3,
		RetryDelay:     time.Second,
		RateLimitDelay: 2 * time.Second,

		PageSize:         100,
		PageDelay:        50 * time.Millisecond,
		BatchSize:        10,
		BatchDelay:       100 * time.Millisecond,
		ProgressInterval: 500,

		DataDir: "data",

		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "processed-schools",

		HTTPAddr:  ":8080",
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load builds a Config by layering defaults, the optional YAML file at
// path, and environment variables (highest precedence). Env keys map
// SKOLETL_API_BASE_URL -> api_base_url.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("SKOLETL_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SKOLETL_"))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.APIBaseURL == "" {
		return errors.New("api_base_url is required")
	}
	if c.PageSize <= 0 {
		return errors.New("page_size must be positive")
	}
	if c.BatchSize <= 0 {
		return errors.New("batch_size must be positive")
	}
	if c.MaxAttempts <= 0 {
		return errors.New("max_attempts must be positive")
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("kafka_enabled is true but kafka_brokers is empty")
	}
	return nil
}

// RawSnapshotPath is the location of the unprocessed merged records.
func (c *Config) RawSnapshotPath() string {
	return filepath.Join(c.DataDir, "raw_schools.json")
}

// FetchMetadataPath is the location of the fetch-run metadata file.
func (c *Config) FetchMetadataPath() string {
	return filepath.Join(c.DataDir, "fetch_metadata.json")
}

// ProcessedSnapshotPath is the location of the published snapshot.
func (c *Config) ProcessedSnapshotPath() string {
	return filepath.Join(c.DataDir, "schools.json")
}
