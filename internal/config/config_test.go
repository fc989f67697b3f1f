package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.skolverket.se/planned-educations/v3", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.RateLimitDelay)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.BatchDelay)
	assert.Equal(t, "data", cfg.DataDir)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "processed-schools", cfg.KafkaTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SKOLETL_API_BASE_URL", "http://localhost:9113/v3")
	t.Setenv("SKOLETL_MAX_ATTEMPTS", "5")
	t.Setenv("SKOLETL_RETRY_DELAY", "250ms")
	t.Setenv("SKOLETL_KAFKA_ENABLED", "true")
	t.Setenv("SKOLETL_KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("SKOLETL_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9113/v3", cfg.APIBaseURL)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Untouched keys keep their defaults.
	assert.Equal(t, 100, cfg.PageSize)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base_url: http://mockapi:9113/v3
page_size: 25
batch_delay: 10ms
data_dir: /var/lib/skoletl
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://mockapi:9113/v3", cfg.APIBaseURL)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, 10*time.Millisecond, cfg.BatchDelay)
	assert.Equal(t, "/var/lib/skoletl", cfg.DataDir)
}

func TestEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page_size: 25\n"), 0o644))
	t.Setenv("SKOLETL_PAGE_SIZE", "40")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.PageSize)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "empty base url",
			env:     map[string]string{"SKOLETL_API_BASE_URL": ""},
			wantErr: "api_base_url is required",
		},
		{
			name:    "non-positive page size",
			env:     map[string]string{"SKOLETL_PAGE_SIZE": "0"},
			wantErr: "page_size must be positive",
		},
		{
			name:    "non-positive batch size",
			env:     map[string]string{"SKOLETL_BATCH_SIZE": "-1"},
			wantErr: "batch_size must be positive",
		},
		{
			name:    "kafka enabled without brokers",
			env:     map[string]string{"SKOLETL_KAFKA_ENABLED": "true", "SKOLETL_KAFKA_BROKERS": ""},
			wantErr: "kafka_brokers is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config file")
}

func TestSnapshotPaths(t *testing.T) {
	cfg := Config{DataDir: "out"}
	assert.Equal(t, filepath.Join("out", "raw_schools.json"), cfg.RawSnapshotPath())
	assert.Equal(t, filepath.Join("out", "fetch_metadata.json"), cfg.FetchMetadataPath())
	assert.Equal(t, filepath.Join("out", "schools.json"), cfg.ProcessedSnapshotPath())
}
