package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/phiscan/internal/config"
)

// isolate runs the test in an empty directory with the variables it reads
// cleared.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, k := range []string{
		"PHISCAN_CONFIG", "STORAGE_BACKEND", "AWS_REGION", "DETECTOR", "CHUNK_SIZE",
		"CHUNK_MODE", "ON_CHUNK_ERROR", "TAG_MODE", "CONCURRENCY", "GEMINI_API_KEY",
		"REQUEST_TIMEOUT", "CORS_ORIGINS", "REPORT_PATH", "REPORT_BUCKET", "SCAN_DOCUMENTS",
		"QUIET", "LANGUAGE", "BATCH_CHUNK_SIZE", "BATCH_TAG_MODE", "JOB_CACHE_LEN", "REPORT_PREFIX",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := config.LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, config.BackendAWS, cfg.StorageBackend)
	assert.Equal(t, "us-east-1", cfg.AwsRegion)
	assert.Equal(t, config.DetectorComprehend, cfg.Detector)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, 4096, cfg.ChunkSize)
	assert.Equal(t, 2500, cfg.BatchChunkSize)
	assert.Equal(t, "legacy", cfg.ChunkMode)
	assert.Equal(t, "abort", cfg.OnChunkError)
	assert.Equal(t, "all", cfg.TagMode)
	assert.Equal(t, "description", cfg.BatchTagMode)
	assert.Equal(t, int64(1<<20), cfg.MaxTagValueBytes)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, "phiscan-reports", cfg.ReportPrefix)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, 256, cfg.JobCacheLen)
	assert.Zero(t, cfg.RequestTimeout)
	assert.False(t, cfg.ScanDocuments)
}

func TestLoadConfig_EnvAndFlags(t *testing.T) {
	isolate(t)
	t.Setenv("CHUNK_SIZE", "2000")
	t.Setenv("CONCURRENCY", "4")
	t.Setenv("REQUEST_TIMEOUT", "45s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("chunk-size", 4096, "")
	flags.String("tag-mode", "all", "")
	require.NoError(t, flags.Parse([]string{"--tag-mode", "description"}))

	cfg, err := config.LoadConfig(flags)
	require.NoError(t, err)

	assert.Equal(t, 2000, cfg.ChunkSize, "unset flags do not override env")
	assert.Equal(t, "description", cfg.TagMode)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadConfig_File(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "scan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_mode: bytes\nscan_documents: true\nreport_bucket: reports\n"), 0o600))
	t.Setenv("PHISCAN_CONFIG", path)

	cfg, err := config.LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "bytes", cfg.ChunkMode)
	assert.True(t, cfg.ScanDocuments)
	assert.Equal(t, "reports", cfg.ReportBucket)

	t.Setenv("PHISCAN_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = config.LoadConfig(nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			StorageBackend: config.BackendAWS,
			Detector:       config.DetectorComprehend,
			Language:       "en",
			ChunkSize:      4096,
			BatchChunkSize: 2500,
			ChunkMode:      "legacy",
			OnChunkError:   "abort",
			TagMode:        "all",
			BatchTagMode:   "description",
			Concurrency:    1,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{name: "unknown backend", mutate: func(c *config.Config) { c.StorageBackend = "azure" }},
		{name: "gcs without keys", mutate: func(c *config.Config) { c.StorageBackend = config.BackendGCS }},
		{name: "gemini without key", mutate: func(c *config.Config) { c.Detector = config.DetectorGemini }},
		{name: "unknown detector", mutate: func(c *config.Config) { c.Detector = "regex" }},
		{name: "zero chunk size", mutate: func(c *config.Config) { c.ChunkSize = 0 }},
		{name: "bad chunk mode", mutate: func(c *config.Config) { c.ChunkMode = "tokens" }},
		{name: "bad failure policy", mutate: func(c *config.Config) { c.OnChunkError = "retry" }},
		{name: "bad tag mode", mutate: func(c *config.Config) { c.BatchTagMode = "none" }},
		{name: "zero concurrency", mutate: func(c *config.Config) { c.Concurrency = 0 }},
		{name: "no language", mutate: func(c *config.Config) { c.Language = "" }},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	gcs := valid()
	gcs.StorageBackend = config.BackendGCS
	gcs.GcsAccessKey, gcs.GcsSecretKey = "GOOG1", "secret"
	assert.NoError(t, gcs.Validate())
}
