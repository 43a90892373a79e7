package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendAWS = "aws"
	BackendGCS = "gcs"
)

// Detection backends.
const (
	DetectorComprehend = "comprehend"
	DetectorGemini     = "gemini"
)

// GCSEndpoint is the S3-compatible XML API endpoint used with HMAC keys.
const GCSEndpoint = "https://storage.googleapis.com"

type Config struct {
	// storage
	StorageBackend string
	AwsAccessKey   string
	AwsSecretKey   string
	AwsRegion      string
	AwsProfile     string
	Endpoint       string
	GcsAccessKey   string
	GcsSecretKey   string
	RequestTimeout time.Duration

	// scanning
	Detector         string
	Language         string
	ChunkSize        int
	BatchChunkSize   int
	ChunkMode        string
	OnChunkError     string
	TagMode          string
	BatchTagMode     string
	MaxTagValueBytes int64
	ScanDocuments    bool
	UseReadability   bool
	Concurrency      int

	// gemini detector
	AIAPIKey string
	GenModel string

	// reports
	ReportPath   string
	ReportBucket string
	ReportPrefix string
	RedactKey    string
	Quiet        bool

	// server
	Port        string
	JWTSecret   string
	CORSOrigins []string
	JobCacheLen int

	// logging
	LogLevel  string
	LogFormat string
}

// flagKeys maps cobra flag names onto configuration keys.
var flagKeys = map[string]string{
	"backend":        "storage_backend",
	"region":         "aws_region",
	"profile":        "aws_profile",
	"endpoint":       "endpoint",
	"detector":       "detector",
	"language":       "language",
	"chunk-size":     "chunk_size",
	"chunk-mode":     "chunk_mode",
	"on-chunk-error": "on_chunk_error",
	"tag-mode":       "tag_mode",
	"documents":      "scan_documents",
	"concurrency":    "concurrency",
	"output":         "report_path",
	"report-bucket":  "report_bucket",
	"report-prefix":  "report_prefix",
	"quiet":          "quiet",
	"port":           "port",
	"log-level":      "log_level",
	"log-format":     "log_format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage_backend", BackendAWS)
	v.SetDefault("aws_access_key", "")
	v.SetDefault("aws_secret_key", "")
	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("aws_profile", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("gcs_access_key", "")
	v.SetDefault("gcs_secret_key", "")
	v.SetDefault("request_timeout", "0s")

	v.SetDefault("detector", DetectorComprehend)
	v.SetDefault("language", "en")
	v.SetDefault("chunk_size", 4096)
	v.SetDefault("batch_chunk_size", 2500)
	v.SetDefault("chunk_mode", "legacy")
	v.SetDefault("on_chunk_error", "abort")
	v.SetDefault("tag_mode", "all")
	v.SetDefault("batch_tag_mode", "description")
	v.SetDefault("max_tag_value_bytes", 1<<20)
	v.SetDefault("scan_documents", false)
	v.SetDefault("use_readability", false)
	v.SetDefault("concurrency", 1)

	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gen_model", "gemini-1.5-flash")

	v.SetDefault("report_path", "")
	v.SetDefault("report_bucket", "")
	v.SetDefault("report_prefix", "phiscan-reports")
	v.SetDefault("redact_key", "")
	v.SetDefault("quiet", false)

	v.SetDefault("port", "8080")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("cors_origins", "http://localhost:5173")
	v.SetDefault("job_cache_len", 256)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// LoadConfig reads .env, the environment, an optional phiscan.yaml and the
// given command flags (highest precedence) into a Config.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv("PHISCAN_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("phiscan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	timeout, err := time.ParseDuration(v.GetString("request_timeout"))
	if err != nil {
		return nil, fmt.Errorf("REQUEST_TIMEOUT=%q: %w", v.GetString("request_timeout"), err)
	}

	cfg := &Config{
		StorageBackend: strings.ToLower(v.GetString("storage_backend")),
		AwsAccessKey:   v.GetString("aws_access_key"),
		AwsSecretKey:   v.GetString("aws_secret_key"),
		AwsRegion:      v.GetString("aws_region"),
		AwsProfile:     v.GetString("aws_profile"),
		Endpoint:       v.GetString("endpoint"),
		GcsAccessKey:   v.GetString("gcs_access_key"),
		GcsSecretKey:   v.GetString("gcs_secret_key"),
		RequestTimeout: timeout,

		Detector:         strings.ToLower(v.GetString("detector")),
		Language:         v.GetString("language"),
		ChunkSize:        v.GetInt("chunk_size"),
		BatchChunkSize:   v.GetInt("batch_chunk_size"),
		ChunkMode:        strings.ToLower(v.GetString("chunk_mode")),
		OnChunkError:     strings.ToLower(v.GetString("on_chunk_error")),
		TagMode:          strings.ToLower(v.GetString("tag_mode")),
		BatchTagMode:     strings.ToLower(v.GetString("batch_tag_mode")),
		MaxTagValueBytes: v.GetInt64("max_tag_value_bytes"),
		ScanDocuments:    v.GetBool("scan_documents"),
		UseReadability:   v.GetBool("use_readability"),
		Concurrency:      v.GetInt("concurrency"),

		AIAPIKey: v.GetString("gemini_api_key"),
		GenModel: v.GetString("gen_model"),

		ReportPath:   v.GetString("report_path"),
		ReportBucket: v.GetString("report_bucket"),
		ReportPrefix: v.GetString("report_prefix"),
		RedactKey:    v.GetString("redact_key"),
		Quiet:        v.GetBool("quiet"),

		Port:        v.GetString("port"),
		JWTSecret:   v.GetString("jwt_secret"),
		CORSOrigins: splitList(v.GetString("cors_origins")),
		JobCacheLen: v.GetInt("job_cache_len"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the scanner cannot run with.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendAWS:
	case BackendGCS:
		if c.GcsAccessKey == "" || c.GcsSecretKey == "" {
			return fmt.Errorf("GCS_ACCESS_KEY and GCS_SECRET_KEY are required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.Detector {
	case DetectorComprehend:
	case DetectorGemini:
		if c.AIAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY not set")
		}
	default:
		return fmt.Errorf("unknown DETECTOR %q", c.Detector)
	}

	if c.ChunkSize <= 0 || c.BatchChunkSize <= 0 {
		return fmt.Errorf("chunk sizes must be positive (CHUNK_SIZE=%d, BATCH_CHUNK_SIZE=%d)", c.ChunkSize, c.BatchChunkSize)
	}
	if c.ChunkMode != "legacy" && c.ChunkMode != "bytes" {
		return fmt.Errorf("unknown CHUNK_MODE %q", c.ChunkMode)
	}
	if c.OnChunkError != "abort" && c.OnChunkError != "continue" {
		return fmt.Errorf("unknown ON_CHUNK_ERROR %q", c.OnChunkError)
	}
	for _, mode := range []string{c.TagMode, c.BatchTagMode} {
		if mode != "all" && mode != "description" {
			return fmt.Errorf("unknown tag mode %q", mode)
		}
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("CONCURRENCY must be at least 1, got %d", c.Concurrency)
	}
	if c.Language == "" {
		return fmt.Errorf("LANGUAGE not set")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
