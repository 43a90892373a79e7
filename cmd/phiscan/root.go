package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/phiscan/internal/config"
	"github.com/markdave123-py/phiscan/internal/observability"
)

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "phiscan",
		Short: "Scan S3 and GCS buckets for PII/PHI",
		Long: `phiscan lists objects in a bucket, extracts their text (whole bodies for
.txt/.csv/.tsv, first-page tags for OME-TIFF, converted text for documents)
and reports the PII/PHI entities a detection service finds in it.

Examples:
  phiscan scan s3://raw-data/study-1/
  phiscan scan s3://raw-data/notes/visit.txt --output findings.jsonl
  phiscan tags s3://raw-data/slides/s1.ome.tif --description
  phiscan manifest raw-data --prefix /study-1/ > manifest.csv
  phiscan jobs create jobs.yaml
  phiscan serve`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("backend", config.BackendAWS, "Storage backend: aws or gcs")
	pf.String("region", "us-east-1", "AWS region")
	pf.String("profile", "", "AWS shared config profile")
	pf.String("endpoint", "", "Override the S3 endpoint URL")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(newScanCommand())
	rootCmd.AddCommand(newTagsCommand())
	rootCmd.AddCommand(newManifestCommand())
	rootCmd.AddCommand(newJobsCommand())
	rootCmd.AddCommand(newInvokeCommand())
	rootCmd.AddCommand(newEntityTypesCommand())
	rootCmd.AddCommand(newServeCommand())

	return rootCmd
}

// addScanFlags registers the flags that tune detection and reporting.
func addScanFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("detector", config.DetectorComprehend, "Detection service: comprehend or gemini")
	f.String("language", "en", "Language code sent to the detection service")
	f.Int("chunk-size", 4096, "Maximum chunk size in bytes")
	f.String("chunk-mode", "legacy", "Chunking: legacy (character steps) or bytes (strict byte bound)")
	f.String("on-chunk-error", "abort", "When a chunk fails: abort or continue")
	f.String("tag-mode", "all", "Image tags to scan: all or description")
	f.Bool("documents", false, "Also scan PDF, Office and HTML documents")
	f.Int("concurrency", 1, "Objects scanned in parallel")
	f.StringP("output", "o", "", "Also write findings to this file (.jsonl for JSON lines)")
	f.String("report-bucket", "", "Upload a JSON lines report to this bucket")
	f.String("report-prefix", "phiscan-reports", "Key prefix for uploaded reports")
	f.BoolP("quiet", "q", false, "Do not print findings to stdout")
}

// loadConfig reads configuration with the command's flags taking
// precedence and builds the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger := observability.NewLogger(observability.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.SetDefault(logger)
	return cfg, logger, nil
}
