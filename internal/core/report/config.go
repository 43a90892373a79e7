package report

import (
	"io"
	"log/slog"

	"github.com/markdave123-py/phiscan/internal/config"
	"github.com/markdave123-py/phiscan/internal/core"
)

// FromConfig builds the sink chain for a run: TSV on stdout unless quiet,
// an optional local file and an optional bucket upload, all behind the
// redactor when a key is configured.
func FromConfig(c *config.Config, client core.ObjectClient, stdout io.Writer, logger *slog.Logger) (core.ReportSink, error) {
	var redactor *Redactor
	if c.RedactKey != "" {
		r, err := NewRedactor([]byte(c.RedactKey))
		if err != nil {
			return nil, err
		}
		redactor = r
	}

	var sinks MultiSink
	if !c.Quiet {
		sinks = append(sinks, NewWriterSink(stdout, FormatTSV))
	}
	if c.ReportPath != "" {
		f, err := NewFileSink(c.ReportPath, FormatByPath(c.ReportPath))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, f)
	}
	if c.ReportBucket != "" {
		sinks = append(sinks, NewBucketSink(client, c.ReportBucket, c.ReportPrefix, FormatJSONL, logger))
	}

	if redactor == nil {
		return sinks, nil
	}
	return NewRedactingSink(sinks, redactor), nil
}
