package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/phiscan/internal/core"
	"github.com/markdave123-py/phiscan/internal/models"
	"github.com/markdave123-py/phiscan/internal/observability"
)

// BucketSink buffers a report and uploads it as one object on Close.
type BucketSink struct {
	mu     sync.Mutex
	client core.ObjectClient
	bucket string
	key    string
	format Format
	buf    bytes.Buffer
	closed bool
	logger *slog.Logger
}

var _ core.ReportSink = (*BucketSink)(nil)

// NewBucketSink uploads to bucket under prefix. The object is named after
// the current time and a random id.
func NewBucketSink(client core.ObjectClient, bucket, prefix string, format Format, logger *slog.Logger) *BucketSink {
	name := fmt.Sprintf("%s-%s.%s", time.Now().UTC().Format("20060102T150405Z"), uuid.NewString(), format)
	return &BucketSink{
		client: client,
		bucket: bucket,
		key:    path.Join(prefix, name),
		format: format,
		logger: observability.Component(logger, "report"),
	}
}

// Key is the object key the report is uploaded to.
func (s *BucketSink) Key() string {
	return s.key
}

func (s *BucketSink) Write(_ context.Context, findings []models.Finding) error {
	b, err := encode(s.format, findings)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Write(b)
	return nil
}

// uploadTimeout bounds the final report upload, which runs even after ctx
// is cancelled.
const uploadTimeout = 30 * time.Second

// Close uploads the buffered report. An empty report is still uploaded so
// every run leaves a record.
func (s *BucketSink) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	contentType := "text/tab-separated-values"
	if s.format == FormatJSONL {
		contentType = "application/x-ndjson"
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uploadTimeout)
	defer cancel()
	url, err := s.client.UploadFile(ctx, s.bucket, s.key, s.buf.Bytes(), contentType)
	if err != nil {
		return fmt.Errorf("upload report: %w", err)
	}
	s.logger.Info("Report uploaded", "url", url, "bytes", s.buf.Len())
	return nil
}
