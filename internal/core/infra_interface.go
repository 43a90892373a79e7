package core

import (
	"context"

	"github.com/markdave123-py/phiscan/internal/models"
)

// ObjectClient defines interactions with S3 or any S3-compatible object storage.
// GCS is reached through its XML API, so the same client serves both.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	// GetRange fetches the bytes named by an HTTP range spec such as
	// "bytes=0-7" or "bytes=128-".
	GetRange(ctx context.Context, bucket, key, rangeSpec string) ([]byte, error)

	// HeadObject returns the object size and content type without the body.
	HeadObject(ctx context.Context, bucket, key string) (size int64, contentType string, err error)

	// ListKeys pages through keys under prefix, calling fn once per page in
	// continuation order. Returning an error from fn stops the listing.
	ListKeys(ctx context.Context, bucket, prefix, startAfter string, fn func(keys []string) error) error
}

// DetectedEntity is an entity as returned by a detection service, with
// offsets local to the text that was submitted.
type DetectedEntity struct {
	Type        string
	Score       float64
	BeginOffset int
	EndOffset   int
}

// Detector finds PII/PHI entities in text.
type Detector interface {
	Detect(ctx context.Context, text, language string) ([]DetectedEntity, error)
}

// ReportSink receives findings in per-object blocks.
type ReportSink interface {
	Write(ctx context.Context, findings []models.Finding) error
	Close(ctx context.Context) error
}
