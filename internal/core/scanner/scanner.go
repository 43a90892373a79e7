// Package scanner splits documents into detection-sized chunks, runs the
// detection service over each one and maps the results back onto the
// whole document.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/markdave123-py/phiscan/internal/core"
	"github.com/markdave123-py/phiscan/internal/models"
	"github.com/markdave123-py/phiscan/internal/observability"
)

// Default chunk sizes. Both stay under the detection service's 5000 byte
// request limit.
const (
	DefaultChunkSize      = 4096
	DefaultBatchChunkSize = 2500
	DefaultLanguage       = "en"
)

// FailurePolicy decides what happens when one chunk's detection call fails.
type FailurePolicy string

const (
	// Abort fails the whole document on the first chunk error.
	Abort FailurePolicy = "abort"
	// Continue records the failed chunk and scans the rest.
	Continue FailurePolicy = "continue"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(s)) {
	case Abort, "":
		return Abort, nil
	case Continue:
		return Continue, nil
	}
	return "", fmt.Errorf("unknown chunk failure policy %q", s)
}

// ErrPartialScan is returned with a result under the Continue policy when
// some chunks could not be scanned.
var ErrPartialScan = errors.New("partial scan")

// DetectionServiceError wraps a failed or malformed detection response.
type DetectionServiceError struct {
	ChunkIndex int
	Err        error
}

func (e *DetectionServiceError) Error() string {
	return fmt.Sprintf("detection failed on chunk %d: %v", e.ChunkIndex, e.Err)
}

func (e *DetectionServiceError) Unwrap() error {
	return e.Err
}

type Options struct {
	ChunkSize     int
	Language      string
	ChunkMode     ChunkMode
	FailurePolicy FailurePolicy
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	if o.ChunkMode == "" {
		o.ChunkMode = ChunkLegacy
	}
	if o.FailurePolicy == "" {
		o.FailurePolicy = Abort
	}
	return o
}

// EntityScanner runs a Detector over chunked text. It holds no per-call
// state, so one scanner may serve concurrent documents.
type EntityScanner struct {
	detector core.Detector
	opts     Options
	metrics  *observability.ScanMetrics
	logger   *slog.Logger
}

func NewEntityScanner(detector core.Detector, opts Options, metrics *observability.ScanMetrics, logger *slog.Logger) *EntityScanner {
	return &EntityScanner{
		detector: detector,
		opts:     opts.withDefaults(),
		metrics:  metrics,
		logger:   observability.Component(logger, "scanner"),
	}
}

// WithChunkSize returns a copy of the scanner using a different chunk size.
func (s *EntityScanner) WithChunkSize(n int) *EntityScanner {
	cp := *s
	cp.opts.ChunkSize = n
	cp.opts = cp.opts.withDefaults()
	return &cp
}

func (s *EntityScanner) Options() Options {
	return s.opts
}

// DetectPII scans data chunk by chunk. Entities come back in chunk order,
// then in the order the service returned them, with offsets remapped to
// the whole document.
//
// Under Abort the first failing chunk ends the scan with a
// *DetectionServiceError and no result. Under Continue the result carries
// every entity that could be found, and the error wraps ErrPartialScan.
func (s *EntityScanner) DetectPII(ctx context.Context, data string) (*models.ScanResult, error) {
	chunks := Split(s.opts.ChunkMode, data, s.opts.ChunkSize)

	result := &models.ScanResult{Entities: []models.Entity{}}
	var failures []error

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if chunk.Text == "" {
			continue
		}

		entities, err := s.scanChunk(ctx, chunk)
		if err != nil {
			if s.opts.FailurePolicy != Continue || ctx.Err() != nil {
				return nil, err
			}
			s.logger.Warn("Chunk failed, continuing", "chunk", chunk.Index, "error", err)
			result.ChunkErrors = append(result.ChunkErrors, models.ChunkError{ChunkIndex: chunk.Index, Err: err.Error()})
			failures = append(failures, err)
			continue
		}
		result.Entities = append(result.Entities, entities...)
	}

	result.Stats = models.ScanStats{
		DataLen:   len(data),
		ChunkNum:  len(chunks),
		ResultNum: len(result.Entities),
	}
	s.logger.Debug("Size/Chunks/Entities", "data_len", result.Stats.DataLen, "chunks", result.Stats.ChunkNum, "entities", result.Stats.ResultNum)

	if len(failures) > 0 {
		return result, fmt.Errorf("%w: %d of %d chunks failed: %w", ErrPartialScan, len(failures), len(chunks), errors.Join(failures...))
	}
	return result, nil
}

func (s *EntityScanner) scanChunk(ctx context.Context, chunk models.Chunk) ([]models.Entity, error) {
	start := time.Now()
	detected, err := s.detector.Detect(ctx, chunk.Text, s.opts.Language)
	if err != nil {
		s.metrics.RecordDetection(time.Since(start), nil, err)
		return nil, &DetectionServiceError{ChunkIndex: chunk.Index, Err: err}
	}

	runes := []rune(chunk.Text)
	entities := make([]models.Entity, 0, len(detected))
	types := make([]string, 0, len(detected))
	for _, d := range detected {
		if d.BeginOffset < 0 || d.EndOffset < d.BeginOffset || d.EndOffset > len(runes) {
			err := fmt.Errorf("malformed entity %s [%d,%d) in chunk of %d characters", d.Type, d.BeginOffset, d.EndOffset, len(runes))
			s.metrics.RecordDetection(time.Since(start), nil, err)
			return nil, &DetectionServiceError{ChunkIndex: chunk.Index, Err: err}
		}
		entities = append(entities, models.Entity{
			BeginOffset:      d.BeginOffset,
			EndOffset:        d.EndOffset,
			Type:             d.Type,
			Score:            d.Score,
			ChunkNumber:      chunk.Index,
			BeginTotalOffset: chunk.Offset + d.BeginOffset,
			EndTotalOffset:   chunk.Offset + d.EndOffset,
			Result:           string(runes[d.BeginOffset:d.EndOffset]),
		})
		types = append(types, d.Type)
	}
	s.metrics.RecordDetection(time.Since(start), types, nil)
	return entities, nil
}
