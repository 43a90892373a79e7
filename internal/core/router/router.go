// Package router decides how each object is read, feeds the text to the
// entity scanner and streams findings to a report sink.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/phiscan/internal/core"
	"github.com/markdave123-py/phiscan/internal/core/docextract"
	"github.com/markdave123-py/phiscan/internal/core/rangereader"
	"github.com/markdave123-py/phiscan/internal/core/scanner"
	"github.com/markdave123-py/phiscan/internal/core/tiffmeta"
	"github.com/markdave123-py/phiscan/internal/models"
	"github.com/markdave123-py/phiscan/internal/observability"
)

var (
	// ErrSkipped marks objects the router does not scan. It is not a
	// failure.
	ErrSkipped = errors.New("object skipped")
	// ErrInvalidText is returned for text objects that are not UTF-8.
	ErrInvalidText = errors.New("object is not valid utf-8")
)

type Options struct {
	TagMode          tiffmeta.Mode
	ScanDocuments    bool
	Concurrency      int
	MaxTagValueBytes int64
}

// ObjectRouter scans objects from one object store.
type ObjectRouter struct {
	client    core.ObjectClient
	scanner   *scanner.EntityScanner
	documents core.DocumentExtractor
	tags      *tiffmeta.Extractor
	opts      Options
	metrics   *observability.ScanMetrics
	logger    *slog.Logger
}

// New builds a router. documents may be nil when document scanning is off.
func New(client core.ObjectClient, sc *scanner.EntityScanner, documents core.DocumentExtractor, opts Options, metrics *observability.ScanMetrics, logger *slog.Logger) *ObjectRouter {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.TagMode == "" {
		opts.TagMode = tiffmeta.ModeAll
	}
	logger = observability.Component(logger, "router")
	parser := &tiffmeta.Parser{MaxValueSize: opts.MaxTagValueBytes, Logger: logger}
	return &ObjectRouter{
		client:    client,
		scanner:   sc,
		documents: documents,
		tags:      tiffmeta.NewExtractor(parser, opts.TagMode),
		opts:      opts,
		metrics:   metrics,
		logger:    logger,
	}
}

// ScanObject scans one object and returns its findings. Skipped objects
// return an error wrapping ErrSkipped. A partial scan returns the findings
// it has together with an error wrapping scanner.ErrPartialScan.
func (r *ObjectRouter) ScanObject(ctx context.Context, bucket, key string) (findings []models.Finding, err error) {
	route := Classify(key, r.opts.ScanDocuments && r.documents != nil)

	ctx, span := observability.StartSpan(ctx, "router.ScanObject",
		attribute.String("bucket", bucket),
		attribute.String("key", key),
		attribute.String("route", string(route)),
	)
	defer func() {
		r.metrics.RecordObject(string(route), outcome(err))
		if errors.Is(err, ErrSkipped) {
			observability.EndSpan(span, nil)
			return
		}
		observability.EndSpan(span, err)
	}()

	r.logger.Info("Working", "bucket", bucket, "key", key, "route", route)

	switch route {
	case RouteText:
		return r.scanText(ctx, bucket, key)
	case RouteImage:
		return r.scanImage(ctx, bucket, key)
	case RouteDocument:
		return r.scanDocument(ctx, bucket, key)
	}
	r.logger.Info("Skipping", "key", key)
	return nil, fmt.Errorf("%s: %w", key, ErrSkipped)
}

func outcome(err error) string {
	switch {
	case err == nil, errors.Is(err, scanner.ErrPartialScan):
		return observability.OutcomeScanned
	case errors.Is(err, ErrSkipped):
		return observability.OutcomeSkipped
	}
	return observability.OutcomeFailed
}

func (r *ObjectRouter) scanText(ctx context.Context, bucket, key string) ([]models.Finding, error) {
	body, err := r.client.GetFile(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Retrieved", "bucket", bucket, "key", key, "bytes", len(body))

	if !utf8.Valid(body) {
		return nil, fmt.Errorf("%s: %w", key, ErrInvalidText)
	}

	r.logger.Info("Inspecting", "key", key)
	return r.detect(ctx, bucket, key, models.NoTag, string(body))
}

func (r *ObjectRouter) scanImage(ctx context.Context, bucket, key string) ([]models.Finding, error) {
	f := rangereader.New(ctx, r.client, bucket, key, -1)
	r.logger.Info("Inspecting", "key", key, "reader", f.String())

	records, err := r.tags.Extract(f)
	if errors.Is(err, tiffmeta.ErrNotImplemented) || errors.Is(err, tiffmeta.ErrUnsupportedFormat) {
		r.logger.Info("Skipping", "key", key, "reason", err)
		return nil, fmt.Errorf("%s: %w: %w", key, ErrSkipped, err)
	}
	if err != nil {
		return nil, err
	}

	var (
		findings []models.Finding
		partial  []error
	)
	for _, tag := range records {
		found, err := r.detect(ctx, bucket, key, tag.Name, tag.Value)
		findings = append(findings, found...)
		if errors.Is(err, scanner.ErrPartialScan) {
			partial = append(partial, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", tag.Name, err)
		}
	}
	if len(partial) > 0 {
		return findings, errors.Join(partial...)
	}
	return findings, nil
}

func (r *ObjectRouter) scanDocument(ctx context.Context, bucket, key string) ([]models.Finding, error) {
	body, err := r.client.GetFile(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Retrieved", "bucket", bucket, "key", key, "bytes", len(body))

	text, err := r.documents.ExtractText(ctx, body, docextract.MimeTypeByKey(key))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", key, err)
	}

	r.logger.Info("Inspecting", "key", key)
	return r.detect(ctx, bucket, key, models.NoTag, text.Text)
}

func (r *ObjectRouter) detect(ctx context.Context, bucket, key, tag, text string) ([]models.Finding, error) {
	res, err := r.scanner.DetectPII(ctx, text)
	if res == nil {
		return nil, err
	}
	r.logger.Info("Size/Chunks/Entities", "key", key, "tag", tag,
		"data_len", res.Stats.DataLen, "chunks", res.Stats.ChunkNum, "entities", res.Stats.ResultNum)

	findings := make([]models.Finding, 0, len(res.Entities))
	for _, e := range res.Entities {
		findings = append(findings, models.Finding{Bucket: bucket, Key: key, Tag: tag, Entity: e})
	}
	return findings, err
}

// ScanPrefix lists keys under prefix and scans each one, writing findings
// to sink in per-object blocks. Per-object failures are logged and counted;
// listing or sink failures stop the batch.
func (r *ObjectRouter) ScanPrefix(ctx context.Context, bucket, prefix, startAfter string, sink core.ReportSink) (models.BatchSummary, error) {
	prefix, startAfter = NormalizePrefix(prefix, startAfter)

	ctx, span := observability.StartSpan(ctx, "router.ScanPrefix",
		attribute.String("bucket", bucket),
		attribute.String("prefix", prefix),
	)

	var (
		mu      sync.Mutex
		summary models.BatchSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	listErr := r.client.ListKeys(gctx, bucket, prefix, startAfter, func(keys []string) error {
		for _, key := range keys {
			if err := gctx.Err(); err != nil {
				return err
			}
			mu.Lock()
			summary.Listed++
			mu.Unlock()

			g.Go(func() error {
				findings, err := r.ScanObject(gctx, bucket, key)

				mu.Lock()
				switch {
				case errors.Is(err, ErrSkipped):
					summary.Skipped++
				case err != nil && !errors.Is(err, scanner.ErrPartialScan):
					summary.Failed++
				default:
					summary.Scanned++
				}
				summary.Findings += len(findings)
				mu.Unlock()

				if err != nil && !errors.Is(err, ErrSkipped) {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					r.logger.Error("Unable to scan object", "bucket", bucket, "key", key, "error", err)
				}
				if len(findings) == 0 {
					return nil
				}
				if err := sink.Write(gctx, findings); err != nil {
					return fmt.Errorf("write findings for %s: %w", key, err)
				}
				return nil
			})
		}
		return nil
	})

	waitErr := g.Wait()
	err := waitErr
	if err == nil {
		err = listErr
	}
	observability.EndSpan(span, err)

	r.logger.Info("Batch finished", "bucket", bucket, "prefix", prefix,
		"listed", summary.Listed, "scanned", summary.Scanned, "skipped", summary.Skipped,
		"failed", summary.Failed, "findings", summary.Findings)
	return summary, err
}
