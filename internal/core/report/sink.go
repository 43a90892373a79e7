package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/markdave123-py/phiscan/internal/core"
	"github.com/markdave123-py/phiscan/internal/models"
)

// WriterSink streams findings to an io.Writer. Writes are serialised so
// concurrent workers can share one sink.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	format Format
}

var _ core.ReportSink = (*WriterSink)(nil)

// NewWriterSink writes to w without taking ownership of it.
func NewWriterSink(w io.Writer, format Format) *WriterSink {
	return &WriterSink{w: w, format: format}
}

// NewFileSink creates (or truncates) path and closes it on Close.
func NewFileSink(path string, format Format) (*WriterSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create report %s: %w", path, err)
	}
	return &WriterSink{w: f, closer: f, format: format}, nil
}

func (s *WriterSink) Write(_ context.Context, findings []models.Finding) error {
	b, err := encode(s.format, findings)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (s *WriterSink) Close(context.Context) error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// MemorySink keeps findings in memory.
type MemorySink struct {
	mu       sync.Mutex
	findings []models.Finding
}

var _ core.ReportSink = (*MemorySink)(nil)

func NewMemorySink() *MemorySink {
	return &MemorySink{findings: []models.Finding{}}
}

func (s *MemorySink) Write(_ context.Context, findings []models.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findings = append(s.findings, findings...)
	return nil
}

func (s *MemorySink) Close(context.Context) error { return nil }

// Findings returns a copy of everything written so far.
func (s *MemorySink) Findings() []models.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Finding{}, s.findings...)
}

// MultiSink fans findings out to several sinks. Close closes all of them.
type MultiSink []core.ReportSink

var _ core.ReportSink = MultiSink(nil)

func (m MultiSink) Write(ctx context.Context, findings []models.Finding) error {
	for _, s := range m {
		if err := s.Write(ctx, findings); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
