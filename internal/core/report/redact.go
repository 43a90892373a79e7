package report

import (
	"context"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/markdave123-py/phiscan/internal/core"
	"github.com/markdave123-py/phiscan/internal/models"
)

// Redactor replaces matched text with a keyed BLAKE2b digest so equal
// values can still be correlated across reports.
type Redactor struct {
	key []byte
}

// NewRedactor accepts keys of 1 to 64 bytes.
func NewRedactor(key []byte) (*Redactor, error) {
	if len(key) == 0 || len(key) > blake2b.Size {
		return nil, fmt.Errorf("redaction key must be 1-%d bytes, got %d", blake2b.Size, len(key))
	}
	return &Redactor{key: append([]byte(nil), key...)}, nil
}

// Digest returns "blake2b:" and the first 16 bytes of the keyed hash in hex.
func (r *Redactor) Digest(value string) string {
	h, _ := blake2b.New256(r.key)
	h.Write([]byte(value))
	return "blake2b:" + hex.EncodeToString(h.Sum(nil)[:16])
}

func (r *Redactor) Redact(f models.Finding) models.Finding {
	f.Entity.Result = r.Digest(f.Entity.Result)
	return f
}

// RedactingSink redacts findings before passing them on.
type RedactingSink struct {
	next     core.ReportSink
	redactor *Redactor
}

var _ core.ReportSink = (*RedactingSink)(nil)

func NewRedactingSink(next core.ReportSink, redactor *Redactor) *RedactingSink {
	return &RedactingSink{next: next, redactor: redactor}
}

func (s *RedactingSink) Write(ctx context.Context, findings []models.Finding) error {
	out := make([]models.Finding, len(findings))
	for i, f := range findings {
		out[i] = s.redactor.Redact(f)
	}
	return s.next.Write(ctx, out)
}

func (s *RedactingSink) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}
