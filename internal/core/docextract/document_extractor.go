package docextract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"code.sajari.com/docconv"
	"github.com/gabriel-vasile/mimetype"

	"github.com/markdave123-py/phiscan/internal/core"
	"github.com/markdave123-py/phiscan/internal/observability"
)

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv.
type DocconvExtractor struct {
	useReadability bool
	logger         *slog.Logger
}

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

func NewDocconvExtractor(useReadability bool, logger *slog.Logger) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability, logger: observability.Component(logger, "docextract")}
}

// genericTypes are sniffing results too vague to pick a converter.
var genericTypes = map[string]bool{
	"application/octet-stream": true,
	"application/zip":          true,
	"text/plain":               true,
}

// ContentType picks the converter MIME type for data: the sniffed type
// unless it is generic, then the hint (usually derived from the key).
func ContentType(data []byte, hint string) string {
	sniffed := baseType(mimetype.Detect(data).String())
	if genericTypes[sniffed] && hint != "" {
		return baseType(hint)
	}
	return sniffed
}

// MimeTypeByKey maps an object key onto a converter MIME type by suffix.
func MimeTypeByKey(key string) string {
	return docconv.MimeTypeByExtension(key)
}

func baseType(ct string) string {
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		return strings.TrimSpace(ct[:i])
	}
	return ct
}

// ExtractText converts a document body to plain text.
func (e *DocconvExtractor) ExtractText(ctx context.Context, data []byte, contentType string) (*core.ExtractedText, error) {
	mimeType := ContentType(data, contentType)

	res, err := docconv.Convert(bytes.NewReader(data), mimeType, e.useReadability)
	if err != nil {
		return nil, fmt.Errorf("docconv %s: %w", mimeType, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if res.Body == "" {
		e.logger.Debug("Extracted empty text", "content_type", mimeType)
	}
	return &core.ExtractedText{Text: res.Body, Metadata: res.Meta}, nil
}
