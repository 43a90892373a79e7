package core

import (
	"context"
)

// ExtractedText represents the result of text extraction, potentially with metadata.
type ExtractedText struct {
	Text     string
	Metadata map[string]string
}

// DocumentExtractor defines the interface for extracting text from various document types.
type DocumentExtractor interface {
	// ExtractText converts a document body to plain text. The content type
	// hint helps the extractor choose the right parsing strategy.
	ExtractText(ctx context.Context, data []byte, contentType string) (*ExtractedText, error)
}
