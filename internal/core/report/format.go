// Package report writes scan findings to stdout, local files and buckets.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/markdave123-py/phiscan/internal/models"
)

// Format is a report line encoding.
type Format string

const (
	FormatTSV   Format = "tsv"
	FormatJSONL Format = "jsonl"
)

// FormatByPath picks JSONL for .jsonl and .json paths and TSV otherwise.
func FormatByPath(path string) Format {
	switch {
	case strings.HasSuffix(path, ".jsonl"), strings.HasSuffix(path, ".json"):
		return FormatJSONL
	}
	return FormatTSV
}

// TSVLine renders one finding as "bucket\t key\t tag\t entity-json\n".
func TSVLine(f models.Finding) (string, error) {
	entity, err := json.Marshal(f.Entity)
	if err != nil {
		return "", fmt.Errorf("encode entity: %w", err)
	}
	return fmt.Sprintf("%s\t %s\t %s\t %s\n", f.Bucket, f.Key, f.Tag, entity), nil
}

// JSONLine renders one finding as a JSON object followed by a newline.
func JSONLine(f models.Finding) (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode finding: %w", err)
	}
	return string(b) + "\n", nil
}

func encode(format Format, findings []models.Finding) ([]byte, error) {
	line := TSVLine
	if format == FormatJSONL {
		line = JSONLine
	}
	var out []byte
	for _, f := range findings {
		s, err := line(f)
		if err != nil {
			return nil, err
		}
		out = append(out, s...)
	}
	return out, nil
}
