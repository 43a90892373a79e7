package tiffmeta

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/markdave123-py/phiscan/internal/models"
)

// Mode selects which first-page tags the extractor returns.
type Mode string

const (
	ModeAll         Mode = "all"
	ModeDescription Mode = "description"
)

// ParseMode maps a configuration value onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeAll:
		return ModeAll, nil
	case ModeDescription:
		return ModeDescription, nil
	}
	return "", fmt.Errorf("unknown tag mode %q", s)
}

// Extractor turns first-page tags into text records for scanning.
type Extractor struct {
	Parser *Parser
	Mode   Mode
}

func NewExtractor(parser *Parser, mode Mode) *Extractor {
	if parser == nil {
		parser = &Parser{}
	}
	if mode == "" {
		mode = ModeAll
	}
	return &Extractor{Parser: parser, Mode: mode}
}

// Extract returns the selected tags in IFD order with values coerced to
// strings. In description mode a file without ImageDescription yields no
// records.
func (e *Extractor) Extract(r io.ReadSeeker) ([]models.TagRecord, error) {
	tags, err := e.Parser.FirstPage(r)
	if err != nil {
		return nil, err
	}

	records := make([]models.TagRecord, 0, len(tags))
	for _, t := range tags {
		if e.Mode == ModeDescription && t.Code != TagImageDescription {
			continue
		}
		records = append(records, models.TagRecord{Name: t.Name, Value: FormatValue(t)})
	}
	return records, nil
}

// ImageDescription returns the first page's ImageDescription, or "" when
// the tag is absent.
func ImageDescription(r io.ReadSeeker) (string, error) {
	records, err := NewExtractor(nil, ModeDescription).Extract(r)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", nil
	}
	return records[0].Value, nil
}

// FormatValue renders a tag value as valid UTF-8 text. ASCII values that
// are not UTF-8 are decoded as Latin-1.
func FormatValue(t Tag) string {
	switch v := t.Value.(type) {
	case string:
		v = strings.TrimRight(v, "\x00")
		if utf8.ValidString(v) {
			return v
		}
		return latin1(v)
	case []byte:
		trimmed := bytes.TrimRight(v, "\x00")
		if utf8.Valid(trimmed) {
			return string(trimmed)
		}
		return hex.EncodeToString(v)
	case []int8:
		return joinNumbers(len(v), func(i int) string { return strconv.Itoa(int(v[i])) })
	case []uint16:
		return joinNumbers(len(v), func(i int) string { return strconv.FormatUint(uint64(v[i]), 10) })
	case []int16:
		return joinNumbers(len(v), func(i int) string { return strconv.Itoa(int(v[i])) })
	case []uint32:
		return joinNumbers(len(v), func(i int) string { return strconv.FormatUint(uint64(v[i]), 10) })
	case []int32:
		return joinNumbers(len(v), func(i int) string { return strconv.Itoa(int(v[i])) })
	case []Rational:
		return joinNumbers(len(v), func(i int) string { return fmt.Sprintf("%d/%d", v[i].Num, v[i].Den) })
	case []SRational:
		return joinNumbers(len(v), func(i int) string { return fmt.Sprintf("%d/%d", v[i].Num, v[i].Den) })
	case []float32:
		return joinNumbers(len(v), func(i int) string { return strconv.FormatFloat(float64(v[i]), 'g', -1, 32) })
	case []float64:
		return joinNumbers(len(v), func(i int) string { return strconv.FormatFloat(v[i], 'g', -1, 64) })
	case nil:
		return ""
	}
	return fmt.Sprint(t.Value)
}

func latin1(s string) string {
	out, err := charmap.ISO8859_1.NewDecoder().String(s)
	if err != nil {
		return strings.ToValidUTF8(s, "\uFFFD")
	}
	return out
}

func joinNumbers(n int, format func(i int) string) string {
	if n == 1 {
		return format(0)
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = format(i)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
