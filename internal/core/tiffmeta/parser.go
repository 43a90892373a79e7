// Package tiffmeta reads the tags of the first image file directory (IFD)
// of a TIFF or OME-TIFF file without loading pixel data.
package tiffmeta

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
)

var (
	// ErrUnsupportedFormat is returned for input that is not a readable
	// classic TIFF, or whose first page carries no tags.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrNotImplemented is returned for TIFF variants this parser does not
	// handle (BigTIFF).
	ErrNotImplemented = errors.New("tiff variant not implemented")
)

// DefaultMaxValueSize bounds the size of a single out-of-line tag value.
const DefaultMaxValueSize = 1 << 20

const (
	headerSize = 8
	entrySize  = 12

	magicClassic = 42
	magicBig     = 43
)

// FieldType is the TIFF field type of a tag value.
type FieldType uint16

const (
	TypeByte      FieldType = 1
	TypeASCII     FieldType = 2
	TypeShort     FieldType = 3
	TypeLong      FieldType = 4
	TypeRational  FieldType = 5
	TypeSByte     FieldType = 6
	TypeUndefined FieldType = 7
	TypeSShort    FieldType = 8
	TypeSLong     FieldType = 9
	TypeSRational FieldType = 10
	TypeFloat     FieldType = 11
	TypeDouble    FieldType = 12
	TypeIFD       FieldType = 13
)

var typeSizes = map[FieldType]int64{
	TypeByte: 1, TypeASCII: 1, TypeShort: 2, TypeLong: 4, TypeRational: 8,
	TypeSByte: 1, TypeUndefined: 1, TypeSShort: 2, TypeSLong: 4, TypeSRational: 8,
	TypeFloat: 4, TypeDouble: 8, TypeIFD: 4,
}

// Rational is an unsigned TIFF fraction.
type Rational struct {
	Num, Den uint32
}

// SRational is a signed TIFF fraction.
type SRational struct {
	Num, Den int32
}

// Tag is one decoded IFD entry. Value holds the typed value:
// string for ASCII, []byte for BYTE and UNDEFINED, and a slice of the
// matching Go type for everything else.
type Tag struct {
	Code  uint16
	Name  string
	Type  FieldType
	Count uint32
	Value any
}

// Parser decodes first-page tags. The zero value is usable.
type Parser struct {
	// MaxValueSize skips tag values larger than this many bytes.
	// Zero means DefaultMaxValueSize.
	MaxValueSize int64
	Logger       *slog.Logger
}

// ParseFirstPage reads the first IFD of r with default settings.
func ParseFirstPage(r io.ReadSeeker) ([]Tag, error) {
	return (&Parser{}).FirstPage(r)
}

type pendingValue struct {
	index  int
	offset int64
	size   int64
}

// FirstPage reads the header, then the entry table of the first IFD with a
// single read, then resolves out-of-line values by seeking to them.
func (p *Parser) FirstPage(r io.ReadSeeker) ([]Tag, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxSize := p.MaxValueSize
	if maxSize <= 0 {
		maxSize = DefaultMaxValueSize
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	var hdr [headerSize]byte
	if err := readFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var order binary.ByteOrder
	switch string(hdr[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("byte order mark %q: %w", hdr[:2], ErrUnsupportedFormat)
	}

	switch magic := order.Uint16(hdr[2:4]); magic {
	case magicClassic:
	case magicBig:
		return nil, fmt.Errorf("bigtiff: %w", ErrNotImplemented)
	default:
		return nil, fmt.Errorf("magic %d: %w", magic, ErrUnsupportedFormat)
	}

	ifdOffset := int64(order.Uint32(hdr[4:8]))
	if ifdOffset < headerSize {
		return nil, fmt.Errorf("first IFD offset %d: %w", ifdOffset, ErrUnsupportedFormat)
	}
	if _, err := r.Seek(ifdOffset, io.SeekStart); err != nil {
		return nil, err
	}

	var countBuf [2]byte
	if err := readFull(r, countBuf[:]); err != nil {
		return nil, fmt.Errorf("read IFD entry count: %w", err)
	}
	count := int(order.Uint16(countBuf[:]))
	if count == 0 {
		return nil, fmt.Errorf("first page has no tags: %w", ErrUnsupportedFormat)
	}

	table := make([]byte, count*entrySize)
	if err := readFull(r, table); err != nil {
		return nil, fmt.Errorf("read IFD entries: %w", err)
	}

	tags := make([]Tag, 0, count)
	var pending []pendingValue

	for i := 0; i < count; i++ {
		e := table[i*entrySize : (i+1)*entrySize]
		code := order.Uint16(e[0:2])
		typ := FieldType(order.Uint16(e[2:4]))
		n := order.Uint32(e[4:8])

		unit, ok := typeSizes[typ]
		if !ok {
			logger.Debug("Skipping tag with unknown field type", "tag", code, "type", typ)
			continue
		}
		size := unit * int64(n)

		tag := Tag{Code: code, Name: TagName(code), Type: typ, Count: n}
		if size <= 4 {
			tag.Value = decodeValue(order, typ, n, e[8:8+size])
			tags = append(tags, tag)
			continue
		}
		if size > maxSize {
			logger.Debug("Skipping oversized tag value", "tag", tag.Name, "bytes", size, "limit", maxSize)
			continue
		}
		tags = append(tags, tag)
		pending = append(pending, pendingValue{
			index:  len(tags) - 1,
			offset: int64(order.Uint32(e[8:12])),
			size:   size,
		})
	}

	for _, pv := range pending {
		if _, err := r.Seek(pv.offset, io.SeekStart); err != nil {
			return nil, err
		}
		buf := make([]byte, pv.size)
		if err := readFull(r, buf); err != nil {
			return nil, fmt.Errorf("read value of %s: %w", tags[pv.index].Name, err)
		}
		t := &tags[pv.index]
		t.Value = decodeValue(order, t.Type, t.Count, buf)
	}

	if len(tags) == 0 {
		return nil, fmt.Errorf("first page has no readable tags: %w", ErrUnsupportedFormat)
	}
	return tags, nil
}

// readFull maps a truncated file onto ErrUnsupportedFormat and lets every
// other reader error through untouched.
func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("truncated file: %w", ErrUnsupportedFormat)
	}
	return err
}

func decodeValue(order binary.ByteOrder, typ FieldType, n uint32, b []byte) any {
	count := int(n)
	switch typ {
	case TypeASCII:
		return string(b[:count])
	case TypeByte, TypeUndefined:
		out := make([]byte, count)
		copy(out, b)
		return out
	case TypeSByte:
		out := make([]int8, count)
		for i := range out {
			out[i] = int8(b[i])
		}
		return out
	case TypeShort:
		out := make([]uint16, count)
		for i := range out {
			out[i] = order.Uint16(b[i*2:])
		}
		return out
	case TypeSShort:
		out := make([]int16, count)
		for i := range out {
			out[i] = int16(order.Uint16(b[i*2:]))
		}
		return out
	case TypeLong, TypeIFD:
		out := make([]uint32, count)
		for i := range out {
			out[i] = order.Uint32(b[i*4:])
		}
		return out
	case TypeSLong:
		out := make([]int32, count)
		for i := range out {
			out[i] = int32(order.Uint32(b[i*4:]))
		}
		return out
	case TypeRational:
		out := make([]Rational, count)
		for i := range out {
			out[i] = Rational{Num: order.Uint32(b[i*8:]), Den: order.Uint32(b[i*8+4:])}
		}
		return out
	case TypeSRational:
		out := make([]SRational, count)
		for i := range out {
			out[i] = SRational{Num: int32(order.Uint32(b[i*8:])), Den: int32(order.Uint32(b[i*8+4:]))}
		}
		return out
	case TypeFloat:
		out := make([]float32, count)
		for i := range out {
			out[i] = math.Float32frombits(order.Uint32(b[i*4:]))
		}
		return out
	case TypeDouble:
		out := make([]float64, count)
		for i := range out {
			out[i] = math.Float64frombits(order.Uint64(b[i*8:]))
		}
		return out
	}
	return nil
}
