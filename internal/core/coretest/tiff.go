package coretest

import (
	"encoding/binary"
	"math"
)

// TIFFEntry is one IFD entry for BuildTIFF. Data is the encoded value.
type TIFFEntry struct {
	Code  uint16
	Type  uint16
	Count uint32
	Data  []byte
}

// BuildTIFF lays out a classic single-IFD TIFF: header, IFD at offset 8,
// then out-of-line values in entry order.
func BuildTIFF(order binary.ByteOrder, entries []TIFFEntry) []byte {
	ifdSize := 2 + 12*len(entries) + 4
	dataOffset := 8 + ifdSize

	out := make([]byte, dataOffset)
	if order == binary.ByteOrder(binary.LittleEndian) {
		copy(out, "II")
	} else {
		copy(out, "MM")
	}
	order.PutUint16(out[2:], 42)
	order.PutUint32(out[4:], 8)
	order.PutUint16(out[8:], uint16(len(entries)))

	for i, e := range entries {
		at := 10 + i*12
		order.PutUint16(out[at:], e.Code)
		order.PutUint16(out[at+2:], e.Type)
		order.PutUint32(out[at+4:], e.Count)
		if len(e.Data) <= 4 {
			copy(out[at+8:at+12], e.Data)
			continue
		}
		order.PutUint32(out[at+8:], uint32(len(out)))
		out = append(out, e.Data...)
		if len(out)%2 == 1 {
			out = append(out, 0)
		}
	}
	return out
}

// ASCIIEntry encodes s as a NUL-terminated ASCII value.
func ASCIIEntry(code uint16, s string) TIFFEntry {
	data := append([]byte(s), 0)
	return TIFFEntry{Code: code, Type: 2, Count: uint32(len(data)), Data: data}
}

func ShortEntry(order binary.ByteOrder, code uint16, vals ...uint16) TIFFEntry {
	data := make([]byte, 2*len(vals))
	for i, v := range vals {
		order.PutUint16(data[i*2:], v)
	}
	return TIFFEntry{Code: code, Type: 3, Count: uint32(len(vals)), Data: data}
}

func LongEntry(order binary.ByteOrder, code uint16, vals ...uint32) TIFFEntry {
	data := make([]byte, 4*len(vals))
	for i, v := range vals {
		order.PutUint32(data[i*4:], v)
	}
	return TIFFEntry{Code: code, Type: 4, Count: uint32(len(vals)), Data: data}
}

func RationalEntry(order binary.ByteOrder, code uint16, num, den uint32) TIFFEntry {
	data := make([]byte, 8)
	order.PutUint32(data, num)
	order.PutUint32(data[4:], den)
	return TIFFEntry{Code: code, Type: 5, Count: 1, Data: data}
}

func DoubleEntry(order binary.ByteOrder, code uint16, v float64) TIFFEntry {
	data := make([]byte, 8)
	order.PutUint64(data, math.Float64bits(v))
	return TIFFEntry{Code: code, Type: 12, Count: 1, Data: data}
}

func UndefinedEntry(code uint16, data []byte) TIFFEntry {
	return TIFFEntry{Code: code, Type: 7, Count: uint32(len(data)), Data: data}
}

// OMETIFF returns a little-endian file with a few baseline tags and the
// given ImageDescription.
func OMETIFF(description string) []byte {
	le := binary.LittleEndian
	return BuildTIFF(le, []TIFFEntry{
		LongEntry(le, 256, 640),
		LongEntry(le, 257, 480),
		ShortEntry(le, 258, 8, 8, 8),
		ASCIIEntry(270, description),
		ASCIIEntry(305, "phiscan-fixture"),
	})
}
