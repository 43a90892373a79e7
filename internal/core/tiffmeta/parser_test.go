package tiffmeta_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/phiscan/internal/core/coretest"
	"github.com/markdave123-py/phiscan/internal/core/rangereader"
	"github.com/markdave123-py/phiscan/internal/core/scanner"
	"github.com/markdave123-py/phiscan/internal/core/tiffmeta"
	"github.com/markdave123-py/phiscan/internal/models"
)

func sampleEntries(order binary.ByteOrder) []coretest.TIFFEntry {
	return []coretest.TIFFEntry{
		coretest.LongEntry(order, 256, 1024),
		coretest.ShortEntry(order, 258, 8, 8, 8),
		coretest.ASCIIEntry(270, "Patient: Jane Doe"),
		coretest.RationalEntry(order, 282, 72, 1),
		coretest.DoubleEntry(order, 40000, 0.5),
	}
}

func TestParseFirstPage_ByteOrders(t *testing.T) {
	for name, order := range map[string]binary.ByteOrder{
		"little endian": binary.LittleEndian,
		"big endian":    binary.BigEndian,
	} {
		t.Run(name, func(t *testing.T) {
			data := coretest.BuildTIFF(order, sampleEntries(order))

			tags, err := tiffmeta.ParseFirstPage(bytes.NewReader(data))
			require.NoError(t, err)
			require.Len(t, tags, 5)

			assert.Equal(t, "ImageWidth", tags[0].Name)
			assert.Equal(t, []uint32{1024}, tags[0].Value)
			assert.Equal(t, "BitsPerSample", tags[1].Name)
			assert.Equal(t, []uint16{8, 8, 8}, tags[1].Value)
			assert.Equal(t, "ImageDescription", tags[2].Name)
			assert.Equal(t, "Patient: Jane Doe\x00", tags[2].Value)
			assert.Equal(t, []tiffmeta.Rational{{Num: 72, Den: 1}}, tags[3].Value)
			assert.Equal(t, "40000", tags[4].Name)
			assert.Equal(t, []float64{0.5}, tags[4].Value)
		})
	}
}

func TestParseFirstPage_Rejections(t *testing.T) {
	le := binary.LittleEndian

	bigTIFF := make([]byte, 16)
	copy(bigTIFF, "II")
	le.PutUint16(bigTIFF[2:], 43)

	badMagic := coretest.BuildTIFF(le, sampleEntries(le))
	le.PutUint16(badMagic[2:], 41)

	noTags := make([]byte, 16)
	copy(noTags, "II")
	le.PutUint16(noTags[2:], 42)
	le.PutUint32(noTags[4:], 8)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "bigtiff", data: bigTIFF, want: tiffmeta.ErrNotImplemented},
		{name: "png header", data: []byte("\x89PNG\r\n\x1a\n0000"), want: tiffmeta.ErrUnsupportedFormat},
		{name: "bad magic", data: badMagic, want: tiffmeta.ErrUnsupportedFormat},
		{name: "truncated header", data: []byte("II*"), want: tiffmeta.ErrUnsupportedFormat},
		{name: "zero tags", data: noTags, want: tiffmeta.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tiffmeta.ParseFirstPage(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseFirstPage_SkipsOversizedValues(t *testing.T) {
	le := binary.LittleEndian
	data := coretest.BuildTIFF(le, []coretest.TIFFEntry{
		coretest.LongEntry(le, 256, 10),
		coretest.ASCIIEntry(270, strings.Repeat("x", 64)),
	})

	p := &tiffmeta.Parser{MaxValueSize: 32}
	tags, err := p.FirstPage(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "ImageWidth", tags[0].Name)
}

func TestParseFirstPage_OverRangeReader(t *testing.T) {
	store := coretest.NewFakeObjectStore()
	data := coretest.OMETIFF("<OME><Experimenter FirstName=\"Jane\"/></OME>")
	store.Put("images", "slide.ome.tiff", data)

	f := rangereader.New(context.Background(), store, "images", "slide.ome.tiff", int64(len(data)))
	desc, err := tiffmeta.ImageDescription(f)
	require.NoError(t, err)
	assert.Equal(t, "<OME><Experimenter FirstName=\"Jane\"/></OME>", desc)

	// header, entry count, entry table, then one request per out-of-line value
	assert.Equal(t, "bytes=0-7", store.Ranges[0])
	assert.Equal(t, "bytes=8-9", store.Ranges[1])
	assert.Equal(t, 3+3, store.RangeCount())
}

func TestExtractor_Modes(t *testing.T) {
	data := coretest.OMETIFF("Scanned by Dr. Smith")

	all, err := tiffmeta.NewExtractor(nil, tiffmeta.ModeAll).Extract(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []models.TagRecord{
		{Name: "ImageWidth", Value: "640"},
		{Name: "ImageLength", Value: "480"},
		{Name: "BitsPerSample", Value: "(8, 8, 8)"},
		{Name: "ImageDescription", Value: "Scanned by Dr. Smith"},
		{Name: "Software", Value: "phiscan-fixture"},
	}, all)

	desc, err := tiffmeta.NewExtractor(nil, tiffmeta.ModeDescription).Extract(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []models.TagRecord{{Name: "ImageDescription", Value: "Scanned by Dr. Smith"}}, desc)
}

func TestExtractor_DescriptionModeWithoutDescription(t *testing.T) {
	le := binary.LittleEndian
	data := coretest.BuildTIFF(le, []coretest.TIFFEntry{coretest.LongEntry(le, 256, 1)})

	records, err := tiffmeta.NewExtractor(nil, tiffmeta.ModeDescription).Extract(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		tag  tiffmeta.Tag
		want string
	}{
		{name: "ascii trims nul", tag: tiffmeta.Tag{Value: "abc\x00\x00"}, want: "abc"},
		{name: "latin1 ascii", tag: tiffmeta.Tag{Value: "Jos\xe9 M\xfcller\x00"}, want: "José Müller"},
		{name: "utf8 bytes", tag: tiffmeta.Tag{Value: []byte("héllo")}, want: "héllo"},
		{name: "binary bytes", tag: tiffmeta.Tag{Value: []byte{0xff, 0xfe}}, want: "fffe"},
		{name: "single short", tag: tiffmeta.Tag{Value: []uint16{3}}, want: "3"},
		{name: "signed array", tag: tiffmeta.Tag{Value: []int32{-1, 2}}, want: "(-1, 2)"},
		{name: "rational", tag: tiffmeta.Tag{Value: []tiffmeta.Rational{{Num: 300, Den: 1}}}, want: "300/1"},
		{name: "srational", tag: tiffmeta.Tag{Value: []tiffmeta.SRational{{Num: -1, Den: 3}}}, want: "-1/3"},
		{name: "float", tag: tiffmeta.Tag{Value: []float32{1.5}}, want: "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tiffmeta.FormatValue(tt.tag))
		})
	}
}

func TestExtractor_Latin1DescriptionChunksBackToValue(t *testing.T) {
	data := coretest.OMETIFF(strings.Repeat("Patient: Jos\xe9 ", 400))

	desc, err := tiffmeta.ImageDescription(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(desc))
	assert.Equal(t, strings.Repeat("Patient: José ", 400), desc)

	chunks := scanner.ChunkSplit(desc, 4096)
	require.Len(t, chunks, 2)
	var joined strings.Builder
	for _, c := range chunks {
		assert.NotContains(t, c.Text, "\uFFFD")
		joined.WriteString(c.Text)
	}
	assert.Equal(t, desc, joined.String())
	assert.Equal(t, 4096, chunks[1].Offset)
}

func TestTagName(t *testing.T) {
	assert.Equal(t, "ImageDescription", tiffmeta.TagName(270))
	assert.Equal(t, "65123", tiffmeta.TagName(65123))
}
