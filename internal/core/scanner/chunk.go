package scanner

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/markdave123-py/phiscan/internal/models"
)

// ChunkMode selects how documents are split before detection.
type ChunkMode string

const (
	// ChunkLegacy gates on UTF-8 byte length but steps in characters, so a
	// multi-byte chunk can exceed chunkSize bytes. Offsets are
	// chunkSize*index.
	ChunkLegacy ChunkMode = "legacy"
	// ChunkBytes keeps every chunk within chunkSize bytes, cutting on rune
	// boundaries. Offsets are running character counts.
	ChunkBytes ChunkMode = "bytes"
)

func ParseChunkMode(s string) (ChunkMode, error) {
	switch ChunkMode(strings.ToLower(s)) {
	case ChunkLegacy, "":
		return ChunkLegacy, nil
	case ChunkBytes:
		return ChunkBytes, nil
	}
	return "", fmt.Errorf("unknown chunk mode %q", s)
}

// Split dispatches to the splitter for mode.
func Split(mode ChunkMode, data string, chunkSize int) []models.Chunk {
	if mode == ChunkBytes {
		return ChunkSplitBytes(data, chunkSize)
	}
	return ChunkSplit(data, chunkSize)
}

// ChunkSplit is the legacy splitter. Input whose UTF-8 length fits in
// chunkSize is returned whole; otherwise it is cut every chunkSize
// characters. A chunkSize below 1 is treated as 1.
func ChunkSplit(data string, chunkSize int) []models.Chunk {
	chunkSize = max(chunkSize, 1)
	if len(data) <= chunkSize {
		return []models.Chunk{{Index: 0, Text: data, Offset: 0}}
	}

	runes := []rune(data)
	chunks := make([]models.Chunk, 0, (len(runes)+chunkSize-1)/chunkSize)
	for idx := 0; idx < len(runes); idx += chunkSize {
		end := min(idx+chunkSize, len(runes))
		chunks = append(chunks, models.Chunk{
			Index:  len(chunks),
			Text:   string(runes[idx:end]),
			Offset: idx,
		})
	}
	return chunks
}

// ChunkSplitBytes cuts data into chunks of at most chunkSize UTF-8 bytes
// on rune boundaries. A single rune wider than chunkSize gets a chunk of
// its own.
func ChunkSplitBytes(data string, chunkSize int) []models.Chunk {
	if len(data) <= chunkSize {
		return []models.Chunk{{Index: 0, Text: data, Offset: 0}}
	}

	var chunks []models.Chunk
	start, width, offset, runes := 0, 0, 0, 0
	for i := 0; i < len(data); {
		_, size := utf8.DecodeRuneInString(data[i:])
		if width > 0 && width+size > chunkSize {
			chunks = append(chunks, models.Chunk{Index: len(chunks), Text: data[start:i], Offset: offset})
			offset += runes
			start, width, runes = i, 0, 0
		}
		width += size
		runes++
		i += size
	}
	chunks = append(chunks, models.Chunk{Index: len(chunks), Text: data[start:], Offset: offset})
	return chunks
}
