package scanner_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/phiscan/internal/core/scanner"
	"github.com/markdave123-py/phiscan/internal/models"
)

const fox = "The quick brown fox jumps over the lazy dog"

func joinChunks(chunks []models.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	return b.String()
}

func TestChunkSplit_SmallInputIsOneChunk(t *testing.T) {
	require.Equal(t, 43, len(fox))

	chunks := scanner.ChunkSplit(fox, scanner.DefaultChunkSize)
	require.Len(t, chunks, 1)
	assert.Equal(t, models.Chunk{Index: 0, Text: fox, Offset: 0}, chunks[0])
}

func TestChunkSplit_ExactlyChunkSizeIsOneChunk(t *testing.T) {
	data := strings.Repeat("a", 10)
	assert.Len(t, scanner.ChunkSplit(data, 10), 1)
	assert.Len(t, scanner.ChunkSplit(data+"b", 10), 2)
}

func TestChunkSplit_StepsByChunkSize(t *testing.T) {
	chunks := scanner.ChunkSplit(fox, 10)

	require.Len(t, chunks, 5)
	assert.Equal(t, fox, joinChunks(chunks))
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, 10*i, c.Offset)
	}
	assert.Equal(t, "The quick ", chunks[0].Text)
	assert.Equal(t, "dog", chunks[4].Text)
}

func TestChunkSplit_ByteGateCharacterStepMismatch(t *testing.T) {
	// 3000 two-byte characters: 6000 bytes passes the byte gate, but a
	// 4096-character step covers the whole string in one oversized chunk.
	data := strings.Repeat("é", 3000)

	chunks := scanner.ChunkSplit(data, 4096)
	require.Len(t, chunks, 1)
	assert.Equal(t, 6000, len(chunks[0].Text))
	assert.Equal(t, data, joinChunks(chunks))
}

func TestSplit_NonPositiveSizeCutsPerCharacter(t *testing.T) {
	for _, size := range []int{0, -5} {
		legacy := scanner.ChunkSplit("abc", size)
		assert.Len(t, legacy, 3)
		assert.Equal(t, 2, legacy[2].Offset)

		strict := scanner.ChunkSplitBytes("abc", size)
		assert.Len(t, strict, 3)
		assert.Equal(t, "abc", joinChunks(strict))
	}
}

func TestChunkSplitBytes_RespectsByteBound(t *testing.T) {
	data := strings.Repeat("é", 3000)

	chunks := scanner.ChunkSplitBytes(data, 4096)
	require.Len(t, chunks, 2)
	assert.Equal(t, data, joinChunks(chunks))
	assert.Equal(t, 0, chunks[0].Offset)
	assert.Equal(t, 2048, chunks[1].Offset)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 4096)
		assert.True(t, utf8.ValidString(c.Text))
	}
}

func TestChunkSplitBytes_MixedWidths(t *testing.T) {
	data := "ab€cd€ef" // € is three bytes
	chunks := scanner.ChunkSplitBytes(data, 4)

	assert.Equal(t, data, joinChunks(chunks))
	offset := 0
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, offset, c.Offset)
		assert.LessOrEqual(t, len(c.Text), 4)
		offset += utf8.RuneCountInString(c.Text)
	}
}

func TestSplit_Dispatch(t *testing.T) {
	data := strings.Repeat("é", 6)
	assert.Len(t, scanner.Split(scanner.ChunkLegacy, data, 8), 1)
	assert.Len(t, scanner.Split(scanner.ChunkBytes, data, 8), 2)
}

func TestParseChunkMode(t *testing.T) {
	m, err := scanner.ParseChunkMode("BYTES")
	require.NoError(t, err)
	assert.Equal(t, scanner.ChunkBytes, m)

	m, err = scanner.ParseChunkMode("")
	require.NoError(t, err)
	assert.Equal(t, scanner.ChunkLegacy, m)

	_, err = scanner.ParseChunkMode("words")
	assert.Error(t, err)
}
