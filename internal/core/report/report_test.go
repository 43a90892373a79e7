package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/phiscan/internal/config"
	"github.com/markdave123-py/phiscan/internal/core/coretest"
	"github.com/markdave123-py/phiscan/internal/core/report"
	"github.com/markdave123-py/phiscan/internal/models"
	"github.com/markdave123-py/phiscan/internal/observability"
)

func finding(key, result string) models.Finding {
	return models.Finding{
		Bucket: "clinical",
		Key:    key,
		Tag:    models.NoTag,
		Entity: models.Entity{
			BeginOffset: 0, EndOffset: 4, Type: "NAME", Score: 0.5,
			ChunkNumber: 1, BeginTotalOffset: 10, EndTotalOffset: 14, Result: result,
		},
	}
}

func TestTSVLine(t *testing.T) {
	line, err := report.TSVLine(finding("a.txt", "Jane"))
	require.NoError(t, err)
	assert.Equal(t,
		"clinical\t a.txt\t NoTag\t "+
			`{"BeginOffset":0,"EndOffset":4,"Type":"NAME","Score":0.5,"ChunkNumber":1,"BeginTotalOffset":10,"EndTotalOffset":14,"Result":"Jane"}`+"\n",
		line)
}

func TestFormatByPath(t *testing.T) {
	assert.Equal(t, report.FormatJSONL, report.FormatByPath("out/findings.jsonl"))
	assert.Equal(t, report.FormatJSONL, report.FormatByPath("findings.json"))
	assert.Equal(t, report.FormatTSV, report.FormatByPath("findings.tsv"))
	assert.Equal(t, report.FormatTSV, report.FormatByPath("findings"))
}

func TestWriterSink_ConcurrentWritesKeepBlocks(t *testing.T) {
	var buf bytes.Buffer
	sink := report.NewWriterSink(&buf, report.FormatTSV)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sink.Write(context.Background(), []models.Finding{finding("k", "Jane"), finding("k", "Doe")})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 16)
	for i := 0; i < len(lines); i += 2 {
		assert.Contains(t, lines[i], `"Result":"Jane"`)
		assert.Contains(t, lines[i+1], `"Result":"Doe"`)
	}
}

func TestFileSink_JSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "findings.jsonl")
	sink, err := report.NewFileSink(path, report.FormatByPath(path))
	require.NoError(t, err)

	require.NoError(t, sink.Write(context.Background(), []models.Finding{finding("a.txt", "Jane")}))
	require.NoError(t, sink.Close(context.Background()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got models.Finding
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(raw), &got))
	assert.Equal(t, finding("a.txt", "Jane"), got)
}

func TestBucketSink_UploadsOnClose(t *testing.T) {
	store := coretest.NewFakeObjectStore()
	sink := report.NewBucketSink(store, "reports", "phiscan-reports", report.FormatJSONL, observability.Discard())

	require.NoError(t, sink.Write(context.Background(), []models.Finding{finding("a.txt", "Jane")}))
	assert.Empty(t, store.Uploads)

	require.NoError(t, sink.Close(context.Background()))
	require.NoError(t, sink.Close(context.Background()))
	require.Len(t, store.Uploads, 1)

	assert.True(t, strings.HasPrefix(sink.Key(), "phiscan-reports/"))
	assert.True(t, strings.HasSuffix(sink.Key(), ".jsonl"))
	assert.Contains(t, string(store.Uploads["reports/"+sink.Key()]), `"Result":"Jane"`)
}

func TestBucketSink_UploadsAfterCancel(t *testing.T) {
	store := coretest.NewFakeObjectStore()
	sink := report.NewBucketSink(store, "reports", "", report.FormatTSV, observability.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sink.Write(ctx, []models.Finding{finding("a.txt", "Jane")}))
	cancel()

	require.NoError(t, sink.Close(ctx))
	assert.Contains(t, string(store.Uploads["reports/"+sink.Key()]), "Jane")
}

func TestRedactor(t *testing.T) {
	r, err := report.NewRedactor([]byte("secret"))
	require.NoError(t, err)

	a := r.Digest("Jane")
	assert.Equal(t, a, r.Digest("Jane"))
	assert.NotEqual(t, a, r.Digest("John"))
	assert.True(t, strings.HasPrefix(a, "blake2b:"))
	assert.Len(t, a, len("blake2b:")+32)

	other, err := report.NewRedactor([]byte("other"))
	require.NoError(t, err)
	assert.NotEqual(t, a, other.Digest("Jane"))

	_, err = report.NewRedactor(nil)
	assert.Error(t, err)
	_, err = report.NewRedactor(make([]byte, 65))
	assert.Error(t, err)
}

func TestRedactingSink(t *testing.T) {
	r, err := report.NewRedactor([]byte("secret"))
	require.NoError(t, err)
	mem := report.NewMemorySink()

	in := []models.Finding{finding("a.txt", "Jane")}
	require.NoError(t, report.NewRedactingSink(mem, r).Write(context.Background(), in))

	got := mem.Findings()
	require.Len(t, got, 1)
	assert.Equal(t, r.Digest("Jane"), got[0].Entity.Result)
	assert.Equal(t, "Jane", in[0].Entity.Result)
}

func TestFromConfig(t *testing.T) {
	store := coretest.NewFakeObjectStore()
	path := filepath.Join(t.TempDir(), "out.tsv")
	var stdout bytes.Buffer

	sink, err := report.FromConfig(&config.Config{
		ReportPath:   path,
		ReportBucket: "reports",
		ReportPrefix: "runs",
		RedactKey:    "k",
	}, store, &stdout, observability.Discard())
	require.NoError(t, err)

	require.NoError(t, sink.Write(context.Background(), []models.Finding{finding("a.txt", "Jane")}))
	require.NoError(t, sink.Close(context.Background()))

	assert.Contains(t, stdout.String(), "clinical\t a.txt\t NoTag\t ")
	assert.NotContains(t, stdout.String(), "Jane")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, stdout.String(), string(raw))
	assert.Len(t, store.Uploads, 1)

	t.Run("quiet without outputs", func(t *testing.T) {
		var out bytes.Buffer
		sink, err := report.FromConfig(&config.Config{Quiet: true}, store, &out, observability.Discard())
		require.NoError(t, err)
		require.NoError(t, sink.Write(context.Background(), []models.Finding{finding("a.txt", "Jane")}))
		assert.Empty(t, out.String())
	})
}
