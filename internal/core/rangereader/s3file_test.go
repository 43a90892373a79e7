package rangereader_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/phiscan/internal/core"
	"github.com/markdave123-py/phiscan/internal/core/coretest"
	"github.com/markdave123-py/phiscan/internal/core/rangereader"
)

const (
	bucket = "bucket"
	key    = "data/object.bin"
)

func newFile(t *testing.T, data []byte, size int64) (*rangereader.S3File, *coretest.FakeObjectStore) {
	t.Helper()
	store := coretest.NewFakeObjectStore()
	store.Put(bucket, key, data)
	return rangereader.New(context.Background(), store, bucket, key, size), store
}

func TestS3File_ReadN(t *testing.T) {
	data := []byte("0123456789abcdefghij") // 20 bytes

	tests := []struct {
		name      string
		start     int64
		n         int64
		want      string
		wantRange string
		wantPos   int64
	}{
		{name: "exact count", start: 0, n: 4, want: "0123", wantRange: "bytes=0-3", wantPos: 4},
		{name: "from middle", start: 10, n: 5, want: "abcde", wantRange: "bytes=10-14", wantPos: 15},
		{name: "one short of end", start: 0, n: 19, want: "0123456789abcdefghi", wantRange: "bytes=0-18", wantPos: 19},
		{name: "reaching end delegates to tail read", start: 15, n: 5, want: "fghij", wantRange: "bytes=15-", wantPos: 20},
		{name: "past end delegates to tail read", start: 16, n: 100, want: "ghij", wantRange: "bytes=16-", wantPos: 20},
		{name: "read to end", start: 3, n: rangereader.ReadToEnd, want: "3456789abcdefghij", wantRange: "bytes=3-", wantPos: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, store := newFile(t, data, int64(len(data)))
			_, err := f.Seek(tt.start, io.SeekStart)
			require.NoError(t, err)

			got, err := f.ReadN(tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
			assert.Equal(t, []string{tt.wantRange}, store.Ranges)
			assert.Equal(t, tt.wantPos, f.Tell())
		})
	}
}

func TestS3File_ZeroReadIssuesNoRequest(t *testing.T) {
	f, store := newFile(t, []byte("abc"), 3)

	got, err := f.ReadN(0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, store.Ranges)
	assert.Equal(t, int64(0), f.Tell())
}

func TestS3File_NegativeCountRejected(t *testing.T) {
	f, store := newFile(t, []byte("abc"), 3)

	_, err := f.ReadN(-2)
	require.Error(t, err)
	assert.Empty(t, store.Ranges)
}

func TestS3File_NegativePositionFailsWithoutRequest(t *testing.T) {
	f, store := newFile(t, []byte("abcdef"), 6)

	pos, err := f.Seek(-10, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(-4), pos)

	_, err = f.ReadN(2)
	require.Error(t, err)
	var fetchErr *core.StorageFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorIs(t, err, core.ErrInvalidRange)
	assert.Empty(t, store.Ranges)
}

func TestS3File_Seek(t *testing.T) {
	f, _ := newFile(t, []byte("0123456789"), 10)

	pos, err := f.Seek(4, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)

	pos, err = f.Seek(3, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pos)

	pos, err = f.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(8), pos)

	pos, err = f.Seek(50, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(50), pos, "seek does not clamp")

	_, err = f.Seek(1, 7)
	assert.ErrorIs(t, err, rangereader.ErrInvalidWhence)
	assert.Equal(t, int64(50), f.Tell())
}

func TestS3File_LazySizeUsesOneHead(t *testing.T) {
	f, store := newFile(t, []byte("0123456789"), -1)

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	_, err = f.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, store.Heads)
	assert.Equal(t, 0, store.Gets)
}

func TestS3File_ReadImplementsReader(t *testing.T) {
	data := []byte("hello, range reader")
	f, _ := newFile(t, data, int64(len(data)))

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	n, err := f.Read(make([]byte, 4))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestS3File_FailedFetchKeepsCursor(t *testing.T) {
	f, store := newFile(t, []byte("0123456789"), 10)
	store.Fail(bucket, key, errors.New("connection reset"))

	_, err := f.ReadN(4)
	require.Error(t, err)
	var fetchErr *core.StorageFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, key, fetchErr.Key)
	assert.Equal(t, int64(0), f.Tell())
}

func TestS3File_MissingObject(t *testing.T) {
	store := coretest.NewFakeObjectStore()
	f := rangereader.New(context.Background(), store, bucket, "missing.tif", -1)

	_, err := f.ReadN(8)
	assert.ErrorIs(t, err, core.ErrObjectNotFound)
}
