// Package rangereader exposes a remote object as a seekable byte stream
// backed by ranged GET requests.
package rangereader

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/markdave123-py/phiscan/internal/core"
)

// ReadToEnd asks ReadN for everything from the cursor to the end.
const ReadToEnd = -1

var ErrInvalidWhence = errors.New("invalid whence")

// S3File reads an object through ranged requests. Every ReadN issues
// exactly one request; nothing is cached. Not safe for concurrent use.
type S3File struct {
	ctx      context.Context
	client   core.ObjectClient
	bucket   string
	key      string
	size     int64
	position int64
}

var (
	_ io.Reader = (*S3File)(nil)
	_ io.Seeker = (*S3File)(nil)
)

// New opens a reader over bucket/key. Pass size < 0 to fetch it lazily
// from object metadata on first use.
func New(ctx context.Context, client core.ObjectClient, bucket, key string, size int64) *S3File {
	if size < 0 {
		size = -1
	}
	return &S3File{ctx: ctx, client: client, bucket: bucket, key: key, size: size}
}

func (f *S3File) String() string {
	return fmt.Sprintf("S3File(s3://%s/%s)", f.bucket, f.key)
}

// Size returns the object length, issuing a HEAD the first time if it was
// not supplied.
func (f *S3File) Size() (int64, error) {
	if f.size >= 0 {
		return f.size, nil
	}
	size, _, err := f.client.HeadObject(f.ctx, f.bucket, f.key)
	if err != nil {
		return 0, err
	}
	f.size = size
	return size, nil
}

func (f *S3File) Tell() int64 {
	return f.position
}

// Seek moves the cursor. Positions are not clamped to the object bounds.
func (f *S3File) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		f.position = offset
	case io.SeekCurrent:
		f.position += offset
	case io.SeekEnd:
		size, err := f.Size()
		if err != nil {
			return f.position, err
		}
		f.position = size + offset
	default:
		return f.position, fmt.Errorf("%w (%d, should be %d, %d, %d)", ErrInvalidWhence, whence, io.SeekStart, io.SeekCurrent, io.SeekEnd)
	}
	return f.position, nil
}

// ReadN reads n bytes from the cursor, or everything up to the end when n
// is ReadToEnd or the request would run past the end. The cursor only
// moves once the request succeeds.
func (f *S3File) ReadN(n int64) ([]byte, error) {
	switch {
	case n == 0:
		return []byte{}, nil
	case n < ReadToEnd:
		return nil, fmt.Errorf("read %d bytes: negative count", n)
	}
	if f.position < 0 {
		return nil, core.NewStorageFetchError("get range", f.bucket, f.key,
			fmt.Errorf("position %d: %w", f.position, core.ErrInvalidRange))
	}

	if n == ReadToEnd {
		return f.readToEnd()
	}

	size, err := f.Size()
	if err != nil {
		return nil, err
	}
	end := f.position + n
	if end >= size {
		return f.readToEnd()
	}

	data, err := f.client.GetRange(f.ctx, f.bucket, f.key, fmt.Sprintf("bytes=%d-%d", f.position, end-1))
	if err != nil {
		return nil, err
	}
	f.position = end
	return data, nil
}

func (f *S3File) readToEnd() ([]byte, error) {
	size, err := f.Size()
	if err != nil {
		return nil, err
	}
	data, err := f.client.GetRange(f.ctx, f.bucket, f.key, fmt.Sprintf("bytes=%d-", f.position))
	if err != nil {
		return nil, err
	}
	f.position = size
	return data, nil
}

// Read implements io.Reader on top of ReadN.
func (f *S3File) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	size, err := f.Size()
	if err != nil {
		return 0, err
	}
	if f.position >= size {
		return 0, io.EOF
	}
	data, err := f.ReadN(int64(len(p)))
	if err != nil {
		return 0, err
	}
	return copy(p, data), nil
}
