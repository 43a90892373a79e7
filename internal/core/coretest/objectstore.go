// Package coretest provides in-memory fakes of the core interfaces for tests.
package coretest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/markdave123-py/phiscan/internal/core"
)

// FakeObjectStore is an in-memory core.ObjectClient that records requests.
type FakeObjectStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failures map[string]error

	// PageSize bounds keys per ListKeys page. Zero means 1000.
	PageSize int
	// ListErr, when set, is returned after the first page is delivered
	// (or immediately when nothing matches).
	ListErr error

	Ranges  []string
	Heads   int
	Gets    int
	Uploads map[string][]byte
}

var _ core.ObjectClient = (*FakeObjectStore)(nil)

func NewFakeObjectStore() *FakeObjectStore {
	return &FakeObjectStore{
		objects:  map[string][]byte{},
		failures: map[string]error{},
		Uploads:  map[string][]byte{},
	}
}

func objectID(bucket, key string) string {
	return bucket + "/" + key
}

func (s *FakeObjectStore) Put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectID(bucket, key)] = data
}

// Fail makes every read of bucket/key return err.
func (s *FakeObjectStore) Fail(bucket, key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[objectID(bucket, key)] = err
}

func (s *FakeObjectStore) lookup(op, bucket, key string) ([]byte, error) {
	id := objectID(bucket, key)
	if err, ok := s.failures[id]; ok {
		return nil, core.NewStorageFetchError(op, bucket, key, err)
	}
	data, ok := s.objects[id]
	if !ok {
		return nil, core.NewStorageFetchError(op, bucket, key, core.ErrObjectNotFound)
	}
	return data, nil
}

func (s *FakeObjectStore) UploadFile(ctx context.Context, bucket, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Uploads[objectID(bucket, key)] = append([]byte(nil), data...)
	s.objects[objectID(bucket, key)] = data
	return "s3://" + objectID(bucket, key), nil
}

func (s *FakeObjectStore) GetFile(_ context.Context, bucket, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Gets++
	data, err := s.lookup("get", bucket, key)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// GetRange serves "bytes=a-b" and "bytes=a-" specs.
func (s *FakeObjectStore) GetRange(_ context.Context, bucket, key, rangeSpec string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Ranges = append(s.Ranges, rangeSpec)

	data, err := s.lookup("get range", bucket, key)
	if err != nil {
		return nil, err
	}

	spec, ok := strings.CutPrefix(rangeSpec, "bytes=")
	if !ok {
		return nil, core.NewStorageFetchError("get range", bucket, key, fmt.Errorf("%q: %w", rangeSpec, core.ErrInvalidRange))
	}
	first, last, _ := strings.Cut(spec, "-")
	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start >= int64(len(data)) {
		return nil, core.NewStorageFetchError("get range", bucket, key, fmt.Errorf("%q: %w", rangeSpec, core.ErrInvalidRange))
	}
	end := int64(len(data)) - 1
	if last != "" {
		if end, err = strconv.ParseInt(last, 10, 64); err != nil || end < start {
			return nil, core.NewStorageFetchError("get range", bucket, key, fmt.Errorf("%q: %w", rangeSpec, core.ErrInvalidRange))
		}
		end = min(end, int64(len(data))-1)
	}
	return append([]byte(nil), data[start:end+1]...), nil
}

func (s *FakeObjectStore) HeadObject(_ context.Context, bucket, key string) (int64, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Heads++
	data, err := s.lookup("head", bucket, key)
	if err != nil {
		return 0, "", err
	}
	return int64(len(data)), "application/octet-stream", nil
}

// ObjectETag returns the hex MD5 of the object body, as S3 does for
// single-part uploads.
func (s *FakeObjectStore) ObjectETag(_ context.Context, bucket, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Heads++
	data, err := s.lookup("head", bucket, key)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// ListKeys returns keys in lexical order, like S3.
func (s *FakeObjectStore) ListKeys(ctx context.Context, bucket, prefix, startAfter string, fn func([]string) error) error {
	s.mu.Lock()
	var keys []string
	for id := range s.objects {
		b, key, _ := strings.Cut(id, "/")
		if b == bucket && strings.HasPrefix(key, prefix) && key > startAfter {
			keys = append(keys, key)
		}
	}
	pageSize := s.PageSize
	listErr := s.ListErr
	s.mu.Unlock()

	sort.Strings(keys)
	if pageSize <= 0 {
		pageSize = 1000
	}

	for start := 0; start < len(keys); start += pageSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+pageSize, len(keys))
		if err := fn(keys[start:end]); err != nil {
			return err
		}
		if listErr != nil {
			break
		}
	}
	if listErr != nil {
		return core.NewStorageFetchError("list", bucket, prefix, listErr)
	}
	return nil
}

func (s *FakeObjectStore) RangeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Ranges)
}
