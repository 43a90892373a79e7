package core

import (
	"errors"
	"fmt"
)

var (
	// ErrObjectNotFound is returned when the bucket has no such key.
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidRange is returned when a byte range cannot be satisfied.
	ErrInvalidRange = errors.New("invalid range")
)

// StorageFetchError reports a failed object storage call.
type StorageFetchError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *StorageFetchError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s s3://%s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("%s s3://%s: %v", e.Op, e.Bucket, e.Err)
}

func (e *StorageFetchError) Unwrap() error {
	return e.Err
}

// NewStorageFetchError wraps err with the operation and object it concerns.
func NewStorageFetchError(op, bucket, key string, err error) *StorageFetchError {
	return &StorageFetchError{Op: op, Bucket: bucket, Key: key, Err: err}
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}
