package router

import (
	"fmt"
	"strings"
)

// ParseLocation splits an object location into bucket and key (or
// prefix). It accepts s3:// and gs:// URLs, virtual-hosted S3 URLs such as
// https://my-bucket.s3.us-east-2.amazonaws.com/path/file.txt, path-style
// https://storage.googleapis.com/bucket/path URLs and bare "bucket/path".
func ParseLocation(loc string) (bucket, key string, err error) {
	switch {
	case strings.HasPrefix(loc, "s3://"), strings.HasPrefix(loc, "gs://"):
		bucket, key, _ = strings.Cut(loc[len("s3://"):], "/")
	case strings.HasPrefix(loc, "https://"), strings.HasPrefix(loc, "http://"):
		_, rest, _ := strings.Cut(loc, "://")
		host, path, _ := strings.Cut(rest, "/")
		if label, _, ok := strings.Cut(host, ".s3."); ok {
			bucket, key = label, path
		} else {
			bucket, key, _ = strings.Cut(path, "/")
		}
	default:
		bucket, key, _ = strings.Cut(loc, "/")
	}
	if bucket == "" {
		return "", "", fmt.Errorf("no bucket in location %q", loc)
	}
	return bucket, key, nil
}
