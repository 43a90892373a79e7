// Package batchjob generates bucket manifests, creates S3 Batch Operations
// jobs and answers their per-task invocations.
package batchjob

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/markdave123-py/phiscan/internal/core"
	"github.com/markdave123-py/phiscan/internal/core/router"
)

// WriteManifest lists bucket under prefix and writes one "bucket,key" CSV
// row per object. It returns the number of rows written.
func WriteManifest(ctx context.Context, client core.ObjectClient, bucket, prefix string, w io.Writer) (int, error) {
	prefix, startAfter := router.NormalizePrefix(prefix, "")

	cw := csv.NewWriter(w)
	rows := 0
	err := client.ListKeys(ctx, bucket, prefix, startAfter, func(keys []string) error {
		for _, key := range keys {
			if err := cw.Write([]string{bucket, key}); err != nil {
				return fmt.Errorf("write manifest row: %w", err)
			}
			rows++
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return rows, err
	}
	cw.Flush()
	return rows, cw.Error()
}

// UploadManifest builds the manifest in memory and stores it at
// destBucket/destKey, returning the object URL.
func UploadManifest(ctx context.Context, client core.ObjectClient, bucket, prefix, destBucket, destKey string) (string, int, error) {
	var buf bytes.Buffer
	rows, err := WriteManifest(ctx, client, bucket, prefix, &buf)
	if err != nil {
		return "", rows, err
	}
	url, err := client.UploadFile(ctx, destBucket, destKey, buf.Bytes(), "text/csv")
	if err != nil {
		return "", rows, fmt.Errorf("upload manifest: %w", err)
	}
	return url, rows, nil
}
