package objectclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	cfg "github.com/markdave123-py/phiscan/internal/config"
	"github.com/markdave123-py/phiscan/internal/core"
	"github.com/markdave123-py/phiscan/internal/core/awsconf"
	"github.com/markdave123-py/phiscan/internal/observability"
)

const (
	defaultGetTimeout    = 30 * time.Second
	defaultUploadTimeout = 2 * time.Minute
)

var _ core.ObjectClient = (*S3Client)(nil)

type S3Client struct {
	client   S3API
	region   string
	endpoint string
	timeout  time.Duration
	metrics  *observability.ScanMetrics
	logger   *slog.Logger
}

// NewS3Client connects to AWS S3, or to GCS through its S3-compatible
// endpoint when the gcs backend is selected.
func NewS3Client(ctx context.Context, c *cfg.Config, metrics *observability.ScanMetrics, logger *slog.Logger) (*S3Client, error) {
	awsCfg, err := awsconf.LoadStorage(ctx, c)
	if err != nil {
		return nil, err
	}

	endpoint := awsconf.Endpoint(c)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	logger = observability.Component(logger, "objectclient")
	logger.Info("Object client ready", "backend", c.StorageBackend, "region", awsCfg.Region, "endpoint", endpoint)

	return &S3Client{
		client:   client,
		region:   awsCfg.Region,
		endpoint: endpoint,
		timeout:  c.RequestTimeout,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

// NewWithAPI wraps an existing S3 API implementation.
func NewWithAPI(api S3API, region string, metrics *observability.ScanMetrics, logger *slog.Logger) *S3Client {
	return &S3Client{
		client:  api,
		region:  region,
		metrics: metrics,
		logger:  observability.Component(logger, "objectclient"),
	}
}

func (c *S3Client) opTimeout(def time.Duration) time.Duration {
	if c.timeout > 0 {
		return c.timeout
	}
	return def
}

// UploadFile uploads a file and returns its URL.
func (c *S3Client) UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	uploader := manager.NewUploader(c.client)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	ctxUpload, cancel := context.WithTimeout(ctx, c.opTimeout(defaultUploadTimeout))
	defer cancel()

	if _, err := uploader.Upload(ctxUpload, input); err != nil {
		return "", core.NewStorageFetchError("upload", bucket, key, fmt.Errorf("s3 upload failed: %w", mapError(err)))
	}

	return c.objectURL(bucket, key), nil
}

func (c *S3Client) objectURL(bucket, key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if c.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.endpoint, "/"), bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, c.region, escaped)
}

func (c *S3Client) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	return c.get(ctx, "get", bucket, key, "")
}

// GetRange issues one ranged GET. rangeSpec is passed through verbatim.
func (c *S3Client) GetRange(ctx context.Context, bucket, key, rangeSpec string) ([]byte, error) {
	body, err := c.get(ctx, "get range", bucket, key, rangeSpec)
	if err != nil {
		return nil, err
	}
	c.metrics.RecordRange(len(body))
	return body, nil
}

func (c *S3Client) get(ctx context.Context, op, bucket, key, rangeSpec string) ([]byte, error) {
	ctxGet, cancel := context.WithTimeout(ctx, c.opTimeout(defaultGetTimeout))
	defer cancel()

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if rangeSpec != "" {
		input.Range = aws.String(rangeSpec)
	}

	resp, err := c.client.GetObject(ctxGet, input)
	if err != nil {
		return nil, core.NewStorageFetchError(op, bucket, key, fmt.Errorf("s3 get failed: %w", mapError(err)))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewStorageFetchError(op, bucket, key, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

func (c *S3Client) HeadObject(ctx context.Context, bucket, key string) (int64, string, error) {
	ctxHead, cancel := context.WithTimeout(ctx, c.opTimeout(defaultGetTimeout))
	defer cancel()

	resp, err := c.client.HeadObject(ctxHead, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, "", core.NewStorageFetchError("head", bucket, key, fmt.Errorf("s3 head failed: %w", mapError(err)))
	}
	return aws.ToInt64(resp.ContentLength), aws.ToString(resp.ContentType), nil
}

// ObjectETag returns the object's ETag without surrounding quotes.
func (c *S3Client) ObjectETag(ctx context.Context, bucket, key string) (string, error) {
	ctxHead, cancel := context.WithTimeout(ctx, c.opTimeout(defaultGetTimeout))
	defer cancel()

	resp, err := c.client.HeadObject(ctxHead, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", core.NewStorageFetchError("head", bucket, key, fmt.Errorf("s3 head failed: %w", mapError(err)))
	}
	return strings.Trim(aws.ToString(resp.ETag), `"`), nil
}

// ListKeys walks ListObjectsV2 pages in continuation-token order.
func (c *S3Client) ListKeys(ctx context.Context, bucket, prefix, startAfter string, fn func(keys []string) error) error {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if startAfter != "" {
		input.StartAfter = aws.String(startAfter)
	}

	p := s3.NewListObjectsV2Paginator(c.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return core.NewStorageFetchError("list", bucket, prefix, fmt.Errorf("s3 list failed: %w", mapError(err)))
		}

		keys := make([]string, 0, len(page.Contents))
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if len(keys) == 0 {
			continue
		}
		if err := fn(keys); err != nil {
			return err
		}
	}
	return nil
}

// mapError attaches the package sentinels to S3 error codes that callers
// branch on, keeping the SDK error in the chain.
func mapError(err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return errors.Join(core.ErrObjectNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return errors.Join(core.ErrObjectNotFound, err)
		case "InvalidRange":
			return errors.Join(core.ErrInvalidRange, err)
		}
	}
	return err
}
