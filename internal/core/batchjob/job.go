package batchjob

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3control"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"

	"github.com/markdave123-py/phiscan/internal/observability"
)

type S3ControlAPI interface {
	CreateJob(ctx context.Context, params *s3control.CreateJobInput, optFns ...func(*s3control.Options)) (*s3control.CreateJobOutput, error)
}

type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// ETagSource looks up manifest ETags.
type ETagSource interface {
	ObjectETag(ctx context.Context, bucket, key string) (string, error)
}

var (
	_ S3ControlAPI = (*s3control.Client)(nil)
	_ STSAPI       = (*sts.Client)(nil)
)

// Creator submits batch jobs.
type Creator struct {
	control S3ControlAPI
	sts     STSAPI
	etags   ETagSource
	logger  *slog.Logger
}

func NewCreator(cfg aws.Config, etags ETagSource, logger *slog.Logger) *Creator {
	return NewCreatorWithAPI(s3control.NewFromConfig(cfg), sts.NewFromConfig(cfg), etags, logger)
}

func NewCreatorWithAPI(control S3ControlAPI, stsAPI STSAPI, etags ETagSource, logger *slog.Logger) *Creator {
	return &Creator{control: control, sts: stsAPI, etags: etags, logger: observability.Component(logger, "batchjob")}
}

// Prepare applies defaults and resolves the account id, request token and
// manifest ETag when the spec leaves them empty.
func (c *Creator) Prepare(ctx context.Context, spec JobSpec) (JobSpec, error) {
	spec = spec.withDefaults()
	if err := spec.validate(); err != nil {
		return spec, err
	}

	if spec.AccountId == "" {
		out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err != nil {
			return spec, fmt.Errorf("get caller identity: %w", err)
		}
		spec.AccountId = aws.ToString(out.Account)
	}
	if spec.ClientRequestToken == "" {
		spec.ClientRequestToken = uuid.NewString()
	}
	if spec.Manifest.Location.ETag == "" {
		bucket, key, err := ParseObjectArn(spec.Manifest.Location.ObjectArn)
		if err != nil {
			return spec, err
		}
		etag, err := c.etags.ObjectETag(ctx, bucket, key)
		if err != nil {
			return spec, fmt.Errorf("manifest %s: %w", spec.Manifest.Location.ObjectArn, err)
		}
		spec.Manifest.Location.ETag = etag
	}
	return spec, nil
}

// Create submits one job and returns its id.
func (c *Creator) Create(ctx context.Context, spec JobSpec) (string, error) {
	spec, err := c.Prepare(ctx, spec)
	if err != nil {
		return "", err
	}
	in, err := spec.Input()
	if err != nil {
		return "", err
	}

	out, err := c.control.CreateJob(ctx, in)
	if err != nil {
		return "", fmt.Errorf("create job %q: %w", spec.Description, err)
	}
	id := aws.ToString(out.JobId)
	c.logger.Info("Job created", "job_id", id, "account", spec.AccountId, "manifest", spec.Manifest.Location.ObjectArn)
	return id, nil
}

// ParseObjectArn splits "arn:aws:s3:::bucket/key" into bucket and key.
func ParseObjectArn(arn string) (string, string, error) {
	_, rest, ok := strings.Cut(arn, ":::")
	if !ok {
		return "", "", fmt.Errorf("not an s3 object arn: %q", arn)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("not an s3 object arn: %q", arn)
	}
	return bucket, key, nil
}

// BucketFromArn returns the bucket of "arn:aws:s3:::bucket". A plain bucket
// name is returned unchanged.
func BucketFromArn(arn string) string {
	if i := strings.LastIndex(arn, ":::"); i >= 0 {
		return arn[i+3:]
	}
	return arn
}
