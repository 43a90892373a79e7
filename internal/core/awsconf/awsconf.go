package awsconf

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	cfg "github.com/markdave123-py/phiscan/internal/config"
)

// GCSRegion is the signing region GCS expects on its XML API.
const GCSRegion = "auto"

// LoadStorage builds the SDK configuration for the selected storage
// backend. GCS requires its HMAC key pair.
func LoadStorage(ctx context.Context, c *cfg.Config) (aws.Config, error) {
	if c.StorageBackend != cfg.BackendGCS {
		return LoadAWS(ctx, c)
	}
	if c.GcsAccessKey == "" || c.GcsSecretKey == "" {
		return aws.Config{}, fmt.Errorf("GCS HMAC credentials not set")
	}

	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(GCSRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.GcsAccessKey, c.GcsSecretKey, ""),
		),
		config.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
		config.WithResponseChecksumValidation(aws.ResponseChecksumValidationWhenRequired),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load gcs config: %w", err)
	}
	return awsCfg, nil
}

// LoadAWS builds the SDK configuration for AWS services (S3, Comprehend,
// S3 Control, STS). Static keys are used when both are set; otherwise the
// default chain (profile, environment, instance role) applies.
func LoadAWS(ctx context.Context, c *cfg.Config) (aws.Config, error) {
	if c.AwsRegion == "" {
		return aws.Config{}, fmt.Errorf("AWS_REGION not set")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(c.AwsRegion)}
	if c.AwsProfile != "" {
		opts = append(opts, config.WithSharedConfigProfile(c.AwsProfile))
	}
	if c.AwsAccessKey != "" && c.AwsSecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AwsAccessKey, c.AwsSecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// Endpoint returns the S3 endpoint override for the backend, if any.
func Endpoint(c *cfg.Config) string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if c.StorageBackend == cfg.BackendGCS {
		return cfg.GCSEndpoint
	}
	return ""
}
