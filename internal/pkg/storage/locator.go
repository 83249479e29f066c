package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"

	"github.com/photoflare/galleria/internal/pkg/env"
)

// AssetLocator resolves a stored photo to a fetchable location. Object
// storage itself is an external collaborator; this boundary only mints
// short-lived URLs.
type AssetLocator interface {
	LocateAsset(ctx context.Context, storageKey string, expires time.Duration) (string, error)
}

// S3Locator serves presigned GET URLs from an S3-compatible bucket.
type S3Locator struct {
	presigner *s3.PresignClient
	bucket    string
}

// NewS3LocatorFromEnv builds the locator from environment configuration.
func NewS3LocatorFromEnv(ctx context.Context) (*S3Locator, error) {
	region := env.GetEnv("S3_REGION", "eu-central-1")
	accessKey := env.GetEnv("S3_ACCESS_KEY_ID", "")
	secretKey := env.GetEnv("S3_SECRET_ACCESS_KEY", "")
	bucket := env.GetEnv("S3_BUCKET", "")
	endpoint := env.GetEnv("S3_ENDPOINT_URL", "")

	if accessKey == "" || secretKey == "" || bucket == "" {
		return nil, errors.New("S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY and S3_BUCKET are required")
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			// Path-style is required for most S3-compatible providers.
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	log.Infof("[Storage] S3 asset locator initialized for bucket %s", bucket)
	return &S3Locator{
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
	}, nil
}

// LocateAsset mints a presigned GET URL for the stored object.
func (l *S3Locator) LocateAsset(ctx context.Context, storageKey string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = 5 * time.Minute
	}
	req, err := l.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(storageKey),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("could not presign object %s: %w", storageKey, err)
	}
	return req.URL, nil
}
