package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bilgisen/blogfront/internal/config"
)

// Publisher uploads generated files to a remote host
type Publisher interface {
	Publish(ctx context.Context, route string, body []byte) error
}

// ObjectPutter is the part of the S3 API the publisher uses
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Publisher writes pages into an S3 compatible bucket (Cloudflare R2)
// using the same key layout as the local store.
type R2Publisher struct {
	client ObjectPutter
	bucket string
}

// NewR2Publisher builds an S3 client against the configured R2 endpoint.
func NewR2Publisher(ctx context.Context, cfg *config.Config) (*R2Publisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKey, cfg.R2SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.R2Endpoint)
		o.UsePathStyle = true
	})

	return NewR2PublisherWithClient(client, cfg.R2Bucket), nil
}

// NewR2PublisherWithClient wraps an existing client
func NewR2PublisherWithClient(client ObjectPutter, bucket string) *R2Publisher {
	return &R2Publisher{client: client, bucket: bucket}
}

// Publish uploads body under the key of route
func (p *R2Publisher) Publish(ctx context.Context, route string, body []byte) error {
	key := RelativePath(route)

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType(key)),
		CacheControl: aws.String("public, max-age=300"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to bucket %s: %w", key, p.bucket, err)
	}
	return nil
}

func contentType(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	if strings.HasSuffix(key, ".json") {
		return "application/json"
	}
	return "application/octet-stream"
}
