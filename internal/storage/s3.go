package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Options configures an S3-compatible bucket (AWS, MinIO, or the
// identity provider's storage S3 endpoint).
type S3Options struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	UsePathStyle  bool
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Publisher uploads with a conditional PUT so an existing key is never
// overwritten.
type S3Publisher struct {
	client        s3API
	bucket        string
	publicBaseURL string
}

func NewS3Publisher(ctx context.Context, opts S3Options) (*S3Publisher, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("storage: bucket is required")
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	publicBase := opts.PublicBaseURL
	if publicBase == "" {
		publicBase = opts.Endpoint
	}
	return newS3Publisher(client, opts.Bucket, publicBase), nil
}

func newS3Publisher(client s3API, bucket, publicBaseURL string) *S3Publisher {
	return &S3Publisher{client: client, bucket: bucket, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// CheckBucket verifies the bucket is reachable with the configured
// credentials.
func (p *S3Publisher) CheckBucket(ctx context.Context) error {
	if _, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.bucket)}); err != nil {
		return fmt.Errorf("storage: head bucket %s: %w", p.bucket, err)
	}
	return nil
}

func (p *S3Publisher) Publish(ctx context.Context, obj Object) (string, error) {
	key, err := validateObject(obj)
	if err != nil {
		return "", err
	}
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(obj.Data),
		ContentLength: aws.Int64(int64(len(obj.Data))),
		ContentType:   aws.String(obj.ContentType),
		IfNoneMatch:   aws.String("*"),
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return "", ErrObjectExists
		}
		return "", fmt.Errorf("storage: put object: %w", err)
	}
	return joinURL(p.publicBaseURL, p.bucket, key), nil
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}

var _ Publisher = (*S3Publisher)(nil)
