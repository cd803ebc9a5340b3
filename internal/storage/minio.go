package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

type MinioOptions struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	PublicBaseURL string
}

type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioPublisher stores objects in a MinIO bucket, creating the bucket on
// start-up when it is missing.
type MinioPublisher struct {
	client        minioAPI
	bucket        string
	publicBaseURL string
}

func NewMinioPublisher(ctx context.Context, opts MinioOptions, logger zerolog.Logger) (*MinioPublisher, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, errors.New("storage: minio endpoint is required")
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("storage: bucket is required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create minio client: %w", err)
	}

	publicBase := opts.PublicBaseURL
	if publicBase == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		publicBase = scheme + "://" + opts.Endpoint
	}
	p := newMinioPublisher(client, opts.Bucket, publicBase)
	if err := p.ensureBucket(ctx, logger); err != nil {
		return nil, err
	}
	return p, nil
}

func newMinioPublisher(client minioAPI, bucket, publicBaseURL string) *MinioPublisher {
	return &MinioPublisher{client: client, bucket: bucket, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (p *MinioPublisher) ensureBucket(ctx context.Context, logger zerolog.Logger) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("storage: check bucket %s: %w", p.bucket, err)
	}
	if exists {
		return nil
	}
	if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("storage: create bucket %s: %w", p.bucket, err)
	}
	logger.Info().Str("bucket", p.bucket).Msg("storage: created bucket")
	return nil
}

func (p *MinioPublisher) Publish(ctx context.Context, obj Object) (string, error) {
	key, err := validateObject(obj)
	if err != nil {
		return "", err
	}
	opts := minio.PutObjectOptions{ContentType: obj.ContentType}
	opts.SetMatchETagExcept("*")
	if _, err := p.client.PutObject(ctx, p.bucket, key, bytes.NewReader(obj.Data), int64(len(obj.Data)), opts); err != nil {
		if minio.ToErrorResponse(err).Code == "PreconditionFailed" {
			return "", ErrObjectExists
		}
		return "", fmt.Errorf("storage: put object: %w", err)
	}
	return joinURL(p.publicBaseURL, p.bucket, key), nil
}

var _ Publisher = (*MinioPublisher)(nil)
