package storage

import (
	"context"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMinio struct {
	buckets map[string]bool
	objects map[string][]byte
	opts    minio.PutObjectOptions
}

func (f *fakeMinio) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return f.buckets[bucketName], nil
}

func (f *fakeMinio) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	f.buckets[bucketName] = true
	return nil
}

func (f *fakeMinio) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.opts = opts
	key := bucketName + "/" + objectName
	if _, ok := f.objects[key]; ok {
		return minio.UploadInfo{}, minio.ErrorResponse{Code: "PreconditionFailed", StatusCode: 412}
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[key] = data
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: objectSize}, nil
}

func TestMinioPublisherEnsuresBucketAndPublishes(t *testing.T) {
	fake := &fakeMinio{buckets: map[string]bool{}, objects: map[string][]byte{}}
	p := newMinioPublisher(fake, "onlook_public", "http://localhost:9000")
	require.NoError(t, p.ensureBucket(context.Background(), zerolog.Nop()))
	assert.True(t, fake.buckets["onlook_public"])

	url, err := p.Publish(context.Background(), Object{Key: "a.png", ContentType: "image/png", Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/onlook_public/a.png", url)
	assert.Equal(t, "image/png", fake.opts.ContentType)
	assert.Equal(t, "*", fake.opts.Header().Get("If-None-Match"))

	_, err = p.Publish(context.Background(), Object{Key: "a.png", ContentType: "image/png", Data: []byte("again")})
	assert.ErrorIs(t, err, ErrObjectExists)
	assert.Equal(t, []byte("png"), fake.objects["onlook_public/a.png"])
}

func TestNewMinioPublisherValidates(t *testing.T) {
	_, err := NewMinioPublisher(context.Background(), MinioOptions{Bucket: "b"}, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewMinioPublisher(context.Background(), MinioOptions{Endpoint: "localhost:9000"}, zerolog.Nop())
	assert.Error(t, err)
}
