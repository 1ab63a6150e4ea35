package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Uploader stores binary content under a key and returns a URL guests can
// fetch it from.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (publicURL string, err error)
}

const (
	fallbackContentType = "application/octet-stream"

	// Objects are listing photos, served straight from the bucket.
	readOnlyPolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`
)

// Client uploads to one bucket of an S3-compatible store through the MinIO
// SDK. The bucket is created lazily on the first upload, so startup does not
// depend on the object store being up.
type Client struct {
	bucket    string
	publicURL string
	api       *minio.Client
	logger    *slog.Logger

	setup    sync.Once
	setupErr error
}

func NewClient(endpoint string, useSSL bool, accessKey, secretKey, bucket, publicBaseURL string, logger *slog.Logger) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	api, err := minio.New(hostOf(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(accessKey), strings.TrimSpace(secretKey), ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}

	public := strings.TrimSpace(publicBaseURL)
	if public == "" {
		public = endpoint
	}
	return &Client{
		bucket:    bucket,
		publicURL: strings.TrimRight(public, "/"),
		api:       api,
		logger:    logger,
	}, nil
}

func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if reader == nil {
		return "", errors.New("s3: reader is required")
	}
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("s3: object key is required")
	}
	if contentType == "" {
		contentType = fallbackContentType
	}
	if err := c.prepareBucket(ctx); err != nil {
		return "", err
	}

	if _, err := c.api.PutObject(ctx, c.bucket, key, reader, -1, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}

	location := fmt.Sprintf("%s/%s/%s", c.publicURL, c.bucket, key)
	if c.logger != nil {
		c.logger.Info("object uploaded", "bucket", c.bucket, "key", key, "url", location)
	}
	return location, nil
}

// prepareBucket creates the bucket and opens it for anonymous reads once per
// process. The outcome is cached, failures included.
func (c *Client) prepareBucket(ctx context.Context) error {
	c.setup.Do(func() {
		exists, err := c.api.BucketExists(ctx, c.bucket)
		if err != nil {
			c.setupErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			c.setupErr = fmt.Errorf("s3: create bucket: %w", err)
			return
		}
		policy := fmt.Sprintf(readOnlyPolicy, c.bucket)
		if err := c.api.SetBucketPolicy(ctx, c.bucket, policy); err != nil {
			c.setupErr = fmt.Errorf("s3: set bucket policy: %w", err)
		}
	})
	return c.setupErr
}

func hostOf(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

// NoopUploader rejects uploads when no object store is configured.
type NoopUploader struct{}

func (NoopUploader) Upload(context.Context, string, io.Reader, string) (string, error) {
	return "", errors.New("s3: uploader is not configured")
}

var (
	_ Uploader = (*Client)(nil)
	_ Uploader = NoopUploader{}
)
