// Package storage adapts the S3-compatible object store behind the narrow
// operations the rest of the service needs: presigning uploads, streaming
// objects back, and watching for object-created events.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const objectCreatedEvent = "s3:ObjectCreated:*"

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Uploads struct {
	client *minio.Client
	bucket string
	expiry time.Duration
	logger *slog.Logger
}

func NewUploads(cfg Config, expiry time.Duration, logger *slog.Logger) (*Uploads, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}

	return &Uploads{
		client: client,
		bucket: cfg.Bucket,
		expiry: expiry,
		logger: logger,
	}, nil
}

// EnsureBucket creates the upload bucket if it does not exist yet.
func (u *Uploads) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", u.bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %q: %w", u.bucket, err)
	}
	return nil
}

// PresignUpload returns a time-limited PUT URL for a key. The object does not
// exist until the caller performs the upload.
func (u *Uploads) PresignUpload(ctx context.Context, key string) (string, error) {
	uploadURL, err := u.client.PresignedPutObject(ctx, u.bucket, key, u.expiry)
	if err != nil {
		return "", fmt.Errorf("presign put %q: %w", key, err)
	}
	return uploadURL.String(), nil
}

// Open streams an object's contents.
func (u *Uploads) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	object, err := u.client.GetObject(ctx, u.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	return object, nil
}

// ObjectCreated emits the key of every object created under prefix with the
// given suffix until ctx is cancelled. Notification transport errors are
// logged and the subscription keeps going.
func (u *Uploads) ObjectCreated(ctx context.Context, prefix, suffix string) <-chan string {
	keys := make(chan string)

	go func() {
		defer close(keys)

		events := u.client.ListenBucketNotification(ctx, u.bucket, prefix, suffix, []string{objectCreatedEvent})
		for info := range events {
			if info.Err != nil {
				u.logger.Error("bucket notification error", "bucket", u.bucket, "error", info.Err)
				continue
			}
			for _, record := range info.Records {
				// object keys arrive URL-encoded
				key, err := url.QueryUnescape(record.S3.Object.Key)
				if err != nil {
					u.logger.Error("decode object key failed", "key", record.S3.Object.Key, "error", err)
					continue
				}
				select {
				case keys <- key:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return keys
}
