package storage

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"goal-image-service/internal/config"
	"goal-image-service/internal/infra/logging"
)

const pngContentType = "image/png"

// ObjectStore uploads rendered images to an S3-compatible bucket
// (DigitalOcean Spaces in production).
type ObjectStore struct {
	client     *minio.Client
	bucket     string
	endpoint   string
	secure     bool
	publicBase string
	prefix     string
}

// New connects an ObjectStore from cfg. No request is sent until the first
// upload.
func New(cfg config.StorageConfig) (*ObjectStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is empty")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is empty")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &ObjectStore{
		client:     client,
		bucket:     cfg.Bucket,
		endpoint:   cfg.Endpoint,
		secure:     cfg.UseSSL,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		prefix:     cfg.KeyPrefix,
	}, nil
}

// ObjectKey names the object for a render: {prefix}{type}-{id}.png, using the
// current unix milliseconds when id is zero.
func (s *ObjectStore) ObjectKey(recType string, id int64, now time.Time) string {
	suffix := strconv.FormatInt(id, 10)
	if id == 0 {
		suffix = strconv.FormatInt(now.UnixMilli(), 10)
	}
	return s.prefix + recType + "-" + suffix + ".png"
}

// Upload stores png under key as a publicly readable object and returns its URL.
func (s *ObjectStore) Upload(ctx context.Context, key string, png []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(png), int64(len(png)), minio.PutObjectOptions{
		ContentType:  pngContentType,
		CacheControl: "public, max-age=31536000",
		UserMetadata: map[string]string{"x-amz-acl": "public-read"},
	})
	if err != nil {
		logging.Error("Failed to upload image", "key", key, "error", err)
		return "", fmt.Errorf("upload %q: %w", key, err)
	}
	logging.Debug("Image uploaded", "key", key, "bytes", len(png))
	return s.PublicURL(key), nil
}

// Delete removes the object at key.
func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// PublicURL is the browser-facing URL of key. Without a configured public base
// it uses virtual-host style on the storage endpoint.
func (s *ObjectStore) PublicURL(key string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s.%s/%s", scheme, s.bucket, s.endpoint, key)
}
