package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kai426/Dignus-sub001/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds object store connection settings
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// MinioVideoStorage implements domain.VideoStorage on an S3-compatible bucket
type MinioVideoStorage struct {
	client *minio.Client
	cfg    MinioConfig
}

// NewMinioVideoStorage connects to the object store and ensures the bucket exists
func NewMinioVideoStorage(ctx context.Context, cfg MinioConfig) (domain.VideoStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioVideoStorage{client: client, cfg: cfg}, nil
}

// Upload implements domain.VideoStorage
func (s *MinioVideoStorage) Upload(ctx context.Context, key string, content io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, content, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.url(key), nil
}

// Delete implements domain.VideoStorage
func (s *MinioVideoStorage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinioVideoStorage) url(key string) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimRight(s.cfg.PublicURL, "/") + "/" + s.cfg.Bucket + "/" + key
	}
	return "/" + s.cfg.Bucket + "/" + key
}
