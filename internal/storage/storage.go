package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/clipforge/clipforge/internal/config"
)

// Storage resolves stored path references into readable local files. A
// reference that already names a local file is used in place; anything else
// is treated as an object key and fetched from the bucket into the caller's
// directory.
type Storage struct {
	client     *minio.Client
	bucketName string
}

// New creates a storage resolver backed by an object store.
func New(cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: cfg.BucketName,
	}, nil
}

// NewLocal creates a resolver without an object store; only local path
// references resolve.
func NewLocal() *Storage {
	return &Storage{}
}

// Resolve returns a readable local path for a stored reference.
func (s *Storage) Resolve(ctx context.Context, ref, destDir string) (string, error) {
	if st, err := os.Stat(ref); err == nil && !st.IsDir() {
		return ref, nil
	}

	if s.client == nil {
		return "", fmt.Errorf("source file not found: %s", ref)
	}

	local := filepath.Join(destDir, "source_"+filepath.Base(ref))
	if err := s.client.FGetObject(ctx, s.bucketName, ref, local, minio.GetObjectOptions{}); err != nil {
		return "", fmt.Errorf("failed to fetch %s from storage: %w", ref, err)
	}

	return local, nil
}

// Upload stores a local file under an object key.
func (s *Storage) Upload(ctx context.Context, objectKey, filePath string) error {
	if s.client == nil {
		return fmt.Errorf("object storage not configured")
	}

	_, err := s.client.FPutObject(ctx, s.bucketName, objectKey, filePath, minio.PutObjectOptions{
		ContentType: contentType(filePath),
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	return nil
}

// Delete removes an object from storage.
func (s *Storage) Delete(ctx context.Context, objectKey string) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// contentType returns the content type based on file extension.
func contentType(filePath string) string {
	switch filepath.Ext(filePath) {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".mp3":
		return "audio/mpeg"
	case ".aac":
		return "audio/aac"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}
