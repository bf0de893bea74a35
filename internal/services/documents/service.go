// Package documents stores certificate-of-analysis files for batches in
// object storage. Only metadata lives in the off-chain store; the documents
// themselves go to a bucket.
package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pharmatrust/drugtrace/internal/config"
	"github.com/pharmatrust/drugtrace/internal/models"
)

// Service handles certificate uploads and downloads.
type Service struct {
	client *minio.Client
	bucket string
}

// NewService creates an object-storage client for the configured bucket.
func NewService(cfg *config.Config) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	return &Service{client: client, bucket: cfg.MinioBucket}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
}

// Upload stores a certificate document for a batch and returns its metadata,
// including the SHA-256 checksum computed while streaming.
func (s *Service) Upload(ctx context.Context, batchID, uploadedBy string, reader io.Reader, size int64, filename string) (*models.Certificate, error) {
	id := uuid.New()
	storageKey := fmt.Sprintf("certificates/%s/%s", batchID, id.String())

	hasher := sha256.New()
	teeReader := io.TeeReader(reader, hasher)

	_, err := s.client.PutObject(ctx, s.bucket, storageKey, teeReader, size, minio.PutObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to upload certificate: %w", err)
	}

	return &models.Certificate{
		ID:         id.String(),
		BatchID:    batchID,
		FileName:   filename,
		Size:       size,
		Checksum:   hex.EncodeToString(hasher.Sum(nil)),
		StorageKey: storageKey,
		UploadedBy: uploadedBy,
		CreatedAt:  time.Now(),
	}, nil
}

// Download streams a stored certificate back to the caller.
func (s *Service) Download(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, storageKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return obj, nil
}
