// Package storage ships backtest artifacts to S3.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/yourusername/equity-backtest/internal/config"
	"github.com/yourusername/equity-backtest/internal/logger"
)

// Uploader is the subset of the S3 transfer manager the store needs
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// ArtifactStore uploads run artifacts under bucket/prefix/version/run
type ArtifactStore struct {
	uploader Uploader
	bucket   string
	prefix   string
	logger   *logger.DataLogger
}

// NewArtifactStore creates a store around an existing uploader
func NewArtifactStore(uploader Uploader, bucket, prefix string, dl *logger.DataLogger) *ArtifactStore {
	return &ArtifactStore{
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		logger:   dl,
	}
}

// NewS3ArtifactStore builds a store from the default AWS credential chain
func NewS3ArtifactStore(ctx context.Context, cfg config.StorageConfig, dl *logger.DataLogger) (*ArtifactStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	uploader := manager.NewUploader(s3.NewFromConfig(awsCfg))
	return NewArtifactStore(uploader, cfg.Bucket, cfg.Prefix, dl), nil
}

// Key returns the object key for an artifact of a run
func (s *ArtifactStore) Key(versionTag, runID, filename string) string {
	return path.Join(s.prefix, versionTag, runID, filename)
}

// UploadFile uploads one local file to key and returns its size
func (s *ArtifactStore) UploadFile(ctx context.Context, key, localPath string) (int64, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat artifact: %w", err)
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(localPath)),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload %s to s3://%s/%s: %w", localPath, s.bucket, key, err)
	}

	if s.logger != nil {
		s.logger.LogUpload(s.bucket, key, info.Size())
	}
	return info.Size(), nil
}

// UploadArtifacts uploads every file in paths and returns their keys.
// Empty paths are skipped.
func (s *ArtifactStore) UploadArtifacts(ctx context.Context, versionTag, runID string, paths []string) ([]string, error) {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		key := s.Key(versionTag, runID, filepath.Base(p))
		if _, err := s.UploadFile(ctx, key, p); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
