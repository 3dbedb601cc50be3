package templates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"certhub-backend/internal/domain"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// AssetStore loads background images by reference.
// A missing asset is reported as domain.ErrBackgroundAssetMissing.
type AssetStore interface {
	Load(ctx context.Context, ref string) ([]byte, error)
}

// FileStore reads assets from a local directory.
type FileStore struct {
	Dir string
}

func (s FileStore) Load(ctx context.Context, ref string) ([]byte, error) {
	clean := filepath.Clean("/" + strings.TrimSpace(ref))
	if clean == "/" {
		return nil, domain.ErrBackgroundAssetMissing
	}
	b, err := os.ReadFile(filepath.Join(s.Dir, clean))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", ref, domain.ErrBackgroundAssetMissing)
		}
		return nil, err
	}
	return b, nil
}

// MinIOStore reads assets from an S3-compatible bucket.
type MinIOStore struct {
	Client *minio.Client
	Bucket string
}

// NewMinIOStore connects to endpoint and makes sure the bucket exists.
func NewMinIOStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinIOStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Info().Str("bucket", bucket).Msg("asset bucket created")
	}
	return &MinIOStore{Client: client, Bucket: bucket}, nil
}

func (s *MinIOStore) Load(ctx context.Context, ref string) ([]byte, error) {
	if _, err := s.Client.StatObject(ctx, s.Bucket, ref, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", ref, domain.ErrBackgroundAssetMissing)
		}
		return nil, fmt.Errorf("failed to stat asset: %w", err)
	}
	obj, err := s.Client.GetObject(ctx, s.Bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	defer obj.Close()
	return io.ReadAll(obj)
}
