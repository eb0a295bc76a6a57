package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"solar_sdr_backend/platform/apperr"
	"solar_sdr_backend/platform/config"
)

// Store keeps ingested media artifacts in object storage so the bill
// analyzer and operators can revisit them after the conversation.
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore connects to MinIO and ensures the media bucket exists. Returns
// nil when storage is not configured; the pipeline treats that as disabled.
func NewStore(ctx context.Context, cfg config.StorageConfig) (*Store, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, nil
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create storage client", err)
	}

	bucket := cfg.GetMinioBucketMedia()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "failed to check media bucket", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, "failed to create media bucket", err)
		}
	}

	return &Store{client: client, bucket: bucket}, nil
}

// Put stores the artifact bytes content-addressed and returns the object key.
func (s *Store) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	sum := sha256.Sum256(data)
	key := fmt.Sprintf("%s/%s", time.Now().UTC().Format("2006/01/02"), hex.EncodeToString(sum[:16]))

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "failed to store media artifact", err)
	}
	return key, nil
}

// Get retrieves a stored artifact by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "failed to fetch media artifact", err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(obj); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "failed to read media artifact", err)
	}
	return buf.Bytes(), nil
}
