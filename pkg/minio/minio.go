package minio

import (
	"context"

	"donationhub/pkg/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Client = fx.Module("minio.client", fx.Provide(registerClient, NewMediaStore))

func registerClient(c *config.Config) *minio.Client {
	if c.Minio.Endpoint == "" {
		zap.L().Warn("minio endpoint not configured, media probes disabled")
		return nil
	}
	client, err := minio.New(c.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Minio.AccessKey, c.Minio.SecretKey, ""),
		Secure: c.Minio.Secure,
	})
	if err != nil {
		zap.L().Fatal("failed to create MinIO client", zap.Error(err))
	}
	exists, errBucketExists := client.BucketExists(context.Background(), c.Minio.BucketName)
	if errBucketExists != nil {
		zap.L().Fatal("failed to check if bucket exists", zap.String("bucket", c.Minio.BucketName), zap.Error(errBucketExists))
	}
	zap.L().Info("MinIO client initialized", zap.String("endpoint", c.Minio.Endpoint), zap.Bool("bucketExists", exists))
	return client
}

// MediaStore verifies that uploaded campaign media actually exists in the
// object store before a campaign starts referencing it.
type MediaStore interface {
	ImageExists(ctx context.Context, ref string) (bool, error)
}

type mediaStore struct {
	client *minio.Client
	bucket string
}

func NewMediaStore(c *config.Config, client *minio.Client) MediaStore {
	return &mediaStore{client: client, bucket: c.Minio.BucketName}
}

func (m *mediaStore) ImageExists(ctx context.Context, ref string) (bool, error) {
	if m.client == nil || ref == "" {
		return true, nil
	}
	_, err := m.client.StatObject(ctx, m.bucket, ref, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
