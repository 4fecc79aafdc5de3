package imagestore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Daskott/safepoint/shared"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStore struct {
	client *minio.Client
	config shared.MinioConfig
}

func NewMinioStore(config shared.MinioConfig) (*MinioStore, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("NewMinioStore: %v", err)
	}

	return &MinioStore{client: client, config: config}, nil
}

func (m *MinioStore) Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error) {
	if err := m.ensureBucket(ctx); err != nil {
		return "", err
	}

	_, err := m.client.PutObject(ctx, m.config.Bucket, objectName, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}

	return m.PublicURL(objectName), nil
}

func (m *MinioStore) PublicURL(objectName string) string {
	if m.config.PublicBaseURL != "" {
		return strings.TrimRight(m.config.PublicBaseURL, "/") + "/" + objectName
	}

	scheme := "http://"
	if m.config.UseSSL {
		scheme = "https://"
	}
	return scheme + m.config.Endpoint + "/" + m.config.Bucket + "/" + objectName
}

func (m *MinioStore) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.config.Bucket)
	if err != nil {
		return err
	}

	if !exists {
		return m.client.MakeBucket(ctx, m.config.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}
