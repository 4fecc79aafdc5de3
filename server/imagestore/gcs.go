package imagestore

import (
	"context"
	"fmt"
	"io"

	"github.com/Daskott/safepoint/server/gstorage"
)

type GCSStore struct {
	storage *gstorage.GStorage
	bucket  string
}

func NewGCSStore(storage *gstorage.GStorage, bucket string) *GCSStore {
	return &GCSStore{storage: storage, bucket: bucket}
}

func (gcs *GCSStore) Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error) {
	err := gcs.storage.UploadObject(ctx, gcs.bucket, objectName, r, contentType)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("https://storage.googleapis.com/%v/%v", gcs.bucket, objectName), nil
}
