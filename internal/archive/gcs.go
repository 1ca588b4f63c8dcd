package archive

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
)

// GCSArchive writes files to a Google Cloud Storage bucket.
type GCSArchive struct {
	bucket *storage.BucketHandle
	name   string
}

// NewGCSArchive creates an archive on bucket.
func NewGCSArchive(client *storage.Client, bucket string) *GCSArchive {
	return &GCSArchive{bucket: client.Bucket(bucket), name: bucket}
}

// Archive returns a gs:// URL; objects are private.
func (g *GCSArchive) Archive(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := objectKey(name)
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to upload to GCS: %w", err)
	}

	log.Debug().Str("component", "archive").Str("bucket", g.name).Str("key", key).Msg("archived source file")
	return fmt.Sprintf("gs://%s/%s", g.name, key), nil
}
