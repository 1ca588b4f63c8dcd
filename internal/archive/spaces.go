package archive

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/rs/zerolog/log"
)

// SpacesConfig configures a DigitalOcean Spaces (or any S3-compatible)
// bucket.
type SpacesConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	CDNURL    string
	AccessKey string
	SecretKey string
}

// SpacesArchive uploads files as public objects and returns their CDN URL.
type SpacesArchive struct {
	client s3iface.S3API
	bucket string
	cdnURL string
}

// NewSpacesArchive creates an S3 session for cfg.
func NewSpacesArchive(cfg SpacesConfig) (*SpacesArchive, error) {
	config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		Endpoint:         aws.String(cfg.Endpoint),
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(false),
	}

	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return newSpacesArchive(s3.New(sess), cfg.Bucket, cfg.CDNURL), nil
}

func newSpacesArchive(client s3iface.S3API, bucket, cdnURL string) *SpacesArchive {
	return &SpacesArchive{client: client, bucket: bucket, cdnURL: strings.TrimSuffix(cdnURL, "/")}
}

func (s *SpacesArchive) Archive(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := objectKey(name)
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		log.Error().Err(err).Str("component", "archive").Str("key", key).Msg("failed to upload file to Spaces")
		return "", fmt.Errorf("failed to upload to Spaces: %w", err)
	}
	return fmt.Sprintf("%s/%s", s.cdnURL, key), nil
}
