package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// GCSProvider stores images in a Google Cloud Storage bucket
type GCSProvider struct {
	client  *gcs.Client
	bucket  string
	baseURL string
	logger  *logrus.Logger
}

// NewGCSProvider creates a new Google Cloud Storage provider instance
func NewGCSProvider(ctx context.Context, cfg Config, logger *logrus.Logger) (*GCSProvider, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required for GCS provider")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	baseURL := cfg.PublicURL
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com/" + cfg.Bucket
	}

	return &GCSProvider{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
		logger:  logger,
	}, nil
}

func (p *GCSProvider) GetProviderName() string {
	return "gcp"
}

// Upload uploads content to Google Cloud Storage
func (p *GCSProvider) Upload(ctx context.Context, key, contentType string, content io.Reader) (string, error) {
	writer := p.client.Bucket(p.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, content); err != nil {
		writer.Close()
		p.logger.WithError(err).WithFields(logrus.Fields{
			"bucket": p.bucket,
			"key":    key,
		}).Error("Failed to upload to GCS")
		return "", fmt.Errorf("failed to upload to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize GCS upload: %w", err)
	}

	return publicURL(p.baseURL, key), nil
}

// Delete deletes an object from GCS. A missing object is not an error.
func (p *GCSProvider) Delete(ctx context.Context, key string) error {
	err := p.client.Bucket(p.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete from GCS: %w", err)
	}
	return nil
}
