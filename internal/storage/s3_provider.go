package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// S3Provider stores images in an AWS S3 (or S3 compatible) bucket
type S3Provider struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	baseURL  string
	logger   *logrus.Logger
}

// NewS3Provider creates a new S3 provider instance
func NewS3Provider(ctx context.Context, cfg Config, logger *logrus.Logger) (*S3Provider, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required for S3 provider")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	baseURL := cfg.PublicURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3Provider{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		baseURL:  baseURL,
		logger:   logger,
	}, nil
}

func (p *S3Provider) GetProviderName() string {
	return "aws"
}

// Upload uploads content to S3
func (p *S3Provider) Upload(ctx context.Context, key, contentType string, content io.Reader) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   content,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := p.uploader.Upload(ctx, input); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"bucket": p.bucket,
			"key":    key,
		}).Error("Failed to upload to S3")
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return publicURL(p.baseURL, key), nil
}

// Delete deletes an object from S3
func (p *S3Provider) Delete(ctx context.Context, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}
