package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Provider stores product images and returns the URL they are served from
type Provider interface {
	Upload(ctx context.Context, key, contentType string, content io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	GetProviderName() string
}

// Config holds the settings of every supported provider
type Config struct {
	Provider        string
	Bucket          string
	PublicURL       string
	Region          string
	Endpoint        string
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string
	CredentialsFile string
	LocalBasePath   string
}

// NewProvider returns the provider selected by cfg.Provider
func NewProvider(ctx context.Context, cfg Config, logger *logrus.Logger) (Provider, error) {
	if logger == nil {
		logger = logrus.New()
	}

	switch cfg.Provider {
	case "aws":
		return NewS3Provider(ctx, cfg, logger)
	case "gcp":
		return NewGCSProvider(ctx, cfg, logger)
	case "local", "":
		return NewLocalProvider(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}

// publicURL joins base and key with exactly one slash
func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
