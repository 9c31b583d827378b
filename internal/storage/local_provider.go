package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// LocalMediaPrefix is the URL path the router serves local uploads from
const LocalMediaPrefix = "/media"

// LocalProvider stores images on the local filesystem
type LocalProvider struct {
	basePath string
	baseURL  string
	logger   *logrus.Logger
}

// NewLocalProvider creates a new local filesystem provider instance
func NewLocalProvider(cfg Config, logger *logrus.Logger) (*LocalProvider, error) {
	if cfg.LocalBasePath == "" {
		return nil, fmt.Errorf("base path is required for local provider")
	}

	if err := os.MkdirAll(cfg.LocalBasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	baseURL := cfg.PublicURL
	if baseURL == "" {
		baseURL = LocalMediaPrefix
	}

	return &LocalProvider{
		basePath: cfg.LocalBasePath,
		baseURL:  baseURL,
		logger:   logger,
	}, nil
}

func (p *LocalProvider) GetProviderName() string {
	return "local"
}

// BasePath returns the directory uploads are written to
func (p *LocalProvider) BasePath() string {
	return p.basePath
}

func (p *LocalProvider) fullPath(key string) (string, error) {
	full := filepath.Join(p.basePath, filepath.FromSlash(key))
	if !strings.HasPrefix(full, filepath.Clean(p.basePath)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object key: %s", key)
	}
	return full, nil
}

// Upload writes content to the local filesystem
func (p *LocalProvider) Upload(ctx context.Context, key, contentType string, content io.Reader) (string, error) {
	fullPath, err := p.fullPath(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		return "", fmt.Errorf("failed to write content: %w", err)
	}

	p.logger.WithField("key", key).Debug("Stored upload on local filesystem")
	return publicURL(p.baseURL, key), nil
}

// Delete removes a file. A missing file is not an error.
func (p *LocalProvider) Delete(ctx context.Context, key string) error {
	fullPath, err := p.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
