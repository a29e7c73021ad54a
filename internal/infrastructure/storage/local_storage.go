package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/kai426/Dignus-sub001/domain"
)

// LocalVideoStorage implements domain.VideoStorage on the local filesystem, for development
type LocalVideoStorage struct {
	root    string
	baseURL string
}

// NewLocalVideoStorage stores files under root and serves them from baseURL
func NewLocalVideoStorage(root, baseURL string) domain.VideoStorage {
	return &LocalVideoStorage{root: root, baseURL: baseURL}
}

// Upload implements domain.VideoStorage
func (s *LocalVideoStorage) Upload(ctx context.Context, key string, content io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, content); err != nil {
		return "", err
	}
	return s.baseURL + "/" + key, nil
}

// Delete implements domain.VideoStorage
func (s *LocalVideoStorage) Delete(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
