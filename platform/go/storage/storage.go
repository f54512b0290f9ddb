// Package storage abstracts where branding assets (logos, favicons) are
// written. Production deployments use a GCS bucket; local and self-hosted
// deployments use a directory on disk.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// BlobStore writes and serves tenant assets by key. Keys are slash-separated
// paths ("orgs/<id>/branding/logo.png").
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// GCSStore stores assets in a Google Cloud Storage bucket, served through the
// public object URL.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSStore(client *gcs.Client, bucket string) *GCSStore {
	if client == nil {
		panic("gcs store requires client")
	}
	if bucket == "" {
		panic("gcs store requires bucket")
	}
	return &GCSStore{client: client, bucket: bucket}
}

func (s *GCSStore) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", key, err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key), nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	return s.client.Bucket(s.bucket).Object(key).Delete(ctx)
}

// LocalStore stores assets under a directory and serves them through the
// API's /assets/ route.
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("local store requires a root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create asset root: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory assets are written under, for mounting a file
// server on the asset route.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Put(_ context.Context, key, _ string, r io.Reader) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create asset dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create asset %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write asset %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close asset %s: %w", key, err)
	}

	return s.baseURL + "/" + key, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	return os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
}

func cleanKey(key string) (string, error) {
	key = strings.Trim(key, "/")
	if key == "" {
		return "", fmt.Errorf("asset key is required")
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("invalid asset key %q", key)
		}
	}
	return key, nil
}

var _ BlobStore = (*GCSStore)(nil)
var _ BlobStore = (*LocalStore)(nil)
