package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"club-overview-console/internal/domain"
)

// FSStore writes media under a root directory and hands out URLs below BaseURL, which the
// HTTP server maps back onto the same directory.
type FSStore struct {
	root    string
	baseURL string
}

// NewFSStore creates root if needed.
func NewFSStore(root, baseURL string) (*FSStore, error) {
	if root == "" {
		root = "./blobs"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &FSStore{root: root, baseURL: baseURL}, nil
}

var _ domain.BlobStore = (*FSStore)(nil)

func (s *FSStore) Root() string { return s.root }

// sanitizeKey forbids absolute keys and path traversal.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q contains '..'", key)
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key %q", key)
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

// Upload replaces the file at path through a temp file and rename.
func (s *FSStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	key, err := sanitizeKey(path)
	if err != nil {
		return err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (s *FSStore) GetDownloadURL(ctx context.Context, path string) (string, error) {
	key, err := sanitizeKey(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(key))); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return "", err
	}
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.baseURL + strings.Join(segs, "/"), nil
}

func (s *FSStore) Ping(ctx context.Context) error {
	_, err := os.Stat(s.root)
	return err
}
