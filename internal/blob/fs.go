package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FSStore implements Store on a local directory, issuing file:// URLs. It is
// the fallback when no object store is configured and the backend for tests.
type FSStore struct {
	root string
}

// NewFSStore creates (if needed) and uses the given directory as blob root.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("blob: create root %s: %w", root, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blob: resolve root %s: %w", root, err)
	}
	return &FSStore{root: abs}, nil
}

// Upload copies the file into the blob root and returns a file:// URL.
func (s *FSStore) Upload(_ context.Context, localPath, objectName string) (string, error) {
	dst := filepath.Join(s.root, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return "", fmt.Errorf("blob: create object dir: %w", err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("blob: open %s: %w", localPath, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("blob: create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("blob: copy to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("blob: close %s: %w", dst, err)
	}

	return "file://" + s.root + "/" + objectName, nil
}

// Delete removes the named object from the blob root.
func (s *FSStore) Delete(_ context.Context, objectName string) error {
	path := filepath.Join(s.root, filepath.FromSlash(objectName))
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("blob: delete %s: %w", objectName, err)
	}
	return nil
}

// ObjectName extracts the object name from a file:// URL this store issued.
func (s *FSStore) ObjectName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("blob: parse url %q: %w", rawURL, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("blob: url %q is not a file url", rawURL)
	}
	full := u.Path
	prefix := s.root + "/"
	if !strings.HasPrefix(full, prefix) {
		return "", fmt.Errorf("blob: url %q is outside blob root", rawURL)
	}
	name := strings.TrimPrefix(full, prefix)
	if name == "" {
		return "", fmt.Errorf("blob: url %q has no object name", rawURL)
	}
	return name, nil
}
