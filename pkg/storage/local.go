package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const downloadsMount = "/downloads/"

// LocalBackend stores artifacts on the local filesystem under a root directory
// and serves them from a fixed public mount prefix.
type LocalBackend struct {
	root    string
	baseURL string
}

func NewLocalBackend(root, publicBaseURL string) (*LocalBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &Error{Backend: "local", Op: "init", Err: err}
	}
	return &LocalBackend{
		root:    root,
		baseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

// Root returns the storage root directory, used to mount the download route.
func (b *LocalBackend) Root() string { return b.root }

func (b *LocalBackend) Save(ctx context.Context, data []byte, certificateID, format string) (string, error) {
	rel := RelativePath(certificateID, format)
	full := filepath.Join(b.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", &Error{Backend: "local", Op: "save", Err: err}
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", &Error{Backend: "local", Op: "save", Err: err}
	}
	return rel, nil
}

func (b *LocalBackend) DownloadURL(ctx context.Context, relativePath string) (string, error) {
	return b.baseURL + downloadsMount + relativePath, nil
}

func (b *LocalBackend) Exists(ctx context.Context, relativePath string) (bool, error) {
	_, err := os.Stat(filepath.Join(b.root, filepath.FromSlash(relativePath)))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, &Error{Backend: "local", Op: "stat", Err: err}
}

func (b *LocalBackend) Read(ctx context.Context, relativePath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(b.root, filepath.FromSlash(relativePath)))
	if err != nil {
		return nil, &Error{Backend: "local", Op: "read", Err: fmt.Errorf("%s: %w", relativePath, err)}
	}
	return data, nil
}

func (b *LocalBackend) Delete(ctx context.Context, relativePath string) error {
	if err := os.Remove(filepath.Join(b.root, filepath.FromSlash(relativePath))); err != nil {
		return &Error{Backend: "local", Op: "delete", Err: err}
	}
	return nil
}

func (b *LocalBackend) RelativeFromURL(raw string) string {
	if i := strings.Index(raw, downloadsMount); i >= 0 {
		rel, err := url.PathUnescape(raw[i+len(downloadsMount):])
		if err != nil {
			return ""
		}
		return rel
	}
	return ""
}
