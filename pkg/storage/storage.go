package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Backend persists generated certificate artifacts under date-partitioned
// relative paths and resolves those paths to downloadable URLs. Implementations
// must be safe for concurrent use by independent requests.
type Backend interface {
	// Save writes the bytes of one output format and returns the relative
	// storage path it was written under.
	Save(ctx context.Context, data []byte, certificateID, format string) (string, error)

	// DownloadURL resolves a relative path to an absolute URL a client can fetch.
	DownloadURL(ctx context.Context, relativePath string) (string, error)

	Exists(ctx context.Context, relativePath string) (bool, error)
	Read(ctx context.Context, relativePath string) ([]byte, error)
	Delete(ctx context.Context, relativePath string) error

	// RelativeFromURL maps a URL previously returned by DownloadURL back to its
	// relative storage path. Returns "" when the URL is not recognized.
	RelativeFromURL(url string) string
}

// Error reports a backend I/O failure. The backend kind is carried for logs;
// callers treat all storage failures uniformly.
type Error struct {
	Backend string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage (%s) %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// RelativePath computes the storage key for one artifact. The date component is
// taken from the wall clock at write time, so re-saving the same certificate on
// a later day lands on a different path; callers must not assume path stability
// across day boundaries.
func RelativePath(certificateID, format string) string {
	now := time.Now()
	return fmt.Sprintf("%04d/%02d/%02d/%s.%s", now.Year(), int(now.Month()), now.Day(), certificateID, format)
}

// ContentType returns the MIME type for an output format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "pdf":
		return "application/pdf"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
