package storage

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBackendRoundTrip(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	ctx := context.Background()
	content := []byte("%PDF-1.7 fake certificate")

	rel, err := backend.Save(ctx, content, "NH-2026-12345", "pdf")
	require.NoError(t, err)

	now := time.Now()
	expected := fmt.Sprintf("%04d/%02d/%02d/NH-2026-12345.pdf", now.Year(), int(now.Month()), now.Day())
	assert.Equal(t, expected, rel)

	exists, err := backend.Exists(ctx, rel)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := backend.Read(ctx, rel)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLocalBackendDownloadURL(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir(), "http://localhost:8080/")
	require.NoError(t, err)

	url, err := backend.DownloadURL(context.Background(), "2026/01/20/NH-2026-00001.png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/downloads/2026/01/20/NH-2026-00001.png", url)

	assert.Equal(t, "2026/01/20/NH-2026-00001.png", backend.RelativeFromURL(url))
	assert.Equal(t, "", backend.RelativeFromURL("http://localhost:8080/other/path.png"))
}

func TestLocalBackendDelete(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	ctx := context.Background()
	rel, err := backend.Save(ctx, []byte("img"), "NH-2026-00002", "png")
	require.NoError(t, err)

	require.NoError(t, backend.Delete(ctx, rel))

	exists, err := backend.Exists(ctx, rel)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = backend.Read(ctx, rel)
	require.Error(t, err)
	var storageErr *Error
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "local", storageErr.Backend)
}

func TestRelativePathShape(t *testing.T) {
	rel := RelativePath("NH-2026-54321", "jpg")
	assert.Regexp(t, regexp.MustCompile(`^\d{4}/\d{2}/\d{2}/NH-2026-54321\.jpg$`), rel)
}

func TestS3RelativeFromURL(t *testing.T) {
	backend := &S3Backend{cfg: S3Config{Bucket: "certificates", Region: "us-east-1"}}

	cases := map[string]string{
		"https://certificates.s3.us-east-1.amazonaws.com/2026/01/20/NH-2026-00001.pdf":             "2026/01/20/NH-2026-00001.pdf",
		"https://s3.us-east-1.amazonaws.com/certificates/2026/01/20/NH-2026-00001.pdf":             "2026/01/20/NH-2026-00001.pdf",
		"https://certificates.s3.us-east-1.amazonaws.com/2026/01/20/NH-2026-00001.pdf?X-Amz-Sig=x": "2026/01/20/NH-2026-00001.pdf",
	}
	for raw, want := range cases {
		assert.Equal(t, want, backend.RelativeFromURL(raw), raw)
	}
}
