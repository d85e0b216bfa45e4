package certificates

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// buildArchive bundles every artifact of a bulk run into one zip and stores it
// through the same backend as the certificates themselves. Artifacts that
// cannot be read back are skipped rather than failing the archive.
func (s *service) buildArchive(ctx context.Context, results []BatchResult) (string, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, result := range results {
		if !result.Success {
			continue
		}
		formats := make([]string, 0, len(result.DownloadURLs))
		for format := range result.DownloadURLs {
			formats = append(formats, format)
		}
		sort.Strings(formats)

		for _, format := range formats {
			relPath := s.storage.RelativeFromURL(result.DownloadURLs[format])
			data, err := s.storage.Read(ctx, relPath)
			if err != nil {
				s.logger.Warn("skipping unreadable artifact in archive",
					zap.String("certificate_id", result.CertificateID),
					zap.String("path", relPath),
					zap.Error(err))
				continue
			}
			entry, err := zw.Create(fmt.Sprintf("%s.%s", result.CertificateID, format))
			if err != nil {
				return "", fmt.Errorf("failed to create archive entry: %w", err)
			}
			if _, err := entry.Write(data); err != nil {
				return "", fmt.Errorf("failed to write archive entry: %w", err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}

	archiveID := "bulk-certificates-" + uuid.NewString()[:8]
	relPath, err := s.storage.Save(ctx, buf.Bytes(), archiveID, "zip")
	if err != nil {
		return "", err
	}
	return s.storage.DownloadURL(ctx, relPath)
}
