package certificates

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"networkers-home/certificate-portal/certificate-portal-backend/internal/templates"
	"networkers-home/certificate-portal/certificate-portal-backend/pkg/render"
	"networkers-home/certificate-portal/certificate-portal-backend/pkg/storage"
)

// Service runs the generation pipeline end to end: template rendering,
// document conversion, raster encoding, artifact storage and record keeping.
type Service interface {
	GenerateOne(ctx context.Context, tmpl *templates.Template, input CertificateInput, formats []OutputFormat, userID *uuid.UUID) (*GenerateResponse, error)
	GenerateBatch(ctx context.Context, tmpl *templates.Template, inputs []CertificateInput, formats []OutputFormat, userID *uuid.UUID) (*BulkResponse, error)
	GenerateBatchRows(ctx context.Context, tmpl *templates.Template, rows []BulkRow, formats []OutputFormat, userID *uuid.UUID) (*BulkResponse, error)
	Preview(ctx context.Context, tmpl *templates.Template, record PartialRecord, positions []ElementPosition, styles []ElementStyle) (string, error)
	Finalize(ctx context.Context, tmpl *templates.Template, record PartialRecord, positions []ElementPosition, styles []ElementStyle, formats []OutputFormat, userID *uuid.UUID) (*GenerateResponse, error)
	History(ctx context.Context, userID uuid.UUID) ([]HistoryEntry, error)
	Verify(ctx context.Context, certificateID string) (*Certificate, error)
	Revoke(ctx context.Context, certificateID string, revokedBy *uuid.UUID, reason string) (*Certificate, error)
	Restore(ctx context.Context, certificateID string) (*Certificate, error)
}

type service struct {
	repo      Repository
	renderer  *Renderer
	documents render.DocumentRenderer
	raster    render.RasterConverter
	storage   storage.Backend
	alloc     *Allocator
	logger    *zap.Logger
	finalDPI  int
}

func NewService(
	repo Repository,
	renderer *Renderer,
	documents render.DocumentRenderer,
	raster render.RasterConverter,
	backend storage.Backend,
	alloc *Allocator,
	logger *zap.Logger,
	finalDPI int,
) Service {
	return &service{
		repo:      repo,
		renderer:  renderer,
		documents: documents,
		raster:    raster,
		storage:   backend,
		alloc:     alloc,
		logger:    logger,
		finalDPI:  finalDPI,
	}
}

// normalizeFormats applies the pdf default and rejects unknown formats before
// any rendering work happens.
func normalizeFormats(formats []OutputFormat) ([]OutputFormat, error) {
	if len(formats) == 0 {
		return []OutputFormat{FormatPDF}, nil
	}
	seen := make(map[OutputFormat]bool, len(formats))
	out := make([]OutputFormat, 0, len(formats))
	for _, f := range formats {
		if !f.Valid() {
			return nil, &ValidationError{Field: "output_formats", Reason: fmt.Sprintf("unsupported format %q", f)}
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *service) GenerateOne(ctx context.Context, tmpl *templates.Template, input CertificateInput, formats []OutputFormat, userID *uuid.UUID) (*GenerateResponse, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	formats, err := normalizeFormats(formats)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCertificateID(ctx, &input); err != nil {
		return nil, err
	}
	markup, err := s.renderer.Render(tmpl.HTMLContent, input.Record())
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, tmpl, markup, input, formats, userID)
}

// ensureCertificateID allocates an identifier when the caller left it blank,
// or rejects a caller-supplied identifier that is already taken.
func (s *service) ensureCertificateID(ctx context.Context, input *CertificateInput) error {
	if input.CertificateID == "" {
		id, err := s.alloc.Allocate(ctx, s.repo.CertificateIDExists)
		if err != nil {
			return err
		}
		input.CertificateID = id
		return nil
	}
	taken, err := s.repo.CertificateIDExists(ctx, input.CertificateID)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateCertificateID
	}
	return nil
}

// generate is the shared pipeline tail: markup goes through Chromium once,
// each requested format is derived from that single document, every artifact
// is saved, and only then is the record inserted. Any failure before the
// insert leaves no persistent trace beyond orphaned files.
func (s *service) generate(ctx context.Context, tmpl *templates.Template, markup string, input CertificateInput, formats []OutputFormat, userID *uuid.UUID) (*GenerateResponse, error) {
	document, err := s.documents.RenderDocument(ctx, markup, tmpl.CSSContent)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cert := &Certificate{
		ID:            uuid.New(),
		CertificateID: input.CertificateID,
		UserID:        userID,
		Data:          input.Snapshot(),
		Status:        StatusGenerated,
		GeneratedAt:   &now,
	}
	if tmpl != nil {
		id := tmpl.ID
		cert.TemplateID = &id
	}

	downloadURLs := make(map[string]string, len(formats))
	for _, format := range formats {
		artifact := document
		if format != FormatPDF {
			artifact, err = s.raster.Rasterize(ctx, document, string(format), s.finalDPI)
			if err != nil {
				return nil, err
			}
		}
		relPath, err := s.storage.Save(ctx, artifact, input.CertificateID, string(format))
		if err != nil {
			return nil, err
		}
		url, err := s.storage.DownloadURL(ctx, relPath)
		if err != nil {
			return nil, err
		}
		downloadURLs[string(format)] = url

		path := relPath
		switch format {
		case FormatPDF:
			cert.PDFPath = &path
		case FormatPNG:
			cert.PNGPath = &path
		case FormatJPG, FormatJPEG:
			cert.JPGPath = &path
		}
	}

	if err := s.repo.Insert(ctx, cert); err != nil {
		return nil, err
	}

	s.logger.Info("certificate generated",
		zap.String("certificate_id", cert.CertificateID),
		zap.Int("formats", len(formats)))

	return &GenerateResponse{
		Success:       true,
		CertificateID: cert.CertificateID,
		DownloadURLs:  downloadURLs,
		GeneratedAt:   now,
	}, nil
}

func (s *service) GenerateBatch(ctx context.Context, tmpl *templates.Template, inputs []CertificateInput, formats []OutputFormat, userID *uuid.UUID) (*BulkResponse, error) {
	rows := make([]BulkRow, len(inputs))
	for i, input := range inputs {
		rows[i] = BulkRow{Input: input}
	}
	return s.GenerateBatchRows(ctx, tmpl, rows, formats, userID)
}

// GenerateBatchRows runs the pipeline once per row, sequentially. One bad row
// never aborts the batch: every row yields exactly one result, and rows that
// failed upstream parsing carry their error straight through.
func (s *service) GenerateBatchRows(ctx context.Context, tmpl *templates.Template, rows []BulkRow, formats []OutputFormat, userID *uuid.UUID) (*BulkResponse, error) {
	formats, err := normalizeFormats(formats)
	if err != nil {
		return nil, err
	}

	results := make([]BatchResult, 0, len(rows))
	successful := 0
	for i, row := range rows {
		result := s.generateBatchItem(ctx, tmpl, row, formats, userID)
		if result.Success {
			successful++
		} else {
			s.logger.Warn("batch item failed",
				zap.Int("row", i),
				zap.String("certificate_id", result.CertificateID),
				zap.String("error", result.Error))
		}
		results = append(results, result)
	}

	resp := &BulkResponse{
		Success:    successful > 0,
		Total:      len(rows),
		Successful: successful,
		Failed:     len(rows) - successful,
		Results:    results,
	}

	if successful > 0 {
		zipURL, err := s.buildArchive(ctx, results)
		if err != nil {
			// A missing archive degrades the response, it does not void the
			// certificates that were already generated.
			s.logger.Error("failed to build bulk archive", zap.Error(err))
		} else {
			resp.ZipDownloadURL = &zipURL
		}
	}
	return resp, nil
}

func (s *service) generateBatchItem(ctx context.Context, tmpl *templates.Template, row BulkRow, formats []OutputFormat, userID *uuid.UUID) BatchResult {
	id := row.Input.CertificateID
	if id == "" {
		id = "UNKNOWN"
	}
	if row.Err != nil {
		return BatchResult{CertificateID: id, Error: row.Err.Error()}
	}
	resp, err := s.GenerateOne(ctx, tmpl, row.Input, formats, userID)
	if err != nil {
		return BatchResult{CertificateID: id, Error: err.Error()}
	}
	return BatchResult{
		CertificateID: resp.CertificateID,
		Success:       true,
		DownloadURLs:  resp.DownloadURLs,
	}
}

// Preview renders the template against a permissive partial record and layers
// the editor overrides on top. Nothing is persisted.
func (s *service) Preview(ctx context.Context, tmpl *templates.Template, record PartialRecord, positions []ElementPosition, styles []ElementStyle) (string, error) {
	input := InputFromPartial(record)
	markup, err := s.renderer.Render(tmpl.HTMLContent, input.Record())
	if err != nil {
		return "", err
	}
	return InjectOverlay(markup, positions, styles)
}

// Finalize turns an editor session into a real certificate: the overlaid
// markup is what gets printed, so the stored artifacts match the preview
// exactly.
func (s *service) Finalize(ctx context.Context, tmpl *templates.Template, record PartialRecord, positions []ElementPosition, styles []ElementStyle, formats []OutputFormat, userID *uuid.UUID) (*GenerateResponse, error) {
	input := InputFromPartial(record)
	if err := input.Validate(); err != nil {
		return nil, err
	}
	formats, err := normalizeFormats(formats)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCertificateID(ctx, &input); err != nil {
		return nil, err
	}
	markup, err := s.renderer.Render(tmpl.HTMLContent, input.Record())
	if err != nil {
		return nil, err
	}
	markup, err = InjectOverlay(markup, positions, styles)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, tmpl, markup, input, formats, userID)
}

func (s *service) History(ctx context.Context, userID uuid.UUID) ([]HistoryEntry, error) {
	certs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(certs))
	for _, cert := range certs {
		entries = append(entries, s.historyEntry(ctx, cert))
	}
	return entries, nil
}

func (s *service) historyEntry(ctx context.Context, cert Certificate) HistoryEntry {
	urls := make(map[string]string)
	for format, path := range map[string]*string{
		"pdf": cert.PDFPath,
		"png": cert.PNGPath,
		"jpg": cert.JPGPath,
	} {
		if path == nil {
			continue
		}
		url, err := s.storage.DownloadURL(ctx, *path)
		if err != nil {
			s.logger.Warn("failed to resolve download url",
				zap.String("certificate_id", cert.CertificateID),
				zap.String("format", format),
				zap.Error(err))
			continue
		}
		urls[format] = url
	}
	return HistoryEntry{
		ID:            cert.ID.String(),
		CertificateID: cert.CertificateID,
		StudentName:   cert.DataField("student_name"),
		CourseName:    cert.DataField("course_name"),
		IssueDate:     cert.DataField("issue_date"),
		Status:        cert.Status,
		IsRevoked:     cert.IsRevoked,
		GeneratedAt:   cert.GeneratedAt,
		DownloadURLs:  urls,
	}
}

func (s *service) Verify(ctx context.Context, certificateID string) (*Certificate, error) {
	return s.repo.FindByCertificateID(ctx, certificateID)
}

func (s *service) Revoke(ctx context.Context, certificateID string, revokedBy *uuid.UUID, reason string) (*Certificate, error) {
	cert, err := s.repo.Revoke(ctx, certificateID, revokedBy, reason)
	if err != nil {
		return nil, err
	}
	s.logger.Info("certificate revoked", zap.String("certificate_id", certificateID))
	return cert, nil
}

func (s *service) Restore(ctx context.Context, certificateID string) (*Certificate, error) {
	cert, err := s.repo.Restore(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("certificate restored", zap.String("certificate_id", certificateID))
	return cert, nil
}
