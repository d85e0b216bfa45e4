package certificates

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"networkers-home/certificate-portal/certificate-portal-backend/internal/auth"
	"networkers-home/certificate-portal/certificate-portal-backend/internal/certificates/export"
	"networkers-home/certificate-portal/certificate-portal-backend/internal/templates"
)

type Handler struct {
	service   Service
	templates templates.Repository
	logger    *zap.Logger
}

func NewHandler(service Service, templateRepo templates.Repository, logger *zap.Logger) *Handler {
	return &Handler{service: service, templates: templateRepo, logger: logger}
}

// RegisterPublicRoutes mounts the endpoints that need no authentication.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/certificates/verify/:certificate_id", h.Verify)
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	certs := rg.Group("/certificates")
	{
		certs.POST("/generate", h.Generate)
		certs.POST("/bulk-generate", h.BulkGenerate)
		certs.POST("/bulk-generate/csv", h.BulkGenerateCSV)
		certs.POST("/bulk-generate/xlsx", h.BulkGenerateXLSX)
		certs.POST("/preview", h.Preview)
		certs.POST("/finalize", h.Finalize)
		certs.GET("/history", h.History)
		certs.GET("/history/export", h.ExportHistory)
		certs.POST("/:certificate_id/revoke", h.Revoke)
		certs.POST("/:certificate_id/restore", h.Restore)
	}
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	var validation *ValidationError
	var syntax *TemplateSyntaxError
	switch {
	case errors.As(err, &validation), errors.As(err, &syntax):
		return http.StatusBadRequest
	case errors.Is(err, ErrTemplateNotFound), errors.Is(err, ErrCertificateNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateCertificateID),
		errors.Is(err, ErrAlreadyRevoked),
		errors.Is(err, ErrNotRevoked):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// principal resolves the authenticated user id, or nil for subjects that are
// not UUIDs.
func principal(c *gin.Context) *uuid.UUID {
	subject, ok := auth.PrincipalFrom(c)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		return nil
	}
	return &id
}

func (h *Handler) templateByID(c *gin.Context, raw string) (*templates.Template, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, &ValidationError{Field: "template_id", Reason: "must be a uuid"}
	}
	tmpl, err := h.templates.GetTemplate(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, ErrTemplateNotFound
	}
	return tmpl, nil
}

func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	tmpl, err := h.templateByID(c, req.TemplateID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp, err := h.service.GenerateOne(c.Request.Context(), tmpl, req.CertificateData, req.OutputFormats, principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) BulkGenerate(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Certificates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "certificates list is empty"})
		return
	}
	tmpl, err := h.templateByID(c, req.TemplateID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp, err := h.service.GenerateBatch(c.Request.Context(), tmpl, req.Certificates, req.OutputFormats, principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) BulkGenerateCSV(c *gin.Context) {
	h.bulkGenerateUpload(c, ParseCSV)
}

func (h *Handler) BulkGenerateXLSX(c *gin.Context) {
	h.bulkGenerateUpload(c, ParseXLSX)
}

func (h *Handler) bulkGenerateUpload(c *gin.Context, parse func(r io.Reader) ([]BulkRow, error)) {
	tmpl, err := h.templateByID(c, c.PostForm("template_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	formats, err := formatsFromForm(c.PostFormArray("output_formats"))
	if err != nil {
		h.fail(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer file.Close()

	rows, err := parse(file)
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "upload contains no data rows"})
		return
	}

	resp, err := h.service.GenerateBatchRows(c.Request.Context(), tmpl, rows, formats, principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func formatsFromForm(raw []string) ([]OutputFormat, error) {
	formats := make([]OutputFormat, 0, len(raw))
	for _, value := range raw {
		format := OutputFormat(value)
		if !format.Valid() {
			return nil, &ValidationError{Field: "output_formats", Reason: fmt.Sprintf("unsupported format %q", value)}
		}
		formats = append(formats, format)
	}
	return formats, nil
}

func (h *Handler) Preview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	tmpl, err := h.templateByID(c, req.TemplateID)
	if err != nil {
		h.fail(c, err)
		return
	}
	markup, err := h.service.Preview(c.Request.Context(), tmpl, req.CertificateData, req.ElementPositions, req.ElementStyles)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, PreviewResponse{
		HTML:         markup,
		TemplateID:   tmpl.ID.String(),
		TemplateName: tmpl.Name,
	})
}

func (h *Handler) Finalize(c *gin.Context) {
	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	tmpl, err := h.templateByID(c, req.TemplateID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp, err := h.service.Finalize(c.Request.Context(), tmpl, req.CertificateData, req.ElementPositions, req.ElementStyles, req.OutputFormats, principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) History(c *gin.Context) {
	userID := principal(c)
	if userID == nil {
		c.JSON(http.StatusOK, gin.H{"certificates": []HistoryEntry{}, "total": 0})
		return
	}
	entries, err := h.service.History(c.Request.Context(), *userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"certificates": entries, "total": len(entries)})
}

func (h *Handler) ExportHistory(c *gin.Context) {
	userID := principal(c)
	if userID == nil {
		c.JSON(http.StatusOK, gin.H{"certificates": []HistoryEntry{}, "total": 0})
		return
	}
	entries, err := h.service.History(c.Request.Context(), *userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	rows := registerRows(entries)
	filename := "certificate-register-" + time.Now().UTC().Format("20060102")

	switch c.DefaultQuery("format", "csv") {
	case "csv":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		c.Header("Content-Type", "text/csv")
		err = export.WriteCSV(c.Writer, rows)
	case "xlsx":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", filename))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		err = export.WriteExcel(c.Writer, rows)
	case "pdf":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", filename))
		c.Header("Content-Type", "application/pdf")
		err = export.WritePDF(c.Writer, "Certificate Register", rows)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv, xlsx or pdf"})
		return
	}
	if err != nil {
		h.logger.Error("failed to export history", zap.Error(err))
	}
}

func registerRows(entries []HistoryEntry) []map[string]string {
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		revoked := "no"
		if entry.IsRevoked {
			revoked = "yes"
		}
		rows = append(rows, map[string]string{
			"certificate_id": entry.CertificateID,
			"student_name":   entry.StudentName,
			"course_name":    entry.CourseName,
			"issue_date":     entry.IssueDate,
			"status":         string(entry.Status),
			"revoked":        revoked,
		})
	}
	return rows
}

func (h *Handler) Verify(c *gin.Context) {
	cert, err := h.service.Verify(c.Request.Context(), c.Param("certificate_id"))
	if errors.Is(err, ErrCertificateNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"valid": false, "error": "certificate not found"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := gin.H{
		"valid":             !cert.IsRevoked,
		"certificate_id":    cert.CertificateID,
		"student_name":      cert.DataField("student_name"),
		"course_name":       cert.DataField("course_name"),
		"issue_date":        cert.DataField("issue_date"),
		"issuing_authority": cert.DataField("issuing_authority"),
		"is_revoked":        cert.IsRevoked,
		"generated_at":      cert.GeneratedAt,
	}
	if cert.IsRevoked && cert.RevokeReason != nil {
		resp["revoke_reason"] = *cert.RevokeReason
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Revoke(c *gin.Context) {
	var req RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	cert, err := h.service.Revoke(c.Request.Context(), c.Param("certificate_id"), principal(c), req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "certificate": cert})
}

func (h *Handler) Restore(c *gin.Context) {
	cert, err := h.service.Restore(c.Request.Context(), c.Param("certificate_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "certificate": cert})
}
