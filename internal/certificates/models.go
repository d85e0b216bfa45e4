package certificates

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Status is the lifecycle state of a generation record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusGenerated Status = "generated"
	StatusFailed    Status = "failed"
)

// OutputFormat enumerates the artifact formats the pipeline can produce.
type OutputFormat string

const (
	FormatPDF  OutputFormat = "pdf"
	FormatPNG  OutputFormat = "png"
	FormatJPG  OutputFormat = "jpg"
	FormatJPEG OutputFormat = "jpeg"
)

func (f OutputFormat) Valid() bool {
	switch f {
	case FormatPDF, FormatPNG, FormatJPG, FormatJPEG:
		return true
	}
	return false
}

// Certificate is the persistent generation record. It is created only after
// every requested format has been durably stored, mutated only by
// revoke/restore, and never physically deleted by the pipeline.
type Certificate struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	CertificateID string            `gorm:"size:50;uniqueIndex;not null" json:"certificate_id"`
	UserID        *uuid.UUID        `gorm:"type:uuid;index" json:"user_id,omitempty"`
	TemplateID    *uuid.UUID        `gorm:"type:uuid" json:"template_id,omitempty"`
	Data          datatypes.JSONMap `gorm:"not null" json:"data"`
	PDFPath       *string           `gorm:"size:500" json:"pdf_path,omitempty"`
	PNGPath       *string           `gorm:"size:500" json:"png_path,omitempty"`
	JPGPath       *string           `gorm:"size:500" json:"jpg_path,omitempty"`
	Status        Status            `gorm:"size:20;default:pending;index" json:"status"`
	IsRevoked     bool              `gorm:"default:false" json:"is_revoked"`
	RevokedAt     *time.Time        `json:"revoked_at,omitempty"`
	RevokedBy     *uuid.UUID        `gorm:"type:uuid" json:"revoked_by,omitempty"`
	RevokeReason  *string           `gorm:"type:text" json:"revoke_reason,omitempty"`
	GeneratedAt   *time.Time        `json:"generated_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (Certificate) TableName() string { return "certificates" }

// DataField reads a string field from the persisted input snapshot.
func (c *Certificate) DataField(key string) string {
	if c.Data == nil {
		return ""
	}
	if v, ok := c.Data[key].(string); ok {
		return v
	}
	return ""
}

var issueDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// CertificateInput is the validated, immutable record a certificate is
// rendered from.
type CertificateInput struct {
	StudentName         string `json:"student_name"`
	CourseName          string `json:"course_name"`
	IssueDate           string `json:"issue_date"`
	CertificateID       string `json:"certificate_id,omitempty"`
	IssuingAuthority    string `json:"issuing_authority"`
	SignatureName       string `json:"signature_name,omitempty"`
	SignatureImageURL   string `json:"signature_image_url,omitempty"`
	LogoURL             string `json:"logo_url,omitempty"`
	CustomBody          string `json:"custom_body,omitempty"`
	CertificateTitle    string `json:"certificate_title,omitempty"`
	CertificateSubtitle string `json:"certificate_subtitle,omitempty"`
	DescriptionText     string `json:"description_text,omitempty"`
}

// Validate rejects bad input before it enters the pipeline.
func (in *CertificateInput) Validate() error {
	required := []struct{ field, value string }{
		{"student_name", in.StudentName},
		{"course_name", in.CourseName},
		{"issue_date", in.IssueDate},
		{"issuing_authority", in.IssuingAuthority},
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{Field: r.field, Reason: "is required"}
		}
	}
	limits := []struct {
		field string
		value string
		max   int
	}{
		{"student_name", in.StudentName, 255},
		{"course_name", in.CourseName, 255},
		{"issuing_authority", in.IssuingAuthority, 255},
		{"certificate_id", in.CertificateID, 50},
		{"certificate_title", in.CertificateTitle, 100},
		{"certificate_subtitle", in.CertificateSubtitle, 100},
		{"custom_body", in.CustomBody, 500},
		{"description_text", in.DescriptionText, 500},
	}
	for _, l := range limits {
		if len(l.value) > l.max {
			return &ValidationError{Field: l.field, Reason: "too long"}
		}
	}
	if !issueDatePattern.MatchString(in.IssueDate) {
		return &ValidationError{Field: "issue_date", Reason: "must be YYYY-MM-DD"}
	}
	return nil
}

// Record flattens the input into the renderer's string map.
func (in *CertificateInput) Record() map[string]string {
	return map[string]string{
		"student_name":         in.StudentName,
		"course_name":          in.CourseName,
		"issue_date":           in.IssueDate,
		"certificate_id":       in.CertificateID,
		"issuing_authority":    in.IssuingAuthority,
		"signature_name":       in.SignatureName,
		"signature_image_url":  in.SignatureImageURL,
		"logo_url":             in.LogoURL,
		"custom_body":          in.CustomBody,
		"certificate_title":    in.CertificateTitle,
		"certificate_subtitle": in.CertificateSubtitle,
		"description_text":     in.DescriptionText,
	}
}

// Snapshot is the audit copy persisted on the generation record.
func (in *CertificateInput) Snapshot() datatypes.JSONMap {
	snapshot := datatypes.JSONMap{}
	for key, value := range in.Record() {
		if value != "" {
			snapshot[key] = value
		}
	}
	return snapshot
}

// PartialRecord is the permissive editor-side record: every field optional,
// used for preview-only rendering.
type PartialRecord map[string]string

// InputFromPartial bridges a partial record into the strict input shape,
// defaulting missing fields to empty strings. Display-only callers skip
// Validate; finalization validates the result.
func InputFromPartial(record PartialRecord) CertificateInput {
	return CertificateInput{
		StudentName:         record["student_name"],
		CourseName:          record["course_name"],
		IssueDate:           record["issue_date"],
		CertificateID:       record["certificate_id"],
		IssuingAuthority:    record["issuing_authority"],
		SignatureName:       record["signature_name"],
		SignatureImageURL:   record["signature_image_url"],
		LogoURL:             record["logo_url"],
		CustomBody:          record["custom_body"],
		CertificateTitle:    record["certificate_title"],
		CertificateSubtitle: record["certificate_subtitle"],
		DescriptionText:     record["description_text"],
	}
}

// ElementPosition is a drag override for one editable element, in pixels.
type ElementPosition struct {
	ElementID string  `json:"element_id" binding:"required"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// ElementStyle is a style override for one editable element. Only non-empty
// properties are emitted.
type ElementStyle struct {
	ElementID  string `json:"element_id" binding:"required"`
	FontSize   string `json:"font_size,omitempty"`
	Color      string `json:"color,omitempty"`
	FontWeight string `json:"font_weight,omitempty"`
	TextAlign  string `json:"text_align,omitempty"`
}

// Request/response shapes.

type GenerateRequest struct {
	TemplateID      string           `json:"template_id" binding:"required"`
	CertificateData CertificateInput `json:"certificate_data" binding:"required"`
	OutputFormats   []OutputFormat   `json:"output_formats"`
}

type GenerateResponse struct {
	Success       bool              `json:"success"`
	CertificateID string            `json:"certificate_id"`
	DownloadURLs  map[string]string `json:"download_urls"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

type BulkRequest struct {
	TemplateID    string             `json:"template_id" binding:"required"`
	Certificates  []CertificateInput `json:"certificates" binding:"required"`
	OutputFormats []OutputFormat     `json:"output_formats"`
}

// BatchResult is the per-input outcome of a bulk run. Every attempted record
// yields exactly one result.
type BatchResult struct {
	CertificateID string            `json:"certificate_id"`
	Success       bool              `json:"success"`
	Error         string            `json:"error,omitempty"`
	DownloadURLs  map[string]string `json:"download_urls,omitempty"`
}

type BulkResponse struct {
	Success        bool          `json:"success"`
	Total          int           `json:"total"`
	Successful     int           `json:"successful"`
	Failed         int           `json:"failed"`
	Results        []BatchResult `json:"results"`
	ZipDownloadURL *string       `json:"zip_download_url"`
}

type PreviewRequest struct {
	TemplateID       string            `json:"template_id" binding:"required"`
	CertificateData  PartialRecord     `json:"certificate_data"`
	ElementPositions []ElementPosition `json:"element_positions,omitempty"`
	ElementStyles    []ElementStyle    `json:"element_styles,omitempty"`
}

type PreviewResponse struct {
	HTML         string `json:"html"`
	TemplateID   string `json:"template_id"`
	TemplateName string `json:"template_name"`
}

type FinalizeRequest struct {
	TemplateID       string            `json:"template_id" binding:"required"`
	CertificateData  PartialRecord     `json:"certificate_data"`
	ElementPositions []ElementPosition `json:"element_positions,omitempty"`
	ElementStyles    []ElementStyle    `json:"element_styles,omitempty"`
	OutputFormats    []OutputFormat    `json:"output_formats"`
}

type RevokeRequest struct {
	Reason string `json:"reason"`
}

// HistoryEntry is one row of a user's generation history.
type HistoryEntry struct {
	ID            string            `json:"id"`
	CertificateID string            `json:"certificate_id"`
	StudentName   string            `json:"student_name"`
	CourseName    string            `json:"course_name"`
	IssueDate     string            `json:"issue_date"`
	Status        Status            `json:"status"`
	IsRevoked     bool              `json:"is_revoked"`
	GeneratedAt   *time.Time        `json:"generated_at,omitempty"`
	DownloadURLs  map[string]string `json:"download_urls"`
}
