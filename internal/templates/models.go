package templates

import (
	"time"

	"github.com/google/uuid"
)

// Template is a markup+stylesheet pair certificates are rendered from.
// Templates are owned by an administrative process and read-only to the
// generation pipeline; issued certificates keep their own input snapshot, so
// template edits never mutate already-issued documents.
type Template struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Description  string     `gorm:"type:text" json:"description,omitempty"`
	HTMLContent  string     `gorm:"type:text;not null" json:"-"`
	CSSContent   string     `gorm:"type:text" json:"-"`
	ThumbnailURL string     `gorm:"size:500" json:"thumbnail_url,omitempty"`
	IsActive     bool       `gorm:"default:true;index" json:"is_active"`
	CreatedBy    *uuid.UUID `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Template) TableName() string { return "templates" }

// ListResponse is the payload for the template listing endpoint.
type ListResponse struct {
	Templates []Template `json:"templates"`
	Total     int        `json:"total"`
}
