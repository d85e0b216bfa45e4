package templates

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// GetTemplate returns an active template, or nil when it does not exist
	// or is inactive.
	GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error)
	ListActive(ctx context.Context) ([]Template, error)
	Create(ctx context.Context, template *Template) error
	UpdateThumbnail(ctx context.Context, id uuid.UUID, url string) error
	Count(ctx context.Context) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	var template Template
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&template).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *gormRepository) ListActive(ctx context.Context) ([]Template, error) {
	var templates []Template
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name").
		Find(&templates).Error
	return templates, err
}

func (r *gormRepository) Create(ctx context.Context, template *Template) error {
	if template.ID == uuid.Nil {
		template.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *gormRepository) UpdateThumbnail(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).
		Model(&Template{}).
		Where("id = ?", id).
		Update("thumbnail_url", url).Error
}

func (r *gormRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Template{}).Count(&count).Error
	return count, err
}
