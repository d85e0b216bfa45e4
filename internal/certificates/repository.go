package certificates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Repository persists generation records.
type Repository interface {
	CertificateIDExists(ctx context.Context, certificateID string) (bool, error)
	// Insert creates the generation record. A unique-constraint violation on
	// the certificate identifier surfaces as ErrDuplicateCertificateID.
	Insert(ctx context.Context, cert *Certificate) error
	FindByCertificateID(ctx context.Context, certificateID string) (*Certificate, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Certificate, error)
	Revoke(ctx context.Context, certificateID string, revokedBy *uuid.UUID, reason string) (*Certificate, error)
	Restore(ctx context.Context, certificateID string) (*Certificate, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CertificateIDExists(ctx context.Context, certificateID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Certificate{}).
		Where("certificate_id = ?", certificateID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check certificate id: %w", err)
	}
	return count > 0, nil
}

func (r *gormRepository) Insert(ctx context.Context, cert *Certificate) error {
	if cert.ID == uuid.Nil {
		cert.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(cert).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateCertificateID
		}
		return fmt.Errorf("failed to insert certificate: %w", err)
	}
	return nil
}

// isDuplicateKey recognizes unique violations both through gorm's error
// translation and the raw postgres error code.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *gormRepository) FindByCertificateID(ctx context.Context, certificateID string) (*Certificate, error) {
	var cert Certificate
	err := r.db.WithContext(ctx).
		Where("certificate_id = ?", certificateID).
		First(&cert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCertificateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	return &cert, nil
}

func (r *gormRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Certificate, error) {
	var certs []Certificate
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&certs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	return certs, nil
}

func (r *gormRepository) Revoke(ctx context.Context, certificateID string, revokedBy *uuid.UUID, reason string) (*Certificate, error) {
	cert, err := r.FindByCertificateID(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if cert.IsRevoked {
		return nil, ErrAlreadyRevoked
	}
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"is_revoked": true,
		"revoked_at": now,
		"revoked_by": revokedBy,
	}
	if reason != "" {
		updates["revoke_reason"] = reason
	}
	err = r.db.WithContext(ctx).
		Model(cert).
		Updates(updates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to revoke certificate: %w", err)
	}
	cert.IsRevoked = true
	cert.RevokedAt = &now
	cert.RevokedBy = revokedBy
	if reason != "" {
		cert.RevokeReason = &reason
	}
	return cert, nil
}

func (r *gormRepository) Restore(ctx context.Context, certificateID string) (*Certificate, error) {
	cert, err := r.FindByCertificateID(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if !cert.IsRevoked {
		return nil, ErrNotRevoked
	}
	err = r.db.WithContext(ctx).
		Model(cert).
		Updates(map[string]interface{}{
			"is_revoked":    false,
			"revoked_at":    nil,
			"revoked_by":    nil,
			"revoke_reason": nil,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to restore certificate: %w", err)
	}
	cert.IsRevoked = false
	cert.RevokedAt = nil
	cert.RevokedBy = nil
	cert.RevokeReason = nil
	return cert, nil
}
