package repository

import (
	"context"

	"gorm.io/gorm"

	"secdash/internal/model"
)

// AuditLogRepository is append-only: entries are created and read, never
// updated or deleted.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, limit int) ([]model.AuditLog, error)
	ListByUsername(ctx context.Context, username string, limit int) ([]model.AuditLog, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	return translate(r.db.WithContext(ctx).Omit("User").Create(entry).Error)
}

// List returns the newest entries first, ties broken by id.
func (r *auditLogRepository) List(ctx context.Context, limit int) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, translate(err)
	}
	return entries, nil
}

func (r *auditLogRepository) ListByUsername(ctx context.Context, username string, limit int) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, translate(err)
	}
	return entries, nil
}
