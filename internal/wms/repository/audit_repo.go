package repository

import (
	"context"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) CreateAuditEvent(ctx context.Context, e *entity.AuditEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(e).Error
}
