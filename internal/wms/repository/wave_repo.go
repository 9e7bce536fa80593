package repository

import (
	"context"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WaveRepository struct {
	db *gorm.DB
}

func NewWaveRepository(db *gorm.DB) *WaveRepository {
	return &WaveRepository{db: db}
}

// CreateWave 创建波次及其出库单关联
func (r *WaveRepository) CreateWave(ctx context.Context, w *entity.Wave) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	for i := range w.Orders {
		if w.Orders[i].ID == "" {
			w.Orders[i].ID = uuid.New().String()
		}
		w.Orders[i].WaveID = w.ID
	}
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *WaveRepository) FindWaveByID(ctx context.Context, tenantID, id string) (*entity.Wave, error) {
	var w entity.Wave
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Preload("Orders", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		First(&w).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (r *WaveRepository) ListWaves(ctx context.Context, params WaveListParams) ([]entity.Wave, int64, error) {
	var waves []entity.Wave
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Wave{}).Where("tenant_id = ?", params.TenantID)
	if params.WarehouseID != "" {
		query = query.Where("warehouse_id = ?", params.WarehouseID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, size := normalizePage(params.Page, params.Size)
	err := query.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&waves).Error
	return waves, total, err
}

// UpdateWave 只更新波次本身，关联记录不变
func (r *WaveRepository) UpdateWave(ctx context.Context, w *entity.Wave) error {
	return r.db.WithContext(ctx).Omit("Orders").Save(w).Error
}
