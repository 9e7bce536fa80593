package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SlottingRepository struct {
	db *gorm.DB
}

func NewSlottingRepository(db *gorm.DB) *SlottingRepository {
	return &SlottingRepository{db: db}
}

// ========== 参数 ==========

func (r *SlottingRepository) CreateConfig(ctx context.Context, cfg *entity.SlottingConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(cfg).Error
}

func (r *SlottingRepository) UpdateConfig(ctx context.Context, cfg *entity.SlottingConfig) error {
	return r.db.WithContext(ctx).Save(cfg).Error
}

func (r *SlottingRepository) FindConfigByID(ctx context.Context, tenantID, id string) (*entity.SlottingConfig, error) {
	var cfg entity.SlottingConfig
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&cfg).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &cfg, nil
}

// FindActiveConfig 仓库当前生效的参数，多条时取最新
func (r *SlottingRepository) FindActiveConfig(ctx context.Context, tenantID, warehouseID string) (*entity.SlottingConfig, error) {
	var cfg entity.SlottingConfig
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND warehouse_id = ? AND is_active = ?", tenantID, warehouseID, true).
		Order("created_at DESC").
		First(&cfg).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &cfg, nil
}

func (r *SlottingRepository) ListConfigs(ctx context.Context, tenantID, warehouseID string) ([]entity.SlottingConfig, error) {
	var configs []entity.SlottingConfig
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if warehouseID != "" {
		query = query.Where("warehouse_id = ?", warehouseID)
	}
	err := query.Order("created_at DESC").Find(&configs).Error
	return configs, err
}

// DeactivateOtherConfigs 同一仓库只保留一条生效参数
func (r *SlottingRepository) DeactivateOtherConfigs(ctx context.Context, tenantID, warehouseID, keepID string) error {
	return r.db.WithContext(ctx).Model(&entity.SlottingConfig{}).
		Where("tenant_id = ? AND warehouse_id = ? AND id <> ? AND is_active = ?", tenantID, warehouseID, keepID, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		}).Error
}

// ========== 推荐 ==========

func (r *SlottingRepository) CreateRecommendations(ctx context.Context, recs []entity.SlottingRecommendation) error {
	if len(recs) == 0 {
		return nil
	}
	for i := range recs {
		if recs[i].ID == "" {
			recs[i].ID = uuid.New().String()
		}
	}
	return r.db.WithContext(ctx).CreateInBatches(&recs, 100).Error
}

func (r *SlottingRepository) FindRecommendationByID(ctx context.Context, tenantID, id string) (*entity.SlottingRecommendation, error) {
	var rec entity.SlottingRecommendation
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&rec).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

func (r *SlottingRepository) ListRecommendations(ctx context.Context, params RecommendationListParams) ([]entity.SlottingRecommendation, int64, error) {
	var recs []entity.SlottingRecommendation
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.SlottingRecommendation{}).Where("tenant_id = ?", params.TenantID)
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
		Find(&recs).Error
	return recs, total, err
}

func (r *SlottingRepository) TransitionRecommendation(ctx context.Context, tenantID, id string, from, to entity.RecommendationStatus, actorID string, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	if to == entity.RecommendationStatusExecuted {
		updates["executed_at"] = at
	} else {
		updates["decided_by"] = actorID
		updates["decided_at"] = at
	}
	res := r.db.WithContext(ctx).Model(&entity.SlottingRecommendation{}).
		Where("tenant_id = ? AND id = ? AND status = ?", tenantID, id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
