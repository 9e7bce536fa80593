package repository

import (
	"context"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"gorm.io/gorm"
)

type LocationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// ListActiveLocations 仓库内所有启用库位，按编码排序
func (r *LocationRepository) ListActiveLocations(ctx context.Context, tenantID, warehouseID string) ([]entity.Location, error) {
	var locations []entity.Location
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND warehouse_id = ? AND is_active = ?", tenantID, warehouseID, true).
		Order("code ASC").
		Find(&locations).Error
	return locations, err
}

func (r *LocationRepository) FindLocationsByIDs(ctx context.Context, tenantID string, ids []string) ([]entity.Location, error) {
	var locations []entity.Location
	if len(ids) == 0 {
		return locations, nil
	}
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&locations).Error
	return locations, err
}

func (r *LocationRepository) ListCompatibilityRules(ctx context.Context, tenantID, warehouseID string) ([]entity.CompatibilityRule, error) {
	var rules []entity.CompatibilityRule
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND warehouse_id = ?", tenantID, warehouseID).
		Order("created_at ASC").
		Find(&rules).Error
	return rules, err
}

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) FindProductsByIDs(ctx context.Context, tenantID string, ids []string) ([]entity.Product, error) {
	var products []entity.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Order("sku ASC").
		Find(&products).Error
	return products, err
}
