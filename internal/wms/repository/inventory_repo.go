package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) scoped(ctx context.Context, q PositionQuery) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entity.InventoryPosition{}).Where("tenant_id = ?", q.TenantID)
	if q.WarehouseID != "" {
		query = query.Where("warehouse_id = ?", q.WarehouseID)
	}
	if q.ProductID != "" {
		query = query.Where("product_id = ?", q.ProductID)
	}
	if q.LocationID != "" {
		query = query.Where("location_id = ?", q.LocationID)
	}
	if q.State != "" {
		query = query.Where("state = ?", q.State)
	}
	return query
}

// ListPositions 按条件查询库存位置
func (r *InventoryRepository) ListPositions(ctx context.Context, q PositionQuery) ([]entity.InventoryPosition, error) {
	var positions []entity.InventoryPosition
	err := r.scoped(ctx, q).Order("created_at ASC").Find(&positions).Error
	return positions, err
}

// SumQuantity 汇总数量
func (r *InventoryRepository) SumQuantity(ctx context.Context, q PositionQuery) (decimal.Decimal, error) {
	var result struct{ Total decimal.NullDecimal }
	err := r.scoped(ctx, q).Select("SUM(quantity) AS total").Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !result.Total.Valid {
		return decimal.Zero, nil
	}
	return result.Total.Decimal, nil
}

func (r *InventoryRepository) CreatePosition(ctx context.Context, pos *entity.InventoryPosition) error {
	if pos.ID == "" {
		pos.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(pos).Error
}

func (r *InventoryRepository) UpdatePositionQuantity(ctx context.Context, tenantID, id string, qty decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&entity.InventoryPosition{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]interface{}{
			"quantity":   qty,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ProductIDsWithInventory 仓库内有库存的商品
func (r *InventoryRepository) ProductIDsWithInventory(ctx context.Context, tenantID, warehouseID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.InventoryPosition{}).
		Where("tenant_id = ? AND warehouse_id = ? AND quantity > 0", tenantID, warehouseID).
		Distinct("product_id").
		Order("product_id ASC").
		Pluck("product_id", &ids).Error
	return ids, err
}

func (r *InventoryRepository) CreateMovement(ctx context.Context, m *entity.InventoryMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *InventoryRepository) consumption(ctx context.Context, tenantID, warehouseID, productID string, since time.Time) *gorm.DB {
	return r.db.WithContext(ctx).Model(&entity.InventoryMovement{}).
		Where("tenant_id = ? AND warehouse_id = ? AND product_id = ?", tenantID, warehouseID, productID).
		Where("movement_type IN ? AND created_at >= ?", entity.ConsumptionMovementTypes, since)
}

// SumConsumption 时间窗口内拣货+发运数量
func (r *InventoryRepository) SumConsumption(ctx context.Context, tenantID, warehouseID, productID string, since time.Time) (decimal.Decimal, error) {
	var result struct{ Total decimal.NullDecimal }
	err := r.consumption(ctx, tenantID, warehouseID, productID, since).
		Select("SUM(quantity) AS total").
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !result.Total.Valid {
		return decimal.Zero, nil
	}
	return result.Total.Decimal, nil
}

// DailyConsumption 按日汇总的消耗序列，仅包含有移动的日期
func (r *InventoryRepository) DailyConsumption(ctx context.Context, tenantID, warehouseID, productID string, since time.Time) ([]float64, error) {
	var rows []struct {
		Day   time.Time
		Total decimal.Decimal
	}
	err := r.consumption(ctx, tenantID, warehouseID, productID, since).
		Select("DATE(created_at) AS day, SUM(quantity) AS total").
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	series := make([]float64, 0, len(rows))
	for _, row := range rows {
		series = append(series, row.Total.InexactFloat64())
	}
	return series, nil
}
