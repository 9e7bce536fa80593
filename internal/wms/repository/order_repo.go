package repository

import (
	"context"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func withLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// ListWaveableOrders 按创建时间升序返回可组波的出库单（含明细）
func (r *OrderRepository) ListWaveableOrders(ctx context.Context, q OrderQuery) ([]entity.OutboundOrder, error) {
	var orders []entity.OutboundOrder
	statuses := q.Statuses
	if len(statuses) == 0 {
		statuses = entity.WaveableOrderStatuses
	}

	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND warehouse_id = ?", q.TenantID, q.WarehouseID).
		Where("status IN ?", statuses)
	if q.CarrierCode != "" {
		query = query.Where("carrier_code = ?", q.CarrierCode)
	}
	if q.RouteCode != "" {
		query = query.Where("route_code = ?", q.RouteCode)
	}
	if q.ZoneCode != "" {
		query = query.Where("zone_code = ?", q.ZoneCode)
	}
	if q.ShipDateFrom != nil {
		query = query.Where("requested_ship_date >= ?", *q.ShipDateFrom)
	}
	if q.ShipDateTo != nil {
		query = query.Where("requested_ship_date <= ?", *q.ShipDateTo)
	}
	if q.MinPriority != nil {
		query = query.Where("priority >= ?", *q.MinPriority)
	}

	err := query.Preload("Lines", withLines).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

func (r *OrderRepository) FindOrdersByIDs(ctx context.Context, tenantID string, ids []string) ([]entity.OutboundOrder, error) {
	var orders []entity.OutboundOrder
	if len(ids) == 0 {
		return orders, nil
	}
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Preload("Lines", withLines).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}
