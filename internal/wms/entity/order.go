package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OutboundOrderStatus 出库单状态
type OutboundOrderStatus string

const (
	OrderStatusDraft              OutboundOrderStatus = "DRAFT"
	OrderStatusConfirmed          OutboundOrderStatus = "CONFIRMED"
	OrderStatusPartiallyAllocated OutboundOrderStatus = "PARTIALLY_ALLOCATED"
	OrderStatusAllocated          OutboundOrderStatus = "ALLOCATED"
	OrderStatusPicking            OutboundOrderStatus = "PICKING"
	OrderStatusShipped            OutboundOrderStatus = "SHIPPED"
	OrderStatusCancelled          OutboundOrderStatus = "CANCELLED"
)

// WaveableOrderStatuses 可以进入波次的出库单状态
var WaveableOrderStatuses = []OutboundOrderStatus{
	OrderStatusConfirmed,
	OrderStatusPartiallyAllocated,
	OrderStatusAllocated,
}

// OutboundOrder 出库单（由订单模块维护，此处只读）
type OutboundOrder struct {
	ID                string              `json:"id" gorm:"primaryKey;size:36"`
	TenantID          string              `json:"tenant_id" gorm:"size:36;not null;index:idx_wms_order_scope"`
	WarehouseID       string              `json:"warehouse_id" gorm:"size:36;not null;index:idx_wms_order_scope"`
	OrderNumber       string              `json:"order_number" gorm:"size:50;not null"`
	Status            OutboundOrderStatus `json:"status" gorm:"size:30;not null;index"`
	CarrierCode       *string             `json:"carrier_code" gorm:"size:50"`
	RouteCode         *string             `json:"route_code" gorm:"size:50"`
	ZoneCode          *string             `json:"zone_code" gorm:"size:50"`
	RequestedShipDate *time.Time          `json:"requested_ship_date"`
	Priority          *int                `json:"priority"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`

	Lines []OutboundOrderLine `json:"lines,omitempty" gorm:"foreignKey:OrderID"`
}

func (OutboundOrder) TableName() string {
	return "wms_outbound_orders"
}

// OutboundOrderLine 出库单行
type OutboundOrderLine struct {
	ID        string          `json:"id" gorm:"primaryKey;size:36"`
	OrderID   string          `json:"order_id" gorm:"size:36;not null;index"`
	LineNo    int             `json:"line_no" gorm:"not null"`
	ProductID string          `json:"product_id" gorm:"size:36;not null"`
	LotID     *string         `json:"lot_id" gorm:"size:36"`
	Quantity  decimal.Decimal `json:"quantity" gorm:"type:decimal(18,4);not null"`
	UOM       string          `json:"uom" gorm:"size:20"`
	CreatedAt time.Time       `json:"created_at"`
}

func (OutboundOrderLine) TableName() string {
	return "wms_outbound_order_lines"
}

// TotalUnits 出库单总件数
func (o *OutboundOrder) TotalUnits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Quantity)
	}
	return total
}
