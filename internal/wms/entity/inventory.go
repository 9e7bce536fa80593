package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryState 库存状态
type InventoryState string

const (
	InventoryStateAvailable  InventoryState = "AVAILABLE"
	InventoryStateReserved   InventoryState = "RESERVED"
	InventoryStateQuarantine InventoryState = "QUARANTINE"
)

// MovementType 库存移动类型
type MovementType string

const (
	MovementTypeReceipt  MovementType = "RECEIPT"  // 入库
	MovementTypePick     MovementType = "PICK"     // 拣货
	MovementTypeShip     MovementType = "SHIP"     // 发运
	MovementTypeTransfer MovementType = "TRANSFER" // 移库
	MovementTypeAdjust   MovementType = "ADJUST"   // 调整
)

// ConsumptionMovementTypes 计入消耗量的移动类型
var ConsumptionMovementTypes = []MovementType{MovementTypePick, MovementTypeShip}

// Lot 批次
type Lot struct {
	ID         string     `json:"id" gorm:"primaryKey;size:36"`
	TenantID   string     `json:"tenant_id" gorm:"size:36;not null;index"`
	ProductID  string     `json:"product_id" gorm:"size:36;not null;index"`
	LotNumber  string     `json:"lot_number" gorm:"size:64;not null"`
	ExpiryDate *time.Time `json:"expiry_date"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (Lot) TableName() string {
	return "wms_lots"
}

// InventoryPosition 库存位置：(商品, 库位, 批次?) → 数量
type InventoryPosition struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	TenantID    string          `json:"tenant_id" gorm:"size:36;not null;index:idx_wms_position_scope"`
	WarehouseID string          `json:"warehouse_id" gorm:"size:36;not null;index:idx_wms_position_scope"`
	ProductID   string          `json:"product_id" gorm:"size:36;not null;index"`
	LocationID  string          `json:"location_id" gorm:"size:36;not null;index"`
	LotID       *string         `json:"lot_id" gorm:"size:36"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:decimal(18,4);not null;default:0"`
	UOM         string          `json:"uom" gorm:"size:20"`
	State       InventoryState  `json:"state" gorm:"size:20;not null;default:AVAILABLE"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (InventoryPosition) TableName() string {
	return "wms_inventory_positions"
}

// InventoryMovement 库存移动流水
type InventoryMovement struct {
	ID             string          `json:"id" gorm:"primaryKey;size:36"`
	TenantID       string          `json:"tenant_id" gorm:"size:36;not null;index:idx_wms_movement_scope"`
	WarehouseID    string          `json:"warehouse_id" gorm:"size:36;not null;index:idx_wms_movement_scope"`
	ProductID      string          `json:"product_id" gorm:"size:36;not null;index:idx_wms_movement_scope"`
	FromLocationID *string         `json:"from_location_id" gorm:"size:36"`
	ToLocationID   *string         `json:"to_location_id" gorm:"size:36"`
	LotID          *string         `json:"lot_id" gorm:"size:36"`
	Quantity       decimal.Decimal `json:"quantity" gorm:"type:decimal(18,4);not null"`
	MovementType   MovementType    `json:"movement_type" gorm:"size:20;not null"`
	ReferenceType  string          `json:"reference_type" gorm:"size:50"`
	ReferenceID    string          `json:"reference_id" gorm:"size:64"`
	CreatedBy      string          `json:"created_by" gorm:"size:64"`
	CreatedAt      time.Time       `json:"created_at" gorm:"index"`
}

func (InventoryMovement) TableName() string {
	return "wms_inventory_movements"
}
