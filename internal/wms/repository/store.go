package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/shopspring/decimal"
)

// LocationStore 库位与兼容规则
type LocationStore interface {
	ListActiveLocations(ctx context.Context, tenantID, warehouseID string) ([]entity.Location, error)
	FindLocationsByIDs(ctx context.Context, tenantID string, ids []string) ([]entity.Location, error)
	ListCompatibilityRules(ctx context.Context, tenantID, warehouseID string) ([]entity.CompatibilityRule, error)
}

// ProductStore 商品
type ProductStore interface {
	FindProductsByIDs(ctx context.Context, tenantID string, ids []string) ([]entity.Product, error)
}

// PositionQuery 库存查询条件，空字段不过滤
type PositionQuery struct {
	TenantID    string
	WarehouseID string
	ProductID   string
	LocationID  string
	State       entity.InventoryState
}

// InventoryStore 库存位置与移动流水
type InventoryStore interface {
	ListPositions(ctx context.Context, q PositionQuery) ([]entity.InventoryPosition, error)
	SumQuantity(ctx context.Context, q PositionQuery) (decimal.Decimal, error)
	CreatePosition(ctx context.Context, pos *entity.InventoryPosition) error
	UpdatePositionQuantity(ctx context.Context, tenantID, id string, qty decimal.Decimal) error
	ProductIDsWithInventory(ctx context.Context, tenantID, warehouseID string) ([]string, error)

	CreateMovement(ctx context.Context, m *entity.InventoryMovement) error
	SumConsumption(ctx context.Context, tenantID, warehouseID, productID string, since time.Time) (decimal.Decimal, error)
	DailyConsumption(ctx context.Context, tenantID, warehouseID, productID string, since time.Time) ([]float64, error)
}

// RecommendationListParams 推荐列表查询参数
type RecommendationListParams struct {
	TenantID    string
	WarehouseID string
	Status      entity.RecommendationStatus
	Page        int
	Size        int
}

// SlottingStore 货位优化参数与推荐
type SlottingStore interface {
	CreateConfig(ctx context.Context, cfg *entity.SlottingConfig) error
	UpdateConfig(ctx context.Context, cfg *entity.SlottingConfig) error
	FindConfigByID(ctx context.Context, tenantID, id string) (*entity.SlottingConfig, error)
	FindActiveConfig(ctx context.Context, tenantID, warehouseID string) (*entity.SlottingConfig, error)
	ListConfigs(ctx context.Context, tenantID, warehouseID string) ([]entity.SlottingConfig, error)
	DeactivateOtherConfigs(ctx context.Context, tenantID, warehouseID, keepID string) error

	CreateRecommendations(ctx context.Context, recs []entity.SlottingRecommendation) error
	FindRecommendationByID(ctx context.Context, tenantID, id string) (*entity.SlottingRecommendation, error)
	ListRecommendations(ctx context.Context, params RecommendationListParams) ([]entity.SlottingRecommendation, int64, error)
	// TransitionRecommendation 条件更新状态，仅当当前状态为 from 时生效，返回是否更新
	TransitionRecommendation(ctx context.Context, tenantID, id string, from, to entity.RecommendationStatus, actorID string, at time.Time) (bool, error)
}

// OrderQuery 可组波出库单查询条件
type OrderQuery struct {
	TenantID     string
	WarehouseID  string
	Statuses     []entity.OutboundOrderStatus
	CarrierCode  string
	RouteCode    string
	ZoneCode     string
	ShipDateFrom *time.Time
	ShipDateTo   *time.Time
	MinPriority  *int
}

// OrderStore 出库单（只读）
type OrderStore interface {
	ListWaveableOrders(ctx context.Context, q OrderQuery) ([]entity.OutboundOrder, error)
	FindOrdersByIDs(ctx context.Context, tenantID string, ids []string) ([]entity.OutboundOrder, error)
}

// WaveListParams 波次列表查询参数
type WaveListParams struct {
	TenantID    string
	WarehouseID string
	Status      entity.WaveStatus
	Page        int
	Size        int
}

// WaveStore 波次
type WaveStore interface {
	CreateWave(ctx context.Context, w *entity.Wave) error
	FindWaveByID(ctx context.Context, tenantID, id string) (*entity.Wave, error)
	ListWaves(ctx context.Context, params WaveListParams) ([]entity.Wave, int64, error)
	UpdateWave(ctx context.Context, w *entity.Wave) error
}

// PickingStore 拣货任务与路径
type PickingStore interface {
	CreateTask(ctx context.Context, task *entity.PickingTask) error
	ListTaskLinesByWave(ctx context.Context, tenantID, waveID string) ([]entity.PickingTaskLine, error)
	UpsertPath(ctx context.Context, path *entity.PickingPath) error
	FindPathByWave(ctx context.Context, tenantID, waveID string) (*entity.PickingPath, error)
}

// AuditStore 审计日志（只追加）
type AuditStore interface {
	CreateAuditEvent(ctx context.Context, e *entity.AuditEvent) error
}

// Tx 事务内可用的仓储
type Tx interface {
	Inventory() InventoryStore
	Slotting() SlottingStore
	Waves() WaveStore
	Picking() PickingStore
}

// UnitOfWork 原子执行；fn 返回错误时整体回滚
type UnitOfWork interface {
	RunAtomic(ctx context.Context, fn func(tx Tx) error) error
}

var (
	_ LocationStore  = (*LocationRepository)(nil)
	_ ProductStore   = (*ProductRepository)(nil)
	_ InventoryStore = (*InventoryRepository)(nil)
	_ SlottingStore  = (*SlottingRepository)(nil)
	_ OrderStore     = (*OrderRepository)(nil)
	_ WaveStore      = (*WaveRepository)(nil)
	_ PickingStore   = (*PickingRepository)(nil)
	_ AuditStore     = (*AuditRepository)(nil)
	_ UnitOfWork     = (*Repositories)(nil)
)
