package entity

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// WaveStrategy 波次分组策略
type WaveStrategy string

const (
	WaveStrategyByRoute      WaveStrategy = "BY_ROUTE"
	WaveStrategyByCarrier    WaveStrategy = "BY_CARRIER"
	WaveStrategyByZone       WaveStrategy = "BY_ZONE"
	WaveStrategyByTimeWindow WaveStrategy = "BY_TIMEWINDOW"
	WaveStrategyByPriority   WaveStrategy = "BY_PRIORITY"
)

// Valid 策略是否合法
func (s WaveStrategy) Valid() bool {
	switch s {
	case WaveStrategyByRoute, WaveStrategyByCarrier, WaveStrategyByZone,
		WaveStrategyByTimeWindow, WaveStrategyByPriority:
		return true
	}
	return false
}

// WaveStatus 波次状态
type WaveStatus string

const (
	WaveStatusCreated    WaveStatus = "CREATED"
	WaveStatusReleased   WaveStatus = "RELEASED"
	WaveStatusInProgress WaveStatus = "IN_PROGRESS"
	WaveStatusCompleted  WaveStatus = "COMPLETED"
	WaveStatusCancelled  WaveStatus = "CANCELLED"
)

// IsTerminal 是否终态
func (s WaveStatus) IsTerminal() bool {
	return s == WaveStatusCompleted || s == WaveStatusCancelled
}

// waveTransitions 允许的状态流转；CANCELLED 可由任意非终态进入
var waveTransitions = map[WaveStatus][]WaveStatus{
	WaveStatusCreated:    {WaveStatusReleased, WaveStatusCancelled},
	WaveStatusReleased:   {WaveStatusInProgress, WaveStatusCancelled},
	WaveStatusInProgress: {WaveStatusCompleted, WaveStatusCancelled},
}

// CanTransitionTo 是否允许流转到目标状态
func (s WaveStatus) CanTransitionTo(next WaveStatus) bool {
	for _, allowed := range waveTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Wave 波次
type Wave struct {
	ID              string          `json:"id" gorm:"primaryKey;size:36"`
	TenantID        string          `json:"tenant_id" gorm:"size:36;not null;index:idx_wms_wave_scope"`
	WarehouseID     string          `json:"warehouse_id" gorm:"size:36;not null;index:idx_wms_wave_scope"`
	Code            string          `json:"code" gorm:"size:50;not null"`
	Strategy        WaveStrategy    `json:"strategy" gorm:"size:20;not null"`
	GroupKey        string          `json:"group_key" gorm:"size:100"`
	CarrierCode     *string         `json:"carrier_code" gorm:"size:50"`
	RouteCode       *string         `json:"route_code" gorm:"size:50"`
	ZoneCode        *string         `json:"zone_code" gorm:"size:50"`
	TimeWindowStart *time.Time      `json:"time_window_start"`
	Priority        *int            `json:"priority"`
	TotalOrders     int             `json:"total_orders" gorm:"not null;default:0"`
	TotalLines      int             `json:"total_lines" gorm:"not null;default:0"`
	TotalUnits      decimal.Decimal `json:"total_units" gorm:"type:decimal(18,4);not null;default:0"`
	Status          WaveStatus      `json:"status" gorm:"size:20;not null;default:CREATED;index"`
	PickerID        *string         `json:"picker_id" gorm:"size:64"`
	ReleasedAt      *time.Time      `json:"released_at"`
	StartedAt       *time.Time      `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at"`
	CancelledAt     *time.Time      `json:"cancelled_at"`
	AssignedAt      *time.Time      `json:"assigned_at"`
	CreatedBy       string          `json:"created_by" gorm:"size:64"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Orders []WaveOrder `json:"orders,omitempty" gorm:"foreignKey:WaveID"`
}

func (Wave) TableName() string {
	return "wms_waves"
}

// WaveOrder 波次与出库单的关联，创建后不可变
type WaveOrder struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	WaveID    string    `json:"wave_id" gorm:"size:36;not null;index"`
	OrderID   string    `json:"order_id" gorm:"size:36;not null;index"`
	Sequence  int       `json:"sequence" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (WaveOrder) TableName() string {
	return "wms_wave_orders"
}

// PickingTaskStatus 拣货任务状态
type PickingTaskStatus string

const (
	PickingTaskStatusPending    PickingTaskStatus = "PENDING"
	PickingTaskStatusAssigned   PickingTaskStatus = "ASSIGNED"
	PickingTaskStatusInProgress PickingTaskStatus = "IN_PROGRESS"
	PickingTaskStatusCompleted  PickingTaskStatus = "COMPLETED"
)

// PickingTask 拣货任务（每个波次一个）
type PickingTask struct {
	ID          string            `json:"id" gorm:"primaryKey;size:36"`
	TenantID    string            `json:"tenant_id" gorm:"size:36;not null;index"`
	WarehouseID string            `json:"warehouse_id" gorm:"size:36;not null"`
	WaveID      string            `json:"wave_id" gorm:"size:36;not null;index"`
	AssigneeID  *string           `json:"assignee_id" gorm:"size:64"`
	Status      PickingTaskStatus `json:"status" gorm:"size:20;not null;default:PENDING"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	Lines []PickingTaskLine `json:"lines,omitempty" gorm:"foreignKey:TaskID"`
}

func (PickingTask) TableName() string {
	return "wms_picking_tasks"
}

// PickingTaskLine 合并后的拣货指令
type PickingTaskLine struct {
	ID                 string          `json:"id" gorm:"primaryKey;size:36"`
	TaskID             string          `json:"task_id" gorm:"size:36;not null;index"`
	LineNo             int             `json:"line_no" gorm:"not null"`
	FromLocationID     string          `json:"from_location_id" gorm:"size:36;not null"`
	ProductID          string          `json:"product_id" gorm:"size:36;not null"`
	LotID              *string         `json:"lot_id" gorm:"size:36"`
	QuantityToPick     decimal.Decimal `json:"quantity_to_pick" gorm:"type:decimal(18,4);not null"`
	UOM                string          `json:"uom" gorm:"size:20"`
	OrderLineID        string          `json:"order_line_id" gorm:"size:36"`
	SourceOrderLineIDs pq.StringArray  `json:"source_order_line_ids" gorm:"type:text[]"`
	CreatedAt          time.Time       `json:"created_at"`
}

func (PickingTaskLine) TableName() string {
	return "wms_picking_task_lines"
}

// PickingPath 波次拣货路径，每个波次仅保留一条
type PickingPath struct {
	ID                 string         `json:"id" gorm:"primaryKey;size:36"`
	TenantID           string         `json:"tenant_id" gorm:"size:36;not null;index"`
	WarehouseID        string         `json:"warehouse_id" gorm:"size:36;not null"`
	WaveID             string         `json:"wave_id" gorm:"size:36;not null;uniqueIndex"`
	Stops              PathStops      `json:"stops" gorm:"type:jsonb"`
	LocationSequence   pq.StringArray `json:"location_sequence" gorm:"type:text[]"`
	TotalDistance      float64        `json:"total_distance" gorm:"not null;default:0"`
	TotalEstimatedTime float64        `json:"total_estimated_time" gorm:"not null;default:0"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (PickingPath) TableName() string {
	return "wms_picking_paths"
}
