package entity

import (
	"time"
)

// ABCClass 价值集中度分类
type ABCClass string

const (
	ABCClassA ABCClass = "A"
	ABCClassB ABCClass = "B"
	ABCClassC ABCClass = "C"
)

// XYZClass 需求波动分类
type XYZClass string

const (
	XYZClassX XYZClass = "X"
	XYZClassY XYZClass = "Y"
	XYZClassZ XYZClass = "Z"
)

// RecommendationStatus 货位推荐状态
type RecommendationStatus string

const (
	RecommendationStatusPending  RecommendationStatus = "PENDING"
	RecommendationStatusApproved RecommendationStatus = "APPROVED"
	RecommendationStatusRejected RecommendationStatus = "REJECTED"
	RecommendationStatusExecuted RecommendationStatus = "EXECUTED"
)

// IsTerminal 是否终态
func (s RecommendationStatus) IsTerminal() bool {
	return s == RecommendationStatusRejected || s == RecommendationStatusExecuted
}

// SlottingConfig 仓库货位优化参数
type SlottingConfig struct {
	ID                         string    `json:"id" gorm:"primaryKey;size:36"`
	TenantID                   string    `json:"tenant_id" gorm:"size:36;not null;index:idx_wms_slotting_config_scope"`
	WarehouseID                string    `json:"warehouse_id" gorm:"size:36;not null;index:idx_wms_slotting_config_scope"`
	ABCPeriodDays              int       `json:"abc_period_days" gorm:"not null;default:90"`
	XYZPeriodDays              int       `json:"xyz_period_days" gorm:"not null;default:90"`
	GoldenZoneLocationCount    int       `json:"golden_zone_location_count" gorm:"not null;default:0"`
	HeavyProductsZoneEnabled   bool      `json:"heavy_products_zone_enabled" gorm:"not null;default:false"`
	FragileProductsZoneEnabled bool      `json:"fragile_products_zone_enabled" gorm:"not null;default:false"`
	IsActive                   bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedBy                  string    `json:"created_by" gorm:"size:64"`
	CreatedAt                  time.Time `json:"created_at"`
	UpdatedAt                  time.Time `json:"updated_at"`
}

func (SlottingConfig) TableName() string {
	return "wms_slotting_configs"
}

// SlottingRecommendation 货位推荐
type SlottingRecommendation struct {
	ID                    string               `json:"id" gorm:"primaryKey;size:36"`
	TenantID              string               `json:"tenant_id" gorm:"size:36;not null;index:idx_wms_recommendation_scope"`
	WarehouseID           string               `json:"warehouse_id" gorm:"size:36;not null;index:idx_wms_recommendation_scope"`
	ProductID             string               `json:"product_id" gorm:"size:36;not null;index"`
	CurrentLocationID     *string              `json:"current_location_id" gorm:"size:36"`
	RecommendedLocationID string               `json:"recommended_location_id" gorm:"size:36;not null"`
	Score                 float64              `json:"score" gorm:"not null"`
	Reason                string               `json:"reason" gorm:"type:text"`
	ABCClass              ABCClass             `json:"abc_class" gorm:"size:1"`
	XYZClass              XYZClass             `json:"xyz_class" gorm:"size:1"`
	Status                RecommendationStatus `json:"status" gorm:"size:20;not null;default:PENDING;index"`
	DecidedBy             string               `json:"decided_by" gorm:"size:64"`
	DecidedAt             *time.Time           `json:"decided_at"`
	ExecutedAt            *time.Time           `json:"executed_at"`
	CreatedBy             string               `json:"created_by" gorm:"size:64"`
	CreatedAt             time.Time            `json:"created_at" gorm:"index"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

func (SlottingRecommendation) TableName() string {
	return "wms_slotting_recommendations"
}
