package entity

import (
	"strings"
	"time"
)

// CompatibilityRuleType 兼容规则类型
type CompatibilityRuleType string

const (
	RuleTypeAllow CompatibilityRuleType = "ALLOW"
	RuleTypeBlock CompatibilityRuleType = "BLOCK"
)

// Location 库位
type Location struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	TenantID    string    `json:"tenant_id" gorm:"size:36;not null;index:idx_wms_location_scope"`
	WarehouseID string    `json:"warehouse_id" gorm:"size:36;not null;index:idx_wms_location_scope"`
	Code        string    `json:"code" gorm:"size:50;not null"`
	Zone        string    `json:"zone" gorm:"size:50"`
	Aisle       *int      `json:"aisle"`
	Row         *int      `json:"row"`
	Level       *int      `json:"level"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Location) TableName() string {
	return "wms_locations"
}

// Coordinates 返回 (aisle,row,level)，缺失的维度按0处理
func (l *Location) Coordinates() (aisle, row, level int) {
	if l.Aisle != nil {
		aisle = *l.Aisle
	}
	if l.Row != nil {
		row = *l.Row
	}
	if l.Level != nil {
		level = *l.Level
	}
	return aisle, row, level
}

// ZoneContains 库区名称是否包含关键字（不区分大小写）
func (l *Location) ZoneContains(keyword string) bool {
	return strings.Contains(strings.ToUpper(l.Zone), keyword)
}

// Product 商品（仅包含货位分类相关属性）
type Product struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	TenantID   string    `json:"tenant_id" gorm:"size:36;not null;index"`
	SKU        string    `json:"sku" gorm:"size:64;not null"`
	Name       string    `json:"name" gorm:"size:128"`
	DefaultUOM string    `json:"default_uom" gorm:"size:20;not null;default:EA"`
	IsHeavy    bool      `json:"is_heavy" gorm:"not null;default:false"`
	IsFragile  bool      `json:"is_fragile" gorm:"not null;default:false"`
	ClassCode  string    `json:"class_code" gorm:"size:50"`
	Category   string    `json:"category" gorm:"size:50"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "wms_products"
}

// CompatibilityRule 库位兼容规则；BLOCK 为绝对限制，ALLOW 只加分
type CompatibilityRule struct {
	ID           string                `json:"id" gorm:"primaryKey;size:36"`
	TenantID     string                `json:"tenant_id" gorm:"size:36;not null;index:idx_wms_rule_scope"`
	WarehouseID  string                `json:"warehouse_id" gorm:"size:36;not null;index:idx_wms_rule_scope"`
	LocationID   string                `json:"location_id" gorm:"size:36;not null;index"`
	ProductID    *string               `json:"product_id" gorm:"size:36"`
	ProductClass *string               `json:"product_class" gorm:"size:50"`
	RuleType     CompatibilityRuleType `json:"rule_type" gorm:"size:10;not null"`
	CreatedAt    time.Time             `json:"created_at"`
}

func (CompatibilityRule) TableName() string {
	return "wms_compatibility_rules"
}

// Matches 规则是否作用于该商品：按商品ID、商品分类(class_code 或 category)，或两者都未设置的通用规则
func (r *CompatibilityRule) Matches(p *Product) bool {
	if r.ProductID == nil && r.ProductClass == nil {
		return true
	}
	if r.ProductID != nil && *r.ProductID == p.ID {
		return true
	}
	if r.ProductClass != nil {
		class := *r.ProductClass
		if (p.ClassCode != "" && class == p.ClassCode) || (p.Category != "" && class == p.Category) {
			return true
		}
	}
	return false
}
