package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移所有WMS表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 基础数据
		&Location{},
		&Product{},
		&CompatibilityRule{},

		// 库存
		&Lot{},
		&InventoryPosition{},
		&InventoryMovement{},

		// 货位优化
		&SlottingConfig{},
		&SlottingRecommendation{},

		// 出库
		&OutboundOrder{},
		&OutboundOrderLine{},

		// 波次
		&Wave{},
		&WaveOrder{},
		&PickingTask{},
		&PickingTaskLine{},
		&PickingPath{},

		// 审计
		&AuditEvent{},
	)
}

// JSONB JSONB类型
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}
