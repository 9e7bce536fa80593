package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StartNodeID 拣货路径的虚拟起点
const StartNodeID = "START"

// PathStop 路径中的一个停靠点
type PathStop struct {
	Sequence          int     `json:"sequence"`
	LocationID        string  `json:"location_id"`
	LocationCode      string  `json:"location_code"`
	Aisle             int     `json:"aisle"`
	Row               int     `json:"row"`
	Level             int     `json:"level"`
	EstimatedDistance float64 `json:"estimated_distance"`
	EstimatedTime     float64 `json:"estimated_time"`
}

// PathStops 停靠点列表，按jsonb存储
type PathStops []PathStop

func (s PathStops) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *PathStops) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan PathStops: %v", value)
	}
	return json.Unmarshal(bytes, s)
}

// AuditEvent 审计事件
type AuditEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	TenantID  string    `json:"tenant_id" gorm:"size:36;not null;index:idx_wms_audit_resource"`
	Resource  string    `json:"resource" gorm:"size:50;not null;index:idx_wms_audit_resource"`
	Action    string    `json:"action" gorm:"size:50;not null"`
	EntityID  *string   `json:"entity_id" gorm:"size:36;index"`
	Metadata  JSONB     `json:"metadata" gorm:"type:jsonb"`
	ActorID   string    `json:"actor_id" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "wms_audit_events"
}
