package service

import (
	"context"
	"sync"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/shared/audit"
	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"go.uber.org/zap"
)

const defaultPublishTimeout = 3 * time.Second

// AuditLogger 审计记录：落库并投递到事件总线，失败只记日志。
// 投递在后台进行且有独立超时，不阻塞业务请求。
type AuditLogger struct {
	store          repository.AuditStore
	publisher      audit.Publisher
	logger         *zap.Logger
	publishTimeout time.Duration
	wg             sync.WaitGroup
}

func NewAuditLogger(store repository.AuditStore, publisher audit.Publisher, logger *zap.Logger) *AuditLogger {
	if publisher == nil {
		publisher = audit.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogger{
		store:          store,
		publisher:      publisher,
		logger:         logger,
		publishTimeout: defaultPublishTimeout,
	}
}

// Record 记录一条审计事件
func (a *AuditLogger) Record(ctx context.Context, tenantID, resource, action string, entityID *string, metadata map[string]interface{}, actorID string) {
	if a == nil {
		return
	}
	event := &entity.AuditEvent{
		TenantID:  tenantID,
		Resource:  resource,
		Action:    action,
		EntityID:  entityID,
		Metadata:  entity.JSONB(metadata),
		ActorID:   actorID,
		CreatedAt: time.Now(),
	}
	if a.store != nil {
		if err := a.store.CreateAuditEvent(ctx, event); err != nil {
			a.logger.Warn("persist audit event failed",
				zap.String("resource", resource),
				zap.String("action", action),
				zap.Error(err),
			)
		}
	}

	a.wg.Add(1)
	go a.publish(context.WithoutCancel(ctx), tenantID, event)
}

func (a *AuditLogger) publish(ctx context.Context, tenantID string, event *entity.AuditEvent) {
	defer a.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, a.publishTimeout)
	defer cancel()
	if err := a.publisher.Publish(ctx, tenantID, event); err != nil {
		a.logger.Warn("publish audit event failed",
			zap.String("resource", event.Resource),
			zap.String("action", event.Action),
			zap.Error(err),
		)
	}
}

// Wait 等待后台投递结束，关闭前调用
func (a *AuditLogger) Wait() {
	if a == nil {
		return
	}
	a.wg.Wait()
}

func strPtr(s string) *string {
	return &s
}
