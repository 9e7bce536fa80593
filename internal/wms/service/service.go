package service

import (
	"github.com/bitfantasy/nimo-wms/internal/config"
	"github.com/bitfantasy/nimo-wms/internal/shared/audit"
	"github.com/bitfantasy/nimo-wms/internal/shared/cache"
	"github.com/bitfantasy/nimo-wms/internal/shared/queue"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Audit    *AuditLogger
	Slotting *SlottingService
	Wave     *WaveService
	Picking  *PickingService
	Route    *RouteService
	Export   *ExportService
	Jobs     *JobService
	Worker   *Worker
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, publisher audit.Publisher, cfg *config.Config, logger *zap.Logger) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}

	// rdb 为空时缓存全部未命中
	c := cache.New(nil)
	if rdb != nil {
		c = cache.New(rdb)
	}

	auditLogger := NewAuditLogger(repos.Audit, publisher, logger.Named("audit"))
	classifier := NewClassifier(repos.Inventory, c, cfg.Cache.ConsumptionTTL, logger.Named("classifier"))

	slotting := NewSlottingService(
		repos.Location,
		repos.Product,
		repos.Inventory,
		repos.Slotting,
		repos,
		classifier,
		c,
		cfg.Cache.DistanceTTL,
		auditLogger,
		logger.Named("slotting"),
	)
	waves := NewWaveService(repos.Order, repos.Wave, repos, auditLogger, cfg.Wave.DefaultMaxOrders, logger.Named("wave"))

	svc := &Services{
		Audit:    auditLogger,
		Slotting: slotting,
		Wave:     waves,
		Picking:  NewPickingService(repos.Order, repos.Wave, repos.Inventory, repos.Picking, auditLogger, logger.Named("picking")),
		Route:    NewRouteService(repos.Location, repos.Wave, repos.Picking, c, cfg.Cache.DistanceTTL, cfg.Route.WalkingSpeed, auditLogger, logger.Named("route")),
		Export:   NewExportService(repos.Wave, repos.Picking, repos.Product),
	}

	if rdb != nil {
		q := queue.New(rdb, cfg.Worker.Queue)
		svc.Jobs = NewJobService(q, logger.Named("jobs"))
		svc.Worker = NewWorker(q, slotting, waves, cfg.Worker.PollTimeout, logger.Named("worker"))
	}
	return svc
}
