package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/shared/cache"
	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SlottingService 货位优化服务
type SlottingService struct {
	locations   repository.LocationStore
	products    repository.ProductStore
	inventory   repository.InventoryStore
	slotting    repository.SlottingStore
	uow         repository.UnitOfWork
	classifier  *Classifier
	cache       *cache.Cache
	distanceTTL time.Duration
	audit       *AuditLogger
	logger      *zap.Logger
	now         func() time.Time
}

func NewSlottingService(
	locations repository.LocationStore,
	products repository.ProductStore,
	inventory repository.InventoryStore,
	slotting repository.SlottingStore,
	uow repository.UnitOfWork,
	classifier *Classifier,
	c *cache.Cache,
	distanceTTL time.Duration,
	audit *AuditLogger,
	logger *zap.Logger,
) *SlottingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlottingService{
		locations:   locations,
		products:    products,
		inventory:   inventory,
		slotting:    slotting,
		uow:         uow,
		classifier:  classifier,
		cache:       c,
		distanceTTL: distanceTTL,
		audit:       audit,
		logger:      logger,
		now:         time.Now,
	}
}

// ========== 参数 ==========

// CreateConfigReq 创建货位优化参数
type CreateConfigReq struct {
	WarehouseID                string `json:"warehouse_id" binding:"required"`
	ABCPeriodDays              int    `json:"abc_period_days"`
	XYZPeriodDays              int    `json:"xyz_period_days"`
	GoldenZoneLocationCount    int    `json:"golden_zone_location_count"`
	HeavyProductsZoneEnabled   bool   `json:"heavy_products_zone_enabled"`
	FragileProductsZoneEnabled bool   `json:"fragile_products_zone_enabled"`
	IsActive                   *bool  `json:"is_active"`
}

// UpdateConfigReq 更新参数，空字段不修改
type UpdateConfigReq struct {
	ABCPeriodDays              *int  `json:"abc_period_days"`
	XYZPeriodDays              *int  `json:"xyz_period_days"`
	GoldenZoneLocationCount    *int  `json:"golden_zone_location_count"`
	HeavyProductsZoneEnabled   *bool `json:"heavy_products_zone_enabled"`
	FragileProductsZoneEnabled *bool `json:"fragile_products_zone_enabled"`
	IsActive                   *bool `json:"is_active"`
}

func validateConfig(cfg *entity.SlottingConfig) error {
	if cfg.ABCPeriodDays <= 0 {
		return invalidArgument("abc_period_days must be positive")
	}
	if cfg.XYZPeriodDays <= 0 {
		return invalidArgument("xyz_period_days must be positive")
	}
	if cfg.GoldenZoneLocationCount < 0 {
		return invalidArgument("golden_zone_location_count must not be negative")
	}
	return nil
}

func (s *SlottingService) CreateConfig(ctx context.Context, tenantID, actorID string, req *CreateConfigReq) (*entity.SlottingConfig, error) {
	cfg := &entity.SlottingConfig{
		TenantID:                   tenantID,
		WarehouseID:                req.WarehouseID,
		ABCPeriodDays:              req.ABCPeriodDays,
		XYZPeriodDays:              req.XYZPeriodDays,
		GoldenZoneLocationCount:    req.GoldenZoneLocationCount,
		HeavyProductsZoneEnabled:   req.HeavyProductsZoneEnabled,
		FragileProductsZoneEnabled: req.FragileProductsZoneEnabled,
		IsActive:                   true,
		CreatedBy:                  actorID,
	}
	if cfg.ABCPeriodDays == 0 {
		cfg.ABCPeriodDays = 90
	}
	if cfg.XYZPeriodDays == 0 {
		cfg.XYZPeriodDays = 90
	}
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	err := s.uow.RunAtomic(ctx, func(tx repository.Tx) error {
		if err := tx.Slotting().CreateConfig(ctx, cfg); err != nil {
			return fmt.Errorf("create config: %w", err)
		}
		if cfg.IsActive {
			return tx.Slotting().DeactivateOtherConfigs(ctx, tenantID, cfg.WarehouseID, cfg.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *SlottingService) UpdateConfig(ctx context.Context, tenantID, id string, req *UpdateConfigReq) (*entity.SlottingConfig, error) {
	cfg, err := s.slotting.FindConfigByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req.ABCPeriodDays != nil {
		cfg.ABCPeriodDays = *req.ABCPeriodDays
	}
	if req.XYZPeriodDays != nil {
		cfg.XYZPeriodDays = *req.XYZPeriodDays
	}
	if req.GoldenZoneLocationCount != nil {
		cfg.GoldenZoneLocationCount = *req.GoldenZoneLocationCount
	}
	if req.HeavyProductsZoneEnabled != nil {
		cfg.HeavyProductsZoneEnabled = *req.HeavyProductsZoneEnabled
	}
	if req.FragileProductsZoneEnabled != nil {
		cfg.FragileProductsZoneEnabled = *req.FragileProductsZoneEnabled
	}
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	err = s.uow.RunAtomic(ctx, func(tx repository.Tx) error {
		if err := tx.Slotting().UpdateConfig(ctx, cfg); err != nil {
			return fmt.Errorf("update config: %w", err)
		}
		if cfg.IsActive {
			return tx.Slotting().DeactivateOtherConfigs(ctx, tenantID, cfg.WarehouseID, cfg.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *SlottingService) GetConfig(ctx context.Context, tenantID, id string) (*entity.SlottingConfig, error) {
	return s.slotting.FindConfigByID(ctx, tenantID, id)
}

func (s *SlottingService) ListConfigs(ctx context.Context, tenantID, warehouseID string) ([]entity.SlottingConfig, error) {
	return s.slotting.ListConfigs(ctx, tenantID, warehouseID)
}

// ========== 计算 ==========

// CalculateReq 货位推荐计算参数
type CalculateReq struct {
	WarehouseID  string `json:"warehouse_id" binding:"required"`
	ProductID    string `json:"product_id"`
	LimitResults *int   `json:"limit_results"`
	Force        bool   `json:"force"`
}

func distanceRankCacheKey(tenantID, warehouseID string) string {
	return fmt.Sprintf("wms:distance_rank:%s:%s", tenantID, warehouseID)
}

// distanceRanks 库位距离名次，按仓库缓存
func (s *SlottingService) distanceRanks(ctx context.Context, tenantID, warehouseID string, locations []entity.Location) map[string]int {
	key := distanceRankCacheKey(tenantID, warehouseID)
	var ranks map[string]int
	hit, err := s.cache.GetJSON(ctx, key, &ranks)
	if err != nil {
		s.logger.Warn("distance rank cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit && coversAll(ranks, locations) {
		return ranks
	}
	ranks = DistanceRanks(locations)
	if err := s.cache.SetJSON(ctx, key, ranks, s.distanceTTL); err != nil {
		s.logger.Warn("distance rank cache write failed", zap.String("key", key), zap.Error(err))
	}
	return ranks
}

func coversAll(ranks map[string]int, locations []entity.Location) bool {
	for i := range locations {
		if _, ok := ranks[locations[i].ID]; !ok {
			return false
		}
	}
	return true
}

// primaryLocations 每个商品库存量最大的库位
func primaryLocations(positions []entity.InventoryPosition) map[string]string {
	type key struct{ product, location string }
	totals := map[key]decimal.Decimal{}
	var order []key
	for _, p := range positions {
		k := key{p.ProductID, p.LocationID}
		if _, ok := totals[k]; !ok {
			order = append(order, k)
		}
		totals[k] = totals[k].Add(p.Quantity)
	}

	primary := map[string]string{}
	best := map[string]decimal.Decimal{}
	for _, k := range order {
		qty := totals[k]
		if cur, ok := best[k.product]; !ok || qty.GreaterThan(cur) {
			best[k.product] = qty
			primary[k.product] = k.location
		}
	}
	return primary
}

// Calculate 计算货位推荐并写入新的待审批记录
func (s *SlottingService) Calculate(ctx context.Context, tenantID, actorID string, req *CalculateReq) ([]entity.SlottingRecommendation, error) {
	if req.LimitResults != nil && *req.LimitResults < 0 {
		return nil, invalidArgument("limit_results must not be negative")
	}

	cfg, err := s.slotting.FindActiveConfig(ctx, tenantID, req.WarehouseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveConfig
		}
		return nil, fmt.Errorf("find active config: %w", err)
	}

	locations, err := s.locations.ListActiveLocations(ctx, tenantID, req.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	rules, err := s.locations.ListCompatibilityRules(ctx, tenantID, req.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("list compatibility rules: %w", err)
	}
	rulesByLocation := map[string][]entity.CompatibilityRule{}
	for _, r := range rules {
		rulesByLocation[r.LocationID] = append(rulesByLocation[r.LocationID], r)
	}

	positions, err := s.inventory.ListPositions(ctx, repository.PositionQuery{
		TenantID:    tenantID,
		WarehouseID: req.WarehouseID,
		ProductID:   req.ProductID,
	})
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	var productIDs []string
	if req.ProductID != "" {
		productIDs = []string{req.ProductID}
	} else {
		productIDs, err = s.inventory.ProductIDsWithInventory(ctx, tenantID, req.WarehouseID)
		if err != nil {
			return nil, fmt.Errorf("list products with inventory: %w", err)
		}
	}
	if len(productIDs) == 0 {
		return []entity.SlottingRecommendation{}, nil
	}

	products, err := s.products.FindProductsByIDs(ctx, tenantID, productIDs)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	productMap := make(map[string]*entity.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	classes, err := s.classifier.Classify(ctx, tenantID, req.WarehouseID, productIDs, cfg)
	if err != nil {
		return nil, err
	}
	ranks := s.distanceRanks(ctx, tenantID, req.WarehouseID, locations)
	primary := primaryLocations(positions)

	recs := make([]entity.SlottingRecommendation, 0, len(productIDs))
	for _, pid := range productIDs {
		product, ok := productMap[pid]
		if !ok {
			s.logger.Warn("product not found, skipped", zap.String("product_id", pid))
			continue
		}

		var best *ScoreResult
		var bestLoc *entity.Location
		for i := range locations {
			loc := &locations[i]
			res := ScoreLocation(ScoreInput{
				Classification: classes[pid],
				Product:        product,
				Location:       loc,
				Rules:          rulesByLocation[loc.ID],
				Rank:           ranks[loc.ID],
				Config:         cfg,
			})
			if !res.Allowed {
				continue
			}
			if best == nil || res.Score > best.Score {
				r := res
				best = &r
				bestLoc = loc
			}
		}
		if best == nil {
			continue
		}
		if best.Score <= 0 && !req.Force {
			continue
		}

		rec := entity.SlottingRecommendation{
			TenantID:              tenantID,
			WarehouseID:           req.WarehouseID,
			ProductID:             pid,
			RecommendedLocationID: bestLoc.ID,
			Score:                 best.Score,
			Reason:                best.Reason(),
			ABCClass:              classes[pid].ABC,
			XYZClass:              classes[pid].XYZ,
			Status:                entity.RecommendationStatusPending,
			CreatedBy:             actorID,
		}
		if cur, ok := primary[pid]; ok {
			rec.CurrentLocationID = strPtr(cur)
		}
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	if req.LimitResults != nil && len(recs) > *req.LimitResults {
		recs = recs[:*req.LimitResults]
	}

	if err := s.slotting.CreateRecommendations(ctx, recs); err != nil {
		return nil, fmt.Errorf("save recommendations: %w", err)
	}

	s.audit.Record(ctx, tenantID, "slotting", "slotting.calculate", nil, map[string]interface{}{
		"warehouse_id":         req.WarehouseID,
		"config_id":            cfg.ID,
		"product_count":        len(productIDs),
		"recommendation_count": len(recs),
		"force":                req.Force,
	}, actorID)

	s.logger.Info("slotting calculated",
		zap.String("tenant_id", tenantID),
		zap.String("warehouse_id", req.WarehouseID),
		zap.Int("products", len(productIDs)),
		zap.Int("recommendations", len(recs)),
	)
	return recs, nil
}

// ListRecommendations 推荐列表，最新在前
func (s *SlottingService) ListRecommendations(ctx context.Context, params repository.RecommendationListParams) ([]entity.SlottingRecommendation, int64, error) {
	return s.slotting.ListRecommendations(ctx, params)
}

// ========== 审批 / 执行 ==========

// ApproveRecommendation 审批推荐，仅待审批状态可操作
func (s *SlottingService) ApproveRecommendation(ctx context.Context, tenantID, actorID, id string, approve bool) (*entity.SlottingRecommendation, error) {
	rec, err := s.slotting.FindRecommendationByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	to := entity.RecommendationStatusRejected
	if approve {
		to = entity.RecommendationStatusApproved
	}
	if rec.Status != entity.RecommendationStatusPending {
		return nil, fmt.Errorf("%w: recommendation is %s", ErrInvalidTransition, rec.Status)
	}

	at := s.now()
	ok, err := s.slotting.TransitionRecommendation(ctx, tenantID, id, entity.RecommendationStatusPending, to, actorID, at)
	if err != nil {
		return nil, fmt.Errorf("update recommendation: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: recommendation is no longer pending", ErrInvalidTransition)
	}
	rec.Status = to
	rec.DecidedBy = actorID
	rec.DecidedAt = &at

	action := "slotting.reject"
	if approve {
		action = "slotting.approve"
	}
	s.audit.Record(ctx, tenantID, "slotting_recommendation", action, strPtr(id), map[string]interface{}{
		"product_id": rec.ProductID,
	}, actorID)
	return rec, nil
}

// ExecuteRecommendation 执行已审批的推荐：移库流水、源库位扣减、目标库位增加与状态更新在同一事务内完成
func (s *SlottingService) ExecuteRecommendation(ctx context.Context, tenantID, actorID, id string) (*entity.SlottingRecommendation, error) {
	rec, err := s.slotting.FindRecommendationByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != entity.RecommendationStatusApproved {
		return nil, fmt.Errorf("%w: recommendation is %s", ErrInvalidTransition, rec.Status)
	}

	uom := ""
	if products, err := s.products.FindProductsByIDs(ctx, tenantID, []string{rec.ProductID}); err == nil && len(products) > 0 {
		uom = products[0].DefaultUOM
	}

	at := s.now()
	moved := decimal.Zero
	err = s.uow.RunAtomic(ctx, func(tx repository.Tx) error {
		inv := tx.Inventory()
		destQuery := repository.PositionQuery{
			TenantID:    tenantID,
			WarehouseID: rec.WarehouseID,
			ProductID:   rec.ProductID,
			LocationID:  rec.RecommendedLocationID,
		}

		var sources []entity.InventoryPosition
		if rec.CurrentLocationID != nil {
			found, err := inv.ListPositions(ctx, repository.PositionQuery{
				TenantID:    tenantID,
				WarehouseID: rec.WarehouseID,
				ProductID:   rec.ProductID,
				LocationID:  *rec.CurrentLocationID,
			})
			if err != nil {
				return fmt.Errorf("read source positions: %w", err)
			}
			sources = found
		}
		for _, p := range sources {
			if p.Quantity.IsPositive() {
				moved = moved.Add(p.Quantity)
			}
		}

		if err := inv.CreateMovement(ctx, &entity.InventoryMovement{
			TenantID:       tenantID,
			WarehouseID:    rec.WarehouseID,
			ProductID:      rec.ProductID,
			FromLocationID: rec.CurrentLocationID,
			ToLocationID:   strPtr(rec.RecommendedLocationID),
			Quantity:       moved,
			MovementType:   entity.MovementTypeTransfer,
			ReferenceType:  "slotting_recommendation",
			ReferenceID:    rec.ID,
			CreatedBy:      actorID,
			CreatedAt:      at,
		}); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}

		if len(sources) == 0 {
			if err := s.addToDestination(ctx, inv, destQuery, rec, nil, entity.InventoryStateAvailable, decimal.Zero, uom); err != nil {
				return err
			}
		}
		for _, src := range sources {
			qty := decimal.Max(src.Quantity, decimal.Zero)
			if err := inv.UpdatePositionQuantity(ctx, rec.TenantID, src.ID, decimal.Max(src.Quantity.Sub(qty), decimal.Zero)); err != nil {
				return fmt.Errorf("decrement source position: %w", err)
			}
			posUOM := src.UOM
			if posUOM == "" {
				posUOM = uom
			}
			if err := s.addToDestination(ctx, inv, destQuery, rec, src.LotID, src.State, qty, posUOM); err != nil {
				return err
			}
		}

		ok, err := tx.Slotting().TransitionRecommendation(ctx, tenantID, rec.ID,
			entity.RecommendationStatusApproved, entity.RecommendationStatusExecuted, actorID, at)
		if err != nil {
			return fmt.Errorf("mark executed: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: recommendation is no longer approved", ErrInvalidTransition)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rec.Status = entity.RecommendationStatusExecuted
	rec.ExecutedAt = &at

	s.audit.Record(ctx, tenantID, "slotting_recommendation", "slotting.execute", strPtr(rec.ID), map[string]interface{}{
		"product_id":   rec.ProductID,
		"from":         rec.CurrentLocationID,
		"to":           rec.RecommendedLocationID,
		"quantity":     moved.String(),
		"warehouse_id": rec.WarehouseID,
	}, actorID)
	return rec, nil
}

func sameLot(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// addToDestination 同批次同状态的目标位置累加，不存在则新建
func (s *SlottingService) addToDestination(ctx context.Context, inv repository.InventoryStore, q repository.PositionQuery, rec *entity.SlottingRecommendation, lotID *string, state entity.InventoryState, qty decimal.Decimal, uom string) error {
	dest, err := inv.ListPositions(ctx, q)
	if err != nil {
		return fmt.Errorf("read destination positions: %w", err)
	}
	for _, d := range dest {
		if sameLot(d.LotID, lotID) && d.State == state {
			if err := inv.UpdatePositionQuantity(ctx, rec.TenantID, d.ID, d.Quantity.Add(qty)); err != nil {
				return fmt.Errorf("increment destination position: %w", err)
			}
			return nil
		}
	}
	if err := inv.CreatePosition(ctx, &entity.InventoryPosition{
		TenantID:    rec.TenantID,
		WarehouseID: rec.WarehouseID,
		ProductID:   rec.ProductID,
		LocationID:  rec.RecommendedLocationID,
		LotID:       lotID,
		Quantity:    qty,
		UOM:         uom,
		State:       state,
	}); err != nil {
		return fmt.Errorf("create destination position: %w", err)
	}
	return nil
}
