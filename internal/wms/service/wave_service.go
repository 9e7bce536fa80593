package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	groupKeyUnassigned = "UNASSIGNED"
	groupKeyNoWindow   = "NO_WINDOW"
)

// WaveService 波次服务
type WaveService struct {
	orders           repository.OrderStore
	waves            repository.WaveStore
	uow              repository.UnitOfWork
	audit            *AuditLogger
	defaultMaxOrders int
	logger           *zap.Logger
	now              func() time.Time
}

func NewWaveService(orders repository.OrderStore, waves repository.WaveStore, uow repository.UnitOfWork, audit *AuditLogger, defaultMaxOrders int, logger *zap.Logger) *WaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WaveService{
		orders:           orders,
		waves:            waves,
		uow:              uow,
		audit:            audit,
		defaultMaxOrders: defaultMaxOrders,
		logger:           logger,
		now:              time.Now,
	}
}

// GenerateWavesReq 波次生成参数
type GenerateWavesReq struct {
	WarehouseID      string              `json:"warehouse_id" binding:"required"`
	Strategy         entity.WaveStrategy `json:"strategy" binding:"required"`
	CarrierCode      string              `json:"carrier_code"`
	RouteCode        string              `json:"route_code"`
	ZoneCode         string              `json:"zone_code"`
	ShipDateFrom     *time.Time          `json:"ship_date_from"`
	ShipDateTo       *time.Time          `json:"ship_date_to"`
	MinPriority      *int                `json:"min_priority"`
	MaxOrdersPerWave *int                `json:"max_orders_per_wave"`
}

// GroupKey 按策略计算出库单的分组键
func GroupKey(o *entity.OutboundOrder, strategy entity.WaveStrategy) string {
	switch strategy {
	case entity.WaveStrategyByRoute:
		return codeOrUnassigned(o.RouteCode)
	case entity.WaveStrategyByCarrier:
		return codeOrUnassigned(o.CarrierCode)
	case entity.WaveStrategyByZone:
		return codeOrUnassigned(o.ZoneCode)
	case entity.WaveStrategyByTimeWindow:
		if o.RequestedShipDate == nil {
			return groupKeyNoWindow
		}
		return o.RequestedShipDate.UTC().Truncate(time.Hour).Format(time.RFC3339)
	case entity.WaveStrategyByPriority:
		if o.Priority == nil {
			return groupKeyUnassigned
		}
		return strconv.Itoa(*o.Priority)
	}
	return groupKeyUnassigned
}

func codeOrUnassigned(code *string) string {
	if code == nil || *code == "" {
		return groupKeyUnassigned
	}
	return *code
}

// GroupOrders 按分组键首次出现顺序分组，再按 maxPerWave 切分；maxPerWave <= 0 表示不切分
func GroupOrders(orders []entity.OutboundOrder, strategy entity.WaveStrategy, maxPerWave int) [][]entity.OutboundOrder {
	groups := map[string][]entity.OutboundOrder{}
	var keys []string
	for _, o := range orders {
		k := GroupKey(&o, strategy)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], o)
	}

	var chunks [][]entity.OutboundOrder
	for _, k := range keys {
		members := groups[k]
		if maxPerWave <= 0 {
			chunks = append(chunks, members)
			continue
		}
		for start := 0; start < len(members); start += maxPerWave {
			end := start + maxPerWave
			if end > len(members) {
				end = len(members)
			}
			chunks = append(chunks, members[start:end])
		}
	}
	return chunks
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// buildWave 由一组出库单构造波次，分组属性取首单（过滤条件指定时以过滤值为准）
func (s *WaveService) buildWave(tenantID, actorID string, req *GenerateWavesReq, members []entity.OutboundOrder, seq int, at time.Time) entity.Wave {
	first := &members[0]
	w := entity.Wave{
		TenantID:    tenantID,
		WarehouseID: req.WarehouseID,
		Code:        fmt.Sprintf("WV%s-%03d", at.Format("20060102150405"), seq),
		Strategy:    req.Strategy,
		GroupKey:    GroupKey(first, req.Strategy),
		Status:      entity.WaveStatusCreated,
		CreatedBy:   actorID,
	}

	switch req.Strategy {
	case entity.WaveStrategyByCarrier:
		w.CarrierCode = first.CarrierCode
		if req.CarrierCode != "" {
			w.CarrierCode = optional(req.CarrierCode)
		}
	case entity.WaveStrategyByRoute:
		w.RouteCode = first.RouteCode
		if req.RouteCode != "" {
			w.RouteCode = optional(req.RouteCode)
		}
	case entity.WaveStrategyByZone:
		w.ZoneCode = first.ZoneCode
		if req.ZoneCode != "" {
			w.ZoneCode = optional(req.ZoneCode)
		}
	case entity.WaveStrategyByTimeWindow:
		if first.RequestedShipDate != nil {
			t := first.RequestedShipDate.UTC().Truncate(time.Hour)
			w.TimeWindowStart = &t
		}
	case entity.WaveStrategyByPriority:
		w.Priority = first.Priority
	}

	units := decimal.Zero
	lines := 0
	for i := range members {
		w.Orders = append(w.Orders, entity.WaveOrder{
			OrderID:  members[i].ID,
			Sequence: i + 1,
		})
		lines += len(members[i].Lines)
		units = units.Add(members[i].TotalUnits())
	}
	w.TotalOrders = len(members)
	w.TotalLines = lines
	w.TotalUnits = units
	return w
}

// GenerateWaves 将可组波的出库单分组生成波次，所有波次在同一事务中创建
func (s *WaveService) GenerateWaves(ctx context.Context, tenantID, actorID string, req *GenerateWavesReq) ([]entity.Wave, error) {
	if !req.Strategy.Valid() {
		return nil, invalidArgument("unknown wave strategy %q", req.Strategy)
	}
	maxPerWave := s.defaultMaxOrders
	if req.MaxOrdersPerWave != nil {
		if *req.MaxOrdersPerWave <= 0 {
			return nil, invalidArgument("max_orders_per_wave must be positive")
		}
		maxPerWave = *req.MaxOrdersPerWave
	}

	orders, err := s.orders.ListWaveableOrders(ctx, repository.OrderQuery{
		TenantID:     tenantID,
		WarehouseID:  req.WarehouseID,
		Statuses:     entity.WaveableOrderStatuses,
		CarrierCode:  req.CarrierCode,
		RouteCode:    req.RouteCode,
		ZoneCode:     req.ZoneCode,
		ShipDateFrom: req.ShipDateFrom,
		ShipDateTo:   req.ShipDateTo,
		MinPriority:  req.MinPriority,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if len(orders) == 0 {
		return []entity.Wave{}, nil
	}

	at := s.now()
	chunks := GroupOrders(orders, req.Strategy, maxPerWave)
	waves := make([]entity.Wave, 0, len(chunks))
	for i, members := range chunks {
		waves = append(waves, s.buildWave(tenantID, actorID, req, members, i+1, at))
	}

	err = s.uow.RunAtomic(ctx, func(tx repository.Tx) error {
		for i := range waves {
			if err := tx.Waves().CreateWave(ctx, &waves[i]); err != nil {
				return fmt.Errorf("create wave: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, tenantID, "wave", "wave.generate", nil, map[string]interface{}{
		"warehouse_id": req.WarehouseID,
		"strategy":     string(req.Strategy),
		"wave_count":   len(waves),
		"order_count":  len(orders),
	}, actorID)

	s.logger.Info("waves generated",
		zap.String("tenant_id", tenantID),
		zap.String("warehouse_id", req.WarehouseID),
		zap.String("strategy", string(req.Strategy)),
		zap.Int("waves", len(waves)),
		zap.Int("orders", len(orders)),
	)
	return waves, nil
}

func (s *WaveService) GetWave(ctx context.Context, tenantID, id string) (*entity.Wave, error) {
	return s.waves.FindWaveByID(ctx, tenantID, id)
}

func (s *WaveService) ListWaves(ctx context.Context, params repository.WaveListParams) ([]entity.Wave, int64, error) {
	return s.waves.ListWaves(ctx, params)
}

// ========== 生命周期 ==========

func (s *WaveService) Release(ctx context.Context, tenantID, actorID, id string) (*entity.Wave, error) {
	return s.transition(ctx, tenantID, actorID, id, entity.WaveStatusReleased, "wave.release")
}

func (s *WaveService) Start(ctx context.Context, tenantID, actorID, id string) (*entity.Wave, error) {
	return s.transition(ctx, tenantID, actorID, id, entity.WaveStatusInProgress, "wave.start")
}

func (s *WaveService) Complete(ctx context.Context, tenantID, actorID, id string) (*entity.Wave, error) {
	return s.transition(ctx, tenantID, actorID, id, entity.WaveStatusCompleted, "wave.complete")
}

func (s *WaveService) Cancel(ctx context.Context, tenantID, actorID, id string) (*entity.Wave, error) {
	return s.transition(ctx, tenantID, actorID, id, entity.WaveStatusCancelled, "wave.cancel")
}

func (s *WaveService) transition(ctx context.Context, tenantID, actorID, id string, to entity.WaveStatus, action string) (*entity.Wave, error) {
	w, err := s.waves.FindWaveByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !w.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: wave %s cannot move from %s to %s", ErrInvalidTransition, w.Code, w.Status, to)
	}

	from := w.Status
	now := s.now()
	w.Status = to
	switch to {
	case entity.WaveStatusReleased:
		w.ReleasedAt = &now
	case entity.WaveStatusInProgress:
		w.StartedAt = &now
	case entity.WaveStatusCompleted:
		w.CompletedAt = &now
	case entity.WaveStatusCancelled:
		w.CancelledAt = &now
	}
	if err := s.waves.UpdateWave(ctx, w); err != nil {
		return nil, fmt.Errorf("update wave: %w", err)
	}

	s.audit.Record(ctx, tenantID, "wave", action, strPtr(w.ID), map[string]interface{}{
		"from": string(from),
		"to":   string(to),
	}, actorID)
	return w, nil
}

// Assign 指派拣货员，终态波次不可指派
func (s *WaveService) Assign(ctx context.Context, tenantID, actorID, id, pickerID string) (*entity.Wave, error) {
	if pickerID == "" {
		return nil, invalidArgument("picker_id is required")
	}
	w, err := s.waves.FindWaveByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if w.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: wave %s is %s", ErrInvalidTransition, w.Code, w.Status)
	}

	now := s.now()
	w.PickerID = &pickerID
	w.AssignedAt = &now
	if err := s.waves.UpdateWave(ctx, w); err != nil {
		return nil, fmt.Errorf("update wave: %w", err)
	}

	s.audit.Record(ctx, tenantID, "wave", "wave.assign", strPtr(w.ID), map[string]interface{}{
		"picker_id": pickerID,
	}, actorID)
	return w, nil
}
