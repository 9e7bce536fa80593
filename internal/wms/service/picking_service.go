package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PickingService 拣货任务生成
type PickingService struct {
	orders    repository.OrderStore
	waves     repository.WaveStore
	inventory repository.InventoryStore
	picking   repository.PickingStore
	audit     *AuditLogger
	logger    *zap.Logger
	now       func() time.Time
}

func NewPickingService(orders repository.OrderStore, waves repository.WaveStore, inventory repository.InventoryStore, picking repository.PickingStore, audit *AuditLogger, logger *zap.Logger) *PickingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PickingService{
		orders:    orders,
		waves:     waves,
		inventory: inventory,
		picking:   picking,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

type consolidationKey struct {
	locationID string
	productID  string
	lotID      string
}

// reservedPool 每个库存位置的预留数量只分配一次
type reservedPool struct {
	positions map[string][]entity.InventoryPosition
	remaining map[string]decimal.Decimal
}

func (p *reservedPool) allocate(line *entity.OutboundOrderLine) []allocation {
	need := line.Quantity
	var out []allocation
	for _, pos := range p.positions[line.ProductID] {
		if !need.IsPositive() {
			break
		}
		if line.LotID != nil && (pos.LotID == nil || *pos.LotID != *line.LotID) {
			continue
		}
		left := p.remaining[pos.ID]
		if !left.IsPositive() {
			continue
		}
		take := decimal.Min(left, need)
		p.remaining[pos.ID] = left.Sub(take)
		need = need.Sub(take)
		out = append(out, allocation{position: pos, quantity: take})
	}
	return out
}

type allocation struct {
	position entity.InventoryPosition
	quantity decimal.Decimal
}

func (s *PickingService) loadPool(ctx context.Context, tenantID, warehouseID string, productIDs []string) (*reservedPool, error) {
	pool := &reservedPool{
		positions: map[string][]entity.InventoryPosition{},
		remaining: map[string]decimal.Decimal{},
	}
	for _, pid := range productIDs {
		if _, ok := pool.positions[pid]; ok {
			continue
		}
		positions, err := s.inventory.ListPositions(ctx, repository.PositionQuery{
			TenantID:    tenantID,
			WarehouseID: warehouseID,
			ProductID:   pid,
			State:       entity.InventoryStateReserved,
		})
		if err != nil {
			return nil, fmt.Errorf("list reserved positions: %w", err)
		}
		pool.positions[pid] = positions
		for _, pos := range positions {
			pool.remaining[pos.ID] = pos.Quantity
		}
	}
	return pool, nil
}

// waveOrders 按波次内顺序返回出库单
func (s *PickingService) waveOrders(ctx context.Context, tenantID string, w *entity.Wave) ([]entity.OutboundOrder, error) {
	ids := make([]string, 0, len(w.Orders))
	for _, wo := range w.Orders {
		ids = append(ids, wo.OrderID)
	}
	found, err := s.orders.FindOrdersByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	byID := make(map[string]entity.OutboundOrder, len(found))
	for _, o := range found {
		byID[o.ID] = o
	}
	orders := make([]entity.OutboundOrder, 0, len(ids))
	for _, id := range ids {
		if o, ok := byID[id]; ok {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

// CreatePickingTasksForWave 按预留库存生成拣货任务，同一 (库位, 商品, 批次) 的分配合并为一行
func (s *PickingService) CreatePickingTasksForWave(ctx context.Context, tenantID, actorID, waveID string) (*entity.PickingTask, error) {
	w, err := s.waves.FindWaveByID(ctx, tenantID, waveID)
	if err != nil {
		return nil, err
	}
	orders, err := s.waveOrders(ctx, tenantID, w)
	if err != nil {
		return nil, err
	}

	var productIDs []string
	for _, o := range orders {
		for _, l := range o.Lines {
			productIDs = append(productIDs, l.ProductID)
		}
	}
	pool, err := s.loadPool(ctx, tenantID, w.WarehouseID, productIDs)
	if err != nil {
		return nil, err
	}

	index := map[consolidationKey]int{}
	var lines []entity.PickingTaskLine
	shortLines := 0
	for _, o := range orders {
		for i := range o.Lines {
			line := &o.Lines[i]
			allocs := pool.allocate(line)
			allocated := decimal.Zero
			for _, a := range allocs {
				allocated = allocated.Add(a.quantity)
				key := consolidationKey{locationID: a.position.LocationID, productID: line.ProductID}
				if a.position.LotID != nil {
					key.lotID = *a.position.LotID
				}
				if idx, ok := index[key]; ok {
					lines[idx].QuantityToPick = lines[idx].QuantityToPick.Add(a.quantity)
					lines[idx].SourceOrderLineIDs = appendUnique(lines[idx].SourceOrderLineIDs, line.ID)
					continue
				}
				uom := line.UOM
				if uom == "" {
					uom = a.position.UOM
				}
				index[key] = len(lines)
				lines = append(lines, entity.PickingTaskLine{
					LineNo:             len(lines) + 1,
					FromLocationID:     a.position.LocationID,
					ProductID:          line.ProductID,
					LotID:              a.position.LotID,
					QuantityToPick:     a.quantity,
					UOM:                uom,
					OrderLineID:        line.ID,
					SourceOrderLineIDs: pq.StringArray{line.ID},
				})
			}
			if allocated.LessThan(line.Quantity) {
				shortLines++
				s.logger.Warn("order line not fully reserved",
					zap.String("wave_id", w.ID),
					zap.String("order_line_id", line.ID),
					zap.String("requested", line.Quantity.String()),
					zap.String("allocated", allocated.String()),
				)
			}
		}
	}

	task := &entity.PickingTask{
		TenantID:    tenantID,
		WarehouseID: w.WarehouseID,
		WaveID:      w.ID,
		Status:      entity.PickingTaskStatusPending,
		Lines:       lines,
	}
	if w.PickerID != nil {
		picker := *w.PickerID
		task.AssigneeID = &picker
		task.Status = entity.PickingTaskStatusAssigned
	}
	if err := s.picking.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create picking task: %w", err)
	}

	s.audit.Record(ctx, tenantID, "picking", "picking.create_tasks", strPtr(w.ID), map[string]interface{}{
		"task_id":     task.ID,
		"line_count":  len(lines),
		"short_lines": shortLines,
	}, actorID)

	s.logger.Info("picking task created",
		zap.String("tenant_id", tenantID),
		zap.String("wave_id", w.ID),
		zap.Int("lines", len(lines)),
	)
	return task, nil
}

func appendUnique(list pq.StringArray, id string) pq.StringArray {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}
