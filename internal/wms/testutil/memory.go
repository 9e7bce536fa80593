package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore 内存版仓储，实现 repository 包中的所有接口，供服务与接口测试使用
type MemoryStore struct {
	mu sync.Mutex

	Locations       []entity.Location
	Products        []entity.Product
	Rules           []entity.CompatibilityRule
	Positions       []entity.InventoryPosition
	Movements       []entity.InventoryMovement
	Configs         []entity.SlottingConfig
	Recommendations []entity.SlottingRecommendation
	Orders          []entity.OutboundOrder
	WaveRows        []entity.Wave
	Tasks           []entity.PickingTask
	Paths           []entity.PickingPath
	AuditEvents     []entity.AuditEvent

	failures map[string]error
	counter  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{failures: map[string]error{}}
}

// FailOn 让指定方法返回错误，用于验证回滚
func (s *MemoryStore) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

func (s *MemoryStore) fail(method string) error {
	return s.failures[method]
}

// tick 保证创建时间严格递增，便于排序断言
func (s *MemoryStore) tick() time.Time {
	s.counter++
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.counter) * time.Second)
}

// ========== UnitOfWork ==========

type snapshot struct {
	positions       []entity.InventoryPosition
	movements       []entity.InventoryMovement
	configs         []entity.SlottingConfig
	recommendations []entity.SlottingRecommendation
	waves           []entity.Wave
	tasks           []entity.PickingTask
	paths           []entity.PickingPath
}

func (s *MemoryStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		positions:       append([]entity.InventoryPosition(nil), s.Positions...),
		movements:       append([]entity.InventoryMovement(nil), s.Movements...),
		configs:         append([]entity.SlottingConfig(nil), s.Configs...),
		recommendations: append([]entity.SlottingRecommendation(nil), s.Recommendations...),
		waves:           append([]entity.Wave(nil), s.WaveRows...),
		tasks:           append([]entity.PickingTask(nil), s.Tasks...),
		paths:           append([]entity.PickingPath(nil), s.Paths...),
	}
}

func (s *MemoryStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Positions = snap.positions
	s.Movements = snap.movements
	s.Configs = snap.configs
	s.Recommendations = snap.recommendations
	s.WaveRows = snap.waves
	s.Tasks = snap.tasks
	s.Paths = snap.paths
}

// RunAtomic fn 返回错误时恢复到执行前的状态
func (s *MemoryStore) RunAtomic(ctx context.Context, fn func(tx repository.Tx) error) error {
	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *MemoryStore) Inventory() repository.InventoryStore { return s }
func (s *MemoryStore) Slotting() repository.SlottingStore   { return s }
func (s *MemoryStore) Waves() repository.WaveStore          { return s }
func (s *MemoryStore) Picking() repository.PickingStore     { return s }

// ========== 库位 / 商品 ==========

func (s *MemoryStore) ListActiveLocations(ctx context.Context, tenantID, warehouseID string) ([]entity.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Location
	for _, l := range s.Locations {
		if l.TenantID == tenantID && l.WarehouseID == warehouseID && l.IsActive {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *MemoryStore) FindLocationsByIDs(ctx context.Context, tenantID string, ids []string) ([]entity.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := toSet(ids)
	var out []entity.Location
	for _, l := range s.Locations {
		if l.TenantID == tenantID && want[l.ID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListCompatibilityRules(ctx context.Context, tenantID, warehouseID string) ([]entity.CompatibilityRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.CompatibilityRule
	for _, r := range s.Rules {
		if r.TenantID == tenantID && r.WarehouseID == warehouseID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindProductsByIDs(ctx context.Context, tenantID string, ids []string) ([]entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := toSet(ids)
	var out []entity.Product
	for _, p := range s.Products {
		if p.TenantID == tenantID && want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

// ========== 库存 ==========

func matchPosition(p *entity.InventoryPosition, q repository.PositionQuery) bool {
	if p.TenantID != q.TenantID {
		return false
	}
	if q.WarehouseID != "" && p.WarehouseID != q.WarehouseID {
		return false
	}
	if q.ProductID != "" && p.ProductID != q.ProductID {
		return false
	}
	if q.LocationID != "" && p.LocationID != q.LocationID {
		return false
	}
	if q.State != "" && p.State != q.State {
		return false
	}
	return true
}

func (s *MemoryStore) ListPositions(ctx context.Context, q repository.PositionQuery) ([]entity.InventoryPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListPositions"); err != nil {
		return nil, err
	}
	var out []entity.InventoryPosition
	for i := range s.Positions {
		if matchPosition(&s.Positions[i], q) {
			out = append(out, s.Positions[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) SumQuantity(ctx context.Context, q repository.PositionQuery) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for i := range s.Positions {
		if matchPosition(&s.Positions[i], q) {
			total = total.Add(s.Positions[i].Quantity)
		}
	}
	return total, nil
}

func (s *MemoryStore) CreatePosition(ctx context.Context, pos *entity.InventoryPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreatePosition"); err != nil {
		return err
	}
	if pos.ID == "" {
		pos.ID = uuid.New().String()
	}
	pos.CreatedAt = s.tick()
	s.Positions = append(s.Positions, *pos)
	return nil
}

func (s *MemoryStore) UpdatePositionQuantity(ctx context.Context, tenantID, id string, qty decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdatePositionQuantity"); err != nil {
		return err
	}
	for i := range s.Positions {
		if s.Positions[i].TenantID == tenantID && s.Positions[i].ID == id {
			s.Positions[i].Quantity = qty
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *MemoryStore) ProductIDsWithInventory(ctx context.Context, tenantID, warehouseID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, p := range s.Positions {
		if p.TenantID == tenantID && p.WarehouseID == warehouseID && p.Quantity.IsPositive() && !seen[p.ProductID] {
			seen[p.ProductID] = true
			out = append(out, p.ProductID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) CreateMovement(ctx context.Context, m *entity.InventoryMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateMovement"); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.Movements = append(s.Movements, *m)
	return nil
}

func (s *MemoryStore) consumptionRows(tenantID, warehouseID, productID string, since time.Time) []entity.InventoryMovement {
	var out []entity.InventoryMovement
	for _, m := range s.Movements {
		if m.TenantID != tenantID || m.WarehouseID != warehouseID || m.ProductID != productID {
			continue
		}
		if m.CreatedAt.Before(since) {
			continue
		}
		if m.MovementType == entity.MovementTypePick || m.MovementType == entity.MovementTypeShip {
			out = append(out, m)
		}
	}
	return out
}

func (s *MemoryStore) SumConsumption(ctx context.Context, tenantID, warehouseID, productID string, since time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SumConsumption"); err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, m := range s.consumptionRows(tenantID, warehouseID, productID, since) {
		total = total.Add(m.Quantity)
	}
	return total, nil
}

func (s *MemoryStore) DailyConsumption(ctx context.Context, tenantID, warehouseID, productID string, since time.Time) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byDay := map[string]decimal.Decimal{}
	var days []string
	for _, m := range s.consumptionRows(tenantID, warehouseID, productID, since) {
		day := m.CreatedAt.UTC().Format("2006-01-02")
		if _, ok := byDay[day]; !ok {
			days = append(days, day)
		}
		byDay[day] = byDay[day].Add(m.Quantity)
	}
	sort.Strings(days)
	series := make([]float64, 0, len(days))
	for _, d := range days {
		series = append(series, byDay[d].InexactFloat64())
	}
	return series, nil
}

// ========== 货位优化 ==========

func (s *MemoryStore) CreateConfig(ctx context.Context, cfg *entity.SlottingConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	cfg.CreatedAt = s.tick()
	cfg.UpdatedAt = cfg.CreatedAt
	s.Configs = append(s.Configs, *cfg)
	return nil
}

func (s *MemoryStore) UpdateConfig(ctx context.Context, cfg *entity.SlottingConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Configs {
		if s.Configs[i].ID == cfg.ID && s.Configs[i].TenantID == cfg.TenantID {
			cfg.UpdatedAt = s.tick()
			s.Configs[i] = *cfg
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *MemoryStore) FindConfigByID(ctx context.Context, tenantID, id string) (*entity.SlottingConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Configs {
		if s.Configs[i].TenantID == tenantID && s.Configs[i].ID == id {
			cfg := s.Configs[i]
			return &cfg, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *MemoryStore) FindActiveConfig(ctx context.Context, tenantID, warehouseID string) (*entity.SlottingConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *entity.SlottingConfig
	for i := range s.Configs {
		c := s.Configs[i]
		if c.TenantID == tenantID && c.WarehouseID == warehouseID && c.IsActive {
			if found == nil || c.CreatedAt.After(found.CreatedAt) {
				found = &c
			}
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (s *MemoryStore) ListConfigs(ctx context.Context, tenantID, warehouseID string) ([]entity.SlottingConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.SlottingConfig
	for _, c := range s.Configs {
		if c.TenantID == tenantID && (warehouseID == "" || c.WarehouseID == warehouseID) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeactivateOtherConfigs(ctx context.Context, tenantID, warehouseID, keepID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Configs {
		c := &s.Configs[i]
		if c.TenantID == tenantID && c.WarehouseID == warehouseID && c.ID != keepID {
			c.IsActive = false
		}
	}
	return nil
}

func (s *MemoryStore) CreateRecommendations(ctx context.Context, recs []entity.SlottingRecommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateRecommendations"); err != nil {
		return err
	}
	for i := range recs {
		if recs[i].ID == "" {
			recs[i].ID = uuid.New().String()
		}
		recs[i].CreatedAt = s.tick()
		s.Recommendations = append(s.Recommendations, recs[i])
	}
	return nil
}

func (s *MemoryStore) FindRecommendationByID(ctx context.Context, tenantID, id string) (*entity.SlottingRecommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Recommendations {
		if s.Recommendations[i].TenantID == tenantID && s.Recommendations[i].ID == id {
			rec := s.Recommendations[i]
			return &rec, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *MemoryStore) ListRecommendations(ctx context.Context, params repository.RecommendationListParams) ([]entity.SlottingRecommendation, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.SlottingRecommendation
	for _, r := range s.Recommendations {
		if r.TenantID != params.TenantID {
			continue
		}
		if params.WarehouseID != "" && r.WarehouseID != params.WarehouseID {
			continue
		}
		if params.Status != "" && r.Status != params.Status {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	return paginate(out, params.Page, params.Size), total, nil
}

func (s *MemoryStore) TransitionRecommendation(ctx context.Context, tenantID, id string, from, to entity.RecommendationStatus, actorID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("TransitionRecommendation"); err != nil {
		return false, err
	}
	for i := range s.Recommendations {
		r := &s.Recommendations[i]
		if r.TenantID != tenantID || r.ID != id || r.Status != from {
			continue
		}
		r.Status = to
		t := at
		if to == entity.RecommendationStatusExecuted {
			r.ExecutedAt = &t
		} else {
			r.DecidedBy = actorID
			r.DecidedAt = &t
		}
		return true, nil
	}
	return false, nil
}

// ========== 出库单 ==========

func (s *MemoryStore) ListWaveableOrders(ctx context.Context, q repository.OrderQuery) ([]entity.OutboundOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	statuses := q.Statuses
	if len(statuses) == 0 {
		statuses = entity.WaveableOrderStatuses
	}
	var out []entity.OutboundOrder
	for _, o := range s.Orders {
		if o.TenantID != q.TenantID || o.WarehouseID != q.WarehouseID {
			continue
		}
		if !containsStatus(statuses, o.Status) {
			continue
		}
		if q.CarrierCode != "" && (o.CarrierCode == nil || *o.CarrierCode != q.CarrierCode) {
			continue
		}
		if q.RouteCode != "" && (o.RouteCode == nil || *o.RouteCode != q.RouteCode) {
			continue
		}
		if q.ZoneCode != "" && (o.ZoneCode == nil || *o.ZoneCode != q.ZoneCode) {
			continue
		}
		if q.ShipDateFrom != nil && (o.RequestedShipDate == nil || o.RequestedShipDate.Before(*q.ShipDateFrom)) {
			continue
		}
		if q.ShipDateTo != nil && (o.RequestedShipDate == nil || o.RequestedShipDate.After(*q.ShipDateTo)) {
			continue
		}
		if q.MinPriority != nil && (o.Priority == nil || *o.Priority < *q.MinPriority) {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) FindOrdersByIDs(ctx context.Context, tenantID string, ids []string) ([]entity.OutboundOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := toSet(ids)
	var out []entity.OutboundOrder
	for _, o := range s.Orders {
		if o.TenantID == tenantID && want[o.ID] {
			out = append(out, o)
		}
	}
	return out, nil
}

// ========== 波次 ==========

func (s *MemoryStore) CreateWave(ctx context.Context, w *entity.Wave) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateWave"); err != nil {
		return err
	}
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	w.CreatedAt = s.tick()
	for i := range w.Orders {
		if w.Orders[i].ID == "" {
			w.Orders[i].ID = uuid.New().String()
		}
		w.Orders[i].WaveID = w.ID
	}
	stored := *w
	stored.Orders = append([]entity.WaveOrder(nil), w.Orders...)
	s.WaveRows = append(s.WaveRows, stored)
	return nil
}

func (s *MemoryStore) FindWaveByID(ctx context.Context, tenantID, id string) (*entity.Wave, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.WaveRows {
		if s.WaveRows[i].TenantID == tenantID && s.WaveRows[i].ID == id {
			w := s.WaveRows[i]
			w.Orders = append([]entity.WaveOrder(nil), s.WaveRows[i].Orders...)
			sort.SliceStable(w.Orders, func(a, b int) bool { return w.Orders[a].Sequence < w.Orders[b].Sequence })
			return &w, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *MemoryStore) ListWaves(ctx context.Context, params repository.WaveListParams) ([]entity.Wave, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Wave
	for _, w := range s.WaveRows {
		if w.TenantID != params.TenantID {
			continue
		}
		if params.WarehouseID != "" && w.WarehouseID != params.WarehouseID {
			continue
		}
		if params.Status != "" && w.Status != params.Status {
			continue
		}
		out = append(out, w)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	return paginate(out, params.Page, params.Size), total, nil
}

func (s *MemoryStore) UpdateWave(ctx context.Context, w *entity.Wave) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.WaveRows {
		if s.WaveRows[i].ID == w.ID && s.WaveRows[i].TenantID == w.TenantID {
			orders := s.WaveRows[i].Orders
			s.WaveRows[i] = *w
			s.WaveRows[i].Orders = orders
			return nil
		}
	}
	return repository.ErrNotFound
}

// ========== 拣货 ==========

func (s *MemoryStore) CreateTask(ctx context.Context, task *entity.PickingTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateTask"); err != nil {
		return err
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.CreatedAt = s.tick()
	for i := range task.Lines {
		if task.Lines[i].ID == "" {
			task.Lines[i].ID = uuid.New().String()
		}
		task.Lines[i].TaskID = task.ID
	}
	stored := *task
	stored.Lines = append([]entity.PickingTaskLine(nil), task.Lines...)
	s.Tasks = append(s.Tasks, stored)
	return nil
}

func (s *MemoryStore) ListTaskLinesByWave(ctx context.Context, tenantID, waveID string) ([]entity.PickingTaskLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.PickingTaskLine
	for _, t := range s.Tasks {
		if t.TenantID != tenantID || t.WaveID != waveID {
			continue
		}
		lines := append([]entity.PickingTaskLine(nil), t.Lines...)
		sort.SliceStable(lines, func(i, j int) bool { return lines[i].LineNo < lines[j].LineNo })
		out = append(out, lines...)
	}
	return out, nil
}

func (s *MemoryStore) UpsertPath(ctx context.Context, path *entity.PickingPath) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertPath"); err != nil {
		return err
	}
	for i := range s.Paths {
		if s.Paths[i].WaveID == path.WaveID {
			path.ID = s.Paths[i].ID
			path.CreatedAt = s.Paths[i].CreatedAt
			s.Paths[i] = *path
			return nil
		}
	}
	if path.ID == "" {
		path.ID = uuid.New().String()
	}
	path.CreatedAt = s.tick()
	s.Paths = append(s.Paths, *path)
	return nil
}

func (s *MemoryStore) FindPathByWave(ctx context.Context, tenantID, waveID string) (*entity.PickingPath, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Paths {
		if s.Paths[i].TenantID == tenantID && s.Paths[i].WaveID == waveID {
			p := s.Paths[i]
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ========== 审计 ==========

func (s *MemoryStore) CreateAuditEvent(ctx context.Context, e *entity.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateAuditEvent"); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	s.AuditEvents = append(s.AuditEvents, *e)
	return nil
}

// AuditActions 已记录的审计动作，按写入顺序
func (s *MemoryStore) AuditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.AuditEvents))
	for _, e := range s.AuditEvents {
		out = append(out, e.Action)
	}
	return out
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func containsStatus(list []entity.OutboundOrderStatus, s entity.OutboundOrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, page, size int) []T {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

var (
	_ repository.LocationStore  = (*MemoryStore)(nil)
	_ repository.ProductStore   = (*MemoryStore)(nil)
	_ repository.InventoryStore = (*MemoryStore)(nil)
	_ repository.SlottingStore  = (*MemoryStore)(nil)
	_ repository.OrderStore     = (*MemoryStore)(nil)
	_ repository.WaveStore      = (*MemoryStore)(nil)
	_ repository.PickingStore   = (*MemoryStore)(nil)
	_ repository.AuditStore     = (*MemoryStore)(nil)
	_ repository.UnitOfWork     = (*MemoryStore)(nil)
	_ repository.Tx             = (*MemoryStore)(nil)
)
