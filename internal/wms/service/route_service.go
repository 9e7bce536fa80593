package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/shared/cache"
	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// RouteService 拣货路径规划
type RouteService struct {
	locations    repository.LocationStore
	waves        repository.WaveStore
	picking      repository.PickingStore
	cache        *cache.Cache
	distanceTTL  time.Duration
	walkingSpeed float64
	audit        *AuditLogger
	logger       *zap.Logger
}

func NewRouteService(locations repository.LocationStore, waves repository.WaveStore, picking repository.PickingStore, c *cache.Cache, distanceTTL time.Duration, walkingSpeed float64, audit *AuditLogger, logger *zap.Logger) *RouteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if walkingSpeed <= 0 {
		walkingSpeed = 1.0
	}
	return &RouteService{
		locations:    locations,
		waves:        waves,
		picking:      picking,
		cache:        c,
		distanceTTL:  distanceTTL,
		walkingSpeed: walkingSpeed,
		audit:        audit,
		logger:       logger,
	}
}

type routeNode struct {
	id                string
	code              string
	aisle, row, level int
}

func manhattan(a, b routeNode) float64 {
	return float64(absInt(a.aisle-b.aisle) + absInt(a.row-b.row) + absInt(a.level-b.level))
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// distanceTable 成对距离，按 (租户, 仓库) 缓存
type distanceTable struct {
	values map[string]float64
	dirty  bool
}

func (t *distanceTable) between(a, b routeNode) float64 {
	key := pairKey(a.id, b.id)
	if d, ok := t.values[key]; ok {
		return d
	}
	d := manhattan(a, b)
	t.values[key] = d
	t.dirty = true
	return d
}

func distanceCacheKey(tenantID, warehouseID string) string {
	return fmt.Sprintf("wms:distance:%s:%s", tenantID, warehouseID)
}

// planRoute 从 START 出发的最近邻路径；距离相同取剩余列表中靠前者
func planRoute(nodes []routeNode, table *distanceTable, speed float64) (entity.PathStops, float64, float64) {
	start := routeNode{id: entity.StartNodeID, code: entity.StartNodeID}
	stops := entity.PathStops{{Sequence: 0, LocationID: start.id, LocationCode: start.code}}

	remaining := append([]routeNode(nil), nodes...)
	current := start
	var totalDistance, totalTime float64
	for len(remaining) > 0 {
		best := 0
		bestDist := table.between(current, remaining[0])
		for i := 1; i < len(remaining); i++ {
			if d := table.between(current, remaining[i]); d < bestDist {
				best, bestDist = i, d
			}
		}
		next := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)

		legTime := bestDist / speed
		totalDistance += bestDist
		totalTime += legTime
		stops = append(stops, entity.PathStop{
			Sequence:          len(stops),
			LocationID:        next.id,
			LocationCode:      next.code,
			Aisle:             next.aisle,
			Row:               next.row,
			Level:             next.level,
			EstimatedDistance: bestDist,
			EstimatedTime:     legTime,
		})
		current = next
	}
	return stops, totalDistance, totalTime
}

func (s *RouteService) loadDistances(ctx context.Context, key string) *distanceTable {
	table := &distanceTable{values: map[string]float64{}}
	hit, err := s.cache.GetJSON(ctx, key, &table.values)
	if err != nil {
		s.logger.Warn("distance cache read failed", zap.String("key", key), zap.Error(err))
	}
	if !hit || table.values == nil {
		table.values = map[string]float64{}
	}
	return table
}

// GeneratePickingPathForWave 为波次的拣货库位规划路径，每个波次保留一条
func (s *RouteService) GeneratePickingPathForWave(ctx context.Context, tenantID, actorID, waveID string) (*entity.PickingPath, error) {
	w, err := s.waves.FindWaveByID(ctx, tenantID, waveID)
	if err != nil {
		return nil, err
	}
	lines, err := s.picking.ListTaskLinesByWave(ctx, tenantID, waveID)
	if err != nil {
		return nil, fmt.Errorf("list task lines: %w", err)
	}

	var ids []string
	seen := map[string]bool{}
	for _, l := range lines {
		if !seen[l.FromLocationID] {
			seen[l.FromLocationID] = true
			ids = append(ids, l.FromLocationID)
		}
	}
	found, err := s.locations.FindLocationsByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("find locations: %w", err)
	}
	byID := make(map[string]*entity.Location, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	nodes := make([]routeNode, 0, len(ids))
	for _, id := range ids {
		n := routeNode{id: id}
		if loc, ok := byID[id]; ok {
			n.code = loc.Code
			n.aisle, n.row, n.level = loc.Coordinates()
		}
		nodes = append(nodes, n)
	}

	key := distanceCacheKey(tenantID, w.WarehouseID)
	table := s.loadDistances(ctx, key)
	stops, totalDistance, totalTime := planRoute(nodes, table, s.walkingSpeed)
	if table.dirty {
		if err := s.cache.SetJSON(ctx, key, table.values, s.distanceTTL); err != nil {
			s.logger.Warn("distance cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	sequence := make(pq.StringArray, 0, len(stops)-1)
	for _, st := range stops[1:] {
		sequence = append(sequence, st.LocationID)
	}
	path := &entity.PickingPath{
		TenantID:           tenantID,
		WarehouseID:        w.WarehouseID,
		WaveID:             w.ID,
		Stops:              stops,
		LocationSequence:   sequence,
		TotalDistance:      totalDistance,
		TotalEstimatedTime: totalTime,
	}
	if err := s.picking.UpsertPath(ctx, path); err != nil {
		return nil, fmt.Errorf("upsert picking path: %w", err)
	}

	s.audit.Record(ctx, tenantID, "picking", "picking.generate_path", strPtr(w.ID), map[string]interface{}{
		"stops":          len(stops),
		"total_distance": totalDistance,
	}, actorID)
	return path, nil
}

func (s *RouteService) GetPickingPath(ctx context.Context, tenantID, waveID string) (*entity.PickingPath, error) {
	return s.picking.FindPathByWave(ctx, tenantID, waveID)
}
