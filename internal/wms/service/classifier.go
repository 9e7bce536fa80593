package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/shared/cache"
	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"go.uber.org/zap"
)

const (
	abcShareA = 0.80
	abcShareB = 0.95
	xyzCVX    = 0.5
	xyzCVY    = 1.0
)

// Classification 单个商品的消耗分类结果
type Classification struct {
	ProductID    string          `json:"product_id"`
	ABC          entity.ABCClass `json:"abc_class"`
	XYZ          entity.XYZClass `json:"xyz_class"`
	Consumption  float64         `json:"consumption"`
	DailyAverage float64         `json:"daily_average"`
	OnHand       float64         `json:"on_hand"`
	DaysOfSupply float64         `json:"-"` // 可能为 +Inf
}

// ClassifyABC 按消耗量降序累计占比分级。
// 累计占比 <= 0.80 为 A，<= 0.95 为 B，其余为 C；消耗量最大的商品始终为 A，零消耗为 C。
func ClassifyABC(productIDs []string, consumption map[string]float64) map[string]entity.ABCClass {
	classes := make(map[string]entity.ABCClass, len(productIDs))

	var total float64
	for _, id := range productIDs {
		if v := consumption[id]; v > 0 {
			total += v
		}
	}

	sorted := make([]string, len(productIDs))
	copy(sorted, productIDs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return consumption[sorted[i]] > consumption[sorted[j]]
	})

	var cumulative float64
	for i, id := range sorted {
		v := consumption[id]
		if total <= 0 || v <= 0 {
			classes[id] = entity.ABCClassC
			continue
		}
		cumulative += v
		share := cumulative / total
		switch {
		case i == 0 || share <= abcShareA:
			classes[id] = entity.ABCClassA
		case share <= abcShareB:
			classes[id] = entity.ABCClassB
		default:
			classes[id] = entity.ABCClassC
		}
	}
	return classes
}

// CoefficientOfVariation 样本标准差 / 均值；均值为0时返回 +Inf
func CoefficientOfVariation(series []float64) float64 {
	n := len(series)
	if n == 0 {
		return math.Inf(1)
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	mean := sum / float64(n)
	if mean == 0 {
		return math.Inf(1)
	}
	var sq float64
	for _, v := range series {
		d := v - mean
		sq += d * d
	}
	variance := sq / math.Max(1, float64(n-1))
	return math.Sqrt(variance) / mean
}

// ClassifyXYZ 需求波动分级，空序列为 Z
func ClassifyXYZ(series []float64) entity.XYZClass {
	if len(series) == 0 {
		return entity.XYZClassZ
	}
	cv := CoefficientOfVariation(series)
	switch {
	case cv <= xyzCVX:
		return entity.XYZClassX
	case cv <= xyzCVY:
		return entity.XYZClassY
	default:
		return entity.XYZClassZ
	}
}

// DaysOfSupply 库存可用天数，日均为0时返回 +Inf
func DaysOfSupply(onHand, dailyAverage float64) float64 {
	if dailyAverage <= 0 {
		return math.Inf(1)
	}
	return onHand / dailyAverage
}

// Classifier 读取消耗流水并分类，消耗总量走缓存
type Classifier struct {
	inventory repository.InventoryStore
	cache     *cache.Cache
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewClassifier(inventory repository.InventoryStore, c *cache.Cache, ttl time.Duration, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		inventory: inventory,
		cache:     c,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

func consumptionCacheKey(tenantID, warehouseID, productID string, days int) string {
	return fmt.Sprintf("wms:consumption:%s:%s:%s:%d", tenantID, warehouseID, productID, days)
}

// Consumption 窗口期内的拣货+发运总量
func (c *Classifier) Consumption(ctx context.Context, tenantID, warehouseID, productID string, days int) (float64, error) {
	key := consumptionCacheKey(tenantID, warehouseID, productID, days)

	var cached float64
	hit, err := c.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("consumption cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	since := c.now().AddDate(0, 0, -days)
	total, err := c.inventory.SumConsumption(ctx, tenantID, warehouseID, productID, since)
	if err != nil {
		return 0, fmt.Errorf("sum consumption: %w", err)
	}
	value := total.InexactFloat64()
	if err := c.cache.SetJSON(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("consumption cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

// Classify 对一组商品做ABC/XYZ分类
func (c *Classifier) Classify(ctx context.Context, tenantID, warehouseID string, productIDs []string, cfg *entity.SlottingConfig) (map[string]*Classification, error) {
	abcDays := cfg.ABCPeriodDays
	if abcDays <= 0 {
		abcDays = 90
	}
	xyzDays := cfg.XYZPeriodDays
	if xyzDays <= 0 {
		xyzDays = 90
	}

	consumption := make(map[string]float64, len(productIDs))
	for _, id := range productIDs {
		v, err := c.Consumption(ctx, tenantID, warehouseID, id, abcDays)
		if err != nil {
			return nil, err
		}
		consumption[id] = v
	}
	abc := ClassifyABC(productIDs, consumption)

	since := c.now().AddDate(0, 0, -xyzDays)
	result := make(map[string]*Classification, len(productIDs))
	for _, id := range productIDs {
		series, err := c.inventory.DailyConsumption(ctx, tenantID, warehouseID, id, since)
		if err != nil {
			return nil, fmt.Errorf("daily consumption: %w", err)
		}
		onHand, err := c.inventory.SumQuantity(ctx, repository.PositionQuery{
			TenantID:    tenantID,
			WarehouseID: warehouseID,
			ProductID:   id,
		})
		if err != nil {
			return nil, fmt.Errorf("sum on hand: %w", err)
		}

		daily := consumption[id] / float64(abcDays)
		onHandf := onHand.InexactFloat64()
		result[id] = &Classification{
			ProductID:    id,
			ABC:          abc[id],
			XYZ:          ClassifyXYZ(series),
			Consumption:  consumption[id],
			DailyAverage: daily,
			OnHand:       onHandf,
			DaysOfSupply: DaysOfSupply(onHandf, daily),
		}
	}
	return result, nil
}
