package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bitfantasy/nimo-wms/internal/shared/cache"
	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var classifierNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestClassifyABC(t *testing.T) {
	tests := []struct {
		name        string
		consumption map[string]float64
		want        map[string]entity.ABCClass
	}{
		{
			name:        "85/10/5",
			consumption: map[string]float64{"p1": 85, "p2": 10, "p3": 5},
			want:        map[string]entity.ABCClass{"p1": entity.ABCClassA, "p2": entity.ABCClassB, "p3": entity.ABCClassC},
		},
		{
			name:        "boundaries inclusive",
			consumption: map[string]float64{"p1": 80, "p2": 15, "p3": 5},
			want:        map[string]entity.ABCClass{"p1": entity.ABCClassA, "p2": entity.ABCClassB, "p3": entity.ABCClassC},
		},
		{
			name:        "zero consumption is C",
			consumption: map[string]float64{"p1": 10, "p2": 0},
			want:        map[string]entity.ABCClass{"p1": entity.ABCClassA, "p2": entity.ABCClassC},
		},
		{
			name:        "no consumption at all",
			consumption: map[string]float64{},
			want:        map[string]entity.ABCClass{"p1": entity.ABCClassC, "p2": entity.ABCClassC},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := make([]string, 0, len(tt.want))
			for _, id := range []string{"p1", "p2", "p3"} {
				if _, ok := tt.want[id]; ok {
					ids = append(ids, id)
				}
			}
			assert.Equal(t, tt.want, ClassifyABC(ids, tt.consumption))
		})
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.InDelta(t, 0.5, CoefficientOfVariation([]float64{2, 4, 6}), 1e-9)
	assert.InDelta(t, 1.0, CoefficientOfVariation([]float64{0, 4, 8}), 1e-9)
	assert.Equal(t, 0.0, CoefficientOfVariation([]float64{7}))
	assert.True(t, math.IsInf(CoefficientOfVariation([]float64{0, 0}), 1))
	assert.True(t, math.IsInf(CoefficientOfVariation(nil), 1))
}

func TestClassifyXYZ(t *testing.T) {
	assert.Equal(t, entity.XYZClassX, ClassifyXYZ([]float64{2, 4, 6}))
	assert.Equal(t, entity.XYZClassY, ClassifyXYZ([]float64{0, 4, 8}))
	assert.Equal(t, entity.XYZClassZ, ClassifyXYZ([]float64{1, 10, 100}))
	assert.Equal(t, entity.XYZClassZ, ClassifyXYZ(nil))
}

func TestDaysOfSupply(t *testing.T) {
	assert.Equal(t, 5.0, DaysOfSupply(10, 2))
	assert.True(t, math.IsInf(DaysOfSupply(10, 0), 1))
}

func newTestClassifier(store *testutil.MemoryStore, c *cache.Cache) *Classifier {
	cl := NewClassifier(store, c, time.Minute, zap.NewNop())
	cl.now = func() time.Time { return classifierNow }
	return cl
}

func TestClassifier_Classify(t *testing.T) {
	store := testutil.NewMemoryStore()
	day := func(d int) time.Time { return classifierNow.AddDate(0, 0, -d) }
	store.Movements = []entity.InventoryMovement{
		testutil.NewMovement("p1", entity.MovementTypePick, "2", day(3)),
		testutil.NewMovement("p1", entity.MovementTypeShip, "4", day(2)),
		testutil.NewMovement("p1", entity.MovementTypePick, "6", day(1)),
		testutil.NewMovement("p1", entity.MovementTypeReceipt, "500", day(1)),
		testutil.NewMovement("p1", entity.MovementTypePick, "1000", day(60)),
	}
	store.Positions = []entity.InventoryPosition{
		testutil.NewPosition("pos-1", "p1", "loc-1", "8", entity.InventoryStateAvailable),
		testutil.NewPosition("pos-2", "p1", "loc-2", "2", entity.InventoryStateReserved),
	}
	cfg := testutil.NewConfig("cfg-1")

	result, err := newTestClassifier(store, cache.New(nil)).
		Classify(context.Background(), testutil.TestTenantID, testutil.TestWarehouse, []string{"p1", "p2"}, &cfg)
	require.NoError(t, err)
	require.Len(t, result, 2)

	p1 := result["p1"]
	assert.Equal(t, 12.0, p1.Consumption)
	assert.Equal(t, entity.ABCClassA, p1.ABC)
	assert.Equal(t, entity.XYZClassX, p1.XYZ)
	assert.InDelta(t, 0.4, p1.DailyAverage, 1e-9)
	assert.Equal(t, 10.0, p1.OnHand)
	assert.InDelta(t, 25.0, p1.DaysOfSupply, 1e-9)

	p2 := result["p2"]
	assert.Equal(t, entity.ABCClassC, p2.ABC)
	assert.Equal(t, entity.XYZClassZ, p2.XYZ)
	assert.True(t, math.IsInf(p2.DaysOfSupply, 1))
}

func TestClassifier_ConsumptionCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := testutil.NewMemoryStore()
	store.Movements = []entity.InventoryMovement{
		testutil.NewMovement("p1", entity.MovementTypePick, "5", classifierNow.AddDate(0, 0, -1)),
	}
	cl := newTestClassifier(store, cache.New(rdb))
	ctx := context.Background()

	v, err := cl.Consumption(ctx, testutil.TestTenantID, testutil.TestWarehouse, "p1", 30)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
	assert.True(t, mr.Exists("wms:consumption:tenant-001:wh-001:p1:30"))

	store.Movements = append(store.Movements,
		testutil.NewMovement("p1", entity.MovementTypePick, "5", classifierNow.AddDate(0, 0, -1)))

	v, err = cl.Consumption(ctx, testutil.TestTenantID, testutil.TestWarehouse, "p1", 30)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v, "served from cache")

	mr.FastForward(2 * time.Minute)
	v, err = cl.Consumption(ctx, testutil.TestTenantID, testutil.TestWarehouse, "p1", 30)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
}

func TestClassifier_StoreError(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.FailOn("SumConsumption", assert.AnError)
	cfg := testutil.NewConfig("cfg-1")

	_, err := newTestClassifier(store, cache.New(nil)).
		Classify(context.Background(), testutil.TestTenantID, testutil.TestWarehouse, []string{"p1"}, &cfg)
	assert.ErrorIs(t, err, assert.AnError)
}
