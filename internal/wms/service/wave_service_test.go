package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/bitfantasy/nimo-wms/internal/wms/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWaveService(store *testutil.MemoryStore, defaultMax int) *WaveService {
	svc := NewWaveService(store, store, store, NewAuditLogger(store, nil, zap.NewNop()), defaultMax, zap.NewNop())
	svc.now = func() time.Time { return classifierNow }
	return svc
}

func waveSizes(waves []entity.Wave) []int {
	sizes := make([]int, 0, len(waves))
	for _, w := range waves {
		sizes = append(sizes, w.TotalOrders)
	}
	return sizes
}

func TestGroupKey(t *testing.T) {
	shipAt := time.Date(2024, 3, 2, 10, 45, 12, 0, time.UTC)
	o := testutil.NewOrder("o1", 1,
		testutil.WithCarrier("SF"),
		testutil.WithShipDate(shipAt),
		testutil.WithPriority(2),
	)
	assert.Equal(t, "SF", GroupKey(&o, entity.WaveStrategyByCarrier))
	assert.Equal(t, "UNASSIGNED", GroupKey(&o, entity.WaveStrategyByRoute))
	assert.Equal(t, "UNASSIGNED", GroupKey(&o, entity.WaveStrategyByZone))
	assert.Equal(t, "2024-03-02T10:00:00Z", GroupKey(&o, entity.WaveStrategyByTimeWindow))
	assert.Equal(t, "2", GroupKey(&o, entity.WaveStrategyByPriority))

	bare := testutil.NewOrder("o2", 2)
	assert.Equal(t, "NO_WINDOW", GroupKey(&bare, entity.WaveStrategyByTimeWindow))
	assert.Equal(t, "UNASSIGNED", GroupKey(&bare, entity.WaveStrategyByPriority))
}

func TestGroupOrders_Chunking(t *testing.T) {
	var orders []entity.OutboundOrder
	for i := 0; i < 7; i++ {
		orders = append(orders, testutil.NewOrder(string(rune('a'+i)), i, testutil.WithCarrier("X")))
	}
	chunks := GroupOrders(orders, entity.WaveStrategyByCarrier, 3)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 3)
	assert.Len(t, chunks[1], 3)
	assert.Len(t, chunks[2], 1)

	assert.Len(t, GroupOrders(orders, entity.WaveStrategyByCarrier, 0), 1)
}

func TestWaveService_GenerateWaves_ByCarrier(t *testing.T) {
	store := testutil.NewMemoryStore()
	for i, carrier := range []string{"X", "Y", "X", "Y", "X", "Y", "X"} {
		store.Orders = append(store.Orders, testutil.NewOrder(
			string(rune('a'+i)), i,
			testutil.WithCarrier(carrier),
			testutil.WithLine("l"+string(rune('a'+i)), "p1", "2"),
		))
	}
	svc := newWaveService(store, 0)

	waves, err := svc.GenerateWaves(context.Background(), tenant, actor, &GenerateWavesReq{
		WarehouseID:      wh,
		Strategy:         entity.WaveStrategyByCarrier,
		MaxOrdersPerWave: testutil.IntPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 3}, waveSizes(waves))

	assert.Equal(t, "X", *waves[0].CarrierCode)
	assert.Equal(t, "X", *waves[1].CarrierCode)
	assert.Equal(t, "Y", *waves[2].CarrierCode)
	assert.Equal(t, "Y", waves[2].GroupKey)

	first := waves[0]
	assert.Equal(t, entity.WaveStatusCreated, first.Status)
	assert.Equal(t, 3, first.TotalLines)
	assert.True(t, first.TotalUnits.Equal(testutil.Qty("6")))
	require.Len(t, first.Orders, 3)
	assert.Equal(t, []string{"a", "c", "e"}, []string{first.Orders[0].OrderID, first.Orders[1].OrderID, first.Orders[2].OrderID})
	assert.Equal(t, 1, first.Orders[0].Sequence)

	assert.Len(t, store.WaveRows, 3)
	assert.Equal(t, []string{"wave.generate"}, store.AuditActions())
}

func TestWaveService_GenerateWaves_DefaultWholeGroup(t *testing.T) {
	store := testutil.NewMemoryStore()
	for i := 0; i < 5; i++ {
		store.Orders = append(store.Orders, testutil.NewOrder(string(rune('a'+i)), i, testutil.WithRoute("R1")))
	}
	svc := newWaveService(store, 0)

	waves, err := svc.GenerateWaves(context.Background(), tenant, actor, &GenerateWavesReq{
		WarehouseID: wh,
		Strategy:    entity.WaveStrategyByRoute,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{5}, waveSizes(waves))
	assert.Equal(t, "R1", *waves[0].RouteCode)
}

func TestWaveService_GenerateWaves_ConfiguredDefault(t *testing.T) {
	store := testutil.NewMemoryStore()
	for i := 0; i < 5; i++ {
		store.Orders = append(store.Orders, testutil.NewOrder(string(rune('a'+i)), i))
	}
	svc := newWaveService(store, 2)

	waves, err := svc.GenerateWaves(context.Background(), tenant, actor, &GenerateWavesReq{
		WarehouseID: wh,
		Strategy:    entity.WaveStrategyByZone,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, waveSizes(waves))
	assert.Equal(t, "UNASSIGNED", waves[0].GroupKey)
	assert.Nil(t, waves[0].ZoneCode)
}

func TestWaveService_GenerateWaves_TimeWindow(t *testing.T) {
	store := testutil.NewMemoryStore()
	base := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	store.Orders = []entity.OutboundOrder{
		testutil.NewOrder("a", 1, testutil.WithShipDate(base.Add(15*time.Minute))),
		testutil.NewOrder("b", 2, testutil.WithShipDate(base.Add(65*time.Minute))),
		testutil.NewOrder("c", 3, testutil.WithShipDate(base.Add(45*time.Minute))),
		testutil.NewOrder("d", 4),
	}
	svc := newWaveService(store, 0)

	waves, err := svc.GenerateWaves(context.Background(), tenant, actor, &GenerateWavesReq{
		WarehouseID: wh,
		Strategy:    entity.WaveStrategyByTimeWindow,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 1}, waveSizes(waves))
	require.NotNil(t, waves[0].TimeWindowStart)
	assert.True(t, waves[0].TimeWindowStart.Equal(base))
	assert.Equal(t, "NO_WINDOW", waves[2].GroupKey)
	assert.Nil(t, waves[2].TimeWindowStart)
}

func TestWaveService_GenerateWaves_Filters(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Orders = []entity.OutboundOrder{
		testutil.NewOrder("a", 1, testutil.WithCarrier("X"), testutil.WithPriority(1)),
		testutil.NewOrder("b", 2, testutil.WithCarrier("X"), testutil.WithPriority(5)),
		testutil.NewOrder("c", 3, testutil.WithCarrier("Y"), testutil.WithPriority(5)),
		testutil.NewOrder("d", 4, testutil.WithCarrier("X"), testutil.WithPriority(9), testutil.WithStatus(entity.OrderStatusShipped)),
		testutil.NewOrder("e", 5, testutil.WithCarrier("X"), testutil.WithPriority(9), testutil.WithStatus(entity.OrderStatusAllocated)),
	}
	svc := newWaveService(store, 0)

	waves, err := svc.GenerateWaves(context.Background(), tenant, actor, &GenerateWavesReq{
		WarehouseID: wh,
		Strategy:    entity.WaveStrategyByPriority,
		CarrierCode: "X",
		MinPriority: testutil.IntPtr(5),
	})
	require.NoError(t, err)
	require.Len(t, waves, 2)
	assert.Equal(t, "b", waves[0].Orders[0].OrderID)
	assert.Equal(t, 5, *waves[0].Priority)
	assert.Equal(t, "e", waves[1].Orders[0].OrderID)
}

func TestWaveService_GenerateWaves_NoOrders(t *testing.T) {
	store := testutil.NewMemoryStore()
	svc := newWaveService(store, 0)

	waves, err := svc.GenerateWaves(context.Background(), tenant, actor, &GenerateWavesReq{
		WarehouseID: wh,
		Strategy:    entity.WaveStrategyByRoute,
	})
	require.NoError(t, err)
	assert.Empty(t, waves)
	assert.Empty(t, store.AuditActions())
}

func TestWaveService_GenerateWaves_Validation(t *testing.T) {
	svc := newWaveService(testutil.NewMemoryStore(), 0)
	ctx := context.Background()

	_, err := svc.GenerateWaves(ctx, tenant, actor, &GenerateWavesReq{WarehouseID: wh, Strategy: "BY_MOON"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.GenerateWaves(ctx, tenant, actor, &GenerateWavesReq{
		WarehouseID:      wh,
		Strategy:         entity.WaveStrategyByRoute,
		MaxOrdersPerWave: testutil.IntPtr(0),
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWaveService_GenerateWaves_RollsBack(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Orders = []entity.OutboundOrder{testutil.NewOrder("a", 1)}
	store.FailOn("CreateWave", errors.New("db down"))
	svc := newWaveService(store, 0)

	_, err := svc.GenerateWaves(context.Background(), tenant, actor, &GenerateWavesReq{
		WarehouseID: wh,
		Strategy:    entity.WaveStrategyByRoute,
	})
	require.Error(t, err)
	assert.Empty(t, store.WaveRows)
}

func createWave(t *testing.T, store *testutil.MemoryStore, svc *WaveService) *entity.Wave {
	t.Helper()
	store.Orders = append(store.Orders, testutil.NewOrder("o-"+t.Name(), len(store.Orders)))
	waves, err := svc.GenerateWaves(context.Background(), tenant, actor, &GenerateWavesReq{
		WarehouseID: wh,
		Strategy:    entity.WaveStrategyByRoute,
	})
	require.NoError(t, err)
	require.Len(t, waves, 1)
	return &waves[0]
}

func TestWaveService_Lifecycle(t *testing.T) {
	store := testutil.NewMemoryStore()
	svc := newWaveService(store, 0)
	ctx := context.Background()
	w := createWave(t, store, svc)

	_, err := svc.Start(ctx, tenant, actor, w.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "cannot start before release")

	released, err := svc.Release(ctx, tenant, actor, w.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WaveStatusReleased, released.Status)
	assert.NotNil(t, released.ReleasedAt)

	assigned, err := svc.Assign(ctx, tenant, actor, w.ID, "picker-7")
	require.NoError(t, err)
	assert.Equal(t, "picker-7", *assigned.PickerID)
	assert.NotNil(t, assigned.AssignedAt)

	started, err := svc.Start(ctx, tenant, actor, w.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WaveStatusInProgress, started.Status)
	assert.Equal(t, "picker-7", *started.PickerID)

	completed, err := svc.Complete(ctx, tenant, actor, w.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WaveStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	_, err = svc.Cancel(ctx, tenant, actor, w.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Assign(ctx, tenant, actor, w.ID, "picker-8")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := svc.GetWave(ctx, tenant, w.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WaveStatusCompleted, stored.Status)
	assert.Len(t, stored.Orders, 1)

	assert.Equal(t, []string{"wave.generate", "wave.release", "wave.assign", "wave.start", "wave.complete"}, store.AuditActions())
}

func TestWaveService_CancelFromCreated(t *testing.T) {
	store := testutil.NewMemoryStore()
	svc := newWaveService(store, 0)
	w := createWave(t, store, svc)

	cancelled, err := svc.Cancel(context.Background(), tenant, actor, w.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WaveStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
}

func TestWaveService_AssignValidation(t *testing.T) {
	store := testutil.NewMemoryStore()
	svc := newWaveService(store, 0)
	w := createWave(t, store, svc)

	_, err := svc.Assign(context.Background(), tenant, actor, w.ID, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Release(context.Background(), tenant, actor, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWaveService_ListWaves(t *testing.T) {
	store := testutil.NewMemoryStore()
	svc := newWaveService(store, 0)
	w := createWave(t, store, svc)
	_, err := svc.Release(context.Background(), tenant, actor, w.ID)
	require.NoError(t, err)

	list, total, err := svc.ListWaves(context.Background(), repository.WaveListParams{
		TenantID: tenant,
		Status:   entity.WaveStatusReleased,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, w.ID, list[0].ID)
}
