package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bitfantasy/nimo-wms/internal/shared/cache"
	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/bitfantasy/nimo-wms/internal/wms/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouteService(store *testutil.MemoryStore, c *cache.Cache, speed float64) *RouteService {
	return NewRouteService(store, store, store, c, time.Hour, speed, NewAuditLogger(store, nil, zap.NewNop()), zap.NewNop())
}

// seedTask 为波次写入一个任务，每个库位一行
func seedTask(store *testutil.MemoryStore, waveID string, locationIDs ...string) {
	task := entity.PickingTask{
		ID:          "task-" + waveID,
		TenantID:    tenant,
		WarehouseID: wh,
		WaveID:      waveID,
		Status:      entity.PickingTaskStatusPending,
	}
	for i, loc := range locationIDs {
		task.Lines = append(task.Lines, entity.PickingTaskLine{
			ID:             task.ID + "-" + loc,
			TaskID:         task.ID,
			LineNo:         i + 1,
			FromLocationID: loc,
			ProductID:      "p1",
			QuantityToPick: testutil.Qty("1"),
			UOM:            "EA",
		})
	}
	store.Tasks = append(store.Tasks, task)
}

func TestRouteService_SingleLocation(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Locations = []entity.Location{testutil.NewLocation("loc-1", "B-03", "PICK", 3, 4, 0)}
	seedWave(store, "w1")
	seedTask(store, "w1", "loc-1")

	path, err := newRouteService(store, cache.New(nil), 2).GeneratePickingPathForWave(context.Background(), tenant, actor, "w1")
	require.NoError(t, err)
	require.Len(t, path.Stops, 2)

	assert.Equal(t, entity.StartNodeID, path.Stops[0].LocationID)
	assert.Equal(t, 0, path.Stops[0].Sequence)
	assert.Equal(t, "B-03", path.Stops[1].LocationCode)
	assert.Equal(t, 7.0, path.Stops[1].EstimatedDistance)
	assert.Equal(t, 3.5, path.Stops[1].EstimatedTime)
	assert.Equal(t, 7.0, path.TotalDistance)
	assert.Equal(t, 3.5, path.TotalEstimatedTime)
	assert.Equal(t, []string{"loc-1"}, []string(path.LocationSequence))
	assert.Equal(t, []string{"picking.generate_path"}, store.AuditActions())
}

func TestRouteService_NearestNeighbour(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Locations = []entity.Location{
		testutil.NewLocation("loc-a", "A", "PICK", 5, 0, 0),
		testutil.NewLocation("loc-b", "B", "PICK", 1, 0, 0),
		testutil.NewLocation("loc-c", "C", "PICK", 2, 0, 0),
	}
	seedWave(store, "w1")
	seedTask(store, "w1", "loc-a", "loc-b", "loc-c", "loc-b")

	path, err := newRouteService(store, cache.New(nil), 1).GeneratePickingPathForWave(context.Background(), tenant, actor, "w1")
	require.NoError(t, err)
	assert.Equal(t, []string{"loc-b", "loc-c", "loc-a"}, []string(path.LocationSequence))
	assert.Equal(t, 5.0, path.TotalDistance)
	assert.Equal(t, 5.0, path.TotalEstimatedTime)
	for i, stop := range path.Stops {
		assert.Equal(t, i, stop.Sequence)
	}
}

func TestRouteService_TieKeepsFirst(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Locations = []entity.Location{
		testutil.NewLocation("loc-x", "X", "PICK", 0, 2, 0),
		testutil.NewLocation("loc-y", "Y", "PICK", 2, 0, 0),
	}
	seedWave(store, "w1")
	seedTask(store, "w1", "loc-y", "loc-x")

	path, err := newRouteService(store, cache.New(nil), 1).GeneratePickingPathForWave(context.Background(), tenant, actor, "w1")
	require.NoError(t, err)
	assert.Equal(t, []string{"loc-y", "loc-x"}, []string(path.LocationSequence))
}

func TestRouteService_MissingCoordinates(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Locations = []entity.Location{{ID: "loc-1", TenantID: tenant, WarehouseID: wh, Code: "DOCK", IsActive: true}}
	seedWave(store, "w1")
	seedTask(store, "w1", "loc-1")

	path, err := newRouteService(store, cache.New(nil), 0).GeneratePickingPathForWave(context.Background(), tenant, actor, "w1")
	require.NoError(t, err)
	require.Len(t, path.Stops, 2)
	assert.Zero(t, path.TotalDistance)
}

func TestRouteService_DistanceCacheAndUpsert(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := testutil.NewMemoryStore()
	store.Locations = []entity.Location{testutil.NewLocation("loc-1", "A-01", "PICK", 1, 1, 0)}
	seedWave(store, "w1")
	seedTask(store, "w1", "loc-1")
	svc := newRouteService(store, cache.New(rdb), 1)
	ctx := context.Background()

	first, err := svc.GeneratePickingPathForWave(ctx, tenant, actor, "w1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("wms:distance:tenant-001:wh-001"))
	ttl := mr.TTL("wms:distance:tenant-001:wh-001")
	assert.Equal(t, time.Hour, ttl)

	second, err := svc.GeneratePickingPathForWave(ctx, tenant, actor, "w1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.Paths, 1)

	got, err := svc.GetPickingPath(ctx, tenant, "w1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.TotalDistance)
}

func TestRouteService_GetPickingPathNotFound(t *testing.T) {
	_, err := newRouteService(testutil.NewMemoryStore(), cache.New(nil), 1).GetPickingPath(context.Background(), tenant, "w1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, pairKey("a", "b"), pairKey("b", "a"))
}
