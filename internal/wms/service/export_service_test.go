package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/nimo-wms/internal/shared/cache"
	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/bitfantasy/nimo-wms/internal/wms/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportService_PickListFollowsPath(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Locations = []entity.Location{
		testutil.NewLocation("loc-far", "C-09", "PICK", 9, 0, 0),
		testutil.NewLocation("loc-near", "A-01", "PICK", 1, 0, 0),
	}
	store.Products = []entity.Product{testutil.NewProduct("p1", "SKU-1")}
	seedWave(store, "w1", "o1")
	seedTask(store, "w1", "loc-far", "loc-near")
	ctx := context.Background()

	_, err := newRouteService(store, cache.New(nil), 1).GeneratePickingPathForWave(ctx, tenant, actor, "w1")
	require.NoError(t, err)

	f, filename, err := NewExportService(store, store, store).ExportPickList(ctx, tenant, "w1")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "PickList_WV-w1.xlsx", filename)

	rows, err := f.GetRows("PickList")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, pickListHeaders, rows[0])
	assert.Equal(t, "A-01", rows[1][1])
	assert.Equal(t, "SKU-1", rows[1][2])
	assert.Equal(t, "C-09", rows[2][1])
	assert.Equal(t, "汇总", rows[3][0])
}

func TestExportService_NoPathKeepsTaskOrder(t *testing.T) {
	store := testutil.NewMemoryStore()
	seedWave(store, "w1", "o1")
	seedTask(store, "w1", "loc-far", "loc-near")

	f, _, err := NewExportService(store, store, store).ExportPickList(context.Background(), tenant, "w1")
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("PickList")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "loc-far", rows[1][1])
	assert.Equal(t, "p1", rows[1][2])
}

func TestExportService_WaveNotFound(t *testing.T) {
	store := testutil.NewMemoryStore()
	_, _, err := NewExportService(store, store, store).ExportPickList(context.Background(), tenant, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
