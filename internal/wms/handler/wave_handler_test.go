package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrders(store *testutil.MemoryStore) {
	store.Locations = []entity.Location{
		testutil.NewLocation("loc-a", "A-01", "PICK", 0, 1, 0),
		testutil.NewLocation("loc-b", "B-05", "PICK", 2, 3, 0),
	}
	store.Products = []entity.Product{
		testutil.NewProduct("p1", "SKU-1"),
		testutil.NewProduct("p2", "SKU-2"),
	}
	store.Positions = []entity.InventoryPosition{
		testutil.NewPosition("pos-1", "p1", "loc-b", "10", entity.InventoryStateReserved),
		testutil.NewPosition("pos-2", "p2", "loc-a", "10", entity.InventoryStateReserved),
	}
	store.Orders = []entity.OutboundOrder{
		testutil.NewOrder("o1", 1, testutil.WithRoute("R1"), testutil.WithLine("l1", "p1", "3")),
		testutil.NewOrder("o2", 2, testutil.WithRoute("R1"), testutil.WithLine("l2", "p1", "4"), testutil.WithLine("l3", "p2", "1")),
	}
}

func generateWave(t *testing.T, env *testEnv) string {
	t.Helper()
	w := testutil.DoRequest(env.router, "POST", "/api/v1/wms/waves/generate",
		map[string]interface{}{"warehouse_id": testutil.TestWarehouse, "strategy": "BY_ROUTE"}, env.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	items := dataOf(t, testutil.ParseResponse(w))["items"].([]interface{})
	require.Len(t, items, 1)
	wave := items[0].(map[string]interface{})
	assert.Equal(t, "R1", wave["route_code"])
	assert.EqualValues(t, 2, wave["total_orders"])
	assert.EqualValues(t, 3, wave["total_lines"])
	return wave["id"].(string)
}

func TestWaveHandler_GenerateValidation(t *testing.T) {
	env := setupTest(t, nil)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/wms/waves/generate",
		map[string]interface{}{"warehouse_id": testutil.TestWarehouse, "strategy": "BY_MOOD"}, env.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.router, "POST", "/api/v1/wms/waves/generate",
		map[string]interface{}{"strategy": "BY_ROUTE"}, env.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.router, "POST", "/api/v1/wms/waves/generate?async=1",
		map[string]interface{}{"warehouse_id": testutil.TestWarehouse, "strategy": "BY_ROUTE"}, env.token)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWaveHandler_Lifecycle(t *testing.T) {
	env := setupTest(t, nil)
	seedOrders(env.store)
	id := generateWave(t, env)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/wms/waves/"+id+"/start", nil, env.token)
	assert.Equal(t, http.StatusConflict, w.Code, "start before release")

	w = testutil.DoRequest(env.router, "POST", "/api/v1/wms/waves/"+id+"/assign",
		map[string]interface{}{"picker_id": "picker-7"}, env.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "picker-7", dataOf(t, testutil.ParseResponse(w))["picker_id"])

	for _, step := range []struct{ action, status string }{
		{"release", "RELEASED"},
		{"start", "IN_PROGRESS"},
		{"complete", "COMPLETED"},
	} {
		w = testutil.DoRequest(env.router, "POST", "/api/v1/wms/waves/"+id+"/"+step.action, nil, env.token)
		require.Equal(t, http.StatusOK, w.Code, step.action+": "+w.Body.String())
		assert.Equal(t, step.status, dataOf(t, testutil.ParseResponse(w))["status"])
	}

	w = testutil.DoRequest(env.router, "POST", "/api/v1/wms/waves/"+id+"/cancel", nil, env.token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = testutil.DoRequest(env.router, "GET", "/api/v1/wms/waves/"+id, nil, env.token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "COMPLETED", dataOf(t, testutil.ParseResponse(w))["status"])

	w = testutil.DoRequest(env.router, "GET", "/api/v1/wms/waves?status=COMPLETED", nil, env.token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataOf(t, testutil.ParseResponse(w))["items"], 1)
}

func TestWaveHandler_NotFound(t *testing.T) {
	env := setupTest(t, nil)

	for _, path := range []string{
		"/api/v1/wms/waves/missing",
		"/api/v1/wms/waves/missing/picking-path",
	} {
		w := testutil.DoRequest(env.router, "GET", path, nil, env.token)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := testutil.DoRequest(env.router, "POST", "/api/v1/wms/waves/missing/release", nil, env.token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWaveHandler_PickingFlow(t *testing.T) {
	env := setupTest(t, nil)
	seedOrders(env.store)
	id := generateWave(t, env)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/wms/waves/"+id+"/picking-tasks", nil, env.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := dataOf(t, testutil.ParseResponse(w))
	assert.Equal(t, "PENDING", task["status"])
	lines := task["lines"].([]interface{})
	require.Len(t, lines, 2)
	first := lines[0].(map[string]interface{})
	assert.Equal(t, "loc-b", first["from_location_id"])
	assert.Equal(t, "7", first["quantity_to_pick"])

	w = testutil.DoRequest(env.router, "POST", "/api/v1/wms/waves/"+id+"/picking-path", nil, env.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	path := dataOf(t, testutil.ParseResponse(w))
	assert.Equal(t, []interface{}{"loc-a", "loc-b"}, path["location_sequence"])
	assert.EqualValues(t, 5, path["total_distance"])

	w = testutil.DoRequest(env.router, "GET", "/api/v1/wms/waves/"+id+"/picking-path", nil, env.token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, path["id"], dataOf(t, testutil.ParseResponse(w))["id"])

	w = testutil.DoRequest(env.router, "GET", "/api/v1/wms/waves/"+id+"/pick-list.xlsx", nil, env.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(w.Header().Get("Content-Disposition"), "PickList_WV"))
	assert.NotZero(t, w.Body.Len())
}

func TestWaveHandler_PickingTasksForMissingWave(t *testing.T) {
	env := setupTest(t, nil)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/wms/waves/missing/picking-tasks", nil, env.token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWaveHandler_Permissions(t *testing.T) {
	env := setupTest(t, nil)
	slottingOnly := testutil.GenerateTestToken(testutil.TestUserID, testutil.TestTenantID, []string{PermSlottingRead, PermSlottingWrite})

	w := testutil.DoRequest(env.router, "GET", "/api/v1/wms/waves", nil, slottingOnly)
	assert.Equal(t, http.StatusForbidden, w.Code)

	readOnly := testutil.GenerateTestToken(testutil.TestUserID, testutil.TestTenantID, []string{PermWaveRead})
	w = testutil.DoRequest(env.router, "GET", "/api/v1/wms/waves", nil, readOnly)
	assert.Equal(t, http.StatusOK, w.Code)
	w = testutil.DoRequest(env.router, "POST", "/api/v1/wms/waves/generate",
		map[string]interface{}{"warehouse_id": testutil.TestWarehouse, "strategy": "BY_ROUTE"}, readOnly)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
