package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/bitfantasy/nimo-wms/internal/middleware"
	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

const (
	JWTSecret     = "nimo-wms-test-secret"
	TestTenantID  = "tenant-001"
	TestUserID    = "test-user-001"
	TestWarehouse = "wh-001"
)

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for the given user and tenant
func GenerateTestToken(userID, tenantID string, permissions []string) string {
	if permissions == nil {
		permissions = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"tid":   tenantID,
		"name":  "Test User",
		"roles": []string{},
		"perms": permissions,
		"iss":   "nimo-wms",
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for the default tenant admin
func DefaultTestToken() string {
	return GenerateTestToken(TestUserID, TestTenantID, []string{"*"})
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// ========== 测试数据 ==========

func IntPtr(v int) *int { return &v }

func StrPtr(v string) *string { return &v }

// Qty 解析数量，格式错误直接 panic
func Qty(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// NewLocation 默认租户/仓库下的启用库位
func NewLocation(id, code, zone string, aisle, row, level int) entity.Location {
	return entity.Location{
		ID:          id,
		TenantID:    TestTenantID,
		WarehouseID: TestWarehouse,
		Code:        code,
		Zone:        zone,
		Aisle:       IntPtr(aisle),
		Row:         IntPtr(row),
		Level:       IntPtr(level),
		IsActive:    true,
	}
}

func NewProduct(id, sku string) entity.Product {
	return entity.Product{
		ID:         id,
		TenantID:   TestTenantID,
		SKU:        sku,
		Name:       sku,
		DefaultUOM: "EA",
	}
}

func NewPosition(id, productID, locationID string, qty string, state entity.InventoryState) entity.InventoryPosition {
	return entity.InventoryPosition{
		ID:          id,
		TenantID:    TestTenantID,
		WarehouseID: TestWarehouse,
		ProductID:   productID,
		LocationID:  locationID,
		Quantity:    Qty(qty),
		UOM:         "EA",
		State:       state,
	}
}

// NewMovement 消耗流水，at 为发生时间
func NewMovement(productID string, typ entity.MovementType, qty string, at time.Time) entity.InventoryMovement {
	return entity.InventoryMovement{
		TenantID:     TestTenantID,
		WarehouseID:  TestWarehouse,
		ProductID:    productID,
		Quantity:     Qty(qty),
		MovementType: typ,
		CreatedAt:    at,
	}
}

func NewConfig(id string) entity.SlottingConfig {
	return entity.SlottingConfig{
		ID:            id,
		TenantID:      TestTenantID,
		WarehouseID:   TestWarehouse,
		ABCPeriodDays: 30,
		XYZPeriodDays: 30,
		IsActive:      true,
	}
}

// OrderOption 出库单构造选项
type OrderOption func(o *entity.OutboundOrder)

func WithCarrier(code string) OrderOption {
	return func(o *entity.OutboundOrder) { o.CarrierCode = &code }
}

func WithRoute(code string) OrderOption {
	return func(o *entity.OutboundOrder) { o.RouteCode = &code }
}

func WithZone(code string) OrderOption {
	return func(o *entity.OutboundOrder) { o.ZoneCode = &code }
}

func WithPriority(p int) OrderOption {
	return func(o *entity.OutboundOrder) { o.Priority = &p }
}

func WithShipDate(t time.Time) OrderOption {
	return func(o *entity.OutboundOrder) { o.RequestedShipDate = &t }
}

func WithStatus(s entity.OutboundOrderStatus) OrderOption {
	return func(o *entity.OutboundOrder) { o.Status = s }
}

// WithLine 追加一行出库明细
func WithLine(lineID, productID, qty string) OrderOption {
	return func(o *entity.OutboundOrder) {
		o.Lines = append(o.Lines, entity.OutboundOrderLine{
			ID:        lineID,
			OrderID:   o.ID,
			LineNo:    len(o.Lines) + 1,
			ProductID: productID,
			Quantity:  Qty(qty),
			UOM:       "EA",
		})
	}
}

// NewOrder 已确认的出库单，seq 决定创建顺序
func NewOrder(id string, seq int, opts ...OrderOption) entity.OutboundOrder {
	o := entity.OutboundOrder{
		ID:          id,
		TenantID:    TestTenantID,
		WarehouseID: TestWarehouse,
		OrderNumber: "SO-" + id,
		Status:      entity.OrderStatusConfirmed,
		CreatedAt:   time.Date(2024, 1, 1, 8, 0, seq, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
