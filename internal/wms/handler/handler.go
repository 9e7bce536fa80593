package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/nimo-wms/internal/middleware"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/gin-gonic/gin"
)

// 权限点
const (
	PermSlottingRead  = "wms:slotting:read"
	PermSlottingWrite = "wms:slotting:write"
	PermWaveRead      = "wms:wave:read"
	PermWaveWrite     = "wms:wave:write"
)

// Handlers WMS处理器集合
type Handlers struct {
	Slotting *SlottingHandler
	Wave     *WaveHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Slotting: NewSlottingHandler(svc.Slotting, svc.Jobs),
		Wave:     NewWaveHandler(svc.Wave, svc.Picking, svc.Route, svc.Export, svc.Jobs),
	}
}

// RegisterRoutes 在已鉴权的分组下注册 /wms 路由
func (h *Handlers) RegisterRoutes(authorized *gin.RouterGroup) {
	wms := authorized.Group("/wms")

	slotting := wms.Group("/slotting")
	{
		read := middleware.RequirePermission(PermSlottingRead)
		write := middleware.RequirePermission(PermSlottingWrite)
		slotting.POST("/configs", write, h.Slotting.CreateConfig)
		slotting.GET("/configs", read, h.Slotting.ListConfigs)
		slotting.PUT("/configs/:id", write, h.Slotting.UpdateConfig)
		slotting.POST("/calculate", write, h.Slotting.Calculate)
		slotting.GET("/recommendations", read, h.Slotting.ListRecommendations)
		slotting.POST("/recommendations/:id/approve", write, h.Slotting.Approve)
		slotting.POST("/recommendations/:id/execute", write, h.Slotting.Execute)
	}

	waves := wms.Group("/waves")
	{
		read := middleware.RequirePermission(PermWaveRead)
		write := middleware.RequirePermission(PermWaveWrite)
		waves.POST("/generate", write, h.Wave.Generate)
		waves.GET("", read, h.Wave.List)
		waves.GET("/:id", read, h.Wave.Get)
		waves.POST("/:id/release", write, h.Wave.Release)
		waves.POST("/:id/start", write, h.Wave.Start)
		waves.POST("/:id/complete", write, h.Wave.Complete)
		waves.POST("/:id/cancel", write, h.Wave.Cancel)
		waves.POST("/:id/assign", write, h.Wave.Assign)
		waves.POST("/:id/picking-tasks", write, h.Wave.CreatePickingTasks)
		waves.POST("/:id/picking-path", write, h.Wave.GeneratePickingPath)
		waves.GET("/:id/picking-path", read, h.Wave.GetPickingPath)
		waves.GET("/:id/pick-list.xlsx", read, h.Wave.ExportPickList)
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func newPagination(page, pageSize int, total int64) *Pagination {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      int(total),
		TotalPages: totalPages,
	}
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Accepted 异步任务已入队
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(202, Response{
		Code:    0,
		Message: "accepted",
		Data:    data,
	})
}

// Error 错误响应，HTTP 状态码取 code 的前三位
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

func ServiceUnavailable(c *gin.Context, message string) {
	Error(c, 50300, message)
}

// ServiceError 按错误类型映射响应
func ServiceError(c *gin.Context, prefix string, err error) {
	switch {
	case errors.Is(err, service.ErrNoActiveConfig):
		Error(c, 40401, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, prefix+": "+err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		Conflict(c, err.Error())
	case errors.Is(err, service.ErrInvalidArgument):
		BadRequest(c, err.Error())
	default:
		InternalError(c, prefix+": "+err.Error())
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetTenantID 从 JWT 中间件写入的上下文读取租户
func GetTenantID(c *gin.Context) string {
	tenantID, _ := c.Get("tenant_id")
	if id, ok := tenantID.(string); ok {
		return id
	}
	return ""
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func isAsync(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.Query("async"))
	return v
}
