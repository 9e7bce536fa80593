package handler

import (
	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/gin-gonic/gin"
)

// SlottingHandler 货位优化处理器
type SlottingHandler struct {
	svc  *service.SlottingService
	jobs *service.JobService
}

func NewSlottingHandler(svc *service.SlottingService, jobs *service.JobService) *SlottingHandler {
	return &SlottingHandler{svc: svc, jobs: jobs}
}

// CreateConfig 创建优化参数
// POST /api/v1/wms/slotting/configs
func (h *SlottingHandler) CreateConfig(c *gin.Context) {
	var req service.CreateConfigReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	cfg, err := h.svc.CreateConfig(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, "创建参数失败", err)
		return
	}
	Created(c, cfg)
}

// ListConfigs 参数列表
// GET /api/v1/wms/slotting/configs?warehouse_id=xxx
func (h *SlottingHandler) ListConfigs(c *gin.Context) {
	warehouseID := c.Query("warehouse_id")
	if warehouseID == "" {
		BadRequest(c, "warehouse_id is required")
		return
	}

	configs, err := h.svc.ListConfigs(c.Request.Context(), GetTenantID(c), warehouseID)
	if err != nil {
		ServiceError(c, "获取参数列表失败", err)
		return
	}
	Success(c, gin.H{"items": configs})
}

// UpdateConfig 更新参数
// PUT /api/v1/wms/slotting/configs/:id
func (h *SlottingHandler) UpdateConfig(c *gin.Context) {
	var req service.UpdateConfigReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	cfg, err := h.svc.UpdateConfig(c.Request.Context(), GetTenantID(c), c.Param("id"), &req)
	if err != nil {
		ServiceError(c, "参数不存在", err)
		return
	}
	Success(c, cfg)
}

// Calculate 计算货位推荐，async=true 时入队后台执行
// POST /api/v1/wms/slotting/calculate
func (h *SlottingHandler) Calculate(c *gin.Context) {
	var req service.CalculateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if isAsync(c) {
		if h.jobs == nil {
			ServiceUnavailable(c, "job queue unavailable")
			return
		}
		job, err := h.jobs.EnqueueCalculate(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
		if err != nil {
			ServiceError(c, "任务入队失败", err)
			return
		}
		Accepted(c, gin.H{"job_id": job.ID, "type": job.Type})
		return
	}

	recs, err := h.svc.Calculate(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, "计算失败", err)
		return
	}
	Success(c, gin.H{"items": recs})
}

// ListRecommendations 推荐列表
// GET /api/v1/wms/slotting/recommendations?warehouse_id=xxx&status=PENDING&page=1&page_size=20
func (h *SlottingHandler) ListRecommendations(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListRecommendations(c.Request.Context(), repository.RecommendationListParams{
		TenantID:    GetTenantID(c),
		WarehouseID: c.Query("warehouse_id"),
		Status:      entity.RecommendationStatus(c.Query("status")),
		Page:        page,
		Size:        pageSize,
	})
	if err != nil {
		ServiceError(c, "获取推荐列表失败", err)
		return
	}

	Success(c, ListResponse{
		Items:      items,
		Pagination: newPagination(page, pageSize, total),
	})
}

type approveReq struct {
	Approve *bool `json:"approve" binding:"required"`
}

// Approve 审批或驳回推荐
// POST /api/v1/wms/slotting/recommendations/:id/approve
func (h *SlottingHandler) Approve(c *gin.Context) {
	var req approveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	rec, err := h.svc.ApproveRecommendation(c.Request.Context(), GetTenantID(c), GetUserID(c), c.Param("id"), *req.Approve)
	if err != nil {
		ServiceError(c, "推荐不存在", err)
		return
	}
	Success(c, rec)
}

// Execute 执行已审批的推荐
// POST /api/v1/wms/slotting/recommendations/:id/execute
func (h *SlottingHandler) Execute(c *gin.Context) {
	rec, err := h.svc.ExecuteRecommendation(c.Request.Context(), GetTenantID(c), GetUserID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, "执行失败", err)
		return
	}
	Success(c, rec)
}
