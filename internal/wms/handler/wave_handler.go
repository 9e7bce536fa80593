package handler

import (
	"context"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/gin-gonic/gin"
)

// WaveHandler 波次与拣货处理器
type WaveHandler struct {
	svc     *service.WaveService
	picking *service.PickingService
	route   *service.RouteService
	export  *service.ExportService
	jobs    *service.JobService
}

func NewWaveHandler(svc *service.WaveService, picking *service.PickingService, route *service.RouteService, export *service.ExportService, jobs *service.JobService) *WaveHandler {
	return &WaveHandler{svc: svc, picking: picking, route: route, export: export, jobs: jobs}
}

// Generate 生成波次，async=true 时入队后台执行
// POST /api/v1/wms/waves/generate
func (h *WaveHandler) Generate(c *gin.Context) {
	var req service.GenerateWavesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if isAsync(c) {
		if h.jobs == nil {
			ServiceUnavailable(c, "job queue unavailable")
			return
		}
		job, err := h.jobs.EnqueueGenerateWaves(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
		if err != nil {
			ServiceError(c, "任务入队失败", err)
			return
		}
		Accepted(c, gin.H{"job_id": job.ID, "type": job.Type})
		return
	}

	waves, err := h.svc.GenerateWaves(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, "生成波次失败", err)
		return
	}
	Created(c, gin.H{"items": waves})
}

// List 波次列表
// GET /api/v1/wms/waves?warehouse_id=xxx&status=CREATED&page=1&page_size=20
func (h *WaveHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListWaves(c.Request.Context(), repository.WaveListParams{
		TenantID:    GetTenantID(c),
		WarehouseID: c.Query("warehouse_id"),
		Status:      entity.WaveStatus(c.Query("status")),
		Page:        page,
		Size:        pageSize,
	})
	if err != nil {
		ServiceError(c, "获取波次列表失败", err)
		return
	}

	Success(c, ListResponse{
		Items:      items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// Get 波次详情
// GET /api/v1/wms/waves/:id
func (h *WaveHandler) Get(c *gin.Context) {
	w, err := h.svc.GetWave(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, "波次不存在", err)
		return
	}
	Success(c, w)
}

type waveAction func(ctx context.Context, tenantID, actorID, id string) (*entity.Wave, error)

func (h *WaveHandler) lifecycle(c *gin.Context, action waveAction) {
	w, err := action(c.Request.Context(), GetTenantID(c), GetUserID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, "波次不存在", err)
		return
	}
	Success(c, w)
}

// Release POST /api/v1/wms/waves/:id/release
func (h *WaveHandler) Release(c *gin.Context) { h.lifecycle(c, h.svc.Release) }

// Start POST /api/v1/wms/waves/:id/start
func (h *WaveHandler) Start(c *gin.Context) { h.lifecycle(c, h.svc.Start) }

// Complete POST /api/v1/wms/waves/:id/complete
func (h *WaveHandler) Complete(c *gin.Context) { h.lifecycle(c, h.svc.Complete) }

// Cancel POST /api/v1/wms/waves/:id/cancel
func (h *WaveHandler) Cancel(c *gin.Context) { h.lifecycle(c, h.svc.Cancel) }

type assignReq struct {
	PickerID string `json:"picker_id" binding:"required"`
}

// Assign 指派拣货员
// POST /api/v1/wms/waves/:id/assign
func (h *WaveHandler) Assign(c *gin.Context) {
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	w, err := h.svc.Assign(c.Request.Context(), GetTenantID(c), GetUserID(c), c.Param("id"), req.PickerID)
	if err != nil {
		ServiceError(c, "波次不存在", err)
		return
	}
	Success(c, w)
}

// CreatePickingTasks 生成拣货任务
// POST /api/v1/wms/waves/:id/picking-tasks
func (h *WaveHandler) CreatePickingTasks(c *gin.Context) {
	task, err := h.picking.CreatePickingTasksForWave(c.Request.Context(), GetTenantID(c), GetUserID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, "生成拣货任务失败", err)
		return
	}
	Created(c, task)
}

// GeneratePickingPath 规划拣货路径
// POST /api/v1/wms/waves/:id/picking-path
func (h *WaveHandler) GeneratePickingPath(c *gin.Context) {
	path, err := h.route.GeneratePickingPathForWave(c.Request.Context(), GetTenantID(c), GetUserID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, "规划路径失败", err)
		return
	}
	Success(c, path)
}

// GetPickingPath 查询拣货路径
// GET /api/v1/wms/waves/:id/picking-path
func (h *WaveHandler) GetPickingPath(c *gin.Context) {
	path, err := h.route.GetPickingPath(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, "路径不存在", err)
		return
	}
	Success(c, path)
}

// ExportPickList 导出拣货单
// GET /api/v1/wms/waves/:id/pick-list.xlsx
func (h *WaveHandler) ExportPickList(c *gin.Context) {
	f, filename, err := h.export.ExportPickList(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, "导出失败", err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
