package handler

import (
	"github.com/gin-gonic/gin"

	appinventory "github.com/xiebiao/supplestore/internal/application/inventory"
	"github.com/xiebiao/supplestore/internal/domain/inventory"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	"github.com/xiebiao/supplestore/internal/interface/http/dto"
	"github.com/xiebiao/supplestore/internal/interface/http/middleware"
	"github.com/xiebiao/supplestore/pkg/response"
)

// InventoryHandler 库存调整与流水
type InventoryHandler struct {
	adjustUseCase    *appinventory.AdjustStockUseCase
	listLogsUseCase  *appinventory.ListLogsUseCase
	reconcileUseCase *appinventory.ReconcileUseCase
}

func NewInventoryHandler(
	adjustUseCase *appinventory.AdjustStockUseCase,
	listLogsUseCase *appinventory.ListLogsUseCase,
	reconcileUseCase *appinventory.ReconcileUseCase,
) *InventoryHandler {
	return &InventoryHandler{
		adjustUseCase:    adjustUseCase,
		listLogsUseCase:  listLogsUseCase,
		reconcileUseCase: reconcileUseCase,
	}
}

// Adjust 人工调整库存
// @Summary      库存调整
// @Tags         库存
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.AdjustStockRequest true "调整量"
// @Success      201 {object} response.Response{data=dto.InventoryLogResponse}
// @Failure      400 {object} response.Response "库存不足"
// @Router       /api/v1/admin/inventory/adjust [post]
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	log, err := h.adjustUseCase.Execute(c.Request.Context(), appinventory.AdjustRequest{
		VariantID:   req.VariantID,
		Delta:       req.Delta,
		Reason:      inventory.Reason(req.Reason),
		ReferenceID: req.ReferenceID,
		Notes:       req.Notes,
		Actor:       middleware.Actor(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToInventoryLogResponse(log))
}

// ListLogs 规格的库存流水（新的在前）
// @Summary      库存流水
// @Tags         库存
// @Produce      json
// @Security     BearerAuth
// @Param        variantId path  int true  "规格ID"
// @Param        page      query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.InventoryLogResponse}}
// @Router       /api/v1/admin/inventory/{variantId}/logs [get]
func (h *InventoryHandler) ListLogs(c *gin.Context) {
	id, err := paramID(c, "variantId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}
	page := shared.Page{Page: q.Page, PageSize: q.PageSize}.Normalize()

	list, total, err := h.listLogsUseCase.Execute(c.Request.Context(), id, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.ToInventoryLogList(list), total, page.Page, page.PageSize)
}

// Reconcile 重放流水核对当前库存
// @Summary      库存核对
// @Tags         库存
// @Produce      json
// @Security     BearerAuth
// @Param        variantId path int true "规格ID"
// @Success      200 {object} response.Response{data=appinventory.ReconcileResult}
// @Router       /api/v1/admin/inventory/{variantId}/reconcile [get]
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	id, err := paramID(c, "variantId")
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.reconcileUseCase.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
