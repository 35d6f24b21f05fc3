package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/supplestore/internal/application/order"
	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/interface/http/dto"
	"github.com/xiebiao/supplestore/internal/interface/http/middleware"
	"github.com/xiebiao/supplestore/pkg/response"
)

// OrderHandler 后台订单管理
type OrderHandler struct {
	createUseCase     *apporder.CreateOrderUseCase
	transitionUseCase *apporder.TransitionStatusUseCase
	trackingUseCase   *apporder.UpdateTrackingUseCase
	listUseCase       *apporder.ListOrdersUseCase
	getUseCase        *apporder.GetOrderUseCase
	statsUseCase      *apporder.StatsUseCase
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(
	createUseCase *apporder.CreateOrderUseCase,
	transitionUseCase *apporder.TransitionStatusUseCase,
	trackingUseCase *apporder.UpdateTrackingUseCase,
	listUseCase *apporder.ListOrdersUseCase,
	getUseCase *apporder.GetOrderUseCase,
	statsUseCase *apporder.StatsUseCase,
) *OrderHandler {
	return &OrderHandler{
		createUseCase:     createUseCase,
		transitionUseCase: transitionUseCase,
		trackingUseCase:   trackingUseCase,
		listUseCase:       listUseCase,
		getUseCase:        getUseCase,
		statsUseCase:      statsUseCase,
	}
}

// CreateOrder 后台录单
// @Summary      后台录单
// @Description  扣减库存、核销优惠券与写订单在同一事务；mark_paid为true时直接记为已收款
// @Tags         订单管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateOrderRequest true "订单信息"
// @Success      201 {object} response.Response{data=dto.OrderResponse}
// @Failure      400 {object} response.Response "库存不足/优惠券不可用/折扣冲突"
// @Failure      404 {object} response.Response "用户或规格不存在"
// @Router       /api/v1/admin/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	items := make([]apporder.ItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, apporder.ItemRequest{VariantID: item.VariantID, Quantity: item.Quantity})
	}

	o, err := h.createUseCase.Execute(c.Request.Context(), apporder.CreateOrderRequest{
		UserID:            req.UserID,
		Items:             items,
		ShippingAddressID: req.ShippingAddressID,
		CouponCode:        req.CouponCode,
		CouponID:          req.CouponID,
		Discount:          req.Discount,
		Notes:             req.Notes,
		MarkPaid:          req.MarkPaid,
		Actor:             middleware.Actor(c),
		Source:            apporder.SourceAdmin,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToOrderResponse(o))
}

// ListOrders 订单列表
// @Summary      订单列表
// @Tags         订单管理
// @Produce      json
// @Security     BearerAuth
// @Param        page      query int    false "页码"
// @Param        page_size query int    false "每页数量"
// @Param        limit     query int    false "每页数量（page_size别名）"
// @Param        status    query string false "订单状态（含REFUND_PENDING）"
// @Param        user_id   query int    false "用户ID"
// @Param        search    query string false "订单号、客户邮箱或姓名"
// @Param        startDate query string false "开始日期 yyyy-mm-dd"
// @Param        endDate   query string false "结束日期 yyyy-mm-dd（含当天）"
// @Param        sort      query string false "排序字段 created_at|total|status|order_number"
// @Param        order     query string false "asc|desc，默认desc"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.OrderResponse}}
// @Router       /api/v1/admin/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var q dto.ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	params, err := q.ToListParams()
	if err != nil {
		response.Error(c, err)
		return
	}

	list, total, err := h.listUseCase.Execute(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.ToOrderList(list), total, params.Page.Page, params.Page.PageSize)
}

// GetOrder 订单详情
// @Summary      订单详情
// @Tags         订单管理
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /api/v1/admin/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	o, err := h.getUseCase.Execute(c.Request.Context(), id, 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToOrderResponse(o))
}

// UpdateStatus 订单状态流转
// @Summary      更新订单状态
// @Description  CANCELLED退回库存；SHIPPED生成运单；REFUNDED调用网关退款，失败时进入REFUND_PENDING
// @Tags         订单管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                     true "订单ID"
// @Param        request body dto.UpdateStatusRequest true "目标状态"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      400 {object} response.Response "状态流转不合法"
// @Failure      502 {object} response.Response "网关退款失败"
// @Router       /api/v1/admin/orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	o, err := h.transitionUseCase.Execute(c.Request.Context(), apporder.TransitionRequest{
		OrderID:           id,
		Status:            status,
		Notes:             req.Notes,
		Actor:             middleware.Actor(c),
		TrackingNumber:    req.TrackingNumber,
		Carrier:           req.Carrier,
		Location:          req.Location,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToOrderResponse(o))
}

// UpdateTracking 更新物流信息（不改变订单状态）
// @Summary      更新物流
// @Tags         订单管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                       true "订单ID"
// @Param        request body dto.UpdateTrackingRequest true "物流信息"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Router       /api/v1/admin/orders/{id}/tracking [patch]
func (h *OrderHandler) UpdateTracking(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	o, err := h.trackingUseCase.Execute(c.Request.Context(), apporder.UpdateTrackingRequest{
		OrderID:           id,
		TrackingNumber:    req.TrackingNumber,
		Carrier:           req.Carrier,
		Status:            order.TrackingStatus(req.Status),
		Location:          req.Location,
		Description:       req.Description,
		EstimatedDelivery: req.EstimatedDelivery,
		Actor:             middleware.Actor(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToOrderResponse(o))
}

// Stats 订单统计
// @Summary      订单统计
// @Tags         订单管理
// @Produce      json
// @Security     BearerAuth
// @Param        period query string false "day/week/month/year" default(day)
// @Success      200 {object} response.Response{data=order.Stats}
// @Router       /api/v1/admin/orders-stats [get]
func (h *OrderHandler) Stats(c *gin.Context) {
	var q dto.StatsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	stats, err := h.statsUseCase.Execute(c.Request.Context(), order.Period(q.Period))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
