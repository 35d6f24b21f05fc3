package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/supplestore/internal/application/order"
	"github.com/xiebiao/supplestore/internal/interface/http/dto"
	"github.com/xiebiao/supplestore/internal/interface/http/middleware"
	"github.com/xiebiao/supplestore/pkg/response"
)

// CheckoutHandler 客户结账与支付确认
type CheckoutHandler struct {
	checkoutUseCase *apporder.CheckoutUseCase
	verifyUseCase   *apporder.VerifyPaymentUseCase
	getOrderUseCase *apporder.GetOrderUseCase
}

func NewCheckoutHandler(
	checkoutUseCase *apporder.CheckoutUseCase,
	verifyUseCase *apporder.VerifyPaymentUseCase,
	getOrderUseCase *apporder.GetOrderUseCase,
) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutUseCase: checkoutUseCase,
		verifyUseCase:   verifyUseCase,
		getOrderUseCase: getOrderUseCase,
	}
}

// Checkout 购物车结账，返回订单与网关支付单
// @Summary      结账
// @Tags         结账
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CheckoutRequest true "收货地址与优惠码"
// @Success      201 {object} response.Response{data=dto.CheckoutResponse}
// @Failure      400 {object} response.Response "购物车为空/库存不足/优惠券不可用"
// @Failure      502 {object} response.Response "支付网关不可用"
// @Router       /api/v1/checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.checkoutUseCase.Execute(c.Request.Context(), apporder.CheckoutRequest{
		UserID:            middleware.GetUserID(c),
		ShippingAddressID: req.ShippingAddressID,
		CouponCode:        req.CouponCode,
		Notes:             req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.CheckoutResponse{
		Order:   dto.ToOrderResponse(result.Order),
		Payment: result.RemoteOrder,
	})
}

// Verify 前端支付完成后回传签名
// @Summary      支付确认
// @Tags         结账
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.VerifyPaymentRequest true "网关回传参数"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      400 {object} response.Response "签名校验失败"
// @Router       /api/v1/checkout/verify [post]
func (h *CheckoutHandler) Verify(c *gin.Context) {
	var req dto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	o, err := h.verifyUseCase.Execute(c.Request.Context(), apporder.VerifyPaymentRequest{
		UserID:           middleware.GetUserID(c),
		OrderID:          req.OrderID,
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		Signature:        req.RazorpaySignature,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToOrderResponse(o))
}

// GetMyOrder 客户查看自己的订单
// @Summary      我的订单详情
// @Tags         结账
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /api/v1/orders/{id} [get]
func (h *CheckoutHandler) GetMyOrder(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	o, err := h.getOrderUseCase.Execute(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToOrderResponse(o))
}
