package handler

import (
	"github.com/gin-gonic/gin"

	appcart "github.com/xiebiao/supplestore/internal/application/cart"
	"github.com/xiebiao/supplestore/internal/interface/http/dto"
	"github.com/xiebiao/supplestore/internal/interface/http/middleware"
	"github.com/xiebiao/supplestore/pkg/response"
)

// CartHandler 购物车
type CartHandler struct {
	service *appcart.Service
}

func NewCartHandler(service *appcart.Service) *CartHandler {
	return &CartHandler{service: service}
}

// Get 查看购物车（按当前价格计算小计）
// @Summary      查看购物车
// @Tags         购物车
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=cart.Cart}
// @Router       /api/v1/cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SetItem 设置商品数量
// @Summary      设置购物车商品数量
// @Tags         购物车
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.SetCartItemRequest true "规格与数量"
// @Success      200 {object} response.Response{data=cart.Cart}
// @Failure      400 {object} response.Response "库存不足"
// @Router       /api/v1/cart/items [put]
func (h *CartHandler) SetItem(c *gin.Context) {
	var req dto.SetCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.SetItem(c.Request.Context(), middleware.GetUserID(c), req.VariantID, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// RemoveItem 移除商品
// @Summary      移除购物车商品
// @Tags         购物车
// @Produce      json
// @Security     BearerAuth
// @Param        variantId path int true "规格ID"
// @Success      200 {object} response.Response{data=cart.Cart}
// @Router       /api/v1/cart/items/{variantId} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	variantID, err := paramID(c, "variantId")
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.RemoveItem(c.Request.Context(), middleware.GetUserID(c), variantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Clear 清空购物车
// @Summary      清空购物车
// @Tags         购物车
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Router       /api/v1/cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
