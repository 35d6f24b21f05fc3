package handler

import (
	"github.com/gin-gonic/gin"

	appcoupon "github.com/xiebiao/supplestore/internal/application/coupon"
	"github.com/xiebiao/supplestore/internal/domain/coupon"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	"github.com/xiebiao/supplestore/internal/interface/http/dto"
	"github.com/xiebiao/supplestore/internal/interface/http/middleware"
	"github.com/xiebiao/supplestore/pkg/response"
)

// CouponHandler 优惠券试算与后台管理
type CouponHandler struct {
	verifyUseCase *appcoupon.VerifyCouponUseCase
	applyUseCase  *appcoupon.ApplyCouponUseCase
	createUseCase *appcoupon.CreateCouponUseCase
	updateUseCase *appcoupon.UpdateCouponUseCase
	listUseCase   *appcoupon.ListCouponsUseCase
}

func NewCouponHandler(
	verifyUseCase *appcoupon.VerifyCouponUseCase,
	applyUseCase *appcoupon.ApplyCouponUseCase,
	createUseCase *appcoupon.CreateCouponUseCase,
	updateUseCase *appcoupon.UpdateCouponUseCase,
	listUseCase *appcoupon.ListCouponsUseCase,
) *CouponHandler {
	return &CouponHandler{
		verifyUseCase: verifyUseCase,
		applyUseCase:  applyUseCase,
		createUseCase: createUseCase,
		updateUseCase: updateUseCase,
		listUseCase:   listUseCase,
	}
}

// Verify 按给定小计试算
// @Summary      优惠券试算
// @Tags         优惠券
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.VerifyCouponRequest true "优惠码与小计"
// @Success      200 {object} response.Response{data=coupon.Evaluation}
// @Failure      400 {object} response.Response "优惠券不可用"
// @Router       /api/v1/coupons/verify [post]
func (h *CouponHandler) Verify(c *gin.Context) {
	var req dto.VerifyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	eval, err := h.verifyUseCase.Execute(c.Request.Context(), req.Code, req.Subtotal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, eval)
}

// Apply 按当前购物车试算
// @Summary      购物车使用优惠券
// @Tags         优惠券
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.ApplyCouponRequest true "优惠码"
// @Success      200 {object} response.Response{data=coupon.Evaluation}
// @Router       /api/v1/coupons/apply [post]
func (h *CouponHandler) Apply(c *gin.Context) {
	var req dto.ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	eval, err := h.applyUseCase.Execute(c.Request.Context(), middleware.GetUserID(c), req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, eval)
}

// List 优惠券列表
// @Summary      优惠券列表
// @Tags         优惠券管理
// @Produce      json
// @Security     BearerAuth
// @Param        page      query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.CouponResponse}}
// @Router       /api/v1/admin/coupons [get]
func (h *CouponHandler) List(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}
	page := shared.Page{Page: q.Page, PageSize: q.PageSize}.Normalize()

	list, total, err := h.listUseCase.Execute(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.ToCouponList(list), total, page.Page, page.PageSize)
}

// Create 创建优惠券
// @Summary      创建优惠券
// @Tags         优惠券管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CouponRequest true "优惠券"
// @Success      201 {object} response.Response{data=dto.CouponResponse}
// @Failure      409 {object} response.Response "优惠码已存在"
// @Router       /api/v1/admin/coupons [post]
func (h *CouponHandler) Create(c *gin.Context) {
	var req dto.CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	cp, err := h.createUseCase.Execute(c.Request.Context(), appcoupon.CreateCouponRequest{
		Code:           req.Code,
		Description:    req.Description,
		DiscountType:   coupon.DiscountType(req.DiscountType),
		DiscountValue:  req.DiscountValue,
		MinOrderAmount: req.MinOrderAmount,
		MaxUses:        req.MaxUses,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		IsActive:       active,
		Actor:          middleware.Actor(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToCouponResponse(cp))
}

// Update 修改优惠券（is_active=false即停用）
// @Summary      修改优惠券
// @Tags         优惠券管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                     true "优惠券ID"
// @Param        request body dto.UpdateCouponRequest true "修改字段"
// @Success      200 {object} response.Response{data=dto.CouponResponse}
// @Router       /api/v1/admin/coupons/{id} [patch]
func (h *CouponHandler) Update(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	var discountType *coupon.DiscountType
	if req.DiscountType != nil {
		t := coupon.DiscountType(*req.DiscountType)
		discountType = &t
	}
	cp, err := h.updateUseCase.Execute(c.Request.Context(), appcoupon.UpdateCouponRequest{
		ID:             id,
		Description:    req.Description,
		DiscountType:   discountType,
		DiscountValue:  req.DiscountValue,
		MinOrderAmount: req.MinOrderAmount,
		MaxUses:        req.MaxUses,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		IsActive:       req.IsActive,
		Actor:          middleware.Actor(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToCouponResponse(cp))
}
