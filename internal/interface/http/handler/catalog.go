package handler

import (
	"github.com/gin-gonic/gin"

	appcatalog "github.com/xiebiao/supplestore/internal/application/catalog"
	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	"github.com/xiebiao/supplestore/internal/interface/http/dto"
	"github.com/xiebiao/supplestore/internal/interface/http/middleware"
	"github.com/xiebiao/supplestore/pkg/response"
)

// CatalogHandler 分类、商品与规格
type CatalogHandler struct {
	service *appcatalog.Service
}

func NewCatalogHandler(service *appcatalog.Service) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// CreateCategory 创建分类
// @Summary      创建分类
// @Tags         商品管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CategoryRequest true "分类"
// @Success      201 {object} response.Response{data=dto.CategoryResponse}
// @Router       /api/v1/admin/categories [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req dto.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	cat, err := h.service.CreateCategory(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToCategoryResponse(cat))
}

// CreateProduct 创建商品
// @Summary      创建商品
// @Tags         商品管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.ProductRequest true "商品"
// @Success      201 {object} response.Response{data=dto.ProductResponse}
// @Router       /api/v1/admin/products [post]
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req dto.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	p, err := h.service.CreateProduct(c.Request.Context(), appcatalog.CreateProductRequest{
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		CategoryID:   req.CategoryID,
		IsSupplement: req.IsSupplement,
		Actor:        middleware.Actor(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToProductResponse(p))
}

// CreateVariant 新增规格
// @Summary      新增规格
// @Tags         商品管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                true "商品ID"
// @Param        request body dto.VariantRequest true "规格"
// @Success      201 {object} response.Response{data=dto.VariantResponse}
// @Failure      409 {object} response.Response "SKU已存在"
// @Router       /api/v1/admin/products/{id}/variants [post]
func (h *CatalogHandler) CreateVariant(c *gin.Context) {
	productID, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.VariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	v, err := h.service.CreateVariant(c.Request.Context(), appcatalog.CreateVariantRequest{
		ProductID: productID,
		SKU:       req.SKU,
		Flavor:    req.Flavor,
		Weight:    req.Weight,
		Price:     req.Price,
		SalePrice: req.SalePrice,
		Quantity:  req.Quantity,
		Actor:     middleware.Actor(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToVariantResponse(v))
}

// UpdateVariant 修改价格或上下架
// @Summary      修改规格
// @Tags         商品管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                      true "规格ID"
// @Param        request body dto.UpdateVariantRequest true "修改字段"
// @Success      200 {object} response.Response{data=dto.VariantResponse}
// @Router       /api/v1/admin/variants/{id} [patch]
func (h *CatalogHandler) UpdateVariant(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	v, err := h.service.UpdateVariant(c.Request.Context(), appcatalog.UpdateVariantRequest{
		ID:             id,
		Price:          req.Price,
		SalePrice:      req.SalePrice,
		ClearSalePrice: req.ClearSalePrice,
		IsActive:       req.IsActive,
		Actor:          middleware.Actor(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToVariantResponse(v))
}

// DeleteProduct 删除商品，存在订单明细引用时需force=true
// @Summary      删除商品
// @Tags         商品管理
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  int  true  "商品ID"
// @Param        force query bool false "强制"
// @Success      200 {object} response.Response
// @Failure      409 {object} response.Response "商品已被订单引用"
// @Router       /api/v1/admin/products/{id} [delete]
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	force := c.Query("force") == "true"

	if err := h.service.DeleteProduct(c.Request.Context(), id, force, middleware.Actor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// listProducts onlyActive为true时只返回上架商品
func (h *CatalogHandler) listProducts(c *gin.Context, onlyActive bool) {
	var q dto.ListProductsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}
	page := shared.Page{Page: q.Page, PageSize: q.PageSize}.Normalize()

	list, total, err := h.service.ListProducts(c.Request.Context(), catalog.ListParams{
		Page:       page,
		Keyword:    q.Keyword,
		CategoryID: q.CategoryID,
		OnlyActive: onlyActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.ToProductList(list), total, page.Page, page.PageSize)
}

// ListProducts 商品列表（前台）
// @Summary      商品列表
// @Tags         商品
// @Produce      json
// @Param        page        query int    false "页码"
// @Param        page_size   query int    false "每页数量"
// @Param        keyword     query string false "关键字"
// @Param        category_id query int    false "分类ID"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.ProductResponse}}
// @Router       /api/v1/products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	h.listProducts(c, true)
}

// AdminListProducts 商品列表（含下架）
// @Summary      商品列表（后台）
// @Tags         商品管理
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.ProductResponse}}
// @Router       /api/v1/admin/products [get]
func (h *CatalogHandler) AdminListProducts(c *gin.Context) {
	h.listProducts(c, false)
}

// GetProduct 商品详情
// @Summary      商品详情
// @Tags         商品
// @Produce      json
// @Param        id path int true "商品ID"
// @Success      200 {object} response.Response{data=dto.ProductResponse}
// @Failure      404 {object} response.Response "商品不存在"
// @Router       /api/v1/products/{id} [get]
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	p, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToProductResponse(p))
}
