package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/supplestore/internal/domain/catalog"
)

// CategoryRequest 创建分类，slug为空时由名称生成
type CategoryRequest struct {
	Name string `json:"name" binding:"required,max=100"`
	Slug string `json:"slug" binding:"omitempty,max=120"`
}

// ProductRequest 创建商品
type ProductRequest struct {
	Name         string `json:"name" binding:"required,max=255"`
	Slug         string `json:"slug" binding:"omitempty,max=255"`
	Description  string `json:"description" binding:"omitempty,max=5000"`
	CategoryID   *uint  `json:"category_id"`
	IsSupplement bool   `json:"is_supplement"`
}

// VariantRequest 创建规格
type VariantRequest struct {
	SKU       string           `json:"sku" binding:"required,max=64"`
	Flavor    string           `json:"flavor" binding:"omitempty,max=100"`
	Weight    string           `json:"weight" binding:"omitempty,max=50"`
	Price     decimal.Decimal  `json:"price" swaggertype:"string" example:"2499.00"`
	SalePrice *decimal.Decimal `json:"sale_price" swaggertype:"string"`
	Quantity  int              `json:"quantity" binding:"min=0"`
}

// UpdateVariantRequest 修改规格，未传字段保持不变
type UpdateVariantRequest struct {
	Price          *decimal.Decimal `json:"price" swaggertype:"string"`
	SalePrice      *decimal.Decimal `json:"sale_price" swaggertype:"string"`
	ClearSalePrice bool             `json:"clear_sale_price"`
	IsActive       *bool            `json:"is_active"`
}

// ListProductsQuery 商品列表查询
type ListProductsQuery struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Keyword    string `form:"keyword" binding:"omitempty,max=100"`
	CategoryID *uint  `form:"category_id"`
}

// CategoryResponse 分类
type CategoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// VariantResponse 规格
type VariantResponse struct {
	ID             uint             `json:"id"`
	ProductID      uint             `json:"product_id"`
	SKU            string           `json:"sku"`
	Flavor         string           `json:"flavor,omitempty"`
	Weight         string           `json:"weight,omitempty"`
	Price          decimal.Decimal  `json:"price" swaggertype:"string"`
	SalePrice      *decimal.Decimal `json:"sale_price,omitempty" swaggertype:"string"`
	EffectivePrice decimal.Decimal  `json:"effective_price" swaggertype:"string"`
	Quantity       int              `json:"quantity"`
	IsActive       bool             `json:"is_active"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// ProductResponse 商品（含规格）
type ProductResponse struct {
	ID           uint              `json:"id"`
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Description  string            `json:"description,omitempty"`
	CategoryID   *uint             `json:"category_id,omitempty"`
	IsSupplement bool              `json:"is_supplement"`
	IsActive     bool              `json:"is_active"`
	Variants     []VariantResponse `json:"variants"`
	CreatedAt    time.Time         `json:"created_at"`
}

func ToCategoryResponse(c *catalog.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

func ToVariantResponse(v *catalog.ProductVariant) VariantResponse {
	return VariantResponse{
		ID:             v.ID,
		ProductID:      v.ProductID,
		SKU:            v.SKU,
		Flavor:         v.Flavor,
		Weight:         v.Weight,
		Price:          v.Price,
		SalePrice:      v.SalePrice,
		EffectivePrice: v.EffectivePrice(),
		Quantity:       v.Quantity,
		IsActive:       v.IsActive,
		UpdatedAt:      v.UpdatedAt,
	}
}

func ToProductResponse(p *catalog.Product) *ProductResponse {
	resp := &ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		Description:  p.Description,
		CategoryID:   p.CategoryID,
		IsSupplement: p.IsSupplement,
		IsActive:     p.IsActive,
		Variants:     make([]VariantResponse, 0, len(p.Variants)),
		CreatedAt:    p.CreatedAt,
	}
	for i := range p.Variants {
		resp.Variants = append(resp.Variants, ToVariantResponse(&p.Variants[i]))
	}
	return resp
}

func ToProductList(list []*catalog.Product) []*ProductResponse {
	out := make([]*ProductResponse, 0, len(list))
	for _, p := range list {
		out = append(out, ToProductResponse(p))
	}
	return out
}
