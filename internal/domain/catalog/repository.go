package catalog

import (
	"context"

	"github.com/xiebiao/supplestore/internal/domain/shared"
)

// ListParams 商品列表查询参数
type ListParams struct {
	shared.Page
	Keyword    string
	CategoryID *uint
	OnlyActive bool
}

// Repository 商品仓储接口
// 所有方法都通过ctx参与事务（见shared.TxManager）
type Repository interface {
	CreateCategory(ctx context.Context, c *Category) error
	FindCategoryByID(ctx context.Context, id uint) (*Category, error)

	CreateProduct(ctx context.Context, p *Product) error
	// FindProductByID 查询商品（包含规格）
	FindProductByID(ctx context.Context, id uint) (*Product, error)
	ListProducts(ctx context.Context, params ListParams) ([]*Product, int64, error)
	// DeleteProduct 物理删除商品及其全部规格
	DeleteProduct(ctx context.Context, id uint) error

	// CreateVariant SKU重复返回ErrSKUDuplicate
	CreateVariant(ctx context.Context, v *ProductVariant) error
	FindVariantByID(ctx context.Context, id uint) (*ProductVariant, error)
	// LockVariantByID SELECT ... FOR UPDATE，必须在事务内调用
	LockVariantByID(ctx context.Context, id uint) (*ProductVariant, error)
	// UpdateVariant 更新价格与上下架状态（不含库存）
	UpdateVariant(ctx context.Context, v *ProductVariant) error
	// UpdateVariantQuantity 原子增减库存，结果不能为负（否则ErrInsufficientStock）
	UpdateVariantQuantity(ctx context.Context, id uint, delta int) error
}
