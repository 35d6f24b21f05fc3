// Package catalog 商品后台用例
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appinventory "github.com/xiebiao/supplestore/internal/application/inventory"
	"github.com/xiebiao/supplestore/internal/domain/activity"
	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/domain/inventory"
	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	"github.com/xiebiao/supplestore/pkg/logger"
)

// Service 商品后台服务
// 分类、商品、规格的增删改查；初始库存通过库存账本记流水
type Service struct {
	txManager    shared.TxManager
	repo         catalog.Repository
	orderRepo    order.Repository
	orderCache   order.Cache
	ledger       *appinventory.Ledger
	activityRepo activity.Repository
}

// NewService 创建商品后台服务
func NewService(
	txManager shared.TxManager,
	repo catalog.Repository,
	orderRepo order.Repository,
	orderCache order.Cache,
	ledger *appinventory.Ledger,
	activityRepo activity.Repository,
) *Service {
	return &Service{
		txManager:    txManager,
		repo:         repo,
		orderRepo:    orderRepo,
		orderCache:   orderCache,
		ledger:       ledger,
		activityRepo: activityRepo,
	}
}

// CreateCategory 创建分类，slug为空时由名称生成
func (s *Service) CreateCategory(ctx context.Context, name, slug string) (*catalog.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, catalog.ErrInvalidName
	}
	if slug == "" {
		slug = catalog.Slugify(name)
	}
	c := &catalog.Category{Name: name, Slug: slug, CreatedAt: time.Now()}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateProductRequest 创建商品
type CreateProductRequest struct {
	Name         string
	Slug         string
	Description  string
	CategoryID   *uint
	IsSupplement bool
	Actor        string
}

// CreateProduct 创建商品（不含规格）
func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*catalog.Product, error) {
	p := catalog.NewProduct(req.Name, req.Slug, req.Description, req.CategoryID, req.IsSupplement)
	if p.Name == "" || p.Slug == "" {
		return nil, catalog.ErrInvalidName
	}

	err := s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		if req.CategoryID != nil {
			if _, err := s.repo.FindCategoryByID(txCtx, *req.CategoryID); err != nil {
				return err
			}
		}
		if err := s.repo.CreateProduct(txCtx, p); err != nil {
			return err
		}
		return s.activityRepo.Create(txCtx, activity.New(req.Actor, "product_created", activity.EntityProduct, p.ID,
			"product %s created", p.Name))
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateVariantRequest 创建规格
type CreateVariantRequest struct {
	ProductID uint
	SKU       string
	Flavor    string
	Weight    string
	Price     decimal.Decimal
	SalePrice *decimal.Decimal
	Quantity  int
	Actor     string
}

// CreateVariant 创建规格
// SKU重复返回ErrSKUDuplicate；初始库存记一条从0开始的adjustment流水
func (s *Service) CreateVariant(ctx context.Context, req CreateVariantRequest) (*catalog.ProductVariant, error) {
	if req.Quantity < 0 {
		return nil, catalog.ErrInvalidQuantity
	}
	// 库存从0开始，由账本加到初始值
	v, err := catalog.NewVariant(req.ProductID, req.SKU, req.Flavor, req.Weight, req.Price, req.SalePrice, 0)
	if err != nil {
		return nil, err
	}

	err = s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindProductByID(txCtx, req.ProductID); err != nil {
			return err
		}
		if err := s.repo.CreateVariant(txCtx, v); err != nil {
			return err
		}
		if req.Quantity > 0 {
			if _, err := s.ledger.Apply(txCtx, appinventory.Change{
				VariantID: v.ID,
				Delta:     req.Quantity,
				Reason:    inventory.ReasonAdjustment,
				Notes:     "initial stock",
				Actor:     req.Actor,
			}); err != nil {
				return err
			}
		}
		return s.activityRepo.Create(txCtx, activity.New(req.Actor, "variant_created", activity.EntityVariant, v.ID,
			"variant %s created with stock %d", v.SKU, req.Quantity))
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindVariantByID(ctx, v.ID)
}

// UpdateVariantRequest 修改规格，nil字段保持不变
// ClearSalePrice为true时取消促销价
type UpdateVariantRequest struct {
	ID             uint
	Price          *decimal.Decimal
	SalePrice      *decimal.Decimal
	ClearSalePrice bool
	IsActive       *bool
	Actor          string
}

// UpdateVariant 读-改-写在同一事务内完成（先锁行）
func (s *Service) UpdateVariant(ctx context.Context, req UpdateVariantRequest) (*catalog.ProductVariant, error) {
	var out *catalog.ProductVariant
	err := s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		v, err := s.repo.LockVariantByID(txCtx, req.ID)
		if err != nil {
			return err
		}

		price, sale := v.Price, v.SalePrice
		if req.Price != nil {
			price = *req.Price
		}
		if req.ClearSalePrice {
			sale = nil
		} else if req.SalePrice != nil {
			sale = req.SalePrice
		}
		if err := v.UpdatePricing(price, sale); err != nil {
			return err
		}
		if req.IsActive != nil {
			v.IsActive = *req.IsActive
		}
		v.UpdatedAt = time.Now()

		if err := s.repo.UpdateVariant(txCtx, v); err != nil {
			return err
		}
		out = v
		return s.activityRepo.Create(txCtx, activity.New(req.Actor, "variant_updated", activity.EntityVariant, v.ID,
			"variant %s price=%s active=%t", v.SKU, v.Price.StringFixed(2), v.IsActive))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListProducts 商品列表（含规格）
func (s *Service) ListProducts(ctx context.Context, params catalog.ListParams) ([]*catalog.Product, int64, error) {
	params.Page = params.Page.Normalize()
	return s.repo.ListProducts(ctx, params)
}

// GetProduct 商品详情
func (s *Service) GetProduct(ctx context.Context, id uint) (*catalog.Product, error) {
	return s.repo.FindProductByID(ctx, id)
}

// DeleteProduct 删除商品及其规格
// 有订单明细引用时：force=false返回ErrProductInUse；force=true一并删除这些明细，
// 已下单的订单保留原有金额，提交后清除这些订单的缓存
func (s *Service) DeleteProduct(ctx context.Context, id uint, force bool, actor string) error {
	var affected []uint
	err := s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		p, err := s.repo.FindProductByID(txCtx, id)
		if err != nil {
			return err
		}

		variantIDs := make([]uint, 0, len(p.Variants))
		for _, v := range p.Variants {
			variantIDs = append(variantIDs, v.ID)
		}

		var removed int64
		if len(variantIDs) > 0 {
			refs, err := s.orderRepo.CountItemsByVariantIDs(txCtx, variantIDs)
			if err != nil {
				return err
			}
			if refs > 0 && !force {
				return catalog.ErrProductInUse
			}
			if refs > 0 {
				if affected, removed, err = s.orderRepo.DeleteItemsByVariantIDs(txCtx, variantIDs); err != nil {
					return err
				}
			}
		}

		if err := s.repo.DeleteProduct(txCtx, id); err != nil {
			return err
		}

		logger.FromContext(ctx).Info("商品已删除",
			zap.Uint("product_id", id),
			zap.Int("variants", len(variantIDs)),
			zap.Int64("order_items_removed", removed),
		)
		return s.activityRepo.Create(txCtx, activity.New(actor, "product_deleted", activity.EntityProduct, id,
			"product %s deleted (variants=%d, order items removed=%d)", p.Name, len(variantIDs), removed))
	})
	if err != nil {
		return err
	}
	for _, orderID := range affected {
		if err := s.orderCache.DeleteOrder(ctx, orderID); err != nil {
			logger.FromContext(ctx).Warn("删除订单缓存失败", zap.Uint("order_id", orderID), zap.Error(err))
		}
	}
	return nil
}
