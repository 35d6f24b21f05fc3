// Package cart 购物车用例
package cart

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/supplestore/internal/domain/cart"
	"github.com/xiebiao/supplestore/internal/domain/catalog"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

// Service 购物车服务
// Redis中只保存规格ID与数量，价格与库存每次从商品目录读取
type Service struct {
	store       cart.Store
	catalogRepo catalog.Repository
}

// NewService 创建购物车服务
func NewService(store cart.Store, catalogRepo catalog.Repository) *Service {
	return &Service{store: store, catalogRepo: catalogRepo}
}

// Get 查看购物车
// 已删除的规格从购物车中清理；已下架的规格保留但标记为缺货
func (s *Service) Get(ctx context.Context, userID uint) (*cart.Cart, error) {
	items, err := s.store.Items(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "读取购物车失败")
	}

	ids := make([]uint, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	c := &cart.Cart{UserID: userID, Lines: make([]cart.Line, 0, len(ids)), Subtotal: decimal.Zero}
	for _, id := range ids {
		v, err := s.catalogRepo.FindVariantByID(ctx, id)
		if err != nil {
			if apperrors.IsNotFound(err) {
				_ = s.store.RemoveItem(ctx, userID, id)
				continue
			}
			return nil, err
		}

		qty := items[id]
		price := v.EffectivePrice()
		line := cart.Line{
			VariantID:   v.ID,
			ProductID:   v.ProductID,
			ProductName: v.ProductName,
			SKU:         v.SKU,
			UnitPrice:   price,
			Quantity:    qty,
			LineTotal:   price.Mul(decimal.NewFromInt(int64(qty))).Round(2),
			InStock:     v.CanSell(qty),
		}
		c.Lines = append(c.Lines, line)
		c.Subtotal = c.Subtotal.Add(line.LineTotal)
	}
	return c, nil
}

// SetItem 设置数量（覆盖），规格必须存在且已上架
func (s *Service) SetItem(ctx context.Context, userID, variantID uint, quantity int) (*cart.Cart, error) {
	if quantity <= 0 {
		return nil, cart.ErrInvalidQuantity
	}
	v, err := s.catalogRepo.FindVariantByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if !v.IsActive {
		return nil, catalog.ErrVariantNotFound
	}
	if err := s.store.SetItem(ctx, userID, variantID, quantity); err != nil {
		return nil, apperrors.Wrap(err, "更新购物车失败")
	}
	return s.Get(ctx, userID)
}

// RemoveItem 删除一行
func (s *Service) RemoveItem(ctx context.Context, userID, variantID uint) (*cart.Cart, error) {
	if err := s.store.RemoveItem(ctx, userID, variantID); err != nil {
		return nil, apperrors.Wrap(err, "更新购物车失败")
	}
	return s.Get(ctx, userID)
}

// Clear 清空购物车
func (s *Service) Clear(ctx context.Context, userID uint) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return apperrors.Wrap(err, "清空购物车失败")
	}
	return nil
}

// Subtotal 购物车小计，空购物车返回cart.ErrCartEmpty
func (s *Service) Subtotal(ctx context.Context, userID uint) (decimal.Decimal, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if len(c.Lines) == 0 {
		return decimal.Zero, cart.ErrCartEmpty
	}
	return c.Subtotal, nil
}

// Items 结账用：规格ID与数量（按规格ID排序）
func (s *Service) Items(ctx context.Context, userID uint) ([]cart.Line, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Lines) == 0 {
		return nil, cart.ErrCartEmpty
	}
	return c.Lines, nil
}
