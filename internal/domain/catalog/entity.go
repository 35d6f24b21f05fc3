package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category 商品分类
type Category struct {
	ID        uint
	Name      string
	Slug      string
	CreatedAt time.Time
}

// Product 商品（聚合根）
// 一个商品下有多个规格（口味 × 重量），库存与价格挂在规格上
type Product struct {
	ID           uint
	Name         string
	Slug         string // 唯一，用于前台URL
	Description  string
	CategoryID   *uint
	IsSupplement bool // 营养补剂（下单时快照到订单明细）
	IsActive     bool
	Variants     []ProductVariant
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProductVariant 商品规格
// 不变量：
// 1. SalePrice设置时必须小于Price
// 2. Quantity >= 0
type ProductVariant struct {
	ID        uint
	ProductID uint
	SKU       string // 唯一
	Flavor    string
	Weight    string
	Price     decimal.Decimal
	SalePrice *decimal.Decimal
	Quantity  int
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time

	// 以下字段由Repository从所属商品回填（只读）
	ProductName  string
	IsSupplement bool
}

// NewProduct 创建商品（工厂方法）
func NewProduct(name, slug, description string, categoryID *uint, isSupplement bool) *Product {
	now := time.Now()
	if slug == "" {
		slug = Slugify(name)
	}
	return &Product{
		Name:         strings.TrimSpace(name),
		Slug:         slug,
		Description:  description,
		CategoryID:   categoryID,
		IsSupplement: isSupplement,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewVariant 创建规格并校验价格不变量
func NewVariant(productID uint, sku, flavor, weight string, price decimal.Decimal, salePrice *decimal.Decimal, quantity int) (*ProductVariant, error) {
	now := time.Now()
	v := &ProductVariant{
		ProductID: productID,
		SKU:       strings.ToUpper(strings.TrimSpace(sku)),
		Flavor:    flavor,
		Weight:    weight,
		Price:     price,
		SalePrice: salePrice,
		Quantity:  quantity,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate 校验规格不变量
func (v *ProductVariant) Validate() error {
	if v.SKU == "" {
		return ErrInvalidSKU
	}
	if !v.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if v.SalePrice != nil {
		if v.SalePrice.IsNegative() || !v.SalePrice.LessThan(v.Price) {
			return ErrInvalidSalePrice
		}
	}
	if v.Quantity < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// EffectivePrice 下单时实际使用的单价：有促销价用促销价，否则用原价
func (v *ProductVariant) EffectivePrice() decimal.Decimal {
	if v.SalePrice != nil {
		return *v.SalePrice
	}
	return v.Price
}

// UpdatePricing 修改价格（读-改-写，调用方负责在事务内持久化）
func (v *ProductVariant) UpdatePricing(price decimal.Decimal, salePrice *decimal.Decimal) error {
	prevPrice, prevSale := v.Price, v.SalePrice
	v.Price = price
	v.SalePrice = salePrice
	if err := v.Validate(); err != nil {
		v.Price, v.SalePrice = prevPrice, prevSale
		return err
	}
	v.UpdatedAt = time.Now()
	return nil
}

// CanSell 是否可售
func (v *ProductVariant) CanSell(quantity int) bool {
	return v.IsActive && v.Quantity >= quantity
}

// Slugify 生成URL友好的slug
func Slugify(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
