package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/xiebiao/supplestore/internal/domain/activity"
	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/domain/coupon"
	"github.com/xiebiao/supplestore/internal/domain/inventory"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	"github.com/xiebiao/supplestore/internal/domain/user"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

func sortedKeys[V any](m map[uint]V) []uint {
	keys := make([]uint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func pageOf[T any](items []T, p shared.Page) []T {
	p = p.Normalize()
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// =========================================
// 用户
// =========================================

type UserRepo struct{ s *Store }

var _ user.Repository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperrors.ErrEmailDuplicate
		}
	}
	u.ID = r.s.data.next("users")
	r.s.data.users[u.ID] = *u
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id uint) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *UserRepo) Update(ctx context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.users[u.ID]; !ok {
		return apperrors.ErrUserNotFound
	}
	r.s.data.users[u.ID] = *u
	return nil
}

type AddressRepo struct{ s *Store }

var _ user.AddressRepository = (*AddressRepo)(nil)

func (r *AddressRepo) Create(ctx context.Context, a *user.Address) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.IsDefault {
		for id, existing := range r.s.data.addresses {
			if existing.UserID == a.UserID && existing.IsDefault {
				existing.IsDefault = false
				r.s.data.addresses[id] = existing
			}
		}
	}
	a.ID = r.s.data.next("addresses")
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	r.s.data.addresses[a.ID] = *a
	return nil
}

func (r *AddressRepo) FindByID(ctx context.Context, id uint) (*user.Address, error) {
	if err := r.s.injected("address.FindByID"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.data.addresses[id]
	if !ok {
		return nil, user.ErrAddressNotFound
	}
	return &a, nil
}

func (r *AddressRepo) ListByUser(ctx context.Context, userID uint) ([]*user.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*user.Address
	for _, id := range sortedKeys(r.s.data.addresses) {
		a := r.s.data.addresses[id]
		if a.UserID == userID {
			out = append(out, &a)
		}
	}
	// 默认地址在前，其余按ID倒序
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

type TokenRepo struct{ s *Store }

var _ user.TokenRepository = (*TokenRepo)(nil)

func (r *TokenRepo) Create(ctx context.Context, t *user.PurposeToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.data.next("tokens")
	r.s.data.tokens[t.ID] = *t
	return nil
}

func (r *TokenRepo) FindByHash(ctx context.Context, purpose user.Purpose, hash string) (*user.PurposeToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.tokens {
		if t.Purpose == purpose && t.TokenHash == hash {
			return &t, nil
		}
	}
	return nil, user.ErrTokenInvalid
}

func (r *TokenRepo) MarkConsumed(ctx context.Context, t *user.PurposeToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.tokens[t.ID]
	if !ok || stored.ConsumedAt != nil {
		return user.ErrTokenInvalid
	}
	stored.ConsumedAt = t.ConsumedAt
	r.s.data.tokens[t.ID] = stored
	return nil
}

// All 全部令牌（断言用）
func (r *TokenRepo) All() []user.PurposeToken {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]user.PurposeToken, 0, len(r.s.data.tokens))
	for _, id := range sortedKeys(r.s.data.tokens) {
		out = append(out, r.s.data.tokens[id])
	}
	return out
}

// =========================================
// 商品
// =========================================

type CatalogRepo struct{ s *Store }

var _ catalog.Repository = (*CatalogRepo)(nil)

func (r *CatalogRepo) CreateCategory(ctx context.Context, c *catalog.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.categories {
		if existing.Slug == c.Slug {
			return catalog.ErrSlugDuplicate
		}
	}
	c.ID = r.s.data.next("categories")
	r.s.data.categories[c.ID] = *c
	return nil
}

func (r *CatalogRepo) FindCategoryByID(ctx context.Context, id uint) (*catalog.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.categories[id]
	if !ok {
		return nil, catalog.ErrCategoryNotFound
	}
	return &c, nil
}

func (r *CatalogRepo) CreateProduct(ctx context.Context, p *catalog.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.products {
		if existing.Slug == p.Slug {
			return catalog.ErrSlugDuplicate
		}
	}
	p.ID = r.s.data.next("products")
	stored := *p
	stored.Variants = nil
	r.s.data.products[p.ID] = stored
	return nil
}

// hydrateProduct 调用方持有锁
func (r *CatalogRepo) hydrateProduct(p catalog.Product) *catalog.Product {
	p.Variants = nil
	for _, id := range sortedKeys(r.s.data.variants) {
		v := r.s.data.variants[id]
		if v.ProductID == p.ID {
			v.ProductName = p.Name
			v.IsSupplement = p.IsSupplement
			p.Variants = append(p.Variants, v)
		}
	}
	return &p
}

func (r *CatalogRepo) FindProductByID(ctx context.Context, id uint) (*catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return r.hydrateProduct(p), nil
}

func (r *CatalogRepo) ListProducts(ctx context.Context, params catalog.ListParams) ([]*catalog.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	keyword := strings.ToLower(params.Keyword)
	var matched []*catalog.Product
	for _, id := range sortedKeys(r.s.data.products) {
		p := r.hydrateProduct(r.s.data.products[id])
		if params.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *params.CategoryID) {
			continue
		}
		if params.OnlyActive && !p.IsActive {
			continue
		}
		if keyword != "" && !productMatches(p, keyword) {
			continue
		}
		matched = append(matched, p)
	}
	// 新建在前
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return pageOf(matched, params.Page), int64(len(matched)), nil
}

func productMatches(p *catalog.Product, keyword string) bool {
	if strings.Contains(strings.ToLower(p.Name), keyword) {
		return true
	}
	for _, v := range p.Variants {
		if strings.Contains(strings.ToLower(v.SKU), keyword) {
			return true
		}
	}
	return false
}

func (r *CatalogRepo) DeleteProduct(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.products[id]; !ok {
		return catalog.ErrProductNotFound
	}
	for vid, v := range r.s.data.variants {
		if v.ProductID == id {
			delete(r.s.data.variants, vid)
		}
	}
	delete(r.s.data.products, id)
	return nil
}

func (r *CatalogRepo) CreateVariant(ctx context.Context, v *catalog.ProductVariant) error {
	if err := r.s.injected("catalog.CreateVariant"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.variants {
		if existing.SKU == v.SKU {
			return catalog.ErrSKUDuplicate
		}
	}
	v.ID = r.s.data.next("variants")
	r.s.data.variants[v.ID] = *v
	return nil
}

func (r *CatalogRepo) FindVariantByID(ctx context.Context, id uint) (*catalog.ProductVariant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.data.variants[id]
	if !ok {
		return nil, catalog.ErrVariantNotFound
	}
	if p, ok := r.s.data.products[v.ProductID]; ok {
		v.ProductName = p.Name
		v.IsSupplement = p.IsSupplement
	}
	return &v, nil
}

// LockVariantByID 事务已串行化，直接读取
func (r *CatalogRepo) LockVariantByID(ctx context.Context, id uint) (*catalog.ProductVariant, error) {
	return r.FindVariantByID(ctx, id)
}

func (r *CatalogRepo) UpdateVariant(ctx context.Context, v *catalog.ProductVariant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.variants[v.ID]
	if !ok {
		return catalog.ErrVariantNotFound
	}
	stored.Flavor = v.Flavor
	stored.Weight = v.Weight
	stored.Price = v.Price
	stored.SalePrice = v.SalePrice
	stored.IsActive = v.IsActive
	stored.UpdatedAt = v.UpdatedAt
	r.s.data.variants[v.ID] = stored
	return nil
}

func (r *CatalogRepo) UpdateVariantQuantity(ctx context.Context, id uint, delta int) error {
	if err := r.s.injected("catalog.UpdateVariantQuantity"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.data.variants[id]
	if !ok {
		return catalog.ErrVariantNotFound
	}
	if v.Quantity+delta < 0 {
		return catalog.ErrInsufficientStock
	}
	v.Quantity += delta
	r.s.data.variants[id] = v
	return nil
}

// =========================================
// 库存流水
// =========================================

type InventoryRepo struct{ s *Store }

var _ inventory.Repository = (*InventoryRepo)(nil)

func (r *InventoryRepo) Create(ctx context.Context, l *inventory.InventoryLog) error {
	if err := r.s.injected("inventory.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = r.s.data.next("inventory_logs")
	r.s.data.invLogs[l.ID] = *l
	return nil
}

func (r *InventoryRepo) ListByVariant(ctx context.Context, variantID uint, page shared.Page) ([]*inventory.InventoryLog, int64, error) {
	all, _ := r.ListAllByVariant(ctx, variantID)
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return pageOf(all, page), int64(len(all)), nil
}

func (r *InventoryRepo) ListAllByVariant(ctx context.Context, variantID uint) ([]*inventory.InventoryLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*inventory.InventoryLog
	for _, id := range sortedKeys(r.s.data.invLogs) {
		l := r.s.data.invLogs[id]
		if l.VariantID == variantID {
			out = append(out, &l)
		}
	}
	return out, nil
}

func (r *InventoryRepo) ListByReference(ctx context.Context, referenceID uint, reason inventory.Reason) ([]*inventory.InventoryLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*inventory.InventoryLog
	for _, id := range sortedKeys(r.s.data.invLogs) {
		l := r.s.data.invLogs[id]
		if l.ReferenceID != nil && *l.ReferenceID == referenceID && l.Reason == reason {
			out = append(out, &l)
		}
	}
	return out, nil
}

// Count 流水总数（断言用）
func (r *InventoryRepo) Count() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.data.invLogs)
}

// =========================================
// 优惠券
// =========================================

type CouponRepo struct{ s *Store }

var _ coupon.Repository = (*CouponRepo)(nil)

func (r *CouponRepo) Create(ctx context.Context, c *coupon.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.coupons {
		if existing.Code == c.Code {
			return coupon.ErrCodeDuplicate
		}
	}
	c.ID = r.s.data.next("coupons")
	r.s.data.coupons[c.ID] = *c
	return nil
}

func (r *CouponRepo) FindByID(ctx context.Context, id uint) (*coupon.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.coupons[id]
	if !ok {
		return nil, coupon.ErrCouponNotFound
	}
	return &c, nil
}

func (r *CouponRepo) FindActiveByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	code = coupon.NormalizeCode(code)
	for _, c := range r.s.data.coupons {
		if c.Code == code && c.IsActive {
			return &c, nil
		}
	}
	return nil, coupon.ErrInvalidCouponCode
}

func (r *CouponRepo) Update(ctx context.Context, c *coupon.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.coupons[c.ID]
	if !ok {
		return coupon.ErrCouponNotFound
	}
	// 优惠码不可修改，使用次数只由IncrementUsage修改
	updated := *c
	updated.Code = stored.Code
	updated.UsedCount = stored.UsedCount
	r.s.data.coupons[c.ID] = updated
	return nil
}

func (r *CouponRepo) List(ctx context.Context, page shared.Page) ([]*coupon.Coupon, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	keys := sortedKeys(r.s.data.coupons)
	out := make([]*coupon.Coupon, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		c := r.s.data.coupons[keys[i]]
		out = append(out, &c)
	}
	return pageOf(out, page), int64(len(out)), nil
}

func (r *CouponRepo) IncrementUsage(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.coupons[id]
	if !ok {
		return coupon.ErrCouponNotFound
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return coupon.ErrUsageExceeded
	}
	c.UsedCount++
	r.s.data.coupons[id] = c
	return nil
}

// =========================================
// 审计日志
// =========================================

type ActivityRepo struct{ s *Store }

var _ activity.Repository = (*ActivityRepo)(nil)

func (r *ActivityRepo) Create(ctx context.Context, l *activity.ActivityLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = r.s.data.next("activity_logs")
	r.s.data.activities[l.ID] = *l
	return nil
}

func (r *ActivityRepo) ListByEntity(ctx context.Context, entityType string, entityID uint) ([]*activity.ActivityLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*activity.ActivityLog
	for _, id := range sortedKeys(r.s.data.activities) {
		l := r.s.data.activities[id]
		if l.EntityType == entityType && l.EntityID == entityID {
			out = append(out, &l)
		}
	}
	return out, nil
}
