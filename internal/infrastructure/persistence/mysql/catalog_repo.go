package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/supplestore/internal/domain/catalog"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

// catalogRepository 商品仓储实现(MySQL)
// 1. 实现domain/catalog/repository.go定义的接口
// 2. SKU、slug唯一性由数据库索引保证
// 3. 库存只通过原子UPDATE修改，保证不出现负库存
type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository 创建商品仓储
func NewCatalogRepository(db *gorm.DB) catalog.Repository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) CreateCategory(ctx context.Context, c *catalog.Category) error {
	model := &CategoryModel{Name: c.Name, Slug: c.Slug}
	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return catalog.ErrSlugDuplicate
		}
		return apperrors.Wrap(err, "创建分类失败")
	}
	c.ID = model.ID
	c.CreatedAt = model.CreatedAt
	return nil
}

func (r *catalogRepository) FindCategoryByID(ctx context.Context, id uint) (*catalog.Category, error) {
	var model CategoryModel
	if err := dbFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(err, "查询分类失败")
	}
	return &catalog.Category{ID: model.ID, Name: model.Name, Slug: model.Slug, CreatedAt: model.CreatedAt}, nil
}

// CreateProduct 创建商品（不含规格，规格由CreateVariant逐个创建）
func (r *catalogRepository) CreateProduct(ctx context.Context, p *catalog.Product) error {
	model := &ProductModel{
		Name:         p.Name,
		Slug:         p.Slug,
		Description:  p.Description,
		CategoryID:   p.CategoryID,
		IsSupplement: p.IsSupplement,
		IsActive:     p.IsActive,
	}
	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return catalog.ErrSlugDuplicate
		}
		return apperrors.Wrap(err, "创建商品失败")
	}
	p.ID = model.ID
	p.CreatedAt = model.CreatedAt
	p.UpdatedAt = model.UpdatedAt
	return nil
}

// FindProductByID 查询商品，Preload规格避免N+1
func (r *catalogRepository) FindProductByID(ctx context.Context, id uint) (*catalog.Product, error) {
	var model ProductModel
	err := dbFromContext(ctx, r.db).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, apperrors.Wrap(err, "查询商品失败")
	}
	return toProductEntity(&model), nil
}

// ListProducts 分页查询商品
// 关键字匹配商品名或规格SKU
func (r *catalogRepository) ListProducts(ctx context.Context, params catalog.ListParams) ([]*catalog.Product, int64, error) {
	var (
		models []ProductModel
		total  int64
	)

	query := dbFromContext(ctx, r.db).Model(&ProductModel{})
	if params.Keyword != "" {
		pattern := likePattern(params.Keyword)
		query = query.Where("name LIKE ? OR id IN (?)", pattern,
			dbFromContext(ctx, r.db).Model(&ProductVariantModel{}).Select("product_id").Where("sku LIKE ?", pattern))
	}
	if params.CategoryID != nil {
		query = query.Where("category_id = ?", *params.CategoryID)
	}
	if params.OnlyActive {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询商品总数失败")
	}

	err := query.Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at DESC, id DESC").
		Scopes(paginate(params.Page)).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询商品列表失败")
	}

	out := make([]*catalog.Product, len(models))
	for i := range models {
		out[i] = toProductEntity(&models[i])
	}
	return out, total, nil
}

// DeleteProduct 物理删除商品及其全部规格
func (r *catalogRepository) DeleteProduct(ctx context.Context, id uint) error {
	db := dbFromContext(ctx, r.db)
	if err := db.Where("product_id = ?", id).Delete(&ProductVariantModel{}).Error; err != nil {
		return apperrors.Wrap(err, "删除商品规格失败")
	}
	result := db.Delete(&ProductModel{}, id)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "删除商品失败")
	}
	if result.RowsAffected == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

func (r *catalogRepository) CreateVariant(ctx context.Context, v *catalog.ProductVariant) error {
	model := &ProductVariantModel{
		ProductID: v.ProductID,
		SKU:       v.SKU,
		Flavor:    v.Flavor,
		Weight:    v.Weight,
		Price:     v.Price,
		SalePrice: v.SalePrice,
		Quantity:  v.Quantity,
		IsActive:  v.IsActive,
	}
	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return catalog.ErrSKUDuplicate
		}
		return apperrors.Wrap(err, "创建商品规格失败")
	}
	v.ID = model.ID
	v.CreatedAt = model.CreatedAt
	v.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *catalogRepository) FindVariantByID(ctx context.Context, id uint) (*catalog.ProductVariant, error) {
	var model ProductVariantModel
	err := dbFromContext(ctx, r.db).Preload("Product").First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, apperrors.Wrap(err, "查询商品规格失败")
	}
	return toVariantEntity(&model), nil
}

// LockVariantByID 悲观锁查询规格(SELECT ... FOR UPDATE)
// 必须通过ctx中的事务DB执行，否则锁在语句结束时立即释放
func (r *catalogRepository) LockVariantByID(ctx context.Context, id uint) (*catalog.ProductVariant, error) {
	var model ProductVariantModel
	err := dbFromContext(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Product").
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, apperrors.Wrap(err, "锁定商品规格失败")
	}
	return toVariantEntity(&model), nil
}

// UpdateVariant 更新价格与上下架状态（库存不在此更新）
func (r *catalogRepository) UpdateVariant(ctx context.Context, v *catalog.ProductVariant) error {
	result := dbFromContext(ctx, r.db).Model(&ProductVariantModel{}).Where("id = ?", v.ID).Updates(map[string]interface{}{
		"flavor":     v.Flavor,
		"weight":     v.Weight,
		"price":      v.Price,
		"sale_price": v.SalePrice,
		"is_active":  v.IsActive,
		"updated_at": v.UpdatedAt,
	})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新商品规格失败")
	}
	if result.RowsAffected == 0 {
		return catalog.ErrVariantNotFound
	}
	return nil
}

// UpdateVariantQuantity 更新库存(原子操作)
// UPDATE product_variants SET quantity = quantity + delta WHERE id = ? AND quantity + delta >= 0
func (r *catalogRepository) UpdateVariantQuantity(ctx context.Context, id uint, delta int) error {
	db := dbFromContext(ctx, r.db)
	result := db.Model(&ProductVariantModel{}).
		Where("id = ?", id).
		Where("quantity + ? >= 0", delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新库存失败")
	}

	if result.RowsAffected == 0 {
		// 规格不存在或库存不足，再查一次确定原因
		var model ProductVariantModel
		if err := db.Select("id").First(&model, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return catalog.ErrVariantNotFound
			}
			return apperrors.Wrap(err, "查询商品规格失败")
		}
		return catalog.ErrInsufficientStock
	}
	return nil
}

func toProductEntity(m *ProductModel) *catalog.Product {
	p := &catalog.Product{
		ID:           m.ID,
		Name:         m.Name,
		Slug:         m.Slug,
		Description:  m.Description,
		CategoryID:   m.CategoryID,
		IsSupplement: m.IsSupplement,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	p.Variants = make([]catalog.ProductVariant, len(m.Variants))
	for i := range m.Variants {
		v := toVariantEntity(&m.Variants[i])
		v.ProductName = m.Name
		v.IsSupplement = m.IsSupplement
		p.Variants[i] = *v
	}
	return p
}

func toVariantEntity(m *ProductVariantModel) *catalog.ProductVariant {
	v := &catalog.ProductVariant{
		ID:        m.ID,
		ProductID: m.ProductID,
		SKU:       m.SKU,
		Flavor:    m.Flavor,
		Weight:    m.Weight,
		Price:     m.Price,
		SalePrice: m.SalePrice,
		Quantity:  m.Quantity,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.Product != nil {
		v.ProductName = m.Product.Name
		v.IsSupplement = m.Product.IsSupplement
	}
	return v
}
