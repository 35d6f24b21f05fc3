package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/supplestore/internal/domain/order"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

// orderRepository 订单仓储实现(MySQL)
// 1. Order与OrderItem是聚合关系，必须一起保存
// 2. 查询时使用Preload预加载明细、物流、支付，避免N+1
// 3. 事务通过context传递
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// Create 创建订单（GORM通过foreignKey自动保存Items）
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)

	if err := dbFromContext(ctx, r.db).Omit("Tracking", "Payment").Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建订单失败")
	}

	o.ID = model.ID
	o.CreatedAt = model.CreatedAt
	o.UpdatedAt = model.UpdatedAt
	for i := range o.Items {
		o.Items[i].ID = model.Items[i].ID
		o.Items[i].OrderID = model.ID
	}
	return nil
}

// preloadAggregate 预加载完整聚合
func preloadAggregate(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Tracking").
		Preload("Tracking.Updates", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Payment").
		Preload("Payment.Refunds", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

// FindByID 根据ID查找订单
func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	var model OrderModel
	err := preloadAggregate(dbFromContext(ctx, r.db)).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}
	return toOrderEntity(&model), nil
}

// LockByID 悲观锁锁定订单行，再在同一事务内加载完整聚合
// 同一订单的并发状态变更在此串行化
func (r *orderRepository) LockByID(ctx context.Context, id uint) (*order.Order, error) {
	db := dbFromContext(ctx, r.db)
	var locked OrderModel
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&locked, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "锁定订单失败")
	}
	return r.FindByID(ctx, id)
}

// Update 更新状态、备注、取消信息（明细不可修改）
func (r *orderRepository) Update(ctx context.Context, o *order.Order) error {
	result := dbFromContext(ctx, r.db).Model(&OrderModel{}).Where("id = ?", o.ID).Updates(map[string]interface{}{
		"status":        string(o.Status),
		"notes":         o.Notes,
		"cancel_reason": o.CancelReason,
		"cancelled_at":  o.CancelledAt,
		"cancelled_by":  o.CancelledBy,
		"updated_at":    o.UpdatedAt,
	})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新订单失败")
	}
	if result.RowsAffected == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

// List 后台订单列表（含明细）
func (r *orderRepository) List(ctx context.Context, params order.ListParams) ([]*order.Order, int64, error) {
	var (
		models []OrderModel
		total  int64
	)

	query := dbFromContext(ctx, r.db).Model(&OrderModel{})
	if params.Status != "" {
		query = query.Where("status = ?", string(params.Status))
	}
	if params.UserID != 0 {
		query = query.Where("user_id = ?", params.UserID)
	}
	if params.Keyword != "" {
		kw := likePattern(params.Keyword)
		customers := dbFromContext(ctx, r.db).Model(&UserModel{}).Select("id").Where("email LIKE ? OR name LIKE ?", kw, kw)
		query = query.Where("order_number LIKE ? OR user_id IN (?)", kw, customers)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at < ?", *params.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单总数失败")
	}

	err := query.
		Preload("Items").
		Preload("Payment").
		Order(listOrderBy(params)).
		Scopes(paginate(params.Page)).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单列表失败")
	}

	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}
	return orders, total, nil
}

// listOrderBy 列名只来自SortField白名单，id作为稳定的第二排序键
func listOrderBy(params order.ListParams) string {
	col := order.SortByCreatedAt
	if params.SortBy.Valid() {
		col = params.SortBy
	}
	dir := "DESC"
	if params.Asc {
		dir = "ASC"
	}
	return string(col) + " " + dir + ", id " + dir
}

// ListCreatedBetween 查询[from, to)内创建的订单
func (r *orderRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*order.Order, error) {
	var models []OrderModel
	err := dbFromContext(ctx, r.db).
		Preload("Items").
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询统计订单失败")
	}
	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}
	return orders, nil
}

func (r *orderRepository) CountItemsByVariantIDs(ctx context.Context, variantIDs []uint) (int64, error) {
	if len(variantIDs) == 0 {
		return 0, nil
	}
	var n int64
	if err := dbFromContext(ctx, r.db).Model(&OrderItemModel{}).Where("variant_id IN ?", variantIDs).Count(&n).Error; err != nil {
		return 0, apperrors.Wrap(err, "统计订单明细失败")
	}
	return n, nil
}

func (r *orderRepository) DeleteItemsByVariantIDs(ctx context.Context, variantIDs []uint) ([]uint, int64, error) {
	if len(variantIDs) == 0 {
		return nil, 0, nil
	}
	db := dbFromContext(ctx, r.db)
	var orderIDs []uint
	if err := db.Model(&OrderItemModel{}).Where("variant_id IN ?", variantIDs).Distinct().Pluck("order_id", &orderIDs).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单明细失败")
	}
	result := db.Where("variant_id IN ?", variantIDs).Delete(&OrderItemModel{})
	if result.Error != nil {
		return nil, 0, apperrors.Wrap(result.Error, "删除订单明细失败")
	}
	return orderIDs, result.RowsAffected, nil
}

// SaveTracking ID为0时创建，否则更新主记录
func (r *orderRepository) SaveTracking(ctx context.Context, t *order.Tracking) error {
	db := dbFromContext(ctx, r.db)
	if t.ID == 0 {
		model := &OrderTrackingModel{
			OrderID:           t.OrderID,
			TrackingNumber:    t.TrackingNumber,
			Carrier:           t.Carrier,
			Status:            string(t.Status),
			ShippedAt:         t.ShippedAt,
			DeliveredAt:       t.DeliveredAt,
			EstimatedDelivery: t.EstimatedDelivery,
		}
		if err := db.Omit("Updates").Create(model).Error; err != nil {
			return apperrors.Wrap(err, "创建物流信息失败")
		}
		t.ID = model.ID
		t.CreatedAt = model.CreatedAt
		t.UpdatedAt = model.UpdatedAt
		for i := range t.Updates {
			t.Updates[i].TrackingID = model.ID
		}
		return nil
	}

	err := db.Model(&OrderTrackingModel{}).Where("id = ?", t.ID).Updates(map[string]interface{}{
		"tracking_number":    t.TrackingNumber,
		"carrier":            t.Carrier,
		"status":             string(t.Status),
		"shipped_at":         t.ShippedAt,
		"delivered_at":       t.DeliveredAt,
		"estimated_delivery": t.EstimatedDelivery,
		"updated_at":         t.UpdatedAt,
	}).Error
	if err != nil {
		return apperrors.Wrap(err, "更新物流信息失败")
	}
	return nil
}

func (r *orderRepository) AddTrackingUpdate(ctx context.Context, u *order.TrackingUpdate) error {
	model := &TrackingUpdateModel{
		TrackingID:  u.TrackingID,
		Status:      string(u.Status),
		Location:    u.Location,
		Description: u.Description,
		CreatedAt:   u.CreatedAt,
	}
	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "追加物流节点失败")
	}
	u.ID = model.ID
	return nil
}

// SavePayment ID为0时创建，否则更新
func (r *orderRepository) SavePayment(ctx context.Context, p *order.Payment) error {
	db := dbFromContext(ctx, r.db)
	if p.ID == 0 {
		model := &PaymentModel{
			OrderID:          p.OrderID,
			Amount:           p.Amount,
			Currency:         p.Currency,
			Provider:         p.Provider,
			GatewayOrderID:   p.GatewayOrderID,
			GatewayPaymentID: p.GatewayPaymentID,
			Status:           string(p.Status),
			PaymentMethod:    p.PaymentMethod,
			FailureReason:    p.FailureReason,
		}
		if err := db.Omit("Refunds").Create(model).Error; err != nil {
			return apperrors.Wrap(err, "创建支付记录失败")
		}
		p.ID = model.ID
		p.CreatedAt = model.CreatedAt
		p.UpdatedAt = model.UpdatedAt
		return nil
	}

	err := db.Model(&PaymentModel{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"gateway_order_id":   p.GatewayOrderID,
		"gateway_payment_id": p.GatewayPaymentID,
		"status":             string(p.Status),
		"payment_method":     p.PaymentMethod,
		"failure_reason":     p.FailureReason,
		"updated_at":         p.UpdatedAt,
	}).Error
	if err != nil {
		return apperrors.Wrap(err, "更新支付记录失败")
	}
	return nil
}

func (r *orderRepository) FindPaymentByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*order.Payment, error) {
	var model PaymentModel
	err := dbFromContext(ctx, r.db).Preload("Refunds").Where("gateway_order_id = ?", gatewayOrderID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrPaymentNotFound
		}
		return nil, apperrors.Wrap(err, "查询支付记录失败")
	}
	return toPaymentEntity(&model), nil
}

func (r *orderRepository) CreateRefund(ctx context.Context, rf *order.Refund) error {
	model := &RefundModel{
		PaymentID:       rf.PaymentID,
		GatewayRefundID: rf.GatewayRefundID,
		Amount:          rf.Amount,
		Status:          rf.Status,
		Notes:           rf.Notes,
	}
	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建退款记录失败")
	}
	rf.ID = model.ID
	rf.CreatedAt = model.CreatedAt
	rf.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *orderRepository) UpdateRefund(ctx context.Context, rf *order.Refund) error {
	result := dbFromContext(ctx, r.db).Model(&RefundModel{}).Where("id = ?", rf.ID).Updates(map[string]interface{}{
		"gateway_refund_id": rf.GatewayRefundID,
		"amount":            rf.Amount,
		"status":            rf.Status,
		"notes":             rf.Notes,
		"updated_at":        rf.UpdatedAt,
	})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新退款记录失败")
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound.WithMessage("退款记录不存在: %d", rf.ID)
	}
	return nil
}

// =========================================
// 模型转换
// =========================================

func toOrderModel(o *order.Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemModel{
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			ProductName:  item.ProductName,
			VariantSKU:   item.VariantSKU,
			Price:        item.Price,
			Quantity:     item.Quantity,
			SubTotal:     item.SubTotal,
			IsSupplement: item.IsSupplement,
		}
	}
	return &OrderModel{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		UserID:            o.UserID,
		ShippingAddressID: o.ShippingAddressID,
		Status:            string(o.Status),
		SubTotal:          o.SubTotal,
		Tax:               o.Tax,
		ShippingCost:      o.ShippingCost,
		Discount:          o.Discount,
		Total:             o.Total,
		CouponID:          o.CouponID,
		CouponCode:        o.CouponCode,
		Notes:             o.Notes,
		CancelReason:      o.CancelReason,
		CancelledAt:       o.CancelledAt,
		CancelledBy:       o.CancelledBy,
		Items:             items,
	}
}

func toOrderEntity(m *OrderModel) *order.Order {
	items := make([]order.OrderItem, len(m.Items))
	for i, it := range m.Items {
		items[i] = order.OrderItem{
			ID:           it.ID,
			OrderID:      it.OrderID,
			ProductID:    it.ProductID,
			VariantID:    it.VariantID,
			ProductName:  it.ProductName,
			VariantSKU:   it.VariantSKU,
			Price:        it.Price,
			Quantity:     it.Quantity,
			SubTotal:     it.SubTotal,
			IsSupplement: it.IsSupplement,
		}
	}

	o := &order.Order{
		ID:                m.ID,
		OrderNumber:       m.OrderNumber,
		UserID:            m.UserID,
		ShippingAddressID: m.ShippingAddressID,
		Status:            order.OrderStatus(m.Status),
		SubTotal:          m.SubTotal,
		Tax:               m.Tax,
		ShippingCost:      m.ShippingCost,
		Discount:          m.Discount,
		Total:             m.Total,
		CouponID:          m.CouponID,
		CouponCode:        m.CouponCode,
		Notes:             m.Notes,
		CancelReason:      m.CancelReason,
		CancelledAt:       m.CancelledAt,
		CancelledBy:       m.CancelledBy,
		Items:             items,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}

	if t := m.Tracking; t != nil {
		o.Tracking = &order.Tracking{
			ID:                t.ID,
			OrderID:           t.OrderID,
			TrackingNumber:    t.TrackingNumber,
			Carrier:           t.Carrier,
			Status:            order.TrackingStatus(t.Status),
			ShippedAt:         t.ShippedAt,
			DeliveredAt:       t.DeliveredAt,
			EstimatedDelivery: t.EstimatedDelivery,
			CreatedAt:         t.CreatedAt,
			UpdatedAt:         t.UpdatedAt,
		}
		for _, u := range t.Updates {
			o.Tracking.Updates = append(o.Tracking.Updates, order.TrackingUpdate{
				ID:          u.ID,
				TrackingID:  u.TrackingID,
				Status:      order.TrackingStatus(u.Status),
				Location:    u.Location,
				Description: u.Description,
				CreatedAt:   u.CreatedAt,
			})
		}
	}

	if m.Payment != nil {
		o.Payment = toPaymentEntity(m.Payment)
	}
	return o
}

func toPaymentEntity(m *PaymentModel) *order.Payment {
	p := &order.Payment{
		ID:               m.ID,
		OrderID:          m.OrderID,
		Amount:           m.Amount,
		Currency:         m.Currency,
		Provider:         m.Provider,
		GatewayOrderID:   m.GatewayOrderID,
		GatewayPaymentID: m.GatewayPaymentID,
		Status:           order.PaymentStatus(m.Status),
		PaymentMethod:    m.PaymentMethod,
		FailureReason:    m.FailureReason,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	for _, rf := range m.Refunds {
		p.Refunds = append(p.Refunds, order.Refund{
			ID:              rf.ID,
			PaymentID:       rf.PaymentID,
			GatewayRefundID: rf.GatewayRefundID,
			Amount:          rf.Amount,
			Status:          rf.Status,
			Notes:           rf.Notes,
			CreatedAt:       rf.CreatedAt,
			UpdatedAt:       rf.UpdatedAt,
		})
	}
	return p
}
