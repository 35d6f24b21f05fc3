package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/xiebiao/supplestore/internal/domain/order"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

// 与MySQL唯一索引冲突时的返回一致
var errDuplicateOrderNumber = apperrors.Wrap(errors.New("duplicate order_number"), "创建订单失败")

type OrderRepo struct{ s *Store }

var _ order.Repository = (*OrderRepo)(nil)

func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	if err := r.s.injected("order.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.orders {
		if existing.OrderNumber == o.OrderNumber {
			return errDuplicateOrderNumber
		}
	}

	o.ID = r.s.data.next("orders")
	for i := range o.Items {
		o.Items[i].ID = r.s.data.next("order_items")
		o.Items[i].OrderID = o.ID
		r.s.data.orderItems[o.Items[i].ID] = o.Items[i]
	}
	r.s.data.orders[o.ID] = stripOrder(*o)
	return nil
}

func stripOrder(o order.Order) order.Order {
	o.Items = nil
	o.Tracking = nil
	o.Payment = nil
	return o
}

// hydrate 组装完整聚合，调用方持有锁
func (r *OrderRepo) hydrate(o order.Order) *order.Order {
	for _, id := range sortedKeys(r.s.data.orderItems) {
		item := r.s.data.orderItems[id]
		if item.OrderID == o.ID {
			o.Items = append(o.Items, item)
		}
	}
	for _, id := range sortedKeys(r.s.data.trackings) {
		t := r.s.data.trackings[id]
		if t.OrderID != o.ID {
			continue
		}
		for _, uid := range sortedKeys(r.s.data.updates) {
			if u := r.s.data.updates[uid]; u.TrackingID == t.ID {
				t.Updates = append(t.Updates, u)
			}
		}
		o.Tracking = &t
		break
	}
	for _, id := range sortedKeys(r.s.data.payments) {
		p := r.s.data.payments[id]
		if p.OrderID != o.ID {
			continue
		}
		for _, rid := range sortedKeys(r.s.data.refunds) {
			if rf := r.s.data.refunds[rid]; rf.PaymentID == p.ID {
				p.Refunds = append(p.Refunds, rf)
			}
		}
		o.Payment = &p
		break
	}
	return &o
}

func (r *OrderRepo) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return r.hydrate(o), nil
}

func (r *OrderRepo) LockByID(ctx context.Context, id uint) (*order.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *OrderRepo) Update(ctx context.Context, o *order.Order) error {
	if err := r.s.injected("order.Update"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.orders[o.ID]
	if !ok {
		return order.ErrOrderNotFound
	}
	stored.Status = o.Status
	stored.Notes = o.Notes
	stored.CancelReason = o.CancelReason
	stored.CancelledAt = o.CancelledAt
	stored.CancelledBy = o.CancelledBy
	stored.UpdatedAt = o.UpdatedAt
	r.s.data.orders[o.ID] = stored
	return nil
}

func (r *OrderRepo) List(ctx context.Context, params order.ListParams) ([]*order.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*order.Order
	for _, id := range sortedKeys(r.s.data.orders) {
		o := r.s.data.orders[id]
		if params.Status != "" && o.Status != params.Status {
			continue
		}
		if params.UserID != 0 && o.UserID != params.UserID {
			continue
		}
		if params.Keyword != "" && !r.matchKeyword(o, params.Keyword) {
			continue
		}
		if params.From != nil && o.CreatedAt.Before(*params.From) {
			continue
		}
		if params.To != nil && !o.CreatedAt.Before(*params.To) {
			continue
		}
		out = append(out, r.hydrate(o))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := compareBy(params.SortBy, out[i], out[j]); c != 0 {
			return (c < 0) == params.Asc
		}
		return (out[i].ID < out[j].ID) == params.Asc
	})
	return pageOf(out, params.Page), int64(len(out)), nil
}

// matchKeyword 与MySQL一致：订单号、客户邮箱或姓名包含关键字
func (r *OrderRepo) matchKeyword(o order.Order, kw string) bool {
	kw = strings.ToLower(strings.TrimSpace(kw))
	if strings.Contains(strings.ToLower(o.OrderNumber), kw) {
		return true
	}
	u, ok := r.s.data.users[o.UserID]
	return ok && (strings.Contains(strings.ToLower(u.Email), kw) || strings.Contains(strings.ToLower(u.Name), kw))
}

func compareBy(field order.SortField, a, b *order.Order) int {
	switch field {
	case order.SortByTotal:
		return a.Total.Cmp(b.Total)
	case order.SortByStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case order.SortByOrderNumber:
		return strings.Compare(a.OrderNumber, b.OrderNumber)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (r *OrderRepo) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*order.Order
	for _, id := range sortedKeys(r.s.data.orders) {
		o := r.s.data.orders[id]
		if !o.CreatedAt.Before(from) && o.CreatedAt.Before(to) {
			out = append(out, r.hydrate(o))
		}
	}
	return out, nil
}

func (r *OrderRepo) CountItemsByVariantIDs(ctx context.Context, variantIDs []uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, item := range r.s.data.orderItems {
		if containsID(variantIDs, item.VariantID) {
			n++
		}
	}
	return n, nil
}

func (r *OrderRepo) DeleteItemsByVariantIDs(ctx context.Context, variantIDs []uint) ([]uint, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var (
		orderIDs []uint
		n        int64
	)
	for _, id := range sortedKeys(r.s.data.orderItems) {
		item := r.s.data.orderItems[id]
		if containsID(variantIDs, item.VariantID) {
			delete(r.s.data.orderItems, id)
			if !containsID(orderIDs, item.OrderID) {
				orderIDs = append(orderIDs, item.OrderID)
			}
			n++
		}
	}
	return orderIDs, n, nil
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (r *OrderRepo) SaveTracking(ctx context.Context, t *order.Tracking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.ID == 0 {
		t.ID = r.s.data.next("order_tracking")
		for i := range t.Updates {
			t.Updates[i].TrackingID = t.ID
		}
	}
	stored := *t
	stored.Updates = nil
	r.s.data.trackings[t.ID] = stored
	return nil
}

func (r *OrderRepo) AddTrackingUpdate(ctx context.Context, u *order.TrackingUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.ID = r.s.data.next("tracking_updates")
	r.s.data.updates[u.ID] = *u
	return nil
}

func (r *OrderRepo) SavePayment(ctx context.Context, p *order.Payment) error {
	if err := r.s.injected("order.SavePayment"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == 0 {
		p.ID = r.s.data.next("payments")
	}
	stored := *p
	stored.Refunds = nil
	r.s.data.payments[p.ID] = stored
	return nil
}

func (r *OrderRepo) FindPaymentByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*order.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.data.payments {
		if p.GatewayOrderID == gatewayOrderID && gatewayOrderID != "" {
			return &p, nil
		}
	}
	return nil, order.ErrPaymentNotFound
}

func (r *OrderRepo) CreateRefund(ctx context.Context, rf *order.Refund) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rf.ID = r.s.data.next("refunds")
	r.s.data.refunds[rf.ID] = *rf
	return nil
}

func (r *OrderRepo) UpdateRefund(ctx context.Context, rf *order.Refund) error {
	if err := r.s.injected("order.UpdateRefund"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.refunds[rf.ID]; !ok {
		return apperrors.ErrNotFound
	}
	r.s.data.refunds[rf.ID] = *rf
	return nil
}

// SetCreatedAt 改写订单创建时间（构造列表、统计的时间分布）
func (r *OrderRepo) SetCreatedAt(id uint, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.data.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.CreatedAt = at
	r.s.data.orders[id] = o
	return nil
}

// ItemCount 订单明细总数（断言用）
func (r *OrderRepo) ItemCount() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.data.orderItems)
}

// Count 订单总数（断言用）
func (r *OrderRepo) Count() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.data.orders)
}
