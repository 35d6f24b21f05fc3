// Package memstore 仓储接口的内存实现，供应用层测试使用
//
// 数据按表规范化存放（订单明细、物流、支付分表），事务开始时复制
// 全部表，fn返回错误时整体恢复，行为与数据库事务回滚一致。
package memstore

import (
	"context"
	"sync"

	"github.com/xiebiao/supplestore/internal/domain/activity"
	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/domain/coupon"
	"github.com/xiebiao/supplestore/internal/domain/inventory"
	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	"github.com/xiebiao/supplestore/internal/domain/user"
)

type tables struct {
	seq map[string]uint

	users      map[uint]user.User
	addresses  map[uint]user.Address
	tokens     map[uint]user.PurposeToken
	categories map[uint]catalog.Category
	products   map[uint]catalog.Product
	variants   map[uint]catalog.ProductVariant
	invLogs    map[uint]inventory.InventoryLog
	coupons    map[uint]coupon.Coupon
	orders     map[uint]order.Order
	orderItems map[uint]order.OrderItem
	trackings  map[uint]order.Tracking
	updates    map[uint]order.TrackingUpdate
	payments   map[uint]order.Payment
	refunds    map[uint]order.Refund
	activities map[uint]activity.ActivityLog
}

func newTables() *tables {
	return &tables{
		seq:        map[string]uint{},
		users:      map[uint]user.User{},
		addresses:  map[uint]user.Address{},
		tokens:     map[uint]user.PurposeToken{},
		categories: map[uint]catalog.Category{},
		products:   map[uint]catalog.Product{},
		variants:   map[uint]catalog.ProductVariant{},
		invLogs:    map[uint]inventory.InventoryLog{},
		coupons:    map[uint]coupon.Coupon{},
		orders:     map[uint]order.Order{},
		orderItems: map[uint]order.OrderItem{},
		trackings:  map[uint]order.Tracking{},
		updates:    map[uint]order.TrackingUpdate{},
		payments:   map[uint]order.Payment{},
		refunds:    map[uint]order.Refund{},
		activities: map[uint]activity.ActivityLog{},
	}
}

func copyMap[V any](m map[uint]V) map[uint]V {
	out := make(map[uint]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone 各表存放值类型且不含切片，浅复制即可
func (t *tables) clone() *tables {
	seq := make(map[string]uint, len(t.seq))
	for k, v := range t.seq {
		seq[k] = v
	}
	return &tables{
		seq:        seq,
		users:      copyMap(t.users),
		addresses:  copyMap(t.addresses),
		tokens:     copyMap(t.tokens),
		categories: copyMap(t.categories),
		products:   copyMap(t.products),
		variants:   copyMap(t.variants),
		invLogs:    copyMap(t.invLogs),
		coupons:    copyMap(t.coupons),
		orders:     copyMap(t.orders),
		orderItems: copyMap(t.orderItems),
		trackings:  copyMap(t.trackings),
		updates:    copyMap(t.updates),
		payments:   copyMap(t.payments),
		refunds:    copyMap(t.refunds),
		activities: copyMap(t.activities),
	}
}

func (t *tables) next(table string) uint {
	t.seq[table]++
	return t.seq[table]
}

// Store 内存数据库
type Store struct {
	txMu sync.Mutex // 串行化顶层事务
	mu   sync.Mutex
	data *tables

	failMu sync.Mutex
	fail   map[string]error
}

// New 创建空的Store
func New() *Store {
	return &Store{data: newTables(), fail: map[string]error{}}
}

// FailOn 让指定操作（如"inventory.Create"）返回err，用于验证回滚；err为nil时取消
func (s *Store) FailOn(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

func (s *Store) injected(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.fail[op]
}

type txKey struct{}

var _ shared.TxManager = (*Store)(nil)

// Transaction 快照-回滚语义的事务；嵌套调用相当于savepoint
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
		ctx = context.WithValue(ctx, txKey{}, true)
	}

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// InTx ctx是否处于事务中
func InTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

// 仓储视图
func (s *Store) Users() *UserRepo { return &UserRepo{s} }
func (s *Store) Addresses() *AddressRepo { return &AddressRepo{s} }
func (s *Store) Tokens() *TokenRepo { return &TokenRepo{s} }
func (s *Store) Catalog() *CatalogRepo { return &CatalogRepo{s} }
func (s *Store) Inventory() *InventoryRepo { return &InventoryRepo{s} }
func (s *Store) Coupons() *CouponRepo { return &CouponRepo{s} }
func (s *Store) Orders() *OrderRepo { return &OrderRepo{s} }
func (s *Store) Activities() *ActivityRepo { return &ActivityRepo{s} }
