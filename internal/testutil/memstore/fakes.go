package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/payment"
)

// Gateway 可编程的支付网关
type Gateway struct {
	mu sync.Mutex

	CreateErr error
	RefundErr error
	VerifyErr error
	VerifyOK  bool

	// Before* 在对应网关调用开始时执行，用于模拟调用期间发生的并发读写
	BeforeCreate func()
	BeforeVerify func()
	BeforeRefund func()

	Created []payment.RemoteOrder
	Refunds []GatewayRefund
}

// GatewayRefund 一次退款调用
type GatewayRefund struct {
	PaymentID string
	Amount    decimal.Decimal
	Notes     string
}

var _ payment.Gateway = (*Gateway)(nil)

func (g *Gateway) Provider() string { return "fake" }

func (g *Gateway) CreateRemoteOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*payment.RemoteOrder, error) {
	if g.BeforeCreate != nil {
		g.BeforeCreate()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return nil, g.CreateErr
	}
	ro := payment.RemoteOrder{
		ID:       fmt.Sprintf("order_fake_%d", len(g.Created)+1),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Provider: "fake",
		KeyID:    "fake_key",
	}
	g.Created = append(g.Created, ro)
	return &ro, nil
}

func (g *Gateway) VerifyPaymentSignature(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) (bool, error) {
	if g.BeforeVerify != nil {
		g.BeforeVerify()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.VerifyErr != nil {
		return false, g.VerifyErr
	}
	return g.VerifyOK, nil
}

func (g *Gateway) Refund(ctx context.Context, gatewayPaymentID string, amount decimal.Decimal, notes string) (*payment.RefundResult, error) {
	if g.BeforeRefund != nil {
		g.BeforeRefund()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Refunds = append(g.Refunds, GatewayRefund{PaymentID: gatewayPaymentID, Amount: amount, Notes: notes})
	if g.RefundErr != nil {
		return nil, g.RefundErr
	}
	return &payment.RefundResult{
		RefundID: fmt.Sprintf("rfnd_fake_%d", len(g.Refunds)),
		Amount:   amount,
		Status:   "processed",
	}, nil
}

// Email 已发送的邮件
type Email struct {
	To      string
	Subject string
	Body    string
}

// Event 已发布的事件
type Event struct {
	RoutingKey string
	Payload    interface{}
}

// Notifier 记录邮件与事件
type Notifier struct {
	mu      sync.Mutex
	SendErr error
	Emails  []Email
	Events  []Event
}

func (n *Notifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.SendErr != nil {
		return n.SendErr
	}
	n.Emails = append(n.Emails, Email{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (n *Notifier) PublishEvent(ctx context.Context, routingKey string, event interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Events = append(n.Events, Event{RoutingKey: routingKey, Payload: event})
	return nil
}

// SentEmails 已发送邮件副本
func (n *Notifier) SentEmails() []Email {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Email(nil), n.Emails...)
}

// PublishedEvents 已发布事件副本
func (n *Notifier) PublishedEvents() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.Events...)
}

// OrderCache 内存版订单缓存
type OrderCache struct {
	mu      sync.Mutex
	orders  map[uint]order.Order
	stats   map[order.Period]order.Stats
	Deleted []uint
}

func NewOrderCache() *OrderCache {
	return &OrderCache{orders: map[uint]order.Order{}, stats: map[order.Period]order.Stats{}}
}

func (c *OrderCache) GetOrder(ctx context.Context, id uint) (*order.Order, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.orders[id]
	if !ok {
		return nil, false, nil
	}
	return &o, true, nil
}

func (c *OrderCache) SetOrder(ctx context.Context, o *order.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[o.ID] = *o
	return nil
}

// DeleteOrder 同时清除统计缓存
func (c *OrderCache) DeleteOrder(ctx context.Context, id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, id)
	c.stats = map[order.Period]order.Stats{}
	c.Deleted = append(c.Deleted, id)
	return nil
}

func (c *OrderCache) GetStats(ctx context.Context, p order.Period) (*order.Stats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stats[p]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (c *OrderCache) SetStats(ctx context.Context, s *order.Stats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[s.Period] = *s
	return nil
}

// CartStore 内存购物车
type CartStore struct {
	mu    sync.Mutex
	carts map[uint]map[uint]int
}

func NewCartStore() *CartStore {
	return &CartStore{carts: map[uint]map[uint]int{}}
}

func (s *CartStore) Items(ctx context.Context, userID uint) (map[uint]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uint]int{}
	for k, v := range s.carts[userID] {
		out[k] = v
	}
	return out, nil
}

func (s *CartStore) SetItem(ctx context.Context, userID, variantID uint, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quantity <= 0 {
		delete(s.carts[userID], variantID)
		return nil
	}
	if s.carts[userID] == nil {
		s.carts[userID] = map[uint]int{}
	}
	s.carts[userID][variantID] = quantity
	return nil
}

func (s *CartStore) RemoveItem(ctx context.Context, userID, variantID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts[userID], variantID)
	return nil
}

func (s *CartStore) Clear(ctx context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}

// SessionStore 内存会话与Token黑名单
type SessionStore struct {
	mu        sync.Mutex
	sessions  map[uint]map[string]interface{}
	blacklist map[string]time.Duration
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: map[uint]map[string]interface{}{}, blacklist: map[string]time.Duration{}}
}

func (s *SessionStore) SaveSession(ctx context.Context, userID uint, data map[string]interface{}, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = data
	return nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func (s *SessionStore) HasSession(userID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	return ok
}

// AddToBlacklist ttl<=0时不记录（Token已过期）
func (s *SessionStore) AddToBlacklist(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[token] = ttl
	return nil
}

func (s *SessionStore) IsInBlacklist(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blacklist[token]
	return ok, nil
}
