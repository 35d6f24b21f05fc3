package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/supplestore/internal/domain/order"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

// OrderCache 订单详情与统计缓存
// Cache-Aside：先查缓存，未命中再查数据库；订单变更提交后删除缓存
// Key设计：order:detail:{id}、order:stats:{period}
type OrderCache struct {
	client   *redis.Client
	orderTTL time.Duration
	statsTTL time.Duration
}

var (
	_ order.Cache      = (*OrderCache)(nil)
	_ order.StatsCache = (*OrderCache)(nil)
)

// NewOrderCache 创建订单缓存
func NewOrderCache(client *redis.Client, orderTTL, statsTTL time.Duration) *OrderCache {
	return &OrderCache{client: client, orderTTL: orderTTL, statsTTL: statsTTL}
}

func orderKey(id uint) string {
	return fmt.Sprintf("order:detail:%d", id)
}

func statsKey(p order.Period) string {
	if p == "" {
		p = order.PeriodDay
	}
	return fmt.Sprintf("order:stats:%s", p)
}

// GetOrder 未命中返回(nil, false, nil)
func (c *OrderCache) GetOrder(ctx context.Context, id uint) (*order.Order, bool, error) {
	val, err := c.client.Get(ctx, orderKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, apperrors.Wrap(err, "读取订单缓存失败")
	}
	var o order.Order
	if err := json.Unmarshal(val, &o); err != nil {
		// 反序列化失败视为未命中，等待覆盖
		return nil, false, nil
	}
	return &o, true, nil
}

func (c *OrderCache) SetOrder(ctx context.Context, o *order.Order) error {
	val, err := json.Marshal(o)
	if err != nil {
		return apperrors.Wrap(err, "序列化订单失败")
	}
	if err := c.client.Set(ctx, orderKey(o.ID), val, c.orderTTL).Err(); err != nil {
		return apperrors.Wrap(err, "写入订单缓存失败")
	}
	return nil
}

// DeleteOrder 订单变更后删除缓存，同时使统计缓存失效
func (c *OrderCache) DeleteOrder(ctx context.Context, id uint) error {
	keys := []string{orderKey(id)}
	for _, p := range []order.Period{order.PeriodDay, order.PeriodWeek, order.PeriodMonth, order.PeriodYear} {
		keys = append(keys, statsKey(p))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return apperrors.Wrap(err, "删除订单缓存失败")
	}
	return nil
}

func (c *OrderCache) GetStats(ctx context.Context, p order.Period) (*order.Stats, bool, error) {
	val, err := c.client.Get(ctx, statsKey(p)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, apperrors.Wrap(err, "读取统计缓存失败")
	}
	var s order.Stats
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, false, nil
	}
	return &s, true, nil
}

func (c *OrderCache) SetStats(ctx context.Context, s *order.Stats) error {
	val, err := json.Marshal(s)
	if err != nil {
		return apperrors.Wrap(err, "序列化统计失败")
	}
	if err := c.client.Set(ctx, statsKey(s.Period), val, c.statsTTL).Err(); err != nil {
		return apperrors.Wrap(err, "写入统计缓存失败")
	}
	return nil
}
