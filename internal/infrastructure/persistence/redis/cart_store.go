package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/supplestore/internal/domain/cart"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

// CartStore 购物车存储
// Key设计：cart:{user_id}，Hash字段为variant_id，值为数量；每次写入刷新过期时间
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ cart.Store = (*CartStore)(nil)

// NewCartStore 创建购物车存储
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl}
}

func cartKey(userID uint) string {
	return fmt.Sprintf("cart:%d", userID)
}

func (s *CartStore) Items(ctx context.Context, userID uint) (map[uint]int, error) {
	raw, err := s.client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, "读取购物车失败")
	}
	items := make(map[uint]int, len(raw))
	for field, val := range raw {
		id, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		qty, err := strconv.Atoi(val)
		if err != nil || qty <= 0 {
			continue
		}
		items[uint(id)] = qty
	}
	return items, nil
}

// SetItem 设置数量，quantity<=0时删除该行
func (s *CartStore) SetItem(ctx context.Context, userID, variantID uint, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, variantID)
	}
	key := cartKey(userID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, strconv.FormatUint(uint64(variantID), 10), quantity)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(err, "更新购物车失败")
	}
	return nil
}

func (s *CartStore) RemoveItem(ctx context.Context, userID, variantID uint) error {
	if err := s.client.HDel(ctx, cartKey(userID), strconv.FormatUint(uint64(variantID), 10)).Err(); err != nil {
		return apperrors.Wrap(err, "删除购物车商品失败")
	}
	return nil
}

func (s *CartStore) Clear(ctx context.Context, userID uint) error {
	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return apperrors.Wrap(err, "清空购物车失败")
	}
	return nil
}
