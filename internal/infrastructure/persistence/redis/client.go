// Package redis 购物车、订单/统计缓存与登录会话的Redis实现
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xiebiao/supplestore/internal/infrastructure/config"
)

// NewClient 创建客户端并在启动时Ping一次，Redis不可用时服务不启动
func NewClient(cfg *config.Config, log *zap.Logger) (*redis.Client, error) {
	rc := cfg.Redis
	client := redis.NewClient(&redis.Options{
		Addr:         rc.Addr(),
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	})

	timeout := rc.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis连接失败(%s): %w", rc.Addr(), err)
	}

	log.Info("Redis已连接", zap.String("addr", rc.Addr()), zap.Int("db", rc.DB), zap.Int("pool_size", rc.PoolSize))
	return client, nil
}
