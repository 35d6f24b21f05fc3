package order

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/pkg/logger"
)

// ListOrdersUseCase 订单列表
type ListOrdersUseCase struct {
	repo order.Repository
}

func NewListOrdersUseCase(repo order.Repository) *ListOrdersUseCase {
	return &ListOrdersUseCase{repo: repo}
}

// Execute 日期区间为[From, To)，排序列只接受SortField白名单
func (uc *ListOrdersUseCase) Execute(ctx context.Context, params order.ListParams) ([]*order.Order, int64, error) {
	params.Page = params.Page.Normalize()
	if params.Status != "" && !params.Status.Known() {
		return nil, 0, order.ErrUnknownStatus.WithMessage("未知的订单状态: %s", params.Status)
	}
	if params.SortBy != "" && !params.SortBy.Valid() {
		return nil, 0, order.ErrInvalidSortField.WithMessage("不支持的排序字段: %s", params.SortBy)
	}
	if params.From != nil && params.To != nil && !params.From.Before(*params.To) {
		return nil, 0, order.ErrInvalidDateRange
	}
	return uc.repo.List(ctx, params)
}

// invalidateOrder 写操作提交后删除订单缓存（同时清除统计缓存），失败只记日志
func invalidateOrder(ctx context.Context, cache order.Cache, id uint) {
	if err := cache.DeleteOrder(ctx, id); err != nil {
		logger.FromContext(ctx).Warn("删除订单缓存失败", zap.Uint("order_id", id), zap.Error(err))
	}
}

// GetOrderUseCase 订单详情（cache-aside）
// 缓存读写失败时降级为直接查库
type GetOrderUseCase struct {
	repo  order.Repository
	cache order.Cache
}

func NewGetOrderUseCase(repo order.Repository, cache order.Cache) *GetOrderUseCase {
	return &GetOrderUseCase{repo: repo, cache: cache}
}

// Execute userID非0时只能查看自己的订单（他人订单按不存在处理）
func (uc *GetOrderUseCase) Execute(ctx context.Context, id, userID uint) (*order.Order, error) {
	o, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != 0 && !o.IsOwnedBy(userID) {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

func (uc *GetOrderUseCase) load(ctx context.Context, id uint) (*order.Order, error) {
	log := logger.FromContext(ctx)

	o, hit, err := uc.cache.GetOrder(ctx, id)
	if err != nil {
		log.Warn("读取订单缓存失败", zap.Uint("order_id", id), zap.Error(err))
	}
	if hit {
		return o, nil
	}

	o, err = uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.cache.SetOrder(ctx, o); err != nil {
		log.Warn("写入订单缓存失败", zap.Uint("order_id", id), zap.Error(err))
	}
	return o, nil
}

// StatsUseCase 订单统计
// 结果短期缓存，缓存有效期内新订单可能不会立即体现
type StatsUseCase struct {
	repo  order.Repository
	cache order.StatsCache
	now   func() time.Time
}

func NewStatsUseCase(repo order.Repository, cache order.StatsCache) *StatsUseCase {
	return &StatsUseCase{repo: repo, cache: cache, now: time.Now}
}

// Execute period为day/week/month/year，空值按day处理
func (uc *StatsUseCase) Execute(ctx context.Context, period order.Period) (*order.Stats, error) {
	if period == "" {
		period = order.PeriodDay
	}
	curFrom, curTo, prevFrom, prevTo, err := period.Windows(uc.now())
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	if s, hit, err := uc.cache.GetStats(ctx, period); err != nil {
		log.Warn("读取统计缓存失败", zap.Error(err))
	} else if hit {
		return s, nil
	}

	current, err := uc.repo.ListCreatedBetween(ctx, curFrom, curTo)
	if err != nil {
		return nil, err
	}
	previous, err := uc.repo.ListCreatedBetween(ctx, prevFrom, prevTo)
	if err != nil {
		return nil, err
	}

	s := order.ComputeStats(period, curFrom, curTo, current, previous)
	if err := uc.cache.SetStats(ctx, s); err != nil {
		log.Warn("写入统计缓存失败", zap.Error(err))
	}
	return s, nil
}
