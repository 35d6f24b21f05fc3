package order

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/supplestore/internal/domain/activity"
	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
	"github.com/xiebiao/supplestore/pkg/logger"
)

// ErrInvalidTrackingStatus 物流状态不合法
var ErrInvalidTrackingStatus = apperrors.New(apperrors.ErrCodeInvalidParams, "物流状态必须为PROCESSING/SHIPPED/DELIVERED")

// UpdateTrackingRequest 后台更新物流，空字段保持不变
type UpdateTrackingRequest struct {
	OrderID           uint
	TrackingNumber    string
	Carrier           string
	Status            order.TrackingStatus
	Location          string
	Description       string
	EstimatedDelivery *time.Time
	Actor             string
}

// UpdateTrackingUseCase 更新物流信息并追加节点
// 只修改物流，不改变订单状态
type UpdateTrackingUseCase struct {
	txManager    shared.TxManager
	orderRepo    order.Repository
	activityRepo activity.Repository
	cache        order.Cache
	now          func() time.Time
}

// NewUpdateTrackingUseCase 创建物流更新用例
func NewUpdateTrackingUseCase(txManager shared.TxManager, orderRepo order.Repository, activityRepo activity.Repository, cache order.Cache) *UpdateTrackingUseCase {
	return &UpdateTrackingUseCase{
		txManager:    txManager,
		orderRepo:    orderRepo,
		activityRepo: activityRepo,
		cache:        cache,
		now:          time.Now,
	}
}

// Execute 没有物流信息时创建（状态默认PROCESSING）
func (uc *UpdateTrackingUseCase) Execute(ctx context.Context, req UpdateTrackingRequest) (*order.Order, error) {
	req.Status = order.TrackingStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	switch req.Status {
	case "", order.TrackingProcessing, order.TrackingShipped, order.TrackingDelivered:
	default:
		return nil, ErrInvalidTrackingStatus
	}

	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		o, err := uc.orderRepo.LockByID(txCtx, req.OrderID)
		if err != nil {
			return err
		}
		now := uc.now()

		t := o.Tracking
		if t == nil {
			number := strings.TrimSpace(req.TrackingNumber)
			if number == "" {
				number = order.GenerateTrackingNumber(now)
			}
			t = order.NewTracking(o.ID, number, req.Carrier, order.TrackingProcessing, now)
		} else {
			if req.TrackingNumber != "" {
				t.TrackingNumber = strings.TrimSpace(req.TrackingNumber)
			}
			if req.Carrier != "" {
				t.Carrier = req.Carrier
			}
		}
		if req.EstimatedDelivery != nil {
			t.EstimatedDelivery = req.EstimatedDelivery
		}
		switch req.Status {
		case order.TrackingShipped:
			t.MarkShipped(now)
		case order.TrackingDelivered:
			t.MarkDelivered(now)
		case order.TrackingProcessing:
			t.Status = order.TrackingProcessing
			t.UpdatedAt = now
		}

		if err := uc.orderRepo.SaveTracking(txCtx, t); err != nil {
			return err
		}
		u := t.AddUpdate(t.Status, req.Location, describe(req.Description, "Tracking updated"), now)
		if err := uc.orderRepo.AddTrackingUpdate(txCtx, u); err != nil {
			return err
		}

		return uc.activityRepo.Create(txCtx, activity.New(req.Actor, "tracking_updated", activity.EntityOrder, o.ID,
			"tracking %s (%s) -> %s", t.TrackingNumber, t.Carrier, t.Status))
	})
	if err != nil {
		return nil, err
	}

	if err := uc.cache.DeleteOrder(ctx, req.OrderID); err != nil {
		logger.FromContext(ctx).Warn("删除订单缓存失败", zap.Uint("order_id", req.OrderID), zap.Error(err))
	}
	return uc.orderRepo.FindByID(ctx, req.OrderID)
}
