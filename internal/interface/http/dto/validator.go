package dto

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/xiebiao/supplestore/internal/domain/order"
)

var registerOnce sync.Once

// RegisterValidators 在gin的validator上注册自定义规则
//
//	order_status:        调用方可请求的订单状态（大小写不敏感，不含REFUND_PENDING）
//	order_status_filter: 列表筛选用，接受全部已定义状态
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		err = v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
			_, perr := order.ParseStatus(fl.Field().String())
			return perr == nil
		})
		if err != nil {
			return
		}
		err = v.RegisterValidation("order_status_filter", func(fl validator.FieldLevel) bool {
			_, perr := order.ParseFilterStatus(fl.Field().String())
			return perr == nil
		})
	})
	return err
}
