// Package saga 编排多步骤的分布式操作
//
// 每个步骤包含正向操作与补偿操作；某一步失败时，按相反顺序
// 补偿已经成功的步骤（失败的步骤本身不补偿）。
//
//	s := saga.NewSaga("checkout", 30*time.Second, log)
//	s.AddStep("create_order", createOrder, cancelOrder)
//	s.AddStep("create_remote_order", createRemoteOrder, nil)
//	if err := s.Execute(ctx); err != nil { ... }
//
// 补偿失败只记录日志，不会中断其余补偿。
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/supplestore/pkg/metrics"
)

// Step 一个步骤
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error // 可为nil
}

// Saga 步骤编排器（单次使用，不可并发执行）
type Saga struct {
	name     string
	steps    []Step
	executed []Step
	timeout  time.Duration
	log      *zap.Logger
}

// StepError 标识失败的步骤
type StepError struct {
	Index int
	Step  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("步骤[%d:%s]执行失败: %v", e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// NewSaga 创建Saga；timeout<=0表示不设整体超时
func NewSaga(name string, timeout time.Duration, log *zap.Logger) *Saga {
	if log == nil {
		log = zap.NewNop()
	}
	return &Saga{
		name:    name,
		steps:   make([]Step, 0, 4),
		timeout: timeout,
		log:     log,
	}
}

// AddStep 追加步骤
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// Execute 顺序执行所有步骤
// 失败时返回*StepError（可用errors.Unwrap取得原始错误），并完成补偿
func (s *Saga) Execute(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		result := "success"
		if err != nil {
			result = "failure"
		}
		metrics.SagaExecutionsTotal.WithLabelValues(s.name, result).Inc()
		metrics.SagaExecutionDuration.Observe(time.Since(start).Seconds())
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.compensate(ctx)
			return &StepError{Index: i, Step: step.Name, Err: fmt.Errorf("saga超时: %w", ctxErr)}
		}

		if step.Action != nil {
			if actErr := step.Action(ctx); actErr != nil {
				s.log.Warn("saga步骤失败，开始补偿",
					zap.String("saga", s.name),
					zap.String("step", step.Name),
					zap.Error(actErr),
				)
				s.compensate(ctx)
				return &StepError{Index: i, Step: step.Name, Err: actErr}
			}
		}

		s.executed = append(s.executed, step)
	}

	return nil
}

// compensate 逆序补偿已执行的步骤
// 使用WithoutCancel保留ctx中的值（日志、trace），但不受原超时影响
func (s *Saga) compensate(ctx context.Context) {
	cctx := context.WithoutCancel(ctx)
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}
		metrics.SagaCompensationsTotal.Inc()
		if err := step.Compensate(cctx); err != nil {
			s.log.Error("saga补偿失败",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
		}
	}
	s.executed = nil
}

// FailedStep 返回失败的步骤名，err不是StepError时返回空
func FailedStep(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}
