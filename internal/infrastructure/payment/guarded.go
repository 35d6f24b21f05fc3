package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	domainpayment "github.com/xiebiao/supplestore/internal/domain/payment"
	"github.com/xiebiao/supplestore/pkg/circuitbreaker"
	"github.com/xiebiao/supplestore/pkg/metrics"
	"github.com/xiebiao/supplestore/pkg/tracing"
)

// DefaultTimeout 单次网关调用超时
const DefaultTimeout = 10 * time.Second

// GuardConfig 网关保护配置
type GuardConfig struct {
	Timeout             time.Duration
	MaxRequests         uint32
	Interval            time.Duration
	OpenTimeout         time.Duration
	ConsecutiveFailures uint32
}

// GuardedGateway 为网关调用加上超时、熔断、指标与追踪
// 熔断打开时返回domainpayment.ErrGatewayUnavailable，调用方据此降级
type GuardedGateway struct {
	next    domainpayment.Gateway
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
	log     *zap.Logger
}

var _ domainpayment.Gateway = (*GuardedGateway)(nil)

// NewGuardedGateway 包装网关
func NewGuardedGateway(next domainpayment.Gateway, cfg GuardConfig, log *zap.Logger) *GuardedGateway {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}

	name := "payment_" + next.Provider()
	breaker := circuitbreaker.NewCircuitBreaker(name, circuitbreaker.Config{
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(c circuitbreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		// 调用方主动取消不算下游故障
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	breaker.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		metrics.SetGaugeVec(metrics.CircuitBreakerState, float64(to), name)
		log.Warn("payment gateway circuit breaker state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	metrics.SetGaugeVec(metrics.CircuitBreakerState, float64(circuitbreaker.StateClosed), name)

	return &GuardedGateway{
		next:    next,
		breaker: breaker,
		timeout: cfg.Timeout,
		log:     log,
	}
}

func (g *GuardedGateway) Provider() string {
	return g.next.Provider()
}

// BreakerState 当前熔断状态
func (g *GuardedGateway) BreakerState() circuitbreaker.State {
	return g.breaker.State()
}

func (g *GuardedGateway) CreateRemoteOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*domainpayment.RemoteOrder, error) {
	var out *domainpayment.RemoteOrder
	err := g.call(ctx, "create_order", func(ctx context.Context) error {
		var err error
		out, err = g.next.CreateRemoteOrder(ctx, amount, currency, receipt)
		return err
	}, attribute.String("payment.receipt", receipt))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GuardedGateway) VerifyPaymentSignature(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) (bool, error) {
	var ok bool
	err := g.call(ctx, "verify", func(ctx context.Context) error {
		var err error
		ok, err = g.next.VerifyPaymentSignature(ctx, gatewayOrderID, gatewayPaymentID, signature)
		return err
	}, attribute.String("payment.gateway_order_id", gatewayOrderID))
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (g *GuardedGateway) Refund(ctx context.Context, gatewayPaymentID string, amount decimal.Decimal, notes string) (*domainpayment.RefundResult, error) {
	var out *domainpayment.RefundResult
	err := g.call(ctx, "refund", func(ctx context.Context) error {
		var err error
		out, err = g.next.Refund(ctx, gatewayPaymentID, amount, notes)
		return err
	}, attribute.String("payment.gateway_payment_id", gatewayPaymentID))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GuardedGateway) call(ctx context.Context, op string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) (err error) {
	provider := g.next.Provider()
	attrs = append(attrs, attribute.String("payment.provider", provider))
	ctx, span := tracing.StartSpan(ctx, "payment."+op, attrs...)
	start := time.Now()
	defer func() {
		result := "success"
		if err != nil {
			result = "failure"
		}
		metrics.IncCounterVec(metrics.PaymentGatewayRequests, provider, op, result)
		metrics.ObserveHistogramVec(metrics.PaymentGatewayDuration, time.Since(start).Seconds(), provider, op)
		tracing.EndSpan(span, err)
	}()

	err = g.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return runWithContext(cctx, fn)
	})

	breakerResult := "allowed"
	if errors.Is(err, circuitbreaker.ErrOpenState) {
		breakerResult = "rejected"
	}
	metrics.IncCounterVec(metrics.CircuitBreakerRequests, g.breaker.Name(), breakerResult)

	if err != nil {
		g.log.Warn("payment gateway call failed",
			zap.String("provider", provider),
			zap.String("operation", op),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		if errors.Is(err, circuitbreaker.ErrOpenState) {
			return fmt.Errorf("%w: %v", domainpayment.ErrGatewayUnavailable, err)
		}
		return err
	}
	return nil
}

// runWithContext SDK调用不一定接受ctx（razorpay-go），超时后不再等待结果
func runWithContext(ctx context.Context, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
