package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainpayment "github.com/xiebiao/supplestore/internal/domain/payment"
	"github.com/xiebiao/supplestore/internal/infrastructure/config"
	"github.com/xiebiao/supplestore/pkg/circuitbreaker"
)

// stubGateway 可控的下游网关
type stubGateway struct {
	calls    int
	err      error
	delay    time.Duration
	verifyOK bool
}

func (s *stubGateway) Provider() string { return "stub" }

func (s *stubGateway) wait(ctx context.Context) error {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func (s *stubGateway) CreateRemoteOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*domainpayment.RemoteOrder, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return &domainpayment.RemoteOrder{ID: "remote_" + receipt, Amount: amount, Currency: currency, Receipt: receipt, Provider: "stub"}, nil
}

func (s *stubGateway) VerifyPaymentSignature(ctx context.Context, _, _, _ string) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}
	return s.verifyOK, nil
}

func (s *stubGateway) Refund(ctx context.Context, _ string, amount decimal.Decimal, _ string) (*domainpayment.RefundResult, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return &domainpayment.RefundResult{RefundID: "rf_1", Amount: amount, Status: "processed"}, nil
}

func TestGuardedGateway_PassThrough(t *testing.T) {
	stub := &stubGateway{verifyOK: true}
	g := NewGuardedGateway(stub, GuardConfig{}, nil)

	assert.Equal(t, "stub", g.Provider())

	ro, err := g.CreateRemoteOrder(context.Background(), decimal.NewFromInt(10), "INR", "ORD1")
	require.NoError(t, err)
	assert.Equal(t, "remote_ORD1", ro.ID)

	ok, err := g.VerifyPaymentSignature(context.Background(), "o", "p", "s")
	require.NoError(t, err)
	assert.True(t, ok)

	res, err := g.Refund(context.Background(), "pay_1", decimal.NewFromInt(10), "")
	require.NoError(t, err)
	assert.Equal(t, "rf_1", res.RefundID)
	assert.Equal(t, 3, stub.calls)
}

func TestGuardedGateway_Timeout(t *testing.T) {
	stub := &stubGateway{delay: time.Second}
	g := NewGuardedGateway(stub, GuardConfig{Timeout: 20 * time.Millisecond}, nil)

	start := time.Now()
	_, err := g.Refund(context.Background(), "pay_1", decimal.NewFromInt(10), "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGuardedGateway_OpensAfterConsecutiveFailures(t *testing.T) {
	stub := &stubGateway{err: errors.New("503 service unavailable")}
	g := NewGuardedGateway(stub, GuardConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := g.Refund(context.Background(), "pay_1", decimal.NewFromInt(1), "")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domainpayment.ErrGatewayUnavailable)
	}
	assert.Equal(t, circuitbreaker.StateOpen, g.BreakerState())

	_, err := g.Refund(context.Background(), "pay_1", decimal.NewFromInt(1), "")
	assert.ErrorIs(t, err, domainpayment.ErrGatewayUnavailable)
	assert.Equal(t, 2, stub.calls, "熔断打开后不应调用下游")
}

func TestGuardedGateway_CancelledContextDoesNotTrip(t *testing.T) {
	stub := &stubGateway{err: context.Canceled}
	g := NewGuardedGateway(stub, GuardConfig{ConsecutiveFailures: 1}, nil)

	_, err := g.CreateRemoteOrder(context.Background(), decimal.NewFromInt(1), "INR", "r")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, circuitbreaker.StateClosed, g.BreakerState())
}

func TestNew_SelectsProvider(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		gw, err := New(config.PaymentConfig{Provider: "none"}, nil)
		require.NoError(t, err)
		assert.Equal(t, ProviderNone, gw.Provider())

		_, err = gw.Refund(context.Background(), "p", decimal.NewFromInt(1), "")
		assert.ErrorIs(t, err, domainpayment.ErrGatewayUnavailable)
	})

	t.Run("razorpay", func(t *testing.T) {
		gw, err := New(config.PaymentConfig{
			Provider: "razorpay",
			Razorpay: config.RazorpayConfig{KeyID: "rzp_test", KeySecret: "s"},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, ProviderRazorpay, gw.Provider())
		assert.IsType(t, &GuardedGateway{}, gw)
	})

	t.Run("stripe缺少密钥", func(t *testing.T) {
		_, err := New(config.PaymentConfig{Provider: "stripe"}, nil)
		assert.Error(t, err)
	})

	t.Run("未知网关", func(t *testing.T) {
		_, err := New(config.PaymentConfig{Provider: "paypal"}, nil)
		assert.Error(t, err)
	})
}
