// Package metrics 基于Prometheus的指标收集
//
// 指标类型：
//   - Counter：只增不减的累计值（请求数、订单数），以_total结尾
//   - Gauge：可增可减的瞬时值（处理中的请求数、熔断器状态）
//   - Histogram：观测值分布（耗时），以单位结尾
//
// 指标变量在包加载时创建，InitMetrics负责注册到默认Registry；
// 未注册时记录指标不会panic，只是不会被抓取（单元测试依赖这一点）。
//
// 标签只使用有限取值（method、status、reason），不要用user_id、order_id做标签。
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var initOnce sync.Once

var (
	// HTTP请求指标

	// HTTPRequestsTotal 标签：method、path（路由模板）、status
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "正在处理的HTTP请求数",
		},
	)

	// 订单指标

	// OrdersCreatedTotal 标签：source（checkout/admin）
	OrdersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "订单创建总数",
		},
		[]string{"source"},
	)

	// OrdersFailedTotal 标签：source、reason（错误码）
	OrdersFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_failed_total",
			Help: "订单创建失败总数",
		},
		[]string{"source", "reason"},
	)

	OrderCreationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_creation_duration_seconds",
			Help:    "订单创建耗时（秒）",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	// OrderTransitionsTotal 标签：from、to
	OrderTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "订单状态变更总数",
		},
		[]string{"from", "to"},
	)

	// 库存与优惠券指标

	// InventoryChangesTotal 标签：reason（sale/return/adjustment）
	InventoryChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_changes_total",
			Help: "库存流水写入总数",
		},
		[]string{"reason"},
	)

	// CouponEvaluationsTotal 标签：result（applied/rejected）
	CouponEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_evaluations_total",
			Help: "优惠券试算总数",
		},
		[]string{"result"},
	)

	// 支付网关指标

	// PaymentGatewayRequests 标签：provider、operation、result（success/failure/rejected）
	PaymentGatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_requests_total",
			Help: "支付网关调用总数",
		},
		[]string{"provider", "operation", "result"},
	)

	PaymentGatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_duration_seconds",
			Help:    "支付网关调用耗时（秒）",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "operation"},
	)

	// 熔断器指标

	// CircuitBreakerState 0=CLOSED, 1=OPEN, 2=HALF_OPEN
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	// CircuitBreakerRequests 标签：name、result（success/failure/rejected）
	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "熔断器请求总数",
		},
		[]string{"name", "result"},
	)

	// Saga指标

	// SagaExecutionsTotal 标签：name、result（success/failure）
	SagaExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_executions_total",
			Help: "Saga执行总数",
		},
		[]string{"name", "result"},
	)

	SagaExecutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "saga_execution_duration_seconds",
			Help:    "Saga执行耗时（秒）",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
		},
	)

	SagaCompensationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "saga_compensations_total",
			Help: "Saga补偿执行总数",
		},
	)

	// 消息队列指标

	// MessagesPublishedTotal 标签：routing_key、result
	MessagesPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_published_total",
			Help: "消息发布总数",
		},
		[]string{"routing_key", "result"},
	)

	// MessagesConsumedTotal 标签：queue、result
	MessagesConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_consumed_total",
			Help: "消息消费总数",
		},
		[]string{"queue", "result"},
	)
)

// collectors 全部需要注册的指标
func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInProgress,
		OrdersCreatedTotal, OrdersFailedTotal, OrderCreationDuration, OrderTransitionsTotal,
		InventoryChangesTotal, CouponEvaluationsTotal,
		PaymentGatewayRequests, PaymentGatewayDuration,
		CircuitBreakerState, CircuitBreakerRequests,
		SagaExecutionsTotal, SagaExecutionDuration, SagaCompensationsTotal,
		MessagesPublishedTotal, MessagesConsumedTotal,
	}
}

// InitMetrics 注册所有指标到默认Registry，重复调用无副作用
//
//	func main() {
//	    metrics.InitMetrics()
//	    router.GET("/metrics", gin.WrapH(metrics.Handler()))
//	}
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(collectors()...)
	})
}

// Register 注册到指定Registry（测试中使用独立Registry）
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler /metrics端点
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncCounterVec 递增CounterVec（带标签）
func IncCounterVec(counter *prometheus.CounterVec, labels ...string) {
	counter.WithLabelValues(labels...).Inc()
}

// SetGaugeVec 设置GaugeVec值（带标签）
func SetGaugeVec(gauge *prometheus.GaugeVec, value float64, labels ...string) {
	gauge.WithLabelValues(labels...).Set(value)
}

// ObserveHistogramVec 记录HistogramVec观测值（带标签）
func ObserveHistogramVec(histogram *prometheus.HistogramVec, value float64, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(value)
}
