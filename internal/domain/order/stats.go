package order

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Period 统计周期
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// TopProductsLimit 热销商品数量
const TopProductsLimit = 5

// Duration 周期长度（月按30天，年按365天）
func (p Period) Duration() (time.Duration, error) {
	switch p {
	case PeriodDay, "":
		return 24 * time.Hour, nil
	case PeriodWeek:
		return 7 * 24 * time.Hour, nil
	case PeriodMonth:
		return 30 * 24 * time.Hour, nil
	case PeriodYear:
		return 365 * 24 * time.Hour, nil
	}
	return 0, ErrInvalidPeriod
}

// Windows 当前窗口[now-d, now)与上一个等长窗口[now-2d, now-d)
func (p Period) Windows(now time.Time) (curFrom, curTo, prevFrom, prevTo time.Time, err error) {
	d, err := p.Duration()
	if err != nil {
		return
	}
	curTo = now
	curFrom = now.Add(-d)
	prevTo = curFrom
	prevFrom = curFrom.Add(-d)
	return
}

// TopProduct 热销商品
type TopProduct struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// Stats 订单统计
type Stats struct {
	Period            Period              `json:"period"`
	From              time.Time           `json:"from"`
	To                time.Time           `json:"to"`
	TotalOrders       int                 `json:"total_orders"`
	Revenue           decimal.Decimal     `json:"revenue"`
	AverageOrderValue decimal.Decimal     `json:"average_order_value"`
	StatusCounts      map[OrderStatus]int `json:"status_counts"`
	OrderGrowth       decimal.Decimal     `json:"order_growth"`
	RevenueGrowth     decimal.Decimal     `json:"revenue_growth"`
	TopProducts       []TopProduct        `json:"top_products"`
}

// ComputeStats 由两个窗口内的订单计算统计（纯函数）
// 营收只统计PAID/PROCESSING/SHIPPED/DELIVERED；热销商品同样只看计入营收的订单
func ComputeStats(period Period, from, to time.Time, current, previous []*Order) *Stats {
	s := &Stats{
		Period:       period,
		From:         from,
		To:           to,
		TotalOrders:  len(current),
		StatusCounts: make(map[OrderStatus]int, len(transitions)),
	}
	for _, st := range AllStatuses() {
		s.StatusCounts[st] = 0
	}

	revenue, revenueOrders := sumRevenue(current)
	prevRevenue, _ := sumRevenue(previous)

	products := make(map[uint]*TopProduct)
	for _, o := range current {
		s.StatusCounts[o.Status]++
		if !o.Status.CountsAsRevenue() {
			continue
		}
		for _, item := range o.Items {
			tp, ok := products[item.ProductID]
			if !ok {
				tp = &TopProduct{ProductID: item.ProductID, ProductName: item.ProductName, Revenue: decimal.Zero}
				products[item.ProductID] = tp
			}
			tp.Quantity += item.Quantity
			tp.Revenue = tp.Revenue.Add(item.SubTotal)
		}
	}

	s.Revenue = revenue.Round(2)
	s.AverageOrderValue = decimal.Zero
	if revenueOrders > 0 {
		s.AverageOrderValue = revenue.Div(decimal.NewFromInt(int64(revenueOrders))).Round(2)
	}
	s.OrderGrowth = Growth(decimal.NewFromInt(int64(len(current))), decimal.NewFromInt(int64(len(previous))))
	s.RevenueGrowth = Growth(revenue, prevRevenue)

	s.TopProducts = make([]TopProduct, 0, len(products))
	for _, tp := range products {
		s.TopProducts = append(s.TopProducts, *tp)
	}
	sort.Slice(s.TopProducts, func(i, j int) bool {
		if s.TopProducts[i].Quantity != s.TopProducts[j].Quantity {
			return s.TopProducts[i].Quantity > s.TopProducts[j].Quantity
		}
		return s.TopProducts[i].ProductID < s.TopProducts[j].ProductID
	})
	if len(s.TopProducts) > TopProductsLimit {
		s.TopProducts = s.TopProducts[:TopProductsLimit]
	}
	return s
}

// Growth 环比增长百分比；上期为0时，本期大于0记为100，否则为0
func Growth(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsPositive() {
			return decimal.NewFromInt(100)
		}
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2)
}

func sumRevenue(orders []*Order) (decimal.Decimal, int) {
	total := decimal.Zero
	n := 0
	for _, o := range orders {
		if o.Status.CountsAsRevenue() {
			total = total.Add(o.Total)
			n++
		}
	}
	return total, n
}
