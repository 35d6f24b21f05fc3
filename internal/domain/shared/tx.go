// Package shared 跨聚合共享的领域契约
package shared

import "context"

// TxManager 事务管理器接口
// fn内通过ctx传递事务，Repository从ctx取出事务DB；fn返回error时整体回滚
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Page 分页参数
type Page struct {
	Page     int
	PageSize int
}

// Normalize 修正非法分页参数（默认第1页，每页20条，最多100条）
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return p
}

// Offset SQL偏移量
func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}
