package mysql

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/xiebiao/supplestore/internal/domain/shared"
)

// isDuplicateError 判断是否为MySQL唯一索引冲突错误
// MySQL错误码 1062: Duplicate entry 'xxx' for key 'yyy'
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}

// paginate 分页scope
func paginate(p shared.Page) func(db *gorm.DB) *gorm.DB {
	p = p.Normalize()
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.PageSize)
	}
}

// likePattern 模糊查询参数，转义通配符
func likePattern(keyword string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return "%" + r.Replace(strings.TrimSpace(keyword)) + "%"
}
