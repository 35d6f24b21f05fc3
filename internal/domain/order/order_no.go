package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/oklog/ulid/v2"
)

// GenerateOrderNumber 生成订单号
// 格式：ORD + yyyyMMddHHmmss + 6位随机数，例如 ORD20240115103000123456
// 唯一性由数据库唯一索引兜底，冲突时整单失败，不做重试
func GenerateOrderNumber(now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		n = big.NewInt(now.UnixNano() % 1000000)
	}
	return fmt.Sprintf("ORD%s%06d", now.Format("20060102150405"), n.Int64())
}

// GenerateTrackingNumber 发货时未提供运单号则生成：TRK + ULID
func GenerateTrackingNumber(now time.Time) string {
	return "TRK" + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}
