package payment

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// toMinorUnits 金额转为最小货币单位（INR为paise，USD为cent）
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// fromMinorUnits 最小货币单位转回金额
func fromMinorUnits(v int64) decimal.Decimal {
	return decimal.NewFromInt(v).Div(hundred)
}
