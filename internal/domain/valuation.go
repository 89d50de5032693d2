package domain

import "github.com/shopspring/decimal"

// CurrentValue computes the market value of a quantity at the given NAV.
// The product is exact; no rounding is applied beyond the NAV's own precision.
func CurrentValue(quantity int64, nav decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(quantity).Mul(nav)
}
