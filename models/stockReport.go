package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DimensionStock pairs a dimension with its current balance.
type DimensionStock struct {
	Dimension string          `json:"dimension"`
	Balance   decimal.Decimal `json:"balance"`
}

// CurrentStockByDimension returns every dimension's latest balance, sorted by
// dimension. Read-only; consumed by reporting collaborators.
func CurrentStockByDimension(tx *gorm.DB) ([]DimensionStock, error) {
	dims, err := ListDimensions(tx)
	if err != nil {
		return nil, err
	}
	out := make([]DimensionStock, 0, len(dims))
	for _, d := range dims {
		balance, err := CurrentBalance(tx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, DimensionStock{Dimension: d, Balance: balance})
	}
	return out, nil
}

// LowStockDimensions filters to balances above zero but under the threshold
// (the startup alert list). The ledger core itself never branches on the
// threshold; this exists for reporting callers.
func LowStockDimensions(tx *gorm.DB, threshold decimal.Decimal) ([]DimensionStock, error) {
	all, err := CurrentStockByDimension(tx)
	if err != nil {
		return nil, err
	}
	var out []DimensionStock
	for _, s := range all {
		if s.Balance.Sign() > 0 && s.Balance.LessThan(threshold) {
			out = append(out, s)
		}
	}
	return out, nil
}
