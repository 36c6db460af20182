package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies a stock movement. The stored strings keep the
// audit-trail labels the tracker has always used, so old databases stay
// readable.
type TransactionKind string

const (
	TransactionKindReceipt    TransactionKind = "Stock Added"
	TransactionKindSale       TransactionKind = "Sale"
	TransactionKindAdjustment TransactionKind = "Adjustment"
)

func (t TransactionKind) Valid() bool {
	switch t {
	case TransactionKindReceipt, TransactionKindSale, TransactionKindAdjustment:
		return true
	}
	return false
}

// Signed applies the kind's direction to a caller-supplied magnitude:
// receipts count up, sales count down, adjustments keep the given sign.
func (t TransactionKind) Signed(amount decimal.Decimal) decimal.Decimal {
	switch t {
	case TransactionKindReceipt:
		return amount.Abs()
	case TransactionKindSale:
		return amount.Abs().Neg()
	default:
		return amount
	}
}

func (t TransactionKind) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid transaction kind %q", string(t))
	}
	return string(t), nil
}

func (t *TransactionKind) Scan(v interface{}) error {
	switch s := v.(type) {
	case string:
		*t = TransactionKind(s)
	case []byte:
		*t = TransactionKind(s)
	default:
		return fmt.Errorf("transaction kind must be string, got %T", v)
	}
	return nil
}
