package models

import (
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/bagstock_backend/config"
	"bitbucket.org/mmdatafocus/bagstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockTransaction is one recorded stock-changing event for a dimension.
// Kind, Qty and the transaction date/time are immutable once written; the id
// is assigned at insertion and never reused. BalanceAfter is a derived cache
// owned by workflow.RebuildDimensionBalances and is the only rewritable field.
type StockTransaction struct {
	ID              int             `gorm:"primary_key;index:idx_dimension_logical,priority:4" json:"id"`
	Dimension       string          `gorm:"size:100;index:idx_dimension_logical,priority:1;not null" json:"dimension"`
	TransactionDate time.Time       `gorm:"index:idx_dimension_logical,priority:2;not null" json:"transaction_date"`
	TransactionTime string          `gorm:"size:8;index:idx_dimension_logical,priority:3;not null" json:"transaction_time"`
	Kind            TransactionKind `gorm:"size:20;not null" json:"kind"`
	Qty             decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	BalanceAfter    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance_after"`
	CostPerKg       decimal.Decimal `gorm:"type:decimal(20,4)" json:"cost_per_kg"`
	SellPerKg       decimal.Decimal `gorm:"type:decimal(20,4)" json:"sell_per_kg"`
	Notes           string          `gorm:"type:text" json:"notes"`
	UserName        string          `gorm:"size:100" json:"user_name"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// LogicalKey orders a dimension's transactions by business date and time, with
// the insertion id as tie-break. Distinct from insertion order, which is id
// alone: a backdated row has a high id but an early logical key.
type LogicalKey struct {
	Date time.Time
	Time string
	ID   int
}

func (t *StockTransaction) LogicalKey() LogicalKey {
	return LogicalKey{Date: t.TransactionDate, Time: t.TransactionTime, ID: t.ID}
}

// Compare returns -1, 0 or 1 as k orders before, equal to or after o.
func (k LogicalKey) Compare(o LogicalKey) int {
	if k.Date.Before(o.Date) {
		return -1
	}
	if k.Date.After(o.Date) {
		return 1
	}
	if k.Time != o.Time {
		if k.Time < o.Time {
			return -1
		}
		return 1
	}
	switch {
	case k.ID < o.ID:
		return -1
	case k.ID > o.ID:
		return 1
	}
	return 0
}

const logicalOrderAsc = "transaction_date ASC, transaction_time ASC, id ASC"
const logicalOrderDesc = "transaction_date DESC, transaction_time DESC, id DESC"

func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(&StockTransaction{})
}

// InsertStockTransaction stores the row and assigns its id. BalanceAfter is
// provisional until the dimension has been rebuilt.
func InsertStockTransaction(tx *gorm.DB, t *StockTransaction) error {
	return tx.Create(t).Error
}

func DeleteStockTransaction(tx *gorm.DB, id int) error {
	res := tx.Where("id = ?", id).Delete(&StockTransaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

// TransactionsForDimension returns every transaction of the dimension in
// logical order. The ordering is re-derived on each call.
func TransactionsForDimension(tx *gorm.DB, dimension string) ([]*StockTransaction, error) {
	var rows []*StockTransaction
	err := tx.Where("dimension = ?", dimension).
		Order(logicalOrderAsc).
		Find(&rows).Error
	return rows, err
}

// TransactionsFrom returns the logical-order suffix of the dimension starting
// at key, inclusive.
func TransactionsFrom(tx *gorm.DB, dimension string, key LogicalKey) ([]*StockTransaction, error) {
	var rows []*StockTransaction
	err := tx.Where("dimension = ?", dimension).
		Where(`transaction_date > ?
			OR (transaction_date = ? AND transaction_time > ?)
			OR (transaction_date = ? AND transaction_time = ? AND id >= ?)`,
			key.Date, key.Date, key.Time, key.Date, key.Time, key.ID).
		Order(logicalOrderAsc).
		Find(&rows).Error
	return rows, err
}

// BalanceBefore returns the cached balance of the latest transaction strictly
// before key in logical order, zero when the dimension has no earlier rows.
// This seeds a rebuild starting at key.
func BalanceBefore(tx *gorm.DB, dimension string, key LogicalKey) (decimal.Decimal, error) {
	var row StockTransaction
	err := tx.Where("dimension = ?", dimension).
		Where(`transaction_date < ?
			OR (transaction_date = ? AND transaction_time < ?)
			OR (transaction_date = ? AND transaction_time = ? AND id < ?)`,
			key.Date, key.Date, key.Time, key.Date, key.Time, key.ID).
		Order(logicalOrderDesc).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return row.BalanceAfter, nil
}

// BalanceAsOf returns the cached balance of the latest transaction at or
// before key in logical order, zero when none exists.
func BalanceAsOf(tx *gorm.DB, dimension string, key LogicalKey) (decimal.Decimal, error) {
	var row StockTransaction
	err := tx.Where("dimension = ?", dimension).
		Where(`transaction_date < ?
			OR (transaction_date = ? AND transaction_time < ?)
			OR (transaction_date = ? AND transaction_time = ? AND id <= ?)`,
			key.Date, key.Date, key.Time, key.Date, key.Time, key.ID).
		Order(logicalOrderDesc).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return row.BalanceAfter, nil
}

// LastInsertedTransaction returns the transaction with the highest id across
// the whole store, independent of dates. Nil when the store is empty.
func LastInsertedTransaction(tx *gorm.DB) (*StockTransaction, error) {
	var row StockTransaction
	err := tx.Order("id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CurrentBalance returns the balance after the logically last transaction of
// the dimension, zero when it has none.
func CurrentBalance(tx *gorm.DB, dimension string) (decimal.Decimal, error) {
	var row StockTransaction
	err := tx.Where("dimension = ?", dimension).
		Order(logicalOrderDesc).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return row.BalanceAfter, nil
}

func ListDimensions(tx *gorm.DB) ([]string, error) {
	var dims []string
	err := tx.Raw(`SELECT DISTINCT dimension FROM stock_transactions ORDER BY dimension ASC`).
		Scan(&dims).Error
	return dims, err
}

// likeEscaper makes a prefix safe for LIKE: wildcards in user input match
// themselves, never act as patterns.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SuggestDimensions returns known dimensions starting with the normalized
// prefix, sorted. Backs the autocomplete on entry paths. The prefix is a
// literal: `%` and `_` in it do not wildcard.
func SuggestDimensions(tx *gorm.DB, prefix string) ([]string, error) {
	normalized, err := NormalizeDimension(prefix)
	if err != nil {
		return nil, err
	}
	var dims []string
	err = tx.Raw(`SELECT DISTINCT dimension FROM stock_transactions WHERE dimension LIKE ? ESCAPE '\' ORDER BY dimension ASC LIMIT ?`,
		likeEscaper.Replace(normalized)+"%", config.SearchLimit).
		Scan(&dims).Error
	return dims, err
}
