package models_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/bagstock_backend/models"
	"bitbucket.org/mmdatafocus/bagstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.db")
	db, err := gorm.Open(sqlite.Open("file:"+path+"?_journal_mode=DELETE&_busy_timeout=5000"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func insertRow(t *testing.T, db *gorm.DB, dimension string, date time.Time, clock string, qty, balance int64) *models.StockTransaction {
	t.Helper()
	row := &models.StockTransaction{
		Dimension:       dimension,
		TransactionDate: date,
		TransactionTime: clock,
		Kind:            models.TransactionKindReceipt,
		Qty:             decimal.NewFromInt(qty),
		BalanceAfter:    decimal.NewFromInt(balance),
	}
	if err := models.InsertStockTransaction(db, row); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return row
}

func TestLogicalKeyCompare(t *testing.T) {
	a := models.LogicalKey{Date: day(2025, 8, 1), Time: "10:00:00", ID: 5}
	sameAsA := models.LogicalKey{Date: day(2025, 8, 1), Time: "10:00:00", ID: 5}
	laterTime := models.LogicalKey{Date: day(2025, 8, 1), Time: "11:00:00", ID: 1}
	laterDate := models.LogicalKey{Date: day(2025, 8, 2), Time: "00:00:00", ID: 1}
	laterID := models.LogicalKey{Date: day(2025, 8, 1), Time: "10:00:00", ID: 6}

	if got := a.Compare(sameAsA); got != 0 {
		t.Fatalf("equal keys: got %d", got)
	}
	for name, other := range map[string]models.LogicalKey{
		"later time": laterTime,
		"later date": laterDate,
		"later id":   laterID,
	} {
		if got := a.Compare(other); got != -1 {
			t.Fatalf("%s: a.Compare = %d; want -1", name, got)
		}
		if got := other.Compare(a); got != 1 {
			t.Fatalf("%s reversed: got %d; want 1", name, got)
		}
	}
}

func TestLastInsertedTransaction_MaxIdNotLatestDate(t *testing.T) {
	db := newTestDB(t)

	if row, err := models.LastInsertedTransaction(db); err != nil || row != nil {
		t.Fatalf("empty store: row=%v err=%v", row, err)
	}

	insertRow(t, db, "10x16", day(2025, 8, 5), "10:00:00", 40, 40)
	backdated := insertRow(t, db, "9x12", day(2025, 8, 1), "09:00:00", 25, 25)

	last, err := models.LastInsertedTransaction(db)
	if err != nil {
		t.Fatalf("LastInsertedTransaction: %v", err)
	}
	if last == nil || last.ID != backdated.ID {
		t.Fatalf("last = %+v; want id %d", last, backdated.ID)
	}
}

func TestDeleteStockTransaction_NotFound(t *testing.T) {
	db := newTestDB(t)
	if err := models.DeleteStockTransaction(db, 42); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("delete missing: err = %v; want ErrorRecordNotFound", err)
	}
}

func TestBalanceBeforeAndAsOf(t *testing.T) {
	db := newTestDB(t)
	first := insertRow(t, db, "10x16", day(2025, 8, 1), "10:00:00", 50, 50)
	second := insertRow(t, db, "10x16", day(2025, 8, 3), "10:00:00", 30, 80)

	// Strictly before the first row there is nothing.
	got, err := models.BalanceBefore(db, "10x16", first.LogicalKey())
	if err != nil {
		t.Fatalf("BalanceBefore: %v", err)
	}
	if got.Cmp(decimal.Zero) != 0 {
		t.Fatalf("BalanceBefore head = %s; want 0", got.String())
	}

	// At-or-before the first row sees the first row's balance.
	got, err = models.BalanceAsOf(db, "10x16", first.LogicalKey())
	if err != nil {
		t.Fatalf("BalanceAsOf: %v", err)
	}
	if got.Cmp(decimal.NewFromInt(50)) != 0 {
		t.Fatalf("BalanceAsOf first = %s; want 50", got.String())
	}

	// A key between the two rows resolves to the first row.
	mid := models.LogicalKey{Date: day(2025, 8, 2), Time: "12:00:00", ID: 99}
	got, err = models.BalanceBefore(db, "10x16", mid)
	if err != nil {
		t.Fatalf("BalanceBefore mid: %v", err)
	}
	if got.Cmp(decimal.NewFromInt(50)) != 0 {
		t.Fatalf("BalanceBefore mid = %s; want 50", got.String())
	}

	// Other dimensions never leak in.
	insertRow(t, db, "9x12", day(2025, 8, 2), "10:00:00", 99, 99)
	got, err = models.BalanceBefore(db, "10x16", second.LogicalKey())
	if err != nil {
		t.Fatalf("BalanceBefore second: %v", err)
	}
	if got.Cmp(decimal.NewFromInt(50)) != 0 {
		t.Fatalf("BalanceBefore second = %s; want 50", got.String())
	}
}

func TestCurrentBalance_LogicalOrderNotInsertionOrder(t *testing.T) {
	db := newTestDB(t)
	insertRow(t, db, "10x16", day(2025, 8, 5), "10:00:00", 40, 40)
	// Backdated row inserted later: higher id, earlier logical position.
	insertRow(t, db, "10x16", day(2025, 8, 1), "10:00:00", 25, 25)

	got, err := models.CurrentBalance(db, "10x16")
	if err != nil {
		t.Fatalf("CurrentBalance: %v", err)
	}
	// The logically last row is the day-5 one, whatever its id.
	if got.Cmp(decimal.NewFromInt(40)) != 0 {
		t.Fatalf("CurrentBalance = %s; want 40", got.String())
	}
}

func TestListAndSuggestDimensions(t *testing.T) {
	db := newTestDB(t)
	insertRow(t, db, "9x12", day(2025, 8, 1), "10:00:00", 1, 1)
	insertRow(t, db, "10x16", day(2025, 8, 1), "10:00:00", 1, 1)
	insertRow(t, db, "10x20", day(2025, 8, 1), "10:00:00", 1, 1)
	insertRow(t, db, "10x16", day(2025, 8, 2), "10:00:00", 1, 2)

	dims, err := models.ListDimensions(db)
	if err != nil {
		t.Fatalf("ListDimensions: %v", err)
	}
	if len(dims) != 3 || dims[0] != "10x16" || dims[1] != "10x20" || dims[2] != "9x12" {
		t.Fatalf("ListDimensions = %v", dims)
	}

	// Suggest normalizes its prefix before matching.
	suggestions, err := models.SuggestDimensions(db, "10 X ")
	if err != nil {
		t.Fatalf("SuggestDimensions: %v", err)
	}
	if len(suggestions) != 2 || suggestions[0] != "10x16" || suggestions[1] != "10x20" {
		t.Fatalf("SuggestDimensions = %v", suggestions)
	}
}

// LIKE wildcards typed into the autocomplete must match literally, not as
// patterns: "%" suggests nothing, and "_" never stands in for a character.
func TestSuggestDimensions_WildcardsMatchLiterally(t *testing.T) {
	db := newTestDB(t)
	insertRow(t, db, "10x16", day(2025, 8, 1), "10:00:00", 1, 1)
	insertRow(t, db, "9x12", day(2025, 8, 1), "10:00:00", 1, 1)

	suggestions, err := models.SuggestDimensions(db, "%")
	if err != nil {
		t.Fatalf("SuggestDimensions: %v", err)
	}
	if len(suggestions) != 0 {
		t.Fatalf("SuggestDimensions(%%) = %v; want none", suggestions)
	}

	suggestions, err = models.SuggestDimensions(db, "10_")
	if err != nil {
		t.Fatalf("SuggestDimensions: %v", err)
	}
	if len(suggestions) != 0 {
		t.Fatalf("SuggestDimensions(10_) = %v; want none", suggestions)
	}
}

func TestLowStockDimensions(t *testing.T) {
	db := newTestDB(t)
	insertRow(t, db, "10x16", day(2025, 8, 1), "10:00:00", 5, 5)
	insertRow(t, db, "9x12", day(2025, 8, 1), "10:00:00", 50, 50)
	insertRow(t, db, "8x10", day(2025, 8, 1), "10:00:00", 0, 0)

	low, err := models.LowStockDimensions(db, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("LowStockDimensions: %v", err)
	}
	if len(low) != 1 || low[0].Dimension != "10x16" {
		t.Fatalf("LowStockDimensions = %+v; want only 10x16", low)
	}
}
