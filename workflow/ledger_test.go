package workflow_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/bagstock_backend/backup"
	"bitbucket.org/mmdatafocus/bagstock_backend/config"
	"bitbucket.org/mmdatafocus/bagstock_backend/models"
	"bitbucket.org/mmdatafocus/bagstock_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestDB(t *testing.T, path string) *gorm.DB {
	t.Helper()
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

// newTestEngine wires an engine over a temp SQLite file with a working backup
// directory next to it.
func newTestEngine(t *testing.T) (*workflow.LedgerEngine, *gorm.DB, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "inventory.db")
	db := newTestDB(t, dbPath)
	logger := silentLogger()
	mgr := backup.NewManager(dbPath, filepath.Join(dir, "backups"), 30, logger)
	eng := workflow.NewLedgerEngine(db, mgr, logger, config.DefaultConfig())
	return eng, db, dbPath
}

func dateAt(y int, m time.Month, d, hh int) *time.Time {
	tm := time.Date(y, m, d, hh, 0, 0, 0, time.UTC)
	return &tm
}

func mustRecord(t *testing.T, eng *workflow.LedgerEngine, input *workflow.NewStockTransaction) *workflow.RecordResult {
	t.Helper()
	res, err := eng.Record(context.Background(), input)
	if err != nil {
		t.Fatalf("Record(%+v): %v", input, err)
	}
	return res
}

// assertBalancesConsistent re-derives every running balance for the dimension
// and compares it with the cached column.
func assertBalancesConsistent(t *testing.T, db *gorm.DB, dimension string) {
	t.Helper()
	rows, err := models.TransactionsForDimension(db, dimension)
	if err != nil {
		t.Fatalf("TransactionsForDimension(%s): %v", dimension, err)
	}
	running := decimal.Zero
	for i, row := range rows {
		running = running.Add(row.Qty)
		if row.BalanceAfter.Cmp(running) != 0 {
			t.Fatalf("%s row %d (id=%d): balance_after=%s, cumulative=%s",
				dimension, i, row.ID, row.BalanceAfter.String(), running.String())
		}
	}
}
