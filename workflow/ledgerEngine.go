package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/bagstock_backend/backup"
	"bitbucket.org/mmdatafocus/bagstock_backend/config"
	"bitbucket.org/mmdatafocus/bagstock_backend/models"
	"bitbucket.org/mmdatafocus/bagstock_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultHistoryLimit = 50

// LedgerEngine is the single write path into the stock ledger. Every mutation
// runs as backup -> mutate -> rebuild under one lock: a confirmed backup
// always precedes any change to the store, and readers observe either the
// pre-mutation or the fully rebuilt state, never anything in between.
type LedgerEngine struct {
	db      *gorm.DB
	backups *backup.Manager
	logger  *logrus.Logger
	cfg     config.Config

	mu sync.RWMutex
}

// NewLedgerEngine wires the engine with explicit dependencies. Retention and
// paths live in the backup manager and cfg, not in ambient globals.
func NewLedgerEngine(db *gorm.DB, backups *backup.Manager, logger *logrus.Logger, cfg config.Config) *LedgerEngine {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &LedgerEngine{db: db, backups: backups, logger: logger, cfg: cfg}
}

// NewStockTransaction is the caller-facing input for Record.
type NewStockTransaction struct {
	Dimension string                 `json:"dimension" binding:"required"`
	Kind      models.TransactionKind `json:"kind" binding:"required"`
	Amount    decimal.Decimal        `json:"amount"` // magnitude for Receipt/Sale, signed for Adjustment
	Date      *time.Time             `json:"date"`   // nil means now
	CostPerKg decimal.Decimal        `json:"cost_per_kg"`
	SellPerKg decimal.Decimal        `json:"sell_per_kg"`
	Notes     string                 `json:"notes"`
	UserName  string                 `json:"user_name"`
}

// RecordResult reports the stored transaction and the dimension's new
// balance. NegativeStock flags a sale that drove the balance below zero; with
// backdating allowed that is legitimate transient state (the matching receipt
// may simply not be entered yet), so it is surfaced as a warning, never an
// error.
type RecordResult struct {
	Transaction   *models.StockTransaction `json:"transaction"`
	NewBalance    decimal.Decimal          `json:"new_balance"`
	NegativeStock bool                     `json:"negative_stock"`
}

// RebuildError reports a mutation that failed after its backup was taken. The
// store may need an explicit Restore of BackupId; the engine never restores
// on its own.
type RebuildError struct {
	BackupId backup.BackupId
	Err      error
}

func (e *RebuildError) Error() string {
	return fmt.Sprintf("ledger mutation failed after backup %s: %v", e.BackupId, e.Err)
}

func (e *RebuildError) Unwrap() error { return e.Err }

// Record validates and stores a stock transaction, today's or backdated, and
// rebuilds the dimension's balances from the new row's logical position.
// Validation happens before the backup, so a rejected call has no side
// effects at all.
func (e *LedgerEngine) Record(ctx context.Context, input *NewStockTransaction) (*RecordResult, error) {
	dimension, err := models.NormalizeDimension(input.Dimension)
	if err != nil {
		return nil, err
	}
	if !input.Kind.Valid() {
		return nil, fmt.Errorf("invalid transaction kind %q", string(input.Kind))
	}
	switch input.Kind {
	case models.TransactionKindReceipt, models.TransactionKindSale:
		if input.Amount.Sign() <= 0 {
			return nil, utils.ErrInvalidAmount
		}
	default:
		if input.Amount.IsZero() {
			return nil, utils.ErrInvalidAmount
		}
	}
	if input.CostPerKg.Sign() < 0 {
		return nil, fmt.Errorf("cost_per_kg: %w", utils.ErrInvalidPrice)
	}
	if input.SellPerKg.Sign() < 0 {
		return nil, fmt.Errorf("sell_per_kg: %w", utils.ErrInvalidPrice)
	}

	now := time.Now().UTC()
	transactionDate := utils.TruncateToDate(now)
	transactionTime := utils.TimeOfDayString(now)
	if input.Date != nil {
		if utils.IsFutureDate(*input.Date, now) {
			return nil, utils.ErrFutureDate
		}
		transactionDate = utils.TruncateToDate(*input.Date)
		if utils.HasTimeOfDay(*input.Date) {
			transactionTime = utils.TimeOfDayString(*input.Date)
		}
	}

	row := &models.StockTransaction{
		Dimension:       dimension,
		TransactionDate: transactionDate,
		TransactionTime: transactionTime,
		Kind:            input.Kind,
		Qty:             input.Kind.Signed(input.Amount),
		CostPerKg:       input.CostPerKg,
		SellPerKg:       input.SellPerKg,
		Notes:           input.Notes,
		UserName:        input.UserName,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.insertAndRebuild(ctx, row)
}

// Adjust corrects the dimension's balance to a physical count. The delta is
// stored as an Adjustment dated now: adjustments fix present-day
// discrepancies and are never backdated through this path. A zero delta is a
// no-op and takes no backup.
func (e *LedgerEngine) Adjust(ctx context.Context, dimensionRaw string, actualBalance decimal.Decimal, notes, userName string) (*RecordResult, error) {
	dimension, err := models.NormalizeDimension(dimensionRaw)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := models.CurrentBalance(e.db.WithContext(ctx), dimension)
	if err != nil {
		return nil, err
	}
	delta := actualBalance.Sub(current)
	if delta.IsZero() {
		return &RecordResult{NewBalance: current}, nil
	}

	if notes == "" {
		notes = "Physical count correction"
	}
	now := time.Now().UTC()
	row := &models.StockTransaction{
		Dimension:       dimension,
		TransactionDate: utils.TruncateToDate(now),
		TransactionTime: utils.TimeOfDayString(now),
		Kind:            models.TransactionKindAdjustment,
		Qty:             delta,
		Notes:           notes,
		UserName:        userName,
	}
	return e.insertAndRebuild(ctx, row)
}

// UndoLast deletes the transaction with the highest id across the whole
// store and rebuilds its dimension from the vacated logical position. It is
// deliberately the globally last-inserted row, not the latest row of any
// particular dimension: that is what the audit trail shows as "last".
func (e *LedgerEngine) UndoLast(ctx context.Context) (*models.StockTransaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	last, err := models.LastInsertedTransaction(e.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, utils.ErrNothingToUndo
	}

	correlationId := uuid.NewString()
	backupId, err := e.backups.Create()
	if err != nil {
		config.LogError(e.logger, "workflow", "UndoLast", "pre-mutation backup", last.Dimension, err)
		return nil, err
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.DeleteStockTransaction(tx, last.ID); err != nil {
			return err
		}
		return RebuildDimensionBalances(tx, e.logger, last.Dimension, last.LogicalKey())
	})
	if err != nil {
		return nil, &RebuildError{BackupId: backupId, Err: err}
	}

	e.logger.WithFields(logrus.Fields{
		"correlation_id": correlationId,
		"backup_id":      string(backupId),
		"dimension":      last.Dimension,
		"undone_id":      last.ID,
		"kind":           string(last.Kind),
		"qty":            last.Qty.String(),
	}).Info("ledger.undo")
	return last, nil
}

// insertAndRebuild is the shared mutation path: backup, insert, rebuild the
// affected suffix, one DB transaction for the latter two. Callers hold the
// write lock.
func (e *LedgerEngine) insertAndRebuild(ctx context.Context, row *models.StockTransaction) (*RecordResult, error) {
	correlationId := uuid.NewString()

	backupId, err := e.backups.Create()
	if err != nil {
		config.LogError(e.logger, "workflow", "insertAndRebuild", "pre-mutation backup", row.Dimension, err)
		return nil, err
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.InsertStockTransaction(tx, row); err != nil {
			return err
		}
		return RebuildDimensionBalances(tx, e.logger, row.Dimension, row.LogicalKey())
	})
	if err != nil {
		return nil, &RebuildError{BackupId: backupId, Err: err}
	}

	var stored models.StockTransaction
	if err := e.db.WithContext(ctx).First(&stored, row.ID).Error; err != nil {
		return nil, err
	}
	balance, err := models.CurrentBalance(e.db.WithContext(ctx), stored.Dimension)
	if err != nil {
		return nil, err
	}

	negative := stored.Kind == models.TransactionKindSale && stored.BalanceAfter.Sign() < 0
	if negative {
		e.logger.WithFields(logrus.Fields{
			"correlation_id": correlationId,
			"dimension":      stored.Dimension,
			"balance_after":  stored.BalanceAfter.String(),
		}).Warn("ledger.negative_stock")
	}

	e.logger.WithFields(logrus.Fields{
		"correlation_id": correlationId,
		"backup_id":      string(backupId),
		"dimension":      stored.Dimension,
		"kind":           string(stored.Kind),
		"qty":            stored.Qty.String(),
		"new_balance":    balance.String(),
	}).Info("ledger.recorded")

	return &RecordResult{Transaction: &stored, NewBalance: balance, NegativeStock: negative}, nil
}

// CurrentBalance returns the dimension's latest balance, zero if unknown.
func (e *LedgerEngine) CurrentBalance(ctx context.Context, dimensionRaw string) (decimal.Decimal, error) {
	dimension, err := models.NormalizeDimension(dimensionRaw)
	if err != nil {
		return decimal.Zero, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return models.CurrentBalance(e.db.WithContext(ctx), dimension)
}

// History returns the dimension's transactions in logical order, most recent
// first, capped at limit (default 50).
func (e *LedgerEngine) History(ctx context.Context, dimensionRaw string, limit int) ([]*models.StockTransaction, error) {
	dimension, err := models.NormalizeDimension(dimensionRaw)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	var rows []*models.StockTransaction
	err = e.db.WithContext(ctx).
		Where("dimension = ?", dimension).
		Order("transaction_date DESC, transaction_time DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListDimensions returns every known dimension, sorted.
func (e *LedgerEngine) ListDimensions(ctx context.Context) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return models.ListDimensions(e.db.WithContext(ctx))
}

// Suggest returns dimensions whose key starts with the normalized prefix.
func (e *LedgerEngine) Suggest(ctx context.Context, prefix string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return models.SuggestDimensions(e.db.WithContext(ctx), prefix)
}

// CurrentStock returns every dimension's balance for reporting callers.
func (e *LedgerEngine) CurrentStock(ctx context.Context) ([]models.DimensionStock, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return models.CurrentStockByDimension(e.db.WithContext(ctx))
}

// LowStock returns dimensions under the configured low-stock threshold.
func (e *LedgerEngine) LowStock(ctx context.Context) ([]models.DimensionStock, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return models.LowStockDimensions(e.db.WithContext(ctx), e.cfg.LowStockThreshold)
}
