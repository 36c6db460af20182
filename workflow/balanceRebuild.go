package workflow

import (
	"fmt"

	"bitbucket.org/mmdatafocus/bagstock_backend/config"
	"bitbucket.org/mmdatafocus/bagstock_backend/models"
	"bitbucket.org/mmdatafocus/bagstock_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RebuildDimensionBalances restores the running-balance invariant for one
// dimension after a mutation at `from`: the running total is seeded with the
// balance of the logical predecessor and BalanceAfter is rewritten for every
// transaction from `from` to the end of the dimension's logical sequence.
// A backdated insert at logical position k costs O(n-k) rewrites for that
// dimension; transactions of other dimensions are never touched.
func RebuildDimensionBalances(tx *gorm.DB, logger *logrus.Logger, dimension string, from models.LogicalKey) error {
	if tx == nil {
		return fmt.Errorf("rebuild balances: tx is nil")
	}
	if logger == nil {
		logger = config.GetLogger()
	}

	seed, err := models.BalanceBefore(tx, dimension, from)
	if err != nil {
		return fmt.Errorf("%w: seed balance: %v", utils.ErrBalanceRebuildFailed, err)
	}
	rows, err := models.TransactionsFrom(tx, dimension, from)
	if err != nil {
		return fmt.Errorf("%w: load suffix: %v", utils.ErrBalanceRebuildFailed, err)
	}

	logger.WithFields(logrus.Fields{
		"dimension":    dimension,
		"from_date":    from.Date.Format(utils.DateFormat),
		"from_time":    from.Time,
		"from_id":      from.ID,
		"suffix_count": len(rows),
		"seed_balance": seed.String(),
	}).Info("ledger.rebuild.start")

	tail, rewritten, err := rebuildRows(tx, rows, seed)
	if err != nil {
		return err
	}

	// Verify the invariant instead of assuming it: the dimension's final
	// cached balance must equal the predecessor seed plus the suffix sum.
	final, err := models.CurrentBalance(tx, dimension)
	if err != nil {
		return fmt.Errorf("%w: verify: %v", utils.ErrBalanceRebuildFailed, err)
	}
	if !final.Equal(tail) {
		return fmt.Errorf("%w: dimension=%s expected tail balance %s, found %s",
			utils.ErrBalanceRebuildFailed, dimension, tail.String(), final.String())
	}

	logger.WithFields(logrus.Fields{
		"dimension":    dimension,
		"suffix_count": len(rows),
		"rewritten":    rewritten,
		"tail_balance": final.String(),
	}).Info("ledger.rebuild.end")
	return nil
}

// RebuildDimension recomputes every balance of the dimension from scratch.
// Used by the maintenance rebuild command; normal mutations only rebuild the
// affected suffix.
func RebuildDimension(tx *gorm.DB, logger *logrus.Logger, dimension string) error {
	if tx == nil {
		return fmt.Errorf("rebuild balances: tx is nil")
	}
	if logger == nil {
		logger = config.GetLogger()
	}

	rows, err := models.TransactionsForDimension(tx, dimension)
	if err != nil {
		return fmt.Errorf("%w: load dimension: %v", utils.ErrBalanceRebuildFailed, err)
	}

	tail, rewritten, err := rebuildRows(tx, rows, decimal.Zero)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"dimension":    dimension,
		"row_count":    len(rows),
		"rewritten":    rewritten,
		"tail_balance": tail.String(),
	}).Info("ledger.rebuild.full")
	return nil
}

// rebuildRows walks logical-order rows accumulating Qty from seed and
// rewrites any stale BalanceAfter. Returns the final running total and the
// number of rows actually rewritten.
func rebuildRows(tx *gorm.DB, rows []*models.StockTransaction, seed decimal.Decimal) (decimal.Decimal, int, error) {
	running := seed
	rewritten := 0
	for _, row := range rows {
		running = running.Add(row.Qty)
		if row.BalanceAfter.Equal(running) {
			continue
		}
		if err := tx.Model(&models.StockTransaction{}).
			Where("id = ?", row.ID).
			Update("balance_after", running).Error; err != nil {
			return running, rewritten, fmt.Errorf("%w: rewrite id=%d: %v", utils.ErrBalanceRebuildFailed, row.ID, err)
		}
		row.BalanceAfter = running
		rewritten++
	}
	return running, rewritten, nil
}
