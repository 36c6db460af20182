package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

var (
	// ErrDimensionRequired is returned when a dimension normalizes to nothing.
	ErrDimensionRequired = errors.New("dimension cannot be empty")
	// ErrInvalidAmount is returned for a non-positive amount where a positive
	// one is required, or a zero adjustment delta.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidPrice is returned for a negative cost or sell price.
	ErrInvalidPrice = errors.New("price cannot be negative")
	// ErrFutureDate is returned for transactions dated after today.
	ErrFutureDate = errors.New("transaction date cannot be in the future")
	// ErrNothingToUndo is returned by undo when the ledger is empty.
	ErrNothingToUndo = errors.New("no transactions to undo")
	// ErrBackupFailed means the pre-mutation backup could not be confirmed
	// durable; the mutation must not proceed.
	ErrBackupFailed = errors.New("backup failed")
	// ErrBalanceRebuildFailed means the running-balance invariant could not be
	// re-established after a mutation. Never swallow this.
	ErrBalanceRebuildFailed = errors.New("balance rebuild failed")
)
