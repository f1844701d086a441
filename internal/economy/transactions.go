package economy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

const DefaultTxTimeout = 30 * time.Second

// TransactionOptions configures transaction behavior
type TransactionOptions struct {
	IsolationLevel sql.IsolationLevel
	Timeout        time.Duration
}

// StandardTransactionOptions returns default transaction options
func StandardTransactionOptions() *TransactionOptions {
	return &TransactionOptions{
		IsolationLevel: sql.LevelReadCommitted,
		Timeout:        DefaultTxTimeout,
	}
}

// SerializableTransactionOptions returns serializable isolation level options
// for operations that move currency or consume cards.
func SerializableTransactionOptions() *TransactionOptions {
	return &TransactionOptions{
		IsolationLevel: sql.LevelSerializable,
		Timeout:        DefaultTxTimeout,
	}
}

// TxRunner executes a function within a database transaction.
type TxRunner interface {
	WithTransaction(ctx context.Context, opts *TransactionOptions, fn func(context.Context, bun.IDB) error) error
}

// TransactionManager is the bun-backed TxRunner.
type TransactionManager struct {
	db *bun.DB
}

func NewTransactionManager(db *bun.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

func (tm *TransactionManager) WithTransaction(ctx context.Context, opts *TransactionOptions, fn func(context.Context, bun.IDB) error) error {
	if opts == nil {
		opts = StandardTransactionOptions()
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	tx, err := tm.db.BeginTx(timeoutCtx, &sql.TxOptions{
		Isolation: opts.IsolationLevel,
	})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(timeoutCtx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
