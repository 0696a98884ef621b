package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	id "personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
	txcontext "personfinder/pkg/platform/tx"
)

// PostgresTx runs each per-person unit of work in a database transaction. The
// Store handed to fn locks the person row on read, so concurrent writers to
// the same person queue behind each other until commit.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db, timeout: defaultTxTimeout}
}

func (t *PostgresTx) RunInTx(ctx context.Context, _ id.RecordID, fn func(ctx context.Context, s Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), newPostgresTxStore(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(fmt.Errorf("commit: %w", err), dErrors.CodeStorage, "commit transaction")
	}
	return nil
}
