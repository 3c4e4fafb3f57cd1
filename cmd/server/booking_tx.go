package main

import (
	"context"
	"database/sql"
	"time"

	bookingservice "arabesque/internal/booking/service"
	bookingstore "arabesque/internal/booking/store"
	dErrors "arabesque/pkg/domainerrors"
)

const defaultBookingTxTimeout = 5 * time.Second

// bookingPostgresTx runs the booking ledger's transactions over *sql.DB. The
// FOR UPDATE course lock inside the store serializes capacity checks per
// course row.
type bookingPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newBookingPostgresTx(db *sql.DB) *bookingPostgresTx {
	return &bookingPostgresTx{db: db}
}

func (t *bookingPostgresTx) RunInTx(ctx context.Context, fn func(stores bookingservice.TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultBookingTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(bookingstore.NewPostgresTx(tx)); err != nil {
		return err
	}

	return tx.Commit()
}
