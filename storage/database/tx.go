package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/davidobonyano/yano-school-next-sub001/core"
)

type transactor struct {
	db core.DB
}

var _ core.Transactor = (*transactor)(nil) // interface compliance check

func NewTransactor(db core.DB) core.Transactor {
	return &transactor{db: db}
}

func (t *transactor) Transact(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if err = fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
