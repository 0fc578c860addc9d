package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an infra-defined transaction handle (pgx.Tx for Postgres).
// Repositories MUST accept a nil Tx and run against the pool.
type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn inside one database transaction and hands the
// handle to fn. A returned error rolls back; nil commits.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		p, err := payments.FindByID(ctx, tx, id) // SELECT ... FOR UPDATE
//		...
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

// AdvisoryLocker serializes work on an arbitrary key for the lifetime of tx.
type AdvisoryLocker interface {
	LockXact(ctx context.Context, tx Tx, key string) error
}
