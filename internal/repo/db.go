package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// executor is satisfied by both *sqlx.DB and *sqlx.Tx so every repo can run
// inside or outside a transaction.
type executor interface {
	sqlx.ExtContext
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
