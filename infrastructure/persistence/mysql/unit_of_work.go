package mysql

import (
	"context"

	"gorm.io/gorm"

	"blog/domain/shared"
	"blog/infrastructure/persistence"
	"blog/infrastructure/persistence/retry"
)

// UnitOfWork implements shared.UnitOfWork on a GORM transaction. It injects
// the transaction into the context so that repositories and the outbox bus
// picking it up via TxFromContext all write through the same transaction.
type UnitOfWork struct {
	db       *gorm.DB
	retryCfg retry.Config
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db, retryCfg: retry.DefaultConfig}
}

// WithRetry overrides the transient-failure retry policy for the whole
// transaction. The repositories skip their own retries inside a caller-owned
// transaction, so this is the single retry boundary.
func (u *UnitOfWork) WithRetry(cfg retry.Config) *UnitOfWork {
	u.retryCfg = cfg
	return u
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.ExecuteWithRetry(ctx, u.retryCfg, func(ctx context.Context) error {
		return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(persistence.ContextWithTx(ctx, tx))
		})
	})
}

var _ shared.UnitOfWork = (*UnitOfWork)(nil)
