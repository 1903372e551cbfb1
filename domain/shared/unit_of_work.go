package shared

import "context"

// UnitOfWork is the outbound port for a transaction boundary. WithinTx runs
// fn inside a single transaction; everything fn persists through repositories
// or a transaction-aware EventBus commits or rolls back together.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
