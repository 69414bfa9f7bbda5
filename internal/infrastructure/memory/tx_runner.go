package memory

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción en memoria.
type TxRunner struct {
	store *Store
}

// NewTxRunner construye el runner sobre el store.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// Run ejecuta fn con repos atados a la tx; Commit si no hay error, Rollback en otro caso (incluido panic).
func (r *TxRunner) Run(ctx context.Context, fn func(
	stockRepo repository.StockRecordRepository,
	ledgerRepo repository.StockTransactionRepository,
) error) error {
	t := r.store.begin()
	defer t.rollback()

	if err := fn(&StockRecordRepo{store: r.store, tx: t}, &StockTransactionRepo{store: r.store, tx: t}); err != nil {
		return err
	}
	t.commit()
	return nil
}
