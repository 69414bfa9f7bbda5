package memory

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockTransactionRepository = (*StockTransactionRepo)(nil)

// StockTransactionRepo libro en memoria. Los registros de una tx se numeran (Seq) al confirmar,
// así el orden del libro es el orden de commit.
type StockTransactionRepo struct {
	store *Store
	tx    *txState
}

// NewStockTransactionRepository construye el repositorio fuera de transacción.
func NewStockTransactionRepository(store *Store) *StockTransactionRepo {
	return &StockTransactionRepo{store: store}
}

func (r *StockTransactionRepo) Append(_ context.Context, tx *entity.StockTransaction) error {
	cp := *tx
	if r.tx != nil {
		r.tx.pending = append(r.tx.pending, &cp)
		return nil
	}
	return r.store.autocommit(func(t *txState) error {
		t.pending = append(t.pending, &cp)
		return nil
	})
}

// visible registros confirmados más los pendientes de la propia tx, en orden de inserción.
func (r *StockTransactionRepo) visible(materialID string) []*entity.StockTransaction {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var list []*entity.StockTransaction
	for _, t := range r.store.ledger {
		if t.MaterialID == materialID {
			cp := *t
			list = append(list, &cp)
		}
	}
	if r.tx != nil {
		for _, t := range r.tx.pending {
			if t.MaterialID == materialID {
				cp := *t
				list = append(list, &cp)
			}
		}
	}
	return list
}

func (r *StockTransactionRepo) ListByMaterial(_ context.Context, materialID string, limit, offset int) ([]*entity.StockTransaction, error) {
	list := r.visible(materialID)
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return page(list, limit, offset), nil
}

func (r *StockTransactionRepo) ListByMaterialAsc(_ context.Context, materialID string) ([]*entity.StockTransaction, error) {
	return r.visible(materialID), nil
}

func (r *StockTransactionRepo) CountByMaterial(_ context.Context, materialID string) (int, error) {
	return len(r.visible(materialID)), nil
}
