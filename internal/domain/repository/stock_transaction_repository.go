package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// StockTransactionRepository define el puerto del libro de transacciones (solo inserción).
type StockTransactionRepository interface {
	Append(ctx context.Context, tx *entity.StockTransaction) error
	// ListByMaterial devuelve los registros del más reciente al más antiguo.
	ListByMaterial(ctx context.Context, materialID string, limit, offset int) ([]*entity.StockTransaction, error)
	// ListByMaterialAsc devuelve todos los registros en orden de inserción (para reconstrucción).
	ListByMaterialAsc(ctx context.Context, materialID string) ([]*entity.StockTransaction, error)
	CountByMaterial(ctx context.Context, materialID string) (int, error)
}
