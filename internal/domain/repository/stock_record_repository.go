package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// StockRecordRepository define el puerto de persistencia del stock por material.
// Dos modos de acceso: GetForUpdate (bloqueo exclusivo de fila hasta fin de la tx)
// y mutadores atómicos condicionales que reportan si se aplicaron.
type StockRecordRepository interface {
	Create(ctx context.Context, record *entity.StockRecord) error
	// Get lectura sin bloqueo (snapshot); puede estar desactualizada frente a escrituras concurrentes.
	Get(ctx context.Context, materialID string) (*entity.StockRecord, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE). Devuelve domain.ErrLockTimeout si la espera vence.
	GetForUpdate(ctx context.Context, materialID string) (*entity.StockRecord, error)
	// UpdateQuantityAndCost solo debe llamarse después de GetForUpdate en la misma tx.
	UpdateQuantityAndCost(ctx context.Context, materialID string, quantity int64, cost decimal.Decimal) error

	// Los mutadores atómicos devuelven el estado posterior a la escritura cuando applied es true.
	AtomicDeduct(ctx context.Context, materialID string, amount int64) (after *entity.StockRecord, applied bool, err error)
	AtomicReserve(ctx context.Context, materialID string, amount int64) (after *entity.StockRecord, applied bool, err error)
	AtomicRelease(ctx context.Context, materialID string, amount int64) (after *entity.StockRecord, applied bool, err error)
	AtomicConfirm(ctx context.Context, materialID string, amount int64) (after *entity.StockRecord, applied bool, err error)

	// UpdateReorderLevel aplica solo si la versión almacenada coincide; incrementa la versión.
	UpdateReorderLevel(ctx context.Context, materialID string, level, expectedVersion int64) (bool, error)
	ListLowStock(ctx context.Context, limit, offset int) ([]*entity.StockRecord, error)
}
