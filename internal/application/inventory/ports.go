package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback; stock y libro nunca divergen.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		stockRepo repository.StockRecordRepository,
		ledgerRepo repository.StockTransactionRepository,
	) error) error
}

// Metrics registra el resultado y la duración de cada operación de stock.
type Metrics interface {
	ObserveOperation(op, outcome string, elapsed time.Duration)
}

// NopMetrics descarta las observaciones.
type NopMetrics struct{}

func (NopMetrics) ObserveOperation(string, string, time.Duration) {}
