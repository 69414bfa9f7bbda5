package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockRecord representa el stock de un material (agregado raíz del libro de inventario).
// CostPrice es el costo promedio móvil (MAC) con 2 decimales.
// Version solo protege ediciones de configuración (ReorderLevel), no las cantidades.
type StockRecord struct {
	MaterialID       string
	Quantity         int64 // unidades físicas en bodega
	ReservedQuantity int64 // comprometidas con pedidos pendientes; 0 <= reservado <= Quantity
	CostPrice        decimal.Decimal
	ReorderLevel     int64
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewStockRecord crea el registro inicial de un material (cantidad 0, costo 0).
func NewStockRecord(materialID string, reorderLevel int64, now time.Time) *StockRecord {
	return &StockRecord{
		MaterialID:   materialID,
		CostPrice:    decimal.Zero,
		ReorderLevel: reorderLevel,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AvailableStock devuelve Quantity - ReservedQuantity.
func (s *StockRecord) AvailableStock() int64 {
	return s.Quantity - s.ReservedQuantity
}

// IsLowStock indica si el disponible está por debajo del nivel de reorden.
func (s *StockRecord) IsLowStock() bool {
	return s.AvailableStock() < s.ReorderLevel
}
