package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de transacción del libro de stock.
const (
	TransactionTypeImport     = "IMPORT"
	TransactionTypeSale       = "SALE"
	TransactionTypeUsage      = "USAGE"
	TransactionTypeDamaged    = "DAMAGED"
	TransactionTypeAdjustUp   = "ADJUST_UP"
	TransactionTypeAdjustDown = "ADJUST_DOWN"
	TransactionTypeReturn     = "RETURN"
	TransactionTypeReserve    = "RESERVE"
	TransactionTypeRelease    = "RELEASE"
)

// IsManualDeductType indica si el tipo es válido para una salida manual.
func IsManualDeductType(t string) bool {
	switch t {
	case TransactionTypeUsage, TransactionTypeDamaged, TransactionTypeSale:
		return true
	}
	return false
}

// StockTransaction es un registro inmutable del libro (una por mutación).
// Seq es el orden de inserción durable; la reconstrucción se hace en ese orden.
type StockTransaction struct {
	ID                string
	Seq               int64
	MaterialID        string
	Type              string
	QuantityDelta     int64 // cero para RESERVE/RELEASE
	BeforeQuantity    int64
	AfterQuantity     int64
	CurrentBalance    int64 // = AfterQuantity
	BeforeReserved    int64
	AfterReserved     int64
	CostPriceSnapshot decimal.Decimal
	ReferenceCode     string
	Note              string
	CreatedBy         string
	CreatedAt         time.Time
}

// IsConsistent verifica AfterQuantity == BeforeQuantity + QuantityDelta.
func (t *StockTransaction) IsConsistent() bool {
	return t.AfterQuantity == t.BeforeQuantity+t.QuantityDelta && t.CurrentBalance == t.AfterQuantity
}
