package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// InitializeStockRequest body para POST /api/stock.
type InitializeStockRequest struct {
	MaterialID   string `json:"material_id"`
	ReorderLevel int64  `json:"reorder_level"`
}

// ImportRequest body para POST /api/stock/:materialId/import.
type ImportRequest struct {
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	ReferenceCode string          `json:"reference_code,omitempty"`
	Note          string          `json:"note,omitempty"`
}

// DeductRequest body para POST /api/stock/:materialId/deduct. Type: USAGE, DAMAGED o SALE.
type DeductRequest struct {
	Quantity      int64  `json:"quantity"`
	Type          string `json:"type"`
	ReferenceCode string `json:"reference_code,omitempty"`
	Note          string `json:"note,omitempty"`
}

// AdjustRequest body para POST /api/stock/:materialId/adjust.
type AdjustRequest struct {
	Delta int64  `json:"delta"`
	Note  string `json:"note,omitempty"`
}

// ReturnRequest body para POST /api/stock/:materialId/return.
type ReturnRequest struct {
	Quantity      int64  `json:"quantity"`
	ReferenceCode string `json:"reference_code,omitempty"`
	Note          string `json:"note,omitempty"`
}

// ReorderLevelRequest body para PUT /api/stock/:materialId/reorder-level.
type ReorderLevelRequest struct {
	ReorderLevel    int64 `json:"reorder_level"`
	ExpectedVersion int64 `json:"expected_version"`
}

// StockResponse estado de un material.
type StockResponse struct {
	MaterialID       string          `json:"material_id"`
	Quantity         int64           `json:"quantity"`
	ReservedQuantity int64           `json:"reserved_quantity"`
	AvailableStock   int64           `json:"available_stock"`
	CostPrice        decimal.Decimal `json:"cost_price"`
	ReorderLevel     int64           `json:"reorder_level"`
	LowStock         bool            `json:"low_stock"`
	Version          int64           `json:"version"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TransactionResponse registro del libro.
type TransactionResponse struct {
	ID                string          `json:"id"`
	Seq               int64           `json:"seq"`
	MaterialID        string          `json:"material_id"`
	Type              string          `json:"type"`
	QuantityDelta     int64           `json:"quantity_delta"`
	BeforeQuantity    int64           `json:"before_quantity"`
	AfterQuantity     int64           `json:"after_quantity"`
	CurrentBalance    int64           `json:"current_balance"`
	BeforeReserved    int64           `json:"before_reserved"`
	AfterReserved     int64           `json:"after_reserved"`
	CostPriceSnapshot decimal.Decimal `json:"cost_price_snapshot"`
	ReferenceCode     string          `json:"reference_code,omitempty"`
	Note              string          `json:"note,omitempty"`
	CreatedBy         string          `json:"created_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// HistoryResponse página del libro de un material (más reciente primero).
type HistoryResponse struct {
	MaterialID string                `json:"material_id"`
	Page       int                   `json:"page"`
	Size       int                   `json:"size"`
	Total      int                   `json:"total"`
	Items      []TransactionResponse `json:"items"`
}

// ReconcileResponse resultado de reconstruir la cantidad desde el libro.
type ReconcileResponse struct {
	MaterialID          string   `json:"material_id"`
	Quantity            int64    `json:"quantity"`
	LedgerSum           int64    `json:"ledger_sum"`
	Records             int      `json:"records"`
	InconsistentRecords []string `json:"inconsistent_records,omitempty"`
	Balanced            bool     `json:"balanced"`
}

// OrderItemRequest línea de pedido.
type OrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// OrderRequest body para POST /api/orders/reserve|confirm|release.
type OrderRequest struct {
	OrderCode string             `json:"order_code"`
	Items     []OrderItemRequest `json:"items"`
	Reason    string             `json:"reason,omitempty"` // solo release
}

// MaterialQuantityResponse cantidad por material de un pedido.
type MaterialQuantityResponse struct {
	MaterialID string `json:"material_id"`
	Quantity   int64  `json:"quantity"`
}

// OrderResponse materiales afectados por reservar o confirmar.
type OrderResponse struct {
	OrderCode string                     `json:"order_code"`
	Materials []MaterialQuantityResponse `json:"materials"`
}

// ReleaseFailureResponse material que no se pudo liberar.
type ReleaseFailureResponse struct {
	MaterialID string `json:"material_id"`
	Quantity   int64  `json:"quantity"`
	Error      string `json:"error"`
}

// ReleaseResponse resultado de liberar un pedido; Failures no vacío indica descuadre a revisar.
type ReleaseResponse struct {
	OrderCode string                     `json:"order_code"`
	Released  []MaterialQuantityResponse `json:"released"`
	Failures  []ReleaseFailureResponse   `json:"failures"`
}

// FromStockRecord mapea la entidad a respuesta.
func FromStockRecord(s *entity.StockRecord) StockResponse {
	return StockResponse{
		MaterialID:       s.MaterialID,
		Quantity:         s.Quantity,
		ReservedQuantity: s.ReservedQuantity,
		AvailableStock:   s.AvailableStock(),
		CostPrice:        s.CostPrice,
		ReorderLevel:     s.ReorderLevel,
		LowStock:         s.IsLowStock(),
		Version:          s.Version,
		UpdatedAt:        s.UpdatedAt,
	}
}

// FromStockTransaction mapea un registro del libro a respuesta.
func FromStockTransaction(t *entity.StockTransaction) TransactionResponse {
	return TransactionResponse{
		ID:                t.ID,
		Seq:               t.Seq,
		MaterialID:        t.MaterialID,
		Type:              t.Type,
		QuantityDelta:     t.QuantityDelta,
		BeforeQuantity:    t.BeforeQuantity,
		AfterQuantity:     t.AfterQuantity,
		CurrentBalance:    t.CurrentBalance,
		BeforeReserved:    t.BeforeReserved,
		AfterReserved:     t.AfterReserved,
		CostPriceSnapshot: t.CostPriceSnapshot,
		ReferenceCode:     t.ReferenceCode,
		Note:              t.Note,
		CreatedBy:         t.CreatedBy,
		CreatedAt:         t.CreatedAt,
	}
}
