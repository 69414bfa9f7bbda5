package inventory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// OrderItem línea de un pedido: producto vendible y unidades.
type OrderItem struct {
	ProductID string
	Quantity  int64
}

// OrderRequest pedido recibido del flujo de órdenes.
type OrderRequest struct {
	OrderCode string
	Items     []OrderItem
}

// MaterialQuantity cantidad total de un material requerida por un pedido.
type MaterialQuantity struct {
	MaterialID string
	Quantity   int64
}

// ReleaseFailure material cuya liberación falló durante la cancelación.
type ReleaseFailure struct {
	MaterialID string
	Quantity   int64
	Err        error
}

// ReleaseResult resultado de liberar las reservas de un pedido.
type ReleaseResult struct {
	OrderCode string
	Released  []MaterialQuantity
	Failures  []ReleaseFailure
}

// InventoryFacade orquesta reservar/confirmar/liberar a nivel de pedido sobre el StockService.
type InventoryFacade struct {
	txRunner TxRunner
	stock    *StockService
	recipes  repository.RecipeRepository
	log      *logger.Logger
}

// NewInventoryFacade construye la fachada.
func NewInventoryFacade(txRunner TxRunner, stock *StockService, recipes repository.RecipeRepository, log *logger.Logger) *InventoryFacade {
	if log == nil {
		log = logger.Nop()
	}
	return &InventoryFacade{txRunner: txRunner, stock: stock, recipes: recipes, log: log.Component("inventory_facade")}
}

// ExpandOrder convierte las líneas del pedido en cantidades por material, sumando entre productos.
// El resultado se ordena por MaterialID para que todas las órdenes tomen filas en el mismo orden.
func (f *InventoryFacade) ExpandOrder(ctx context.Context, order OrderRequest) ([]MaterialQuantity, error) {
	if order.OrderCode == "" || len(order.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	totals := make(map[string]int64)
	for _, item := range order.Items {
		if item.ProductID == "" || item.Quantity <= 0 {
			return nil, domain.ErrInvalidInput
		}
		reqs, err := f.recipes.GetRequiredMaterials(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("receta de %s: %w", item.ProductID, err)
		}
		if len(reqs) == 0 {
			return nil, fmt.Errorf("receta de %s: %w", item.ProductID, domain.ErrNotFound)
		}
		for _, r := range reqs {
			if r.MaterialID == "" || r.QuantityPerUnit <= 0 {
				return nil, fmt.Errorf("receta de %s: %w", item.ProductID, domain.ErrInvalidInput)
			}
			if item.Quantity > math.MaxInt64/r.QuantityPerUnit {
				return nil, fmt.Errorf("material %s: %w", r.MaterialID, domain.ErrInvalidQuantity)
			}
			need := r.QuantityPerUnit * item.Quantity
			if totals[r.MaterialID] > math.MaxInt64-need {
				return nil, fmt.Errorf("material %s: %w", r.MaterialID, domain.ErrInvalidQuantity)
			}
			totals[r.MaterialID] += need
		}
	}
	out := make([]MaterialQuantity, 0, len(totals))
	for id, qty := range totals {
		out = append(out, MaterialQuantity{MaterialID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MaterialID < out[j].MaterialID })
	return out, nil
}

// Reserve reserva todos los materiales del pedido en una sola transacción (todo o nada).
func (f *InventoryFacade) Reserve(ctx context.Context, order OrderRequest) ([]MaterialQuantity, error) {
	lines, err := f.ExpandOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	err = f.txRunner.Run(ctx, func(stockRepo repository.StockRecordRepository, ledgerRepo repository.StockTransactionRepository) error {
		for _, l := range lines {
			if _, err := f.stock.ReserveForOrderInTx(ctx, stockRepo, ledgerRepo, l.MaterialID, l.Quantity, order.OrderCode); err != nil {
				return fmt.Errorf("material %s: %w", l.MaterialID, err)
			}
		}
		return nil
	})
	if err != nil {
		f.log.Info().Str("order_code", order.OrderCode).Err(err).Msg("reserva de pedido abortada")
		return nil, fmt.Errorf("reserve order %s: %w", order.OrderCode, err)
	}
	f.log.Info().Str("order_code", order.OrderCode).Int("materials", len(lines)).Msg("pedido reservado")
	return lines, nil
}

// Confirm confirma todas las reservas del pedido en una sola transacción (todo o nada).
func (f *InventoryFacade) Confirm(ctx context.Context, order OrderRequest) ([]MaterialQuantity, error) {
	lines, err := f.ExpandOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	err = f.txRunner.Run(ctx, func(stockRepo repository.StockRecordRepository, ledgerRepo repository.StockTransactionRepository) error {
		for _, l := range lines {
			if _, err := f.stock.ConfirmReservationInTx(ctx, stockRepo, ledgerRepo, l.MaterialID, l.Quantity, order.OrderCode); err != nil {
				return fmt.Errorf("material %s: %w", l.MaterialID, err)
			}
		}
		return nil
	})
	if err != nil {
		f.log.Info().Str("order_code", order.OrderCode).Err(err).Msg("confirmación de pedido abortada")
		return nil, fmt.Errorf("confirm order %s: %w", order.OrderCode, err)
	}
	f.log.Info().Str("order_code", order.OrderCode).Int("materials", len(lines)).Msg("pedido confirmado")
	return lines, nil
}

// Release libera las reservas del pedido material por material. Una falla no detiene el ciclo:
// se registra con su contexto y se acumula en el resultado para ajuste manual posterior.
// Solo devuelve error si el pedido no se puede expandir.
func (f *InventoryFacade) Release(ctx context.Context, order OrderRequest, reason string) (*ReleaseResult, error) {
	lines, err := f.ExpandOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	result := &ReleaseResult{OrderCode: order.OrderCode}
	for _, l := range lines {
		if _, err := f.stock.ReleaseReservation(ctx, l.MaterialID, l.Quantity, order.OrderCode, reason); err != nil {
			f.log.Error().
				Str("material_id", l.MaterialID).
				Int64("qty", l.Quantity).
				Str("order_code", order.OrderCode).
				Str("reason", reason).
				Err(err).
				Msg("no se pudo liberar reserva; se continúa con la cancelación")
			result.Failures = append(result.Failures, ReleaseFailure{MaterialID: l.MaterialID, Quantity: l.Quantity, Err: err})
			continue
		}
		result.Released = append(result.Released, l)
	}
	return result, nil
}
