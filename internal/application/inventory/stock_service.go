package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// Nombres de operación usados en métricas y logs.
const (
	OpImport     = "import"
	OpDeduct     = "manual_deduct"
	OpAdjust     = "adjust"
	OpReturn     = "return"
	OpReorder    = "update_reorder_level"
	OpSale       = "deduct_for_order"
	OpReserve    = "reserve_for_order"
	OpRelease    = "release_reservation"
	OpConfirm    = "confirm_reservation"
	OpInitialize = "initialize"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// StockService orquesta las mutaciones de stock con dos estrategias de concurrencia:
//   - bloqueo exclusivo (GetForUpdate) para importaciones, salidas manuales, ajustes y devoluciones,
//     donde el costo promedio es una lectura-cálculo-escritura que no admite intercalado;
//   - actualización atómica condicional para el flujo de ventas (deducir, reservar, liberar, confirmar).
//
// Cada mutación agrega exactamente un registro al libro dentro de la misma transacción.
type StockService struct {
	txRunner   TxRunner
	stockRepo  repository.StockRecordRepository
	ledgerRepo repository.StockTransactionRepository
	metrics    Metrics
	log        *logger.Logger
	now        func() time.Time
}

// NewStockService construye el servicio. stockRepo y ledgerRepo se usan para lecturas fuera de tx.
func NewStockService(
	txRunner TxRunner,
	stockRepo repository.StockRecordRepository,
	ledgerRepo repository.StockTransactionRepository,
	metrics Metrics,
	log *logger.Logger,
) *StockService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &StockService{
		txRunner:   txRunner,
		stockRepo:  stockRepo,
		ledgerRepo: ledgerRepo,
		metrics:    metrics,
		log:        log.Component("stock_service"),
		now:        time.Now,
	}
}

// ImportInput entrada para registrar una compra/importación.
type ImportInput struct {
	MaterialID    string
	Quantity      int64
	UnitPrice     decimal.Decimal
	ReferenceCode string
	Note          string
	UserID        string
}

// DeductInput entrada para una salida manual (USAGE, DAMAGED o SALE).
type DeductInput struct {
	MaterialID    string
	Quantity      int64
	Type          string
	ReferenceCode string
	Note          string
	UserID        string
}

// AdjustInput entrada para un ajuste de conteo; Delta positivo o negativo, nunca cero.
type AdjustInput struct {
	MaterialID string
	Delta      int64
	Note       string
	UserID     string
}

// ReturnInput entrada para una devolución de mercancía al stock.
type ReturnInput struct {
	MaterialID    string
	Quantity      int64
	ReferenceCode string
	Note          string
	UserID        string
}

// HistoryPage página del libro de un material, del más reciente al más antiguo.
type HistoryPage struct {
	MaterialID string
	Page       int
	Size       int
	Total      int
	Items      []*entity.StockTransaction
}

// ReconcileReport resultado de reconstruir la cantidad a partir del libro.
type ReconcileReport struct {
	MaterialID          string
	Quantity            int64
	LedgerSum           int64
	Records             int
	InconsistentRecords []string
	Balanced            bool
}

// ─── Inicialización y lecturas ────────────────────────────────────────────────

// InitializeStock crea el registro de stock de un material (cantidad 0, costo 0).
func (s *StockService) InitializeStock(ctx context.Context, materialID string, reorderLevel int64) (*entity.StockRecord, error) {
	start := time.Now()
	if materialID == "" || reorderLevel < 0 {
		return nil, domain.ErrInvalidInput
	}
	record := entity.NewStockRecord(materialID, reorderLevel, s.now())
	err := s.stockRepo.Create(ctx, record)
	s.observe(OpInitialize, start, err)
	if err != nil {
		return nil, fmt.Errorf("initialize stock %s: %w", materialID, err)
	}
	s.log.Info().Str("material_id", materialID).Int64("reorder_level", reorderLevel).Msg("stock inicializado")
	return record, nil
}

// GetStock devuelve el estado actual del material (lectura sin bloqueo).
func (s *StockService) GetStock(ctx context.Context, materialID string) (*entity.StockRecord, error) {
	if materialID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.stockRepo.Get(ctx, materialID)
}

// ListLowStock lista los materiales cuyo disponible está por debajo del nivel de reorden.
func (s *StockService) ListLowStock(ctx context.Context, limit, offset int) ([]*entity.StockRecord, error) {
	limit, offset = normalizeLimit(limit), max(offset, 0)
	return s.stockRepo.ListLowStock(ctx, limit, offset)
}

// History devuelve una página del libro del material (page empieza en 1).
func (s *StockService) History(ctx context.Context, materialID string, page, size int) (*HistoryPage, error) {
	if materialID == "" {
		return nil, domain.ErrInvalidInput
	}
	size = normalizeLimit(size)
	page = normalizePage(page, size)
	if _, err := s.stockRepo.Get(ctx, materialID); err != nil {
		return nil, err
	}
	items, err := s.ledgerRepo.ListByMaterial(ctx, materialID, size, (page-1)*size)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", materialID, err)
	}
	total, err := s.ledgerRepo.CountByMaterial(ctx, materialID)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", materialID, err)
	}
	return &HistoryPage{MaterialID: materialID, Page: page, Size: size, Total: total, Items: items}, nil
}

// Reconcile reproduce el libro en orden de inserción y compara la suma de deltas con la cantidad actual.
// Bloquea la fila mientras lee para que stock y libro correspondan al mismo instante.
func (s *StockService) Reconcile(ctx context.Context, materialID string) (*ReconcileReport, error) {
	if materialID == "" {
		return nil, domain.ErrInvalidInput
	}
	var report *ReconcileReport
	err := s.txRunner.Run(ctx, func(stockRepo repository.StockRecordRepository, ledgerRepo repository.StockTransactionRepository) error {
		stock, err := stockRepo.GetForUpdate(ctx, materialID)
		if err != nil {
			return err
		}
		records, err := ledgerRepo.ListByMaterialAsc(ctx, materialID)
		if err != nil {
			return err
		}
		report = &ReconcileReport{MaterialID: materialID, Quantity: stock.Quantity, Records: len(records)}
		for _, r := range records {
			report.LedgerSum += r.QuantityDelta
			if !r.IsConsistent() {
				report.InconsistentRecords = append(report.InconsistentRecords, r.ID)
			}
		}
		report.Balanced = report.LedgerSum == stock.Quantity && len(report.InconsistentRecords) == 0
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", materialID, err)
	}
	if !report.Balanced {
		s.log.Error().
			Str("material_id", materialID).
			Int64("quantity", report.Quantity).
			Int64("ledger_sum", report.LedgerSum).
			Int("inconsistent", len(report.InconsistentRecords)).
			Msg("libro descuadrado")
	}
	return report, nil
}

// ─── Estrategia de bloqueo exclusivo ──────────────────────────────────────────

// Import suma stock y recalcula el costo promedio móvil bajo bloqueo de fila.
func (s *StockService) Import(ctx context.Context, in ImportInput) (*entity.StockTransaction, error) {
	start := time.Now()
	if in.MaterialID == "" || !in.UnitPrice.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	var rec *entity.StockTransaction
	err := s.txRunner.Run(ctx, func(stockRepo repository.StockRecordRepository, ledgerRepo repository.StockTransactionRepository) error {
		stock, err := stockRepo.GetForUpdate(ctx, in.MaterialID)
		if err != nil {
			return err
		}
		newCost := inventory.CostCalculator(stock.Quantity, stock.CostPrice, in.Quantity, in.UnitPrice)
		if err := stockRepo.UpdateQuantityAndCost(ctx, in.MaterialID, stock.Quantity+in.Quantity, newCost); err != nil {
			return err
		}
		rec = s.newTransaction(stock, entity.TransactionTypeImport, in.Quantity, 0, newCost, in.ReferenceCode, in.Note, in.UserID)
		return ledgerRepo.Append(ctx, rec)
	})
	s.observe(OpImport, start, err)
	if err != nil {
		return nil, s.fail(OpImport, in.MaterialID, err)
	}
	s.log.Info().
		Str("material_id", in.MaterialID).
		Int64("qty", in.Quantity).
		Str("unit_price", in.UnitPrice.String()).
		Str("cost_price", rec.CostPriceSnapshot.StringFixed(2)).
		Str("reference", in.ReferenceCode).
		Msg("importación registrada")
	return rec, nil
}

// ManualDeduct descuenta stock disponible bajo bloqueo de fila; el costo promedio no cambia.
func (s *StockService) ManualDeduct(ctx context.Context, in DeductInput) (*entity.StockTransaction, error) {
	start := time.Now()
	if in.MaterialID == "" || !entity.IsManualDeductType(in.Type) {
		return nil, domain.ErrInvalidInput
	}
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	var rec *entity.StockTransaction
	err := s.txRunner.Run(ctx, func(stockRepo repository.StockRecordRepository, ledgerRepo repository.StockTransactionRepository) error {
		stock, err := stockRepo.GetForUpdate(ctx, in.MaterialID)
		if err != nil {
			return err
		}
		if stock.AvailableStock() < in.Quantity {
			return domain.ErrInsufficientStock
		}
		if err := stockRepo.UpdateQuantityAndCost(ctx, in.MaterialID, stock.Quantity-in.Quantity, stock.CostPrice); err != nil {
			return err
		}
		rec = s.newTransaction(stock, in.Type, -in.Quantity, 0, stock.CostPrice, in.ReferenceCode, in.Note, in.UserID)
		return ledgerRepo.Append(ctx, rec)
	})
	s.observe(OpDeduct, start, err)
	if err != nil {
		return nil, s.fail(OpDeduct, in.MaterialID, err)
	}
	return rec, nil
}

// Adjust corrige la cantidad tras un conteo físico (ADJUST_UP / ADJUST_DOWN).
// Falla con ErrInvalidQuantity si la cantidad resultante quedaría negativa o por debajo de lo reservado.
func (s *StockService) Adjust(ctx context.Context, in AdjustInput) (*entity.StockTransaction, error) {
	start := time.Now()
	if in.MaterialID == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.Delta == 0 {
		return nil, domain.ErrInvalidQuantity
	}
	txType := entity.TransactionTypeAdjustUp
	if in.Delta < 0 {
		txType = entity.TransactionTypeAdjustDown
	}

	var rec *entity.StockTransaction
	err := s.txRunner.Run(ctx, func(stockRepo repository.StockRecordRepository, ledgerRepo repository.StockTransactionRepository) error {
		stock, err := stockRepo.GetForUpdate(ctx, in.MaterialID)
		if err != nil {
			return err
		}
		after := stock.Quantity + in.Delta
		if after < 0 || after < stock.ReservedQuantity {
			return domain.ErrInvalidQuantity
		}
		if err := stockRepo.UpdateQuantityAndCost(ctx, in.MaterialID, after, stock.CostPrice); err != nil {
			return err
		}
		rec = s.newTransaction(stock, txType, in.Delta, 0, stock.CostPrice, "", in.Note, in.UserID)
		return ledgerRepo.Append(ctx, rec)
	})
	s.observe(OpAdjust, start, err)
	if err != nil {
		return nil, s.fail(OpAdjust, in.MaterialID, err)
	}
	return rec, nil
}

// ReturnStock reingresa unidades devueltas por un cliente; el costo promedio no cambia.
func (s *StockService) ReturnStock(ctx context.Context, in ReturnInput) (*entity.StockTransaction, error) {
	start := time.Now()
	if in.MaterialID == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	var rec *entity.StockTransaction
	err := s.txRunner.Run(ctx, func(stockRepo repository.StockRecordRepository, ledgerRepo repository.StockTransactionRepository) error {
		stock, err := stockRepo.GetForUpdate(ctx, in.MaterialID)
		if err != nil {
			return err
		}
		if err := stockRepo.UpdateQuantityAndCost(ctx, in.MaterialID, stock.Quantity+in.Quantity, stock.CostPrice); err != nil {
			return err
		}
		rec = s.newTransaction(stock, entity.TransactionTypeReturn, in.Quantity, 0, stock.CostPrice, in.ReferenceCode, in.Note, in.UserID)
		return ledgerRepo.Append(ctx, rec)
	})
	s.observe(OpReturn, start, err)
	if err != nil {
		return nil, s.fail(OpReturn, in.MaterialID, err)
	}
	return rec, nil
}

// UpdateReorderLevel cambia el nivel de reorden con control optimista de versión.
// No toca cantidades, por eso no necesita el bloqueo exclusivo.
func (s *StockService) UpdateReorderLevel(ctx context.Context, materialID string, newLevel, expectedVersion int64) (*entity.StockRecord, error) {
	start := time.Now()
	if materialID == "" || newLevel < 0 || expectedVersion < 0 {
		return nil, domain.ErrInvalidInput
	}
	err := func() error {
		applied, err := s.stockRepo.UpdateReorderLevel(ctx, materialID, newLevel, expectedVersion)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
		// Distinguir material inexistente de versión obsoleta.
		if _, err := s.stockRepo.Get(ctx, materialID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}()
	s.observe(OpReorder, start, err)
	if err != nil {
		return nil, s.fail(OpReorder, materialID, err)
	}
	return s.stockRepo.Get(ctx, materialID)
}

// ─── Estrategia atómica (ventas) ──────────────────────────────────────────────

// DeductForOrder descuenta stock de una venta directa con actualización atómica.
func (s *StockService) DeductForOrder(ctx context.Context, materialID string, qty int64, orderCode string) (*entity.StockTransaction, error) {
	return s.runAtomic(ctx, OpSale, materialID, func(stockRepo repository.StockRecordRepository, ledgerRepo repository.StockTransactionRepository) (*entity.StockTransaction, error) {
		return s.DeductForOrderInTx(ctx, stockRepo, ledgerRepo, materialID, qty, orderCode)
	})
}

// ReserveForOrder reserva stock disponible para un pedido pendiente.
func (s *StockService) ReserveForOrder(ctx context.Context, materialID string, qty int64, orderCode string) (*entity.StockTransaction, error) {
	return s.runAtomic(ctx, OpReserve, materialID, func(stockRepo repository.StockRecordRepository, ledgerRepo repository.StockTransactionRepository) (*entity.StockTransaction, error) {
		return s.ReserveForOrderInTx(ctx, stockRepo, ledgerRepo, materialID, qty, orderCode)
	})
}

// ReleaseReservation libera una reserva (cancelación de pedido).
func (s *StockService) ReleaseReservation(ctx context.Context, materialID string, qty int64, orderCode, reason string) (*entity.StockTransaction, error) {
	return s.runAtomic(ctx, OpRelease, materialID, func(stockRepo repository.StockRecordRepository, ledgerRepo repository.StockTransactionRepository) (*entity.StockTransaction, error) {
		return s.ReleaseReservationInTx(ctx, stockRepo, ledgerRepo, materialID, qty, orderCode, reason)
	})
}

// ConfirmReservation convierte una reserva en salida efectiva (registro SALE).
func (s *StockService) ConfirmReservation(ctx context.Context, materialID string, qty int64, orderCode string) (*entity.StockTransaction, error) {
	return s.runAtomic(ctx, OpConfirm, materialID, func(stockRepo repository.StockRecordRepository, ledgerRepo repository.StockTransactionRepository) (*entity.StockTransaction, error) {
		return s.ConfirmReservationInTx(ctx, stockRepo, ledgerRepo, materialID, qty, orderCode)
	})
}

// DeductForOrderInTx ejecuta la venta directa con los repositorios de la tx del llamador.
func (s *StockService) DeductForOrderInTx(
	ctx context.Context,
	stockRepo repository.StockRecordRepository,
	ledgerRepo repository.StockTransactionRepository,
	materialID string, qty int64, orderCode string,
) (*entity.StockTransaction, error) {
	return s.atomic(ctx, stockRepo, ledgerRepo, atomicOp{
		materialID: materialID, qty: qty, reference: orderCode,
		txType: entity.TransactionTypeSale, delta: -qty,
		apply: stockRepo.AtomicDeduct, failure: domain.ErrInsufficientStock,
	})
}

// ReserveForOrderInTx reserva con los repositorios de la tx del llamador.
func (s *StockService) ReserveForOrderInTx(
	ctx context.Context,
	stockRepo repository.StockRecordRepository,
	ledgerRepo repository.StockTransactionRepository,
	materialID string, qty int64, orderCode string,
) (*entity.StockTransaction, error) {
	return s.atomic(ctx, stockRepo, ledgerRepo, atomicOp{
		materialID: materialID, qty: qty, reference: orderCode,
		txType: entity.TransactionTypeReserve, reservedDelta: qty,
		apply: stockRepo.AtomicReserve, failure: domain.ErrReserveFailed,
	})
}

// ReleaseReservationInTx libera con los repositorios de la tx del llamador.
func (s *StockService) ReleaseReservationInTx(
	ctx context.Context,
	stockRepo repository.StockRecordRepository,
	ledgerRepo repository.StockTransactionRepository,
	materialID string, qty int64, orderCode, reason string,
) (*entity.StockTransaction, error) {
	return s.atomic(ctx, stockRepo, ledgerRepo, atomicOp{
		materialID: materialID, qty: qty, reference: orderCode, note: reason,
		txType: entity.TransactionTypeRelease, reservedDelta: -qty,
		apply: stockRepo.AtomicRelease, failure: domain.ErrReleaseFailed,
	})
}

// ConfirmReservationInTx confirma con los repositorios de la tx del llamador.
func (s *StockService) ConfirmReservationInTx(
	ctx context.Context,
	stockRepo repository.StockRecordRepository,
	ledgerRepo repository.StockTransactionRepository,
	materialID string, qty int64, orderCode string,
) (*entity.StockTransaction, error) {
	return s.atomic(ctx, stockRepo, ledgerRepo, atomicOp{
		materialID: materialID, qty: qty, reference: orderCode,
		txType: entity.TransactionTypeSale, delta: -qty, reservedDelta: -qty,
		apply: stockRepo.AtomicConfirm, failure: domain.ErrConfirmFailed,
	})
}

type atomicOp struct {
	materialID    string
	qty           int64
	reference     string
	note          string
	txType        string
	delta         int64
	reservedDelta int64
	apply         func(ctx context.Context, materialID string, amount int64) (*entity.StockRecord, bool, error)
	failure       error
}

// atomic aplica el patrón snapshot + escritura condicional + registro.
// El snapshot solo se usa para el log de rechazo; nunca decide el éxito. Los valores
// "antes" del libro se derivan del estado que devolvió la escritura condicional.
func (s *StockService) atomic(
	ctx context.Context,
	stockRepo repository.StockRecordRepository,
	ledgerRepo repository.StockTransactionRepository,
	op atomicOp,
) (*entity.StockTransaction, error) {
	if op.materialID == "" || op.reference == "" {
		return nil, domain.ErrInvalidInput
	}
	if op.qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	snapshot, err := stockRepo.Get(ctx, op.materialID)
	if err != nil {
		return nil, err
	}
	after, applied, err := op.apply(ctx, op.materialID, op.qty)
	if err != nil {
		return nil, err
	}
	if !applied {
		s.log.Debug().
			Str("material_id", op.materialID).
			Str("type", op.txType).
			Int64("qty", op.qty).
			Int64("snapshot_qty", snapshot.Quantity).
			Int64("snapshot_reserved", snapshot.ReservedQuantity).
			Str("reference", op.reference).
			Msg("condición atómica no cumplida")
		return nil, op.failure
	}
	before := *after
	before.Quantity -= op.delta
	before.ReservedQuantity -= op.reservedDelta
	rec := s.newTransaction(&before, op.txType, op.delta, op.reservedDelta, after.CostPrice, op.reference, op.note, "")
	if err := ledgerRepo.Append(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *StockService) runAtomic(
	ctx context.Context, op, materialID string,
	fn func(repository.StockRecordRepository, repository.StockTransactionRepository) (*entity.StockTransaction, error),
) (*entity.StockTransaction, error) {
	start := time.Now()
	var rec *entity.StockTransaction
	err := s.txRunner.Run(ctx, func(stockRepo repository.StockRecordRepository, ledgerRepo repository.StockTransactionRepository) error {
		var err error
		rec, err = fn(stockRepo, ledgerRepo)
		return err
	})
	s.observe(op, start, err)
	if err != nil {
		return nil, s.fail(op, materialID, err)
	}
	return rec, nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func (s *StockService) newTransaction(
	before *entity.StockRecord,
	txType string,
	delta, reservedDelta int64,
	cost decimal.Decimal,
	reference, note, userID string,
) *entity.StockTransaction {
	after := before.Quantity + delta
	return &entity.StockTransaction{
		ID:                uuid.New().String(),
		MaterialID:        before.MaterialID,
		Type:              txType,
		QuantityDelta:     delta,
		BeforeQuantity:    before.Quantity,
		AfterQuantity:     after,
		CurrentBalance:    after,
		BeforeReserved:    before.ReservedQuantity,
		AfterReserved:     before.ReservedQuantity + reservedDelta,
		CostPriceSnapshot: cost,
		ReferenceCode:     reference,
		Note:              note,
		CreatedBy:         userID,
		CreatedAt:         s.now(),
	}
}

// fail registra el error según su naturaleza y lo envuelve con contexto.
func (s *StockService) fail(op, materialID string, err error) error {
	switch {
	case domain.IsBusinessOutcome(err), errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrVersionConflict):
		s.log.Debug().Str("op", op).Str("material_id", materialID).Err(err).Msg("operación rechazada")
	case errors.Is(err, domain.ErrLockTimeout):
		s.log.Warn().Str("op", op).Str("material_id", materialID).Err(err).Msg("bloqueo no obtenido a tiempo")
	default:
		s.log.Error().Str("op", op).Str("material_id", materialID).Err(err).Msg("falla en operación de stock")
	}
	return fmt.Errorf("%s %s: %w", op, materialID, err)
}

func (s *StockService) observe(op string, start time.Time, err error) {
	s.metrics.ObserveOperation(op, Outcome(err), time.Since(start))
}

// Outcome clasifica un error para métricas: ok, rejected, conflict, timeout, invalid, error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsBusinessOutcome(err):
		return "rejected"
	case errors.Is(err, domain.ErrVersionConflict):
		return "conflict"
	case errors.Is(err, domain.ErrLockTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidQuantity):
		return "invalid"
	default:
		return "error"
	}
}

// normalizePage acota page para que (page-1)*size no desborde el OFFSET.
func normalizePage(page, size int) int {
	if page < 1 {
		return 1
	}
	if last := math.MaxInt32/size + 1; page > last {
		return last
	}
	return page
}

func normalizeLimit(size int) int {
	if size <= 0 {
		return defaultPageSize
	}
	if size > maxPageSize {
		return maxPageSize
	}
	return size
}
