package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockRecordRepository = (*StockRecordRepo)(nil)

const stockColumns = `material_id, quantity, reserved_quantity, cost_price, reorder_level, version, created_at, updated_at`

// StockRecordRepo implementación de StockRecordRepository sobre PostgreSQL (usable con pool o tx).
type StockRecordRepo struct {
	q Querier
}

// NewStockRecordRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRecordRepository(q Querier) *StockRecordRepo {
	return &StockRecordRepo{q: q}
}

func scanStock(row pgx.Row) (*entity.StockRecord, error) {
	var s entity.StockRecord
	err := row.Scan(&s.MaterialID, &s.Quantity, &s.ReservedQuantity, &s.CostPrice,
		&s.ReorderLevel, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserta el registro inicial del material.
func (r *StockRecordRepo) Create(ctx context.Context, record *entity.StockRecord) error {
	query := `
		INSERT INTO stock_records (` + stockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		record.MaterialID, record.Quantity, record.ReservedQuantity, record.CostPrice,
		record.ReorderLevel, record.Version, record.CreatedAt, record.UpdatedAt,
	)
	return mapError("create stock record", err)
}

// Get lectura sin bloqueo.
func (r *StockRecordRepo) Get(ctx context.Context, materialID string) (*entity.StockRecord, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_records WHERE material_id = $1`
	s, err := scanStock(r.q.QueryRow(ctx, query, materialID))
	if err != nil {
		return nil, mapError("get stock record", err)
	}
	return s, nil
}

// GetForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
func (r *StockRecordRepo) GetForUpdate(ctx context.Context, materialID string) (*entity.StockRecord, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_records WHERE material_id = $1 FOR UPDATE`
	s, err := scanStock(r.q.QueryRow(ctx, query, materialID))
	if err != nil {
		return nil, mapError("get stock record for update", err)
	}
	return s, nil
}

// UpdateQuantityAndCost escribe cantidad y costo calculados bajo el bloqueo de GetForUpdate.
func (r *StockRecordRepo) UpdateQuantityAndCost(ctx context.Context, materialID string, quantity int64, cost decimal.Decimal) error {
	query := `
		UPDATE stock_records SET quantity = $2, cost_price = $3, updated_at = now()
		WHERE material_id = $1`
	tag, err := r.q.Exec(ctx, query, materialID, quantity, cost)
	if err != nil {
		return mapError("update stock quantity", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// conditional ejecuta un UPDATE condicional y reporta si afectó la fila.
func (r *StockRecordRepo) conditional(ctx context.Context, op, query string, args ...any) (bool, error) {
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return false, mapError(op, err)
	}
	return tag.RowsAffected() == 1, nil
}

// returning ejecuta un UPDATE condicional con RETURNING; sin filas significa que la condición no se cumplió.
func (r *StockRecordRepo) returning(ctx context.Context, op, query string, args ...any) (*entity.StockRecord, bool, error) {
	s, err := scanStock(r.q.QueryRow(ctx, query+` RETURNING `+stockColumns, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapError(op, err)
	}
	return s, true, nil
}

// AtomicDeduct descuenta solo si el disponible alcanza (no consume unidades reservadas).
func (r *StockRecordRepo) AtomicDeduct(ctx context.Context, materialID string, amount int64) (*entity.StockRecord, bool, error) {
	return r.returning(ctx, "atomic deduct", `
		UPDATE stock_records SET quantity = quantity - $2, updated_at = now()
		WHERE material_id = $1 AND quantity - reserved_quantity >= $2`, materialID, amount)
}

func (r *StockRecordRepo) AtomicReserve(ctx context.Context, materialID string, amount int64) (*entity.StockRecord, bool, error) {
	return r.returning(ctx, "atomic reserve", `
		UPDATE stock_records SET reserved_quantity = reserved_quantity + $2, updated_at = now()
		WHERE material_id = $1 AND quantity - reserved_quantity >= $2`, materialID, amount)
}

func (r *StockRecordRepo) AtomicRelease(ctx context.Context, materialID string, amount int64) (*entity.StockRecord, bool, error) {
	return r.returning(ctx, "atomic release", `
		UPDATE stock_records SET reserved_quantity = reserved_quantity - $2, updated_at = now()
		WHERE material_id = $1 AND reserved_quantity >= $2`, materialID, amount)
}

func (r *StockRecordRepo) AtomicConfirm(ctx context.Context, materialID string, amount int64) (*entity.StockRecord, bool, error) {
	return r.returning(ctx, "atomic confirm", `
		UPDATE stock_records
		SET quantity = quantity - $2, reserved_quantity = reserved_quantity - $2, updated_at = now()
		WHERE material_id = $1 AND reserved_quantity >= $2`, materialID, amount)
}

// UpdateReorderLevel control optimista: solo aplica con la versión esperada.
func (r *StockRecordRepo) UpdateReorderLevel(ctx context.Context, materialID string, level, expectedVersion int64) (bool, error) {
	return r.conditional(ctx, "update reorder level", `
		UPDATE stock_records SET reorder_level = $2, version = version + 1, updated_at = now()
		WHERE material_id = $1 AND version = $3`, materialID, level, expectedVersion)
}

// ListLowStock devuelve los materiales con disponible bajo el nivel de reorden, mayor déficit primero.
func (r *StockRecordRepo) ListLowStock(ctx context.Context, limit, offset int) ([]*entity.StockRecord, error) {
	query := `
		SELECT ` + stockColumns + `
		FROM stock_records
		WHERE reorder_level > 0 AND quantity - reserved_quantity < reorder_level
		ORDER BY (reorder_level - (quantity - reserved_quantity)) DESC, material_id
		LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, mapError("list low stock", err)
	}
	defer rows.Close()
	var list []*entity.StockRecord
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock record: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
