package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockTransactionRepository = (*StockTransactionRepo)(nil)

const transactionColumns = `id::text, seq, material_id, type, quantity_delta, before_quantity, after_quantity,
	current_balance, before_reserved, after_reserved, cost_price_snapshot, reference_code, note, created_by, created_at`

// StockTransactionRepo libro de transacciones sobre PostgreSQL (usable con pool o tx).
// La tabla rechaza UPDATE y DELETE mediante trigger.
type StockTransactionRepo struct {
	q Querier
}

// NewStockTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockTransactionRepository(q Querier) *StockTransactionRepo {
	return &StockTransactionRepo{q: q}
}

// Append inserta el registro; seq lo asigna la columna identity.
func (r *StockTransactionRepo) Append(ctx context.Context, t *entity.StockTransaction) error {
	query := `
		INSERT INTO stock_transactions (id, material_id, type, quantity_delta, before_quantity, after_quantity,
			current_balance, before_reserved, after_reserved, cost_price_snapshot, reference_code, note, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		t.ID, t.MaterialID, t.Type, t.QuantityDelta, t.BeforeQuantity, t.AfterQuantity,
		t.CurrentBalance, t.BeforeReserved, t.AfterReserved, t.CostPriceSnapshot,
		nullable(t.ReferenceCode), nullable(t.Note), nullable(t.CreatedBy), t.CreatedAt,
	).Scan(&t.Seq)
	return mapError("append stock transaction", err)
}

// ListByMaterial lista registros del más reciente al más antiguo.
func (r *StockTransactionRepo) ListByMaterial(ctx context.Context, materialID string, limit, offset int) ([]*entity.StockTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM stock_transactions WHERE material_id = $1
		ORDER BY seq DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, materialID, limit, offset)
	if err != nil {
		return nil, mapError("list stock transactions", err)
	}
	return scanTransactions(rows)
}

// ListByMaterialAsc lista todos los registros en orden de inserción.
func (r *StockTransactionRepo) ListByMaterialAsc(ctx context.Context, materialID string) ([]*entity.StockTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM stock_transactions WHERE material_id = $1
		ORDER BY seq ASC`
	rows, err := r.q.Query(ctx, query, materialID)
	if err != nil {
		return nil, mapError("list stock transactions asc", err)
	}
	return scanTransactions(rows)
}

func (r *StockTransactionRepo) CountByMaterial(ctx context.Context, materialID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM stock_transactions WHERE material_id = $1`, materialID).Scan(&n)
	if err != nil {
		return 0, mapError("count stock transactions", err)
	}
	return n, nil
}

func scanTransactions(rows pgx.Rows) ([]*entity.StockTransaction, error) {
	defer rows.Close()
	var list []*entity.StockTransaction
	for rows.Next() {
		var t entity.StockTransaction
		var reference, note, createdBy *string
		if err := rows.Scan(&t.ID, &t.Seq, &t.MaterialID, &t.Type, &t.QuantityDelta,
			&t.BeforeQuantity, &t.AfterQuantity, &t.CurrentBalance, &t.BeforeReserved, &t.AfterReserved,
			&t.CostPriceSnapshot, &reference, &note, &createdBy, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock transaction: %w", err)
		}
		t.ReferenceCode = deref(reference)
		t.Note = deref(note)
		t.CreatedBy = deref(createdBy)
		list = append(list, &t)
	}
	return list, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
