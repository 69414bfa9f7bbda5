package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockRecordRepository = (*StockRecordRepo)(nil)

// StockRecordRepo implementación en memoria de StockRecordRepository.
// Con tx == nil cada escritura se confirma por sí sola.
type StockRecordRepo struct {
	store *Store
	tx    *txState
}

// NewStockRecordRepository construye el repositorio fuera de transacción.
func NewStockRecordRepository(store *Store) *StockRecordRepo {
	return &StockRecordRepo{store: store}
}

func (r *StockRecordRepo) write(fn func(t *txState) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	return r.store.autocommit(fn)
}

// mutate bloquea la fila y aplica fn sobre la copia de trabajo de la tx.
// Devuelve una copia del registro ya modificado cuando fn lo aplicó.
func (r *StockRecordRepo) mutate(ctx context.Context, materialID string, fn func(rec *entity.StockRecord) bool) (*entity.StockRecord, bool, error) {
	var after *entity.StockRecord
	applied := false
	err := r.write(func(t *txState) error {
		if err := t.lock(ctx, materialID); err != nil {
			return err
		}
		s := r.store
		s.mu.Lock()
		defer s.mu.Unlock()
		cur, ok := s.view(t, materialID)
		if !ok {
			return nil
		}
		next := *cur
		if !fn(&next) {
			return nil
		}
		next.UpdatedAt = time.Now()
		t.working[materialID] = &next
		applied = true
		cp := next
		after = &cp
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return after, applied, nil
}

func (r *StockRecordRepo) Create(ctx context.Context, record *entity.StockRecord) error {
	return r.write(func(t *txState) error {
		if err := t.lock(ctx, record.MaterialID); err != nil {
			return err
		}
		s := r.store
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.view(t, record.MaterialID); ok {
			return domain.ErrAlreadyExists
		}
		cp := *record
		t.working[record.MaterialID] = &cp
		return nil
	})
}

// Get lectura sin bloqueo: fuera de tx ve solo lo confirmado; dentro, también sus propios cambios.
func (r *StockRecordRepo) Get(_ context.Context, materialID string) (*entity.StockRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rec, ok := r.store.view(r.tx, materialID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// GetForUpdate espera el bloqueo de fila (hasta el lockTimeout del store) y devuelve el estado.
func (r *StockRecordRepo) GetForUpdate(ctx context.Context, materialID string) (*entity.StockRecord, error) {
	if r.tx == nil {
		return r.Get(ctx, materialID)
	}
	if err := r.tx.lock(ctx, materialID); err != nil {
		return nil, err
	}
	return r.Get(ctx, materialID)
}

func (r *StockRecordRepo) UpdateQuantityAndCost(ctx context.Context, materialID string, quantity int64, cost decimal.Decimal) error {
	var invalid bool
	_, applied, err := r.mutate(ctx, materialID, func(rec *entity.StockRecord) bool {
		if quantity < 0 || quantity < rec.ReservedQuantity {
			invalid = true
			return false
		}
		rec.Quantity = quantity
		rec.CostPrice = cost
		return true
	})
	switch {
	case err != nil:
		return err
	case invalid:
		return domain.ErrInvalidQuantity
	case !applied:
		return domain.ErrNotFound
	}
	return nil
}

func (r *StockRecordRepo) AtomicDeduct(ctx context.Context, materialID string, amount int64) (*entity.StockRecord, bool, error) {
	return r.mutate(ctx, materialID, func(rec *entity.StockRecord) bool {
		if rec.Quantity-rec.ReservedQuantity < amount {
			return false
		}
		rec.Quantity -= amount
		return true
	})
}

func (r *StockRecordRepo) AtomicReserve(ctx context.Context, materialID string, amount int64) (*entity.StockRecord, bool, error) {
	return r.mutate(ctx, materialID, func(rec *entity.StockRecord) bool {
		if rec.Quantity-rec.ReservedQuantity < amount {
			return false
		}
		rec.ReservedQuantity += amount
		return true
	})
}

func (r *StockRecordRepo) AtomicRelease(ctx context.Context, materialID string, amount int64) (*entity.StockRecord, bool, error) {
	return r.mutate(ctx, materialID, func(rec *entity.StockRecord) bool {
		if rec.ReservedQuantity < amount {
			return false
		}
		rec.ReservedQuantity -= amount
		return true
	})
}

func (r *StockRecordRepo) AtomicConfirm(ctx context.Context, materialID string, amount int64) (*entity.StockRecord, bool, error) {
	return r.mutate(ctx, materialID, func(rec *entity.StockRecord) bool {
		if rec.ReservedQuantity < amount {
			return false
		}
		rec.Quantity -= amount
		rec.ReservedQuantity -= amount
		return true
	})
}

func (r *StockRecordRepo) UpdateReorderLevel(ctx context.Context, materialID string, level, expectedVersion int64) (bool, error) {
	_, applied, err := r.mutate(ctx, materialID, func(rec *entity.StockRecord) bool {
		if rec.Version != expectedVersion {
			return false
		}
		rec.ReorderLevel = level
		rec.Version++
		return true
	})
	return applied, err
}

// ListLowStock ordena por déficit (nivel de reorden - disponible) descendente.
func (r *StockRecordRepo) ListLowStock(_ context.Context, limit, offset int) ([]*entity.StockRecord, error) {
	r.store.mu.Lock()
	ids := make(map[string]struct{}, len(r.store.records))
	for id := range r.store.records {
		ids[id] = struct{}{}
	}
	if r.tx != nil {
		for id := range r.tx.working {
			ids[id] = struct{}{}
		}
	}
	var list []*entity.StockRecord
	for id := range ids {
		rec, _ := r.store.view(r.tx, id)
		if rec.ReorderLevel > 0 && rec.IsLowStock() {
			cp := *rec
			list = append(list, &cp)
		}
	}
	r.store.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		di := list[i].ReorderLevel - list[i].AvailableStock()
		dj := list[j].ReorderLevel - list[j].AvailableStock()
		if di != dj {
			return di > dj
		}
		return list[i].MaterialID < list[j].MaterialID
	})
	return page(list, limit, offset), nil
}

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end]
}
