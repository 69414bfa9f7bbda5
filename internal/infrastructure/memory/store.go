// Package memory implementa los puertos de stock en memoria, con la misma semántica
// transaccional que el adaptador PostgreSQL en READ COMMITTED: bloqueo de fila hasta
// fin de tx con tiempo de espera, copias de trabajo por tx que solo se publican al
// confirmar junto con el libro, y lecturas de otras tx sobre lo ya confirmado.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// DefaultLockTimeout espera máxima por un bloqueo de fila.
const DefaultLockTimeout = 5 * time.Second

// Store datos compartidos por todos los repositorios y transacciones en memoria.
// records y ledger guardan solo estado confirmado.
type Store struct {
	mu          sync.Mutex
	records     map[string]*entity.StockRecord
	rowLocks    map[string]chan struct{}
	ledger      []*entity.StockTransaction
	seq         int64
	lockTimeout time.Duration
}

// NewStore crea un store vacío. lockTimeout <= 0 usa DefaultLockTimeout.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Store{
		records:     make(map[string]*entity.StockRecord),
		rowLocks:    make(map[string]chan struct{}),
		lockTimeout: lockTimeout,
	}
}

// txState estado de una transacción en curso. working guarda las filas que la tx
// creó o modificó; solo la tx que tiene el bloqueo de la fila puede tener su copia.
type txState struct {
	store   *Store
	held    map[string]chan struct{}
	working map[string]*entity.StockRecord
	pending []*entity.StockTransaction
	done    bool
}

func (s *Store) begin() *txState {
	return &txState{
		store:   s,
		held:    make(map[string]chan struct{}),
		working: make(map[string]*entity.StockRecord),
	}
}

// view devuelve la fila tal como la ve t (copia propia o confirmada); t puede ser nil.
// Requiere s.mu.
func (s *Store) view(t *txState, materialID string) (*entity.StockRecord, bool) {
	if t != nil {
		if rec, ok := t.working[materialID]; ok {
			return rec, true
		}
	}
	rec, ok := s.records[materialID]
	return rec, ok
}

func (s *Store) rowLock(materialID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.rowLocks[materialID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.rowLocks[materialID] = ch
	}
	return ch
}

// lock toma el bloqueo de fila del material hasta el fin de la tx (reentrante dentro de la tx).
func (t *txState) lock(ctx context.Context, materialID string) error {
	if _, ok := t.held[materialID]; ok {
		return nil
	}
	ch := t.store.rowLock(materialID)
	timer := time.NewTimer(t.store.lockTimeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		t.held[materialID] = ch
		return nil
	case <-timer.C:
		return domain.ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *txState) commit() {
	if t.done {
		return
	}
	t.done = true
	s := t.store
	s.mu.Lock()
	for id, rec := range t.working {
		s.records[id] = rec
	}
	for _, rec := range t.pending {
		s.seq++
		rec.Seq = s.seq
		s.ledger = append(s.ledger, rec)
	}
	s.mu.Unlock()
	t.releaseLocks()
}

func (t *txState) rollback() {
	if t.done {
		return
	}
	t.done = true
	t.working = nil
	t.pending = nil
	t.releaseLocks()
}

func (t *txState) releaseLocks() {
	for id, ch := range t.held {
		<-ch
		delete(t.held, id)
	}
}

// autocommit ejecuta fn en una tx propia, como una sentencia fuera de transacción.
func (s *Store) autocommit(fn func(t *txState) error) error {
	t := s.begin()
	if err := fn(t); err != nil {
		t.rollback()
		return err
	}
	t.commit()
	return nil
}
