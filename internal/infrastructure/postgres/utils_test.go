package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventario-ledger/internal/domain"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError("op", nil))
	assert.ErrorIs(t, mapError("op", pgx.ErrNoRows), domain.ErrNotFound)
	assert.ErrorIs(t, mapError("op", &pgconn.PgError{Code: "55P03"}), domain.ErrLockTimeout)
	assert.ErrorIs(t, mapError("op", &pgconn.PgError{Code: "23505"}), domain.ErrAlreadyExists)
	assert.ErrorIs(t, mapError("op", &pgconn.PgError{Code: "23514"}), domain.ErrInvalidQuantity)

	other := errors.New("conexión cerrada")
	err := mapError("get stock record", other)
	assert.ErrorIs(t, err, other)
	assert.Contains(t, err.Error(), "get stock record")
}
