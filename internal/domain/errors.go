package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound        = errors.New("registro de stock no encontrado")
	ErrAlreadyExists   = errors.New("el registro de stock ya existe")
	ErrInvalidInput    = errors.New("entrada inválida")
	ErrInvalidQuantity = errors.New("cantidad inválida")
	ErrVersionConflict = errors.New("los datos cambiaron, intente de nuevo")
	ErrLockTimeout     = errors.New("tiempo de espera de bloqueo agotado")

	// Resultados de negocio: la precondición atómica no se cumplió. No se reintentan.
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrReserveFailed     = errors.New("no se pudo reservar el stock")
	ErrReleaseFailed     = errors.New("no se pudo liberar la reserva")
	ErrConfirmFailed     = errors.New("no se pudo confirmar la reserva")
)

// IsBusinessOutcome indica si err es un resultado esperado de negocio (falta de stock),
// no una falla del sistema.
func IsBusinessOutcome(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrReserveFailed) ||
		errors.Is(err, ErrReleaseFailed) ||
		errors.Is(err, ErrConfirmFailed)
}

// IsRetryable indica si el llamador puede reintentar con backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
