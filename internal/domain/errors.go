package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")

	// Errores del motor de kardex (ver entity.Stock y ledger.Engine).
	ErrInsufficientStock     = errors.New("stock insuficiente")
	ErrInsufficientAvailable = errors.New("stock disponible insuficiente")
	ErrNegativeStock         = errors.New("el stock no puede quedar negativo")
	ErrReservedExceedsStock  = errors.New("la reserva no puede exceder el stock")
	ErrOverRelease           = errors.New("liberación mayor que lo reservado")
	ErrUnknownReference      = errors.New("producto, bodega o usuario no existe")
	ErrConcurrencyConflict   = errors.New("conflicto de concurrencia, reintentos agotados")
	ErrStorageFailure        = errors.New("fallo de almacenamiento")
)

// StockError envuelve un error de stock con las cantidades involucradas,
// para que la capa de presentación pueda armar un mensaje accionable
// sin consultar estado interno.
type StockError struct {
	Err       error // sentinel: ErrInsufficientStock, ErrNegativeStock, etc.
	Requested int64
	Available int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%v (solicitado=%d, disponible=%d)", e.Err, e.Requested, e.Available)
}

// Unwrap permite errors.Is contra los sentinels de arriba.
func (e *StockError) Unwrap() error { return e.Err }

// NewStockError construye el error con contexto de cantidades.
func NewStockError(sentinel error, requested, available int64) *StockError {
	return &StockError{Err: sentinel, Requested: requested, Available: available}
}
