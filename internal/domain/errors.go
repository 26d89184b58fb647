package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio. Los casos de uso los envuelven con fmt.Errorf("%w: ...") para dar contexto;
// los handlers los distinguen con errors.Is.
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrInvalidState       = errors.New("estado inválido para la operación")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrInvariantViolation = errors.New("invariante de inventario violada")
)

// ErrServiceItem se devuelve cuando se intenta mover stock de un ítem tipo SERVICE.
var ErrServiceItem = fmt.Errorf("%w: los ítems de servicio no manejan inventario", ErrInvalidState)

// InsufficientStockError detalla una salida que excede el stock disponible.
// errors.Is(err, ErrInsufficientStock) es verdadero.
type InsufficientStockError struct {
	ItemID      string
	WarehouseID string
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: ítem %s en bodega %s, solicitado %s, disponible %s",
		ErrInsufficientStock, e.ItemID, e.WarehouseID, e.Requested, e.Available)
}

// Is permite comparar contra ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
