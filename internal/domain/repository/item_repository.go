package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// ItemRepository puerto de lectura del catálogo de ítems (más la caché de costo promedio).
// GetByID devuelve (nil, nil) si el ítem no existe.
type ItemRepository interface {
	Upsert(ctx context.Context, item *entity.Item) error
	GetByID(ctx context.Context, id string) (*entity.Item, error)
	// GetForMovement relee el ítem dentro de la transacción del movimiento y bloquea la fila
	// hasta el commit: exclusiva si forUpdate (entradas que reescriben avg_cost), compartida si no.
	GetForMovement(ctx context.Context, id string, forUpdate bool) (*entity.Item, error)
	UpdateAvgCost(ctx context.Context, id string, cost decimal.Decimal) error
}
