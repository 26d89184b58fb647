package repository

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// WarehouseRepository define el puerto de persistencia para Warehouse.
// Create devuelve domain.ErrDuplicate si el nombre ya existe.
type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *entity.Warehouse) error
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
	// GetForMovement relee la bodega dentro de la transacción con bloqueo compartido.
	GetForMovement(ctx context.Context, id string) (*entity.Warehouse, error)
	GetByName(ctx context.Context, name string) (*entity.Warehouse, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Warehouse, error)
}
