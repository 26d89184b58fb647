package inventory

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad del motor de inventario: si fn devuelve error no queda nada escrito.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		ctx context.Context,
		moveRepo repository.StockMoveRepository,
		layerRepo repository.StockLayerRepository,
		itemRepo repository.ItemRepository,
		warehouseRepo repository.WarehouseRepository,
	) error) error
}

// StockCache caché de solo lectura del resumen de stock por ítem.
// Puede quedar desactualizada hasta que Invalidate corra; el libro es la fuente de verdad.
type StockCache interface {
	GetSummary(ctx context.Context, itemID string) ([]entity.WarehouseStock, bool, error)
	SetSummary(ctx context.Context, itemID string, summary []entity.WarehouseStock) error
	Invalidate(ctx context.Context, itemIDs ...string) error
}
