package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// MoveFilter filtros y paginación para listar el libro de movimientos.
type MoveFilter struct {
	ItemID      string
	WarehouseID string
	Take        int
	Skip        int
}

// StockMoveRepository puerto del libro de movimientos. Solo inserta y lee: no hay Update ni Delete.
// Las implementaciones funcionan con o sin transacción activa.
type StockMoveRepository interface {
	// Create inserta el movimiento y asigna ID (si falta) y Seq.
	Create(ctx context.Context, move *entity.StockMove) error
	GetByID(ctx context.Context, id string) (*entity.StockMove, error)
	// SumQuantity devuelve el stock de (ítem, bodega); si at no es nil, el stock a esa fecha.
	SumQuantity(ctx context.Context, itemID, warehouseID string, at *time.Time) (decimal.Decimal, error)
	// SumQuantityByItem agrupa el stock del ítem por bodega.
	SumQuantityByItem(ctx context.Context, itemID string) ([]entity.WarehouseStock, error)
	// List devuelve movimientos del más reciente al más antiguo.
	List(ctx context.Context, filter MoveFilter) ([]*entity.StockMove, error)
	// ListChronological devuelve movimientos de (ítem, bodega) en orden (CreatedAt, Seq) ascendente.
	ListChronological(ctx context.Context, itemID, warehouseID string, from, to *time.Time) ([]*entity.StockMove, error)
	// Balance devuelve cantidad y valor acumulados antes de la fecha indicada.
	Balance(ctx context.Context, itemID, warehouseID string, before time.Time) (qty, value decimal.Decimal, err error)
}
