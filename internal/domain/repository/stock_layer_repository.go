package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// StockLayerRepository puerto de las capas FIFO.
type StockLayerRepository interface {
	// Lock serializa las escrituras sobre (ítem, bodega) hasta el fin de la transacción.
	Lock(ctx context.Context, itemID, warehouseID string) error
	// Create inserta la capa y asigna ID (si falta) y Seq.
	Create(ctx context.Context, layer *entity.StockLayer) error
	// ListOpen devuelve capas con saldo > 0, la más antigua primero. forUpdate bloquea las filas.
	ListOpen(ctx context.Context, itemID, warehouseID string, forUpdate bool) ([]*entity.StockLayer, error)
	UpdateRemaining(ctx context.Context, layerID string, remaining decimal.Decimal) error
	RecordConsumptions(ctx context.Context, consumptions []entity.LayerConsumption) error
}
