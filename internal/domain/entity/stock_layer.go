package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLayer es un lote de costo FIFO creado por un movimiento de entrada.
// UnitCost nunca cambia; RemainingQty solo disminuye y queda en [0, OriginalQty].
// Las capas agotadas se conservan para auditoría.
type StockLayer struct {
	ID           string
	Seq          int64 // prioridad FIFO, la más antigua primero
	ItemID       string
	WarehouseID  string
	OriginalQty  decimal.Decimal
	RemainingQty decimal.Decimal
	UnitCost     decimal.Decimal
	SourceMoveID string
	CreatedAt    time.Time
}

// LayerConsumption registra cuánto tomó un movimiento de salida de una capa.
type LayerConsumption struct {
	MoveID   string
	LayerID  string
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}
