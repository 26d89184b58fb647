package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MoveKindPurchase    = "PURCHASE"     // entrada por compra
	MoveKindSale        = "SALE"         // salida por venta
	MoveKindAdjustment  = "ADJUSTMENT"   // ajuste, entrada o salida según la dirección
	MoveKindTransferIn  = "TRANSFER_IN"  // entrada por traslado
	MoveKindTransferOut = "TRANSFER_OUT" // salida por traslado
)

// StockMove es una fila inmutable del libro de inventario.
// Quantity es positiva en entradas y negativa en salidas; la suma de Quantity por
// (ítem, bodega) es el stock disponible.
type StockMove struct {
	ID          string
	Seq         int64 // orden de inserción, desempata movimientos con el mismo CreatedAt
	ItemID      string
	WarehouseID string
	Kind        string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal // entradas: costo del caller; salidas: costo ponderado FIFO
	TotalCost   decimal.Decimal // con signo, igual al valor que suma o resta al inventario
	RefType     string
	RefID       string
	Note        string
	CreatedAt   time.Time
	CreatedBy   string
}

// IsInbound indica si el movimiento suma stock.
func (m *StockMove) IsInbound() bool {
	return m.Quantity.IsPositive()
}

// WarehouseStock cantidad disponible de un ítem en una bodega.
type WarehouseStock struct {
	WarehouseID string          `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"qty"`
}
