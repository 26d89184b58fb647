package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direcciones de un ajuste (solo aplica a type=ADJUSTMENT).
const (
	DirectionIncrease = "INCREASE"
	DirectionDecrease = "DECREASE"
)

// RegisterMovementRequest body para POST /api/inventory/movements.
// Quantity siempre positiva; el signo sale del tipo (o de Direction en ajustes).
type RegisterMovementRequest struct {
	ItemID      string           `json:"item_id" validate:"required"`
	WarehouseID string           `json:"warehouse_id" validate:"required"`
	Type        string           `json:"type" validate:"required,oneof=PURCHASE SALE ADJUSTMENT TRANSFER_IN TRANSFER_OUT"`
	Direction   string           `json:"direction,omitempty" validate:"omitempty,oneof=INCREASE DECREASE"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	RefType     string           `json:"ref_type,omitempty" validate:"max=50"`
	RefID       string           `json:"ref_id,omitempty" validate:"max=100"`
	Note        string           `json:"note,omitempty" validate:"max=500"`
}

// TransferRequest body para POST /api/inventory/transfers.
type TransferRequest struct {
	ItemID          string          `json:"item_id" validate:"required"`
	FromWarehouseID string          `json:"from_warehouse_id" validate:"required"`
	ToWarehouseID   string          `json:"to_warehouse_id" validate:"required,nefield=FromWarehouseID"`
	Quantity        decimal.Decimal `json:"quantity"`
	RefType         string          `json:"ref_type,omitempty" validate:"max=50"`
	RefID           string          `json:"ref_id,omitempty" validate:"max=100"`
	Note            string          `json:"note,omitempty" validate:"max=500"`
}

// StockMoveResponse una fila del libro de movimientos.
type StockMoveResponse struct {
	ID          string          `json:"id"`
	Seq         int64           `json:"seq"`
	ItemID      string          `json:"item_id"`
	WarehouseID string          `json:"warehouse_id"`
	Type        string          `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	RefType     string          `json:"ref_type,omitempty"`
	RefID       string          `json:"ref_id,omitempty"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CreatedBy   string          `json:"created_by,omitempty"`
}

// LayerConsumptionResponse cuánto tomó una salida de una capa.
type LayerConsumptionResponse struct {
	LayerID  string          `json:"layer_id"`
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// MovementResponse resultado de registrar un movimiento.
type MovementResponse struct {
	Move         StockMoveResponse          `json:"move"`
	Layers       []StockLayerResponse       `json:"layers,omitempty"`
	Consumptions []LayerConsumptionResponse `json:"consumptions,omitempty"`
}

// TransferResponse resultado de un traslado entre bodegas.
type TransferResponse struct {
	Out StockMoveResponse `json:"out"`
	In  StockMoveResponse `json:"in"`
}

// StockResponse stock de un ítem en una bodega.
type StockResponse struct {
	ItemID      string          `json:"item_id"`
	WarehouseID string          `json:"warehouse_id"`
	Qty         decimal.Decimal `json:"qty"`
}

// WarehouseStockResponse stock por bodega dentro de un resumen.
type WarehouseStockResponse struct {
	WarehouseID string          `json:"warehouse_id"`
	Qty         decimal.Decimal `json:"qty"`
}

// StockLayerResponse capa FIFO abierta.
type StockLayerResponse struct {
	ID           string          `json:"id"`
	OriginalQty  decimal.Decimal `json:"original_qty"`
	RemainingQty decimal.Decimal `json:"remaining_qty"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	SourceMoveID string          `json:"source_move_id"`
	CreatedAt    time.Time       `json:"created_at"`
}

// MoveListResponse página de movimientos.
type MoveListResponse struct {
	Items []StockMoveResponse `json:"items"`
	Take  int                 `json:"take"`
	Skip  int                 `json:"skip"`
}

// KardexBalanceResponse saldo del kardex.
type KardexBalanceResponse struct {
	Qty     decimal.Decimal `json:"qty"`
	Value   decimal.Decimal `json:"value"`
	AvgCost decimal.Decimal `json:"avg_cost"`
}

// KardexRowResponse línea del kardex.
type KardexRowResponse struct {
	MoveID       string          `json:"move_id"`
	Type         string          `json:"type"`
	RefType      string          `json:"ref_type,omitempty"`
	RefID        string          `json:"ref_id,omitempty"`
	Note         string          `json:"note,omitempty"`
	Date         time.Time       `json:"date"`
	QtyIn        decimal.Decimal `json:"qty_in"`
	QtyOut       decimal.Decimal `json:"qty_out"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Value        decimal.Decimal `json:"value"`
	BalanceQty   decimal.Decimal `json:"balance_qty"`
	BalanceValue decimal.Decimal `json:"balance_value"`
	AvgCost      decimal.Decimal `json:"avg_cost"`
}

// KardexResponse kardex de un ítem en una bodega.
type KardexResponse struct {
	ItemID      string                `json:"item_id"`
	WarehouseID string                `json:"warehouse_id"`
	From        *time.Time            `json:"from,omitempty"`
	To          *time.Time            `json:"to,omitempty"`
	Opening     KardexBalanceResponse `json:"opening"`
	Rows        []KardexRowResponse   `json:"rows"`
	Ending      KardexBalanceResponse `json:"ending"`
}
